package batch

import (
	"testing"
)

func TestRules_Validate(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name   string
		item   Item
		want   Status
		reason string
	}{
		{"mp3", Item{Name: "a.mp3", MediaType: "audio/mpeg", Size: 10}, StatusAccepted, ""},
		{"mpeg with mp3 type", Item{Name: "a.mpeg", MediaType: "audio/mp3", Size: 10}, StatusAccepted, ""},
		{"upper case extension", Item{Name: "A.MP3", MediaType: "AUDIO/MPEG", Size: 10}, StatusAccepted, ""},
		{"media type parameters", Item{Name: "a.mpeg", MediaType: "audio/mpeg; charset=binary", Size: 10}, StatusAccepted, ""},
		{"mp3 with wrong media type", Item{Name: "a.mp3", MediaType: "application/octet-stream", Size: 10}, StatusAccepted, ""},
		{"no filename", Item{Name: "", MediaType: "audio/mpeg"}, StatusRejected, "File has no filename"},
		{"blank filename", Item{Name: "  ", MediaType: "audio/mpeg"}, StatusRejected, "File has no filename"},
		{"wrong extension", Item{Name: "b.wav", MediaType: "audio/mpeg", Size: 10}, StatusRejected, "File b.wav has invalid extension: .wav"},
		{"no extension", Item{Name: "notes", MediaType: "audio/mpeg"}, StatusRejected, "File notes has invalid extension: "},
		{"mpeg with wrong media type", Item{Name: "a.mpeg", MediaType: "text/plain", Size: 10}, StatusRejected, "File a.mpeg has invalid MIME type: text/plain"},
		{"too large", Item{Name: "big.mp3", MediaType: "audio/mpeg", Size: 100<<20 + 1}, StatusRejected, "File big.mp3 exceeds maximum size of 100 MiB"},
		{"exactly max size", Item{Name: "big.mp3", MediaType: "audio/mpeg", Size: 100 << 20}, StatusAccepted, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := rules.Validate(tc.item)
			if got.Status != tc.want || got.Reason != tc.reason {
				t.Errorf("Validate() = %s %q, want %s %q", got.Status, got.Reason, tc.want, tc.reason)
			}
		})
	}
}

func TestRules_ValidateExtensionOutsideSetAlwaysRejected(t *testing.T) {
	rules := DefaultRules()
	for _, name := range []string{"a.wav", "a.m4a", "a.mp3.exe", "a.txt", "a.ogg"} {
		for _, mt := range []string{"audio/mpeg", "audio/mp3", "", "audio/wav"} {
			if got := rules.Validate(Item{Name: name, MediaType: mt, Size: 1}); got.Status != StatusRejected {
				t.Errorf("%s (%s) was accepted", name, mt)
			}
		}
	}
}

func TestRules_CustomLimits(t *testing.T) {
	rules := Rules{
		MaxFileSize:       1024,
		AllowedExtensions: []string{".OGG"},
		AllowedMediaTypes: []string{"audio/ogg"},
		Languages:         []string{"de"},
	}
	if got := rules.Validate(Item{Name: "a.ogg", MediaType: "audio/ogg", Size: 10}); got.Status != StatusAccepted {
		t.Errorf("expected accepted, got %q", got.Reason)
	}
	if got := rules.Validate(Item{Name: "a.ogg", MediaType: "audio/wav", Size: 10}); got.Reason != "File a.ogg has invalid MIME type: audio/wav" {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	if got := rules.Validate(Item{Name: "a.ogg", MediaType: "audio/ogg", Size: 2048}); got.Reason != "File a.ogg exceeds maximum size of 1.0 KiB" {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	if !rules.SupportsLanguage("de") || rules.SupportsLanguage("en") {
		t.Error("unexpected language support")
	}
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"a.mp3":           "a.txt",
		"a.MP3":           "a.txt",
		"talk.final.mpeg": "talk.final.txt",
		"dir/x.mpeg":      "x.txt",
		`C:\tmp\y.mp3`:    "y.txt",
		"noext":           "noext.txt",
		"":                "",
		"../":             "",
	}
	for in, want := range tests {
		if got := OutputName(in); got != want {
			t.Errorf("OutputName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutcome_EntryName(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{Outcome{Index: 0, OutputName: "a.txt", Status: StatusTranscribed}, "a.txt"},
		{Outcome{Index: 1, OutputName: "b.txt", Status: StatusRejected}, "error_b.txt"},
		{Outcome{Index: 2, OutputName: "c.txt", Status: StatusFailed}, "error_c.txt"},
		{Outcome{Index: 3, Status: StatusRejected}, "error_file_3.txt"},
	}
	for _, tc := range tests {
		if got := tc.o.EntryName(); got != tc.want {
			t.Errorf("EntryName() = %q, want %q", got, tc.want)
		}
	}
}
