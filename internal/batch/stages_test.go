package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/resilience"
	"github.com/kbukum/whisperbatch/storage"
)

func TestSaver_Save(t *testing.T) {
	e := newEnv(t)
	saver := NewSaver(e.store, logger.NewNop())
	content := mp3Header + strings.Repeat("x", storage.ChunkSize*2+17)

	sf, err := saver.Save(context.Background(), upload("Talk.MP3", "audio/mpeg", content), "/run", "", 3)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sf.Index != 3 || sf.Path != "/run/Talk.MP3" || sf.OutputName != "Talk.txt" {
		t.Errorf("unexpected saved file %+v", sf)
	}
	if sf.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", sf.Size, len(content))
	}
	if sf.DetectedType != "audio/mpeg" {
		t.Errorf("detected type = %q", sf.DetectedType)
	}
	data, err := afero.ReadFile(e.fs, "/run/Talk.MP3")
	if err != nil || string(data) != content {
		t.Fatalf("saved content mismatch (err %v)", err)
	}
}

func TestSaver_SaveUnderGivenName(t *testing.T) {
	e := newEnv(t)
	saver := NewSaver(e.store, logger.NewNop())

	sf, err := saver.Save(context.Background(), upload("../../etc/a.mp3", "audio/mpeg", "plain text"), "/run", "1_a.mp3", 1)
	if err != nil {
		t.Fatal(err)
	}
	if sf.Path != "/run/1_a.mp3" || sf.OutputName != "a.txt" {
		t.Errorf("unexpected saved file %+v", sf)
	}
	if sf.DetectedType == "audio/mpeg" {
		t.Error("text content should not be detected as audio")
	}
}

func TestSaver_SaveFailures(t *testing.T) {
	e := newEnv(t)
	saver := NewSaver(e.store, logger.NewNop())
	ctx := context.Background()

	if _, err := saver.Save(ctx, upload("", "audio/mpeg", "x"), "/run", "", 0); err == nil {
		t.Error("expected error for missing filename")
	}

	_, err := saver.Save(ctx, upload("empty.mp3", "audio/mpeg", ""), "/run", "", 0)
	if !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("expected ErrEmptyUpload, got %v", err)
	}
	if ok, _ := afero.Exists(e.fs, "/run/empty.mp3"); ok {
		t.Error("empty upload should not be left on disk")
	}

	if _, err := saver.Save(ctx, failingUpload("a.mp3", errors.New("multipart: closed")), "/run", "", 0); err == nil || !strings.Contains(err.Error(), "multipart: closed") {
		t.Errorf("expected open error, got %v", err)
	}
}

func TestStage_Transcribe(t *testing.T) {
	e := newEnv(t)
	e.provider.texts["a.mp3"] = "  hello  "
	if err := afero.WriteFile(e.fs, "/run/a.mp3", []byte(mp3Header+"audio"), 0o640); err != nil {
		t.Fatal(err)
	}

	stage := NewStage(e.store, e.provider, nil, "test", logger.NewNop())
	text, err := stage.Transcribe(context.Background(), "sk-key", "/run/a.mp3", "pt")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "  hello  " {
		t.Errorf("text = %q", text)
	}

	call := e.provider.calls[0]
	if call.FileName != "a.mp3" || call.Language != "pt" || call.Credential != "sk-key" {
		t.Errorf("unexpected provider request %+v", call)
	}
	if e.provider.audio["a.mp3"] != mp3Header+"audio" {
		t.Error("provider did not receive the saved audio")
	}
	if stage.Provider() != "fake" {
		t.Errorf("provider = %q", stage.Provider())
	}
}

func TestStage_TranscribeLocalFailures(t *testing.T) {
	e := newEnv(t)
	if err := afero.WriteFile(e.fs, "/run/empty.mp3", nil, 0o640); err != nil {
		t.Fatal(err)
	}
	stage := NewStage(e.store, e.provider, nil, "test", logger.NewNop())
	ctx := context.Background()

	if _, err := stage.Transcribe(ctx, "k", "/run/missing.mp3", "en"); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected missing file error, got %v", err)
	}
	if _, err := stage.Transcribe(ctx, "k", "/run/empty.mp3", "en"); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("expected ErrEmptyFile, got %v", err)
	}
	if e.provider.callCount() != 0 {
		t.Error("provider must not be called for local failures")
	}
}

func TestStage_ProviderErrorPropagates(t *testing.T) {
	e := newEnv(t)
	e.provider.errs["a.mp3"] = errProviderAuth
	if err := afero.WriteFile(e.fs, "/run/a.mp3", []byte("x"), 0o640); err != nil {
		t.Fatal(err)
	}
	stage := NewStage(e.store, e.provider, nil, "test", logger.NewNop())

	_, err := stage.Transcribe(context.Background(), "k", "/run/a.mp3", "en")
	if !errors.Is(err, errProviderAuth) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestStage_BulkheadCapsConcurrentCalls(t *testing.T) {
	e := newEnv(t)
	names := []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"}
	for _, n := range names {
		e.provider.delays[n] = 20 * time.Millisecond
		if err := afero.WriteFile(e.fs, "/run/"+n, []byte("x"), 0o640); err != nil {
			t.Fatal(err)
		}
	}
	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "provider", MaxConcurrent: 2, MaxWait: time.Second})
	stage := NewStage(e.store, e.provider, bulkhead, "test", logger.NewNop())

	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := stage.Transcribe(context.Background(), "k", "/run/"+n, "en"); err != nil {
				t.Errorf("%s: %v", n, err)
			}
		}()
	}
	wg.Wait()

	if e.provider.maxInFlight > 2 {
		t.Errorf("max in flight = %d, want <= 2", e.provider.maxInFlight)
	}
}

func TestStage_ValidateCredential(t *testing.T) {
	e := newEnv(t)
	plain := NewStage(e.store, e.provider, nil, "test", logger.NewNop())
	if err := plain.ValidateCredential("any thing"); err != nil {
		t.Errorf("provider without validator should accept, got %v", err)
	}

	checked := NewStage(e.store, &validatingProvider{e.provider}, nil, "test", logger.NewNop())
	if err := checked.ValidateCredential("bad key"); err == nil {
		t.Error("expected credential rejection")
	}
	if err := checked.ValidateCredential("sk-good"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestBuildArchive(t *testing.T) {
	e := newEnv(t)
	outcomes := []Outcome{
		{Index: 0, OutputName: "a.txt", Status: StatusTranscribed, Text: "\n hello \n"},
		{Index: 1, OutputName: "b.txt", Status: StatusRejected, Reason: "File b.wav has invalid extension: .wav"},
		{Index: 2, Status: StatusRejected, Reason: "File has no filename"},
		{Index: 3, OutputName: "c.txt", Status: StatusFailed, Reason: "fake auth error"},
		{Index: 4, OutputName: "a.txt", Status: StatusTranscribed, Text: "again"},
	}

	p, size, err := BuildArchive(context.Background(), e.store, "/run", outcomes)
	if err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	if p != "/run/transcriptions.zip" || size <= 0 {
		t.Errorf("unexpected archive %s (%d bytes)", p, size)
	}

	want := []entry{
		{"a.txt", "hello"},
		{"error_b.txt", "Transcription failed: File b.wav has invalid extension: .wav"},
		{"error_file_2.txt", "Transcription failed: File has no filename"},
		{"error_c.txt", "Transcription failed: fake auth error"},
		{"4_a.txt", "again"},
	}
	got := readArchive(t, e.fs, p)
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBuildArchive_PrefixedNameAlreadyTaken(t *testing.T) {
	e := newEnv(t)
	outcomes := []Outcome{
		{Index: 0, OutputName: "2_a.txt", Status: StatusTranscribed, Text: "zero"},
		{Index: 1, OutputName: "a.txt", Status: StatusTranscribed, Text: "one"},
		{Index: 2, OutputName: "a.txt", Status: StatusTranscribed, Text: "two"},
	}

	p, _, err := BuildArchive(context.Background(), e.store, "/run", outcomes)
	if err != nil {
		t.Fatal(err)
	}
	want := []entry{{"2_a.txt", "zero"}, {"a.txt", "one"}, {"2_2_a.txt", "two"}}
	got := readArchive(t, e.fs, p)
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBuildArchive_CancelledContext(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := BuildArchive(ctx, e.store, "/run", []Outcome{{Status: StatusRejected}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
