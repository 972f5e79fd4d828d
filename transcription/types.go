package transcription

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TranscriptionRequest is one audio file to transcribe. The audio comes
// from Audio when set, otherwise from the file at AudioPath.
type TranscriptionRequest struct {
	Audio     io.Reader
	AudioPath string
	// FileName is what the backend is told the upload is called.
	FileName string
	Language string
	// Model overrides the provider's configured model.
	Model string
	// Credential is the caller's key for the backend.
	Credential string
}

// Name is FileName, else the base of AudioPath, else "audio.mp3".
func (r TranscriptionRequest) Name() string {
	if r.FileName == "" && r.AudioPath != "" {
		return filepath.Base(r.AudioPath)
	}
	return cmp.Or(r.FileName, "audio.mp3")
}

// OpenAudio opens the request audio for one upload. Closing the result
// never closes a caller-supplied Audio.
func (r TranscriptionRequest) OpenAudio() (io.ReadCloser, error) {
	switch {
	case r.Audio != nil:
		return io.NopCloser(r.Audio), nil
	case r.AudioPath == "":
		return nil, errors.New("request carries no audio")
	}
	f, err := os.Open(r.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	return f, nil
}

// TranscriptionResponse is what a backend returned for one file.
type TranscriptionResponse struct {
	Text     string
	Segments []Segment
	// Duration is in seconds; zero when the backend does not report it.
	Duration float64
	Language string
}

// Segment is a span of the transcript, with offsets in seconds.
type Segment struct {
	Start, End float64
	Text       string
}
