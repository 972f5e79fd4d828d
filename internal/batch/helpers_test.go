package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/whisperbatch/internal/workspace"
	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/storage"
	"github.com/kbukum/whisperbatch/storage/local"
	"github.com/kbukum/whisperbatch/transcription"
)

// mp3Header is enough for content sniffing to report audio/mpeg.
var mp3Header = "ID3\x03\x00\x00\x00\x00\x00\x00"

type fakeProvider struct {
	mu          sync.Mutex
	texts       map[string]string
	errs        map[string]error
	delays      map[string]time.Duration
	panics      map[string]bool
	calls       []transcription.TranscriptionRequest
	audio       map[string]string
	inFlight    int
	maxInFlight int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		texts:  map[string]string{},
		errs:   map[string]error{},
		delays: map[string]time.Duration{},
		panics: map[string]bool{},
		audio:  map[string]string{},
	}
}

func (f *fakeProvider) Name() string                       { return "fake" }
func (f *fakeProvider) IsAvailable(_ context.Context) bool { return true }

func (f *fakeProvider) Transcribe(ctx context.Context, req transcription.TranscriptionRequest) (*transcription.TranscriptionResponse, error) {
	data, err := io.ReadAll(req.Audio)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.audio[req.FileName] = string(data)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay, fail, boom := f.delays[req.FileName], f.errs[req.FileName], f.panics[req.FileName]
	text, ok := f.texts[req.FileName]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if boom {
		panic("provider blew up")
	}
	if fail != nil {
		return nil, fail
	}
	if !ok {
		text = "transcript of " + req.FileName
	}
	return &transcription.TranscriptionResponse{Text: text, Language: req.Language}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// validatingProvider also checks credentials locally.
type validatingProvider struct {
	*fakeProvider
}

func (v *validatingProvider) ValidateCredential(credential string) error {
	if strings.ContainsAny(credential, " \t") {
		return transcription.ErrInvalidCredential
	}
	return nil
}

func upload(name, mediaType, content string) Item {
	return Item{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func failingUpload(name string, err error) Item {
	return Item{
		Name:      name,
		MediaType: "audio/mpeg",
		Size:      10,
		Open:      func() (io.ReadCloser, error) { return nil, err },
	}
}

type env struct {
	fs       afero.Fs
	store    storage.Storage
	provider *fakeProvider
	manager  *workspace.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := local.NewStorageWithFs(fs)
	return &env{
		fs:       fs,
		store:    store,
		provider: newFakeProvider(),
		manager:  workspace.NewManager(store, workspace.Config{}, logger.NewNop()),
	}
}

func (e *env) processor(rules Rules) *Processor {
	stage := NewStage(e.store, e.provider, nil, "test", logger.NewNop())
	return NewProcessor(rules, e.store, stage, nil, logger.NewNop())
}

func (e *env) begin(t *testing.T) *workspace.Run {
	t.Helper()
	run, err := e.manager.Begin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return run
}

type entry struct {
	name string
	body string
}

func readArchive(t *testing.T, fs afero.Fs, p string) []entry {
	t.Helper()
	data, err := afero.ReadFile(fs, p)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Errorf("entry %s is not deflated", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		entries = append(entries, entry{name: f.Name, body: string(body)})
	}
	return entries
}

var errProviderAuth = &transcription.ProviderError{
	Provider:   "fake",
	Kind:       transcription.KindAuth,
	StatusCode: 401,
	Message:    "Incorrect API key provided",
	Err:        errors.New("HTTP 401"),
}
