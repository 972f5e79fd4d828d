package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/storage"
	"github.com/kbukum/whisperbatch/util"
)

// sniffLen is how many leading bytes are inspected to detect the content type.
const sniffLen = 3072

// ErrEmptyUpload is returned when an upload contained no bytes.
var ErrEmptyUpload = errors.New("saved file is empty")

// SavedFile is an upload persisted in a run directory.
type SavedFile struct {
	Index      int
	Path       string
	OutputName string
	Size       int64
	// DetectedType is the content type sniffed from the first bytes.
	DetectedType string
}

// Saver streams uploads into storage.
type Saver struct {
	store storage.Storage
	log   *logger.Logger
}

// NewSaver creates a Saver writing into store.
func NewSaver(store storage.Storage, log *logger.Logger) *Saver {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Saver{store: store, log: log.WithComponent("batch.save")}
}

// Save writes item to dir under fileName, which defaults to the item's
// base name. An empty upload is removed again and reported as ErrEmptyUpload.
func (s *Saver) Save(ctx context.Context, item Item, dir, fileName string, index int) (*SavedFile, error) {
	base := BaseName(item.Name)
	if base == "" {
		return nil, errors.New("file has no filename")
	}
	if fileName == "" {
		fileName = base
	}
	if item.Open == nil {
		return nil, fmt.Errorf("file %s has no content", item.Name)
	}

	src, err := item.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	br := bufio.NewReaderSize(src, storage.ChunkSize)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	detected := mimetype.Detect(head)

	p := path.Join(dir, fileName)
	written, err := s.store.Upload(ctx, p, br)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", item.Name, err)
	}

	log := s.log.WithContext(ctx).With(logger.Fields(logger.FieldFile, item.Name, logger.FieldIndex, index))
	if written == 0 {
		_ = s.store.Delete(ctx, p)
		log.Error("saved file is empty")
		return nil, ErrEmptyUpload
	}
	if !isAudio(detected) {
		log.Warn("upload content does not look like audio", logger.Fields("detected_type", detected.String()))
	}
	log.Info("file saved", logger.Fields("bytes", written, "size", util.FormatSize(written), "detected_type", detected.String()))

	return &SavedFile{
		Index:        index,
		Path:         p,
		OutputName:   OutputName(item.Name),
		Size:         written,
		DetectedType: detected.String(),
	}, nil
}

func isAudio(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}
