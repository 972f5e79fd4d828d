package batch

import (
	"archive/zip"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kbukum/whisperbatch/storage"
)

// ArchiveName is the name of the archive in the run directory and in the
// response.
const ArchiveName = "transcriptions.zip"

// BuildArchive writes one entry per outcome, in index order, to
// dir/transcriptions.zip and returns its path and size. A transcript is
// stored under its output name; any failure is stored as error_<name> with
// the reason.
func BuildArchive(ctx context.Context, store storage.Storage, dir string, outcomes []Outcome) (string, int64, error) {
	p := path.Join(dir, ArchiveName)
	w, err := store.Create(ctx, p)
	if err != nil {
		return "", 0, fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(w)
	if err := writeEntries(ctx, zw, outcomes); err != nil {
		_ = zw.Close()
		_ = w.Close()
		return "", 0, err
	}
	if err := zw.Close(); err != nil {
		_ = w.Close()
		return "", 0, fmt.Errorf("finish archive: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", 0, fmt.Errorf("close archive: %w", err)
	}

	info, err := store.Stat(ctx, p)
	if err != nil {
		return "", 0, err
	}
	return p, info.Size, nil
}

func writeEntries(ctx context.Context, zw *zip.Writer, outcomes []Outcome) error {
	modified := time.Now()
	used := make(map[string]bool, len(outcomes))

	for _, o := range outcomes {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := claim(used, o.EntryName(), o.Index)

		body := "Transcription failed: " + o.Reason
		if o.Succeeded() {
			body = strings.TrimSpace(o.Text)
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", name, err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			return fmt.Errorf("write %s to archive: %w", name, err)
		}
	}
	return nil
}
