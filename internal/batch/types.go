package batch

import (
	"cmp"
	"fmt"
	"io"
	"path"
	"strings"
)

// Item is one uploaded file.
type Item struct {
	// Name is the client-supplied file name.
	Name string
	// MediaType is the declared content type of the part.
	MediaType string
	// Size is the upload size in bytes, known before the content is read.
	Size int64
	// Open returns the upload content.
	Open func() (io.ReadCloser, error)
}

// Request is one batch submitted for transcription.
type Request struct {
	Items      []Item
	Language   string
	Credential string
}

// Status is the state an item reached.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusSaveFailed  Status = "save_failed"
	StatusTranscribed Status = "transcribed"
	StatusFailed      Status = "failed"
)

// Outcome is the result for one item of the batch.
type Outcome struct {
	Index int
	Name  string
	// OutputName is the transcript file name, empty when Name is empty.
	OutputName string
	Status     Status
	Text       string
	Reason     string
}

// Succeeded reports whether the item produced a transcript.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusTranscribed
}

// EntryName is the name of the item's archive entry.
func (o Outcome) EntryName() string {
	if o.Succeeded() {
		return o.OutputName
	}
	return "error_" + cmp.Or(o.OutputName, fmt.Sprintf("file_%d.txt", o.Index))
}

// Result is a completed batch.
type Result struct {
	// ArchivePath is the storage path of the archive inside the run directory.
	ArchivePath string
	ArchiveSize int64
	Outcomes    []Outcome
}

// Counts returns the number of outcomes per status.
func (r *Result) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// BaseName strips any directory part a client put into a file name.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.TrimSpace(name) == "" {
		return ""
	}
	base := path.Base(name)
	if base == "/" || base == "." || base == ".." {
		return ""
	}
	return base
}

// OutputName replaces the extension of name with ".txt".
func OutputName(name string) string {
	base := BaseName(name)
	if base == "" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base)) + ".txt"
}

// claim reserves name in used, prefixing it with "<index>_" until it no
// longer collides with a name already taken in the batch.
func claim(used map[string]bool, name string, index int) string {
	for used[name] {
		name = fmt.Sprintf("%d_%s", index, name)
	}
	used[name] = true
	return name
}
