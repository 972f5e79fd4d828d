package httpclient

import (
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/textproto"
	"slices"
	"strings"
)

// MultipartBody is a multipart/form-data request body. Fields are written
// first in key order, then Files in slice order. File contents are streamed
// through a pipe while the request is sent.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is one file part. ContentType defaults to
// application/octet-stream.
type FileField struct {
	FieldName   string
	FileName    string
	ContentType string
	Reader      io.Reader
}

var headerQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (f FileField) header() textproto.MIMEHeader {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		headerQuoter.Replace(f.FieldName), headerQuoter.Replace(f.FileName)))
	h.Set("Content-Type", ct)
	return h
}

// encode starts writing the body into a pipe and returns its read end with
// the Content-Type header value. A failed read of a file aborts the pipe
// with that error; closing the reader stops the writer.
func (m *MultipartBody) encode() (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() { pw.CloseWithError(m.write(mw)) }()
	return pr, mw.FormDataContentType()
}

func (m *MultipartBody) write(mw *multipart.Writer) error {
	for _, name := range slices.Sorted(maps.Keys(m.Fields)) {
		if err := mw.WriteField(name, m.Fields[name]); err != nil {
			return err
		}
	}
	for _, f := range m.Files {
		part, err := mw.CreatePart(f.header())
		if err != nil {
			return err
		}
		if f.Reader == nil {
			continue
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return fmt.Errorf("copy %s: %w", f.FileName, err)
		}
	}
	return mw.Close()
}
