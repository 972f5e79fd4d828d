package httpclient

import (
	"bytes"
	"io"
	"net/http"
)

// Body is a request payload. MultipartBody and Raw implement it.
type Body interface {
	encode() (io.ReadCloser, string)
}

// Raw is a payload sent as is.
type Raw struct {
	ContentType string
	Data        []byte
}

func (r Raw) encode() (io.ReadCloser, string) {
	return io.NopCloser(bytes.NewReader(r.Data)), r.ContentType
}

// Request is one outbound call.
type Request struct {
	Method string
	// Path is joined to the client's BaseURL unless it is an absolute URL.
	Path string
	// Header overrides the client's default headers.
	Header http.Header
	Body   Body
	// Token is sent as a Bearer credential when set.
	Token string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode/100 == 2 }

// Text is the body as a string.
func (r *Response) Text() string { return string(r.Body) }
