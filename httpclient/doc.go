// Package httpclient provides the HTTP plumbing shared by the transcription
// providers: a small client with bearer authentication, streaming
// multipart/form-data bodies and classification of upstream failures.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.openai.com/v1",
//	    Timeout: 2 * time.Minute,
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/audio/transcriptions",
//	    Token:  apiKey,
//	    Body: &httpclient.MultipartBody{
//	        Fields: map[string]string{"model": "whisper-1"},
//	        Files:  []httpclient.FileField{{FieldName: "file", FileName: "a.mp3", Reader: f}},
//	    },
//	})
//
// Non-2xx responses are returned as *Error together with the response, so
// callers can inspect the upstream body. IsAuth, IsConnection, IsTimeout
// and IsTemporary branch on the classification.
package httpclient
