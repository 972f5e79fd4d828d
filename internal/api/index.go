package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperbatch/internal/batch"
	"github.com/kbukum/whisperbatch/version"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Whisper Transcriber</title>
</head>
<body>
<h1>Whisper Transcriber</h1>
<p>Upload up to {{.MaxItems}} MP3 files and receive their transcriptions as a zip archive.</p>
<pre>curl -H "Authorization: Bearer $OPENAI_API_KEY" \
  -F language=en -F files=@talk.mp3 \
  -o transcriptions.zip {{.Endpoint}}</pre>
<p>Languages: {{range $i, $l := .Languages}}{{if $i}}, {{end}}<code>{{$l}}</code>{{end}}</p>
<footer>version {{.Version}}</footer>
</body>
</html>
`))

type indexPage struct {
	MaxItems  int
	Languages []string
	Endpoint  string
	Version   string
}

// Index serves a short HTML page describing the API.
func (h *Handler) Index(c *gin.Context) {
	page := indexPage{Endpoint: "/transcribe", Version: version.GetVersionInfo().Version}
	if r, ok := h.processor.(interface{ Rules() batch.Rules }); ok {
		rules := r.Rules()
		page.MaxItems = rules.MaxItems
		page.Languages = rules.Languages
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte("<h1>UI files not found</h1>"))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
