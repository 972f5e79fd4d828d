// Package api exposes the batch processor over HTTP.
package api

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"

	apperrors "github.com/kbukum/whisperbatch/errors"
	"github.com/kbukum/whisperbatch/internal/batch"
	"github.com/kbukum/whisperbatch/internal/workspace"
	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/server"
	"github.com/kbukum/whisperbatch/storage"
	"github.com/kbukum/whisperbatch/util"
)

const (
	// FieldFiles is the multipart field carrying the uploads.
	FieldFiles = "files"
	// FieldLanguage is the form field selecting the transcription language.
	FieldLanguage = "language"

	bearerPrefix = "Bearer "
)

// Processor runs a batch inside a run directory.
type Processor interface {
	Check(req batch.Request) error
	Process(ctx context.Context, run *workspace.Run, req batch.Request) (*batch.Result, error)
}

// Workspace hands out and releases run directories.
type Workspace interface {
	Begin(ctx context.Context) (*workspace.Run, error)
	Release(ctx context.Context, run *workspace.Run)
}

// Handler serves the transcription endpoints.
type Handler struct {
	processor Processor
	workspace Workspace
	store     storage.Storage
	log       *logger.Logger
}

// NewHandler creates a Handler. store is where archives are read back from.
func NewHandler(processor Processor, ws Workspace, store storage.Storage, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handler{
		processor: processor,
		workspace: ws,
		store:     store,
		log:       log.WithComponent("api"),
	}
}

// Register mounts the routes on r. Handlers in limit run before the
// transcription endpoint only.
func (h *Handler) Register(r gin.IRoutes, limit ...gin.HandlerFunc) {
	r.GET("/", h.Index)
	r.POST("/transcribe", append(limit, h.Transcribe)...)
}

// Transcribe accepts up to the configured number of audio files and answers
// with a zip archive holding one transcript or error note per file.
func (h *Handler) Transcribe(c *gin.Context) {
	ctx := c.Request.Context()

	req, err := parseRequest(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	log := h.log.WithContext(ctx).With(logger.Fields(
		"files", len(req.Items),
		"language", req.Language,
		"credential", Fingerprint(req.Credential),
	))
	log.Info("received transcription request")

	if err := h.processor.Check(req); err != nil {
		log.Warn("transcription request rejected", logger.Fields(logger.FieldError, err.Error()))
		server.RespondWithError(c, err)
		return
	}

	run, err := h.workspace.Begin(ctx)
	if err != nil {
		log.Error("failed to create run directory", logger.ErrorFields("workspace.begin", err))
		server.RespondWithError(c, batch.ErrProcessingFailed(err))
		return
	}
	defer h.workspace.Release(ctx, run)
	log = log.With(logger.Fields(logger.FieldRunID, run.ID))

	res, err := h.processor.Process(ctx, run, req)
	if err != nil {
		appErr := batch.AsAppError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			log.Error("transcription request failed", logger.ErrorFields("batch.process", err))
		} else {
			log.Warn("transcription request failed", logger.ErrorFields("batch.process", err))
		}
		server.RespondWithError(c, appErr)
		return
	}

	archive, err := h.store.Download(ctx, res.ArchivePath)
	if err != nil {
		log.Error("failed to open archive", logger.ErrorFields("archive.open", err))
		server.RespondWithError(c, batch.ErrProcessingFailed(err))
		return
	}
	defer func() { _ = archive.Close() }()
	run.Commit()

	log.Info("returning archive", logger.Fields("archive", batch.ArchiveName, "size", util.FormatSize(res.ArchiveSize)))
	c.DataFromReader(http.StatusOK, res.ArchiveSize, "application/zip", archive, map[string]string{
		"Content-Disposition": "attachment; filename=" + batch.ArchiveName,
	})
}

func parseRequest(c *gin.Context) (batch.Request, error) {
	var req batch.Request

	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) && !errors.Is(err, http.ErrMissingBoundary) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, apperrors.New(apperrors.ErrCodeInvalidInput,
				fmt.Sprintf("Request body exceeds %s", util.FormatSize(tooLarge.Limit)),
				http.StatusRequestEntityTooLarge)
		}
		return req, apperrors.Validation("Malformed multipart body.").WithCause(err)
	}

	lang, ok := c.GetPostForm(FieldLanguage)
	if !ok {
		return req, apperrors.MissingField(FieldLanguage)
	}
	req.Language = lang
	req.Credential = BearerToken(c.GetHeader("Authorization"))

	if form != nil {
		for _, fh := range form.File[FieldFiles] {
			req.Items = append(req.Items, toItem(fh))
		}
	}
	return req, nil
}

func toItem(fh *multipart.FileHeader) batch.Item {
	return batch.Item{
		Name:      fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Size:      fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// BearerToken extracts the token from an Authorization header. A header
// without the Bearer scheme, or with only whitespace after it, yields "".
func BearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Fingerprint returns a short, stable digest of a credential so log lines
// from the same caller can be correlated without logging the key.
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(credential))
	return util.MaskSecret(credential, 3) + "#" + hex.EncodeToString(sum[:6])
}
