package batch

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/kbukum/whisperbatch/util"
)

// Rules are the limits a batch and its items are checked against.
type Rules struct {
	MaxItems          int
	MaxFileSize       int64
	AllowedExtensions []string
	AllowedMediaTypes []string
	// PermissiveExtensions are accepted whatever media type the client declared.
	PermissiveExtensions []string
	Languages            []string
}

// DefaultRules returns the limits of the public service.
func DefaultRules() Rules {
	return Rules{
		MaxItems:             5,
		MaxFileSize:          100 << 20,
		AllowedExtensions:    []string{".mp3", ".mpeg"},
		AllowedMediaTypes:    []string{"audio/mpeg", "audio/mp3"},
		PermissiveExtensions: []string{".mp3"},
		Languages:            []string{"en", "pt"},
	}
}

// Validate checks one item without reading its content.
func (r Rules) Validate(item Item) Outcome {
	if strings.TrimSpace(item.Name) == "" {
		return rejected("File has no filename")
	}

	ext := strings.ToLower(path.Ext(BaseName(item.Name)))
	if !has(util.LowerSet(r.AllowedExtensions), ext) {
		return rejected(fmt.Sprintf("File %s has invalid extension: %s", item.Name, ext))
	}

	if !has(util.LowerSet(r.AllowedMediaTypes), baseMediaType(item.MediaType)) && !has(util.LowerSet(r.PermissiveExtensions), ext) {
		return rejected(fmt.Sprintf("File %s has invalid MIME type: %s", item.Name, item.MediaType))
	}

	if r.MaxFileSize > 0 && item.Size > r.MaxFileSize {
		return rejected(fmt.Sprintf("File %s exceeds maximum size of %s", item.Name, util.FormatSize(r.MaxFileSize)))
	}

	return Outcome{Status: StatusAccepted}
}

// SupportsLanguage reports whether lang is one of the configured languages.
func (r Rules) SupportsLanguage(lang string) bool {
	return slices.Contains(r.Languages, lang)
}

func rejected(reason string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason}
}

// baseMediaType drops parameters such as "; charset=" from a content type.
func baseMediaType(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func has(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
