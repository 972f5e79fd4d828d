package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/whisperbatch/errors"
	"github.com/kbukum/whisperbatch/util"
)

// FieldError names one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	_ = v.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		return util.ParseSize(fl.Field().String(), -1) > 0
	})
	return v
})

// Validate checks the validate tags of s. Failures are reported as one
// INVALID_INPUT AppError whose message lists "path: reason" pairs and whose
// details carry the same list under "fields".
func Validate(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	failed, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(failed))
	parts := make([]string, len(failed))
	for i, fe := range failed {
		fields[i] = FieldError{Field: path(fe), Message: reason(fe)}
		parts[i] = fields[i].Field + ": " + fields[i].Message
	}

	appErr := errors.Validation(strings.Join(parts, "; "))
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}

// tagName names fields after their mapstructure key, then their json key.
func tagName(f reflect.StructField) string {
	for _, key := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return snake(f.Name)
}

// path drops the root type from the namespace: Config.batch.languages
// becomes batch.languages.
func path(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return snake(fe.Field())
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hostname_port":
		return "must be a host:port address"
	case "bytesize":
		return "must be a size such as 100MB"
	}
	return "is invalid"
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if 'A' <= r && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
