package http

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"videominer/internal/core/domain"
)

var registerOnce sync.Once

// RegisterValidators adds the validurl and validsource tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("validurl", func(fl validator.FieldLevel) bool {
			return isHTTPURL(fl.Field().String())
		})
		_ = v.RegisterValidation("validsource", func(fl validator.FieldLevel) bool {
			_, ok := domain.ParseSource(fl.Field().String())
			return ok
		})
	})
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validationDetails renders binding errors as one line per field.
func validationDetails(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{"malformed request body"}
	}
	details := make([]string, 0, len(ve))
	for _, e := range ve {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			details = append(details, field+" is required")
		case "validurl":
			details = append(details, field+" must be an http(s) URL")
		case "validsource":
			details = append(details, field+" is not a supported source")
		default:
			details = append(details, field+" is invalid")
		}
	}
	return details
}
