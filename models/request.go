package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ExtractRequest describes one extraction run.
type ExtractRequest struct {
	// URL is the growlog document to load. Required.
	URL string `json:"url" validate:"required,http_url"`

	// Title overrides the extracted page title when set.
	Title string `json:"title,omitempty"`

	// SkipPhotos keeps photo references as remote URLs without acquiring them.
	SkipPhotos bool `json:"skip_photos,omitempty"`
}

// Normalize trims surrounding whitespace from user-provided fields.
func (r *ExtractRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.Title = strings.TrimSpace(r.Title)
}

// Validate checks the request and returns an INVALID_INPUT ScrapeError
// describing the first failing field.
func (r *ExtractRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := "invalid " + strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			msg = "target address not supplied"
		}
		return NewScrapeError(ErrCodeInvalidInput, msg, err)
	}
	return NewScrapeError(ErrCodeInvalidInput, "invalid request", err)
}
