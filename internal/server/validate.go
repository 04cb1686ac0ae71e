package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kollabhq/kollab/internal/apierr"
)

// maxBodyBytes bounds JSON request bodies. File uploads have their own
// configured ceiling.
const maxBodyBytes = 1 << 20

// validate is the shared validator instance. Struct tags carry the rules.
var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeJSON reads, decodes and validates a JSON request body into dst.
// Every failure mode is a validation error naming what went wrong.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierr.Validation("request body exceeds %d bytes", maxErr.Limit)
		}
		return apierr.Validation("malformed JSON body")
	}

	if err := validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			first := invalid[0]
			return apierr.Validation("field %s failed %s validation",
				strings.ToLower(first.Field()), first.Tag())
		}
		return apierr.Validation("invalid request body")
	}
	return nil
}
