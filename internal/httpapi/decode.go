package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

const maxBodyBytes = 64 << 10

// bodyError is a request body the API refuses to decode.
type bodyError struct {
	status int
	msg    string
}

func (e *bodyError) Error() string { return e.msg }

// decodeJSON reads exactly one JSON object into dst. Unknown keys are
// rejected so a misspelled field never turns into a silent no-op.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return &bodyError{status: http.StatusUnsupportedMediaType, msg: "content type must be application/json"}
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return describeDecodeError(err)
	}
	if dec.More() {
		return &bodyError{status: http.StatusBadRequest, msg: "body must hold a single json object"}
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return describeDecodeError(err)
	}
	return nil
}

func describeDecodeError(err error) *bodyError {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxErr):
		return &bodyError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("body exceeds %d bytes", maxErr.Limit)}
	case errors.As(err, &syntaxErr):
		return &bodyError{status: http.StatusBadRequest, msg: fmt.Sprintf("malformed json at offset %d", syntaxErr.Offset)}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return &bodyError{status: http.StatusBadRequest, msg: fmt.Sprintf("field %q must be a %s", typeErr.Field, typeErr.Type)}
	case errors.Is(err, io.EOF):
		return &bodyError{status: http.StatusBadRequest, msg: "body is empty"}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &bodyError{status: http.StatusBadRequest, msg: "malformed json"}
	}
	// DisallowUnknownFields has no typed error.
	return &bodyError{status: http.StatusBadRequest, msg: err.Error()}
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var be *bodyError
	if !errors.As(err, &be) {
		be = &bodyError{status: http.StatusBadRequest, msg: "invalid json body"}
	}
	WriteError(w, be.status, "bad_json", be.msg)
}
