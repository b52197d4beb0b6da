package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidInput           = "invalid_input"
	CodeExtractionFailed       = "extraction_failed"
	CodeStoreCorrupt           = "store_corrupt"
	CodeStoreWriteFailed       = "store_write_failed"
	CodeEmbeddingFailed        = "embedding_failed"
	CodeGenerationFailed       = "generation_failed"
	CodeOCRFailed              = "ocr_failed"
	CodeIndexCorrupt           = "index_corrupt"
	CodeIndexDimensionMismatch = "index_dimension_mismatch"
	CodeServiceTimeout         = "service_timeout"
	CodeNotFound               = "not_found"
	CodeUnauthorized           = "unauthorized"
	CodeForbidden              = "forbidden"
	CodeInternal               = "internal"
)

var statusByCode = map[string]int{
	CodeInvalidInput:           http.StatusBadRequest,
	CodeExtractionFailed:       http.StatusBadRequest,
	CodeStoreCorrupt:           http.StatusInternalServerError,
	CodeStoreWriteFailed:       http.StatusInternalServerError,
	CodeEmbeddingFailed:        http.StatusBadGateway,
	CodeGenerationFailed:       http.StatusBadGateway,
	CodeOCRFailed:              http.StatusBadGateway,
	CodeIndexCorrupt:           http.StatusInternalServerError,
	CodeIndexDimensionMismatch: http.StatusInternalServerError,
	CodeServiceTimeout:         http.StatusGatewayTimeout,
	CodeNotFound:               http.StatusNotFound,
	CodeUnauthorized:           http.StatusUnauthorized,
	CodeForbidden:              http.StatusForbidden,
	CodeInternal:               http.StatusInternalServerError,
}

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may repeat the operation unchanged.
func (e *Error) Retryable() bool {
	return e != nil && e.Code == CodeServiceTimeout
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Wrap attaches code to err, deriving the HTTP status from the code.
func Wrap(code string, err error) *Error {
	return &Error{Status: StatusFor(code), Code: code, Err: err}
}

func Newf(code string, format string, args ...any) *Error {
	return Wrap(code, fmt.Errorf(format, args...))
}

// External wraps a failure of an outside service. Deadline errors become
// service_timeout regardless of code; an err that already carries a kind is
// returned unchanged.
func External(code string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeServiceTimeout, err)
	}
	return Wrap(code, err)
}

func StatusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}
