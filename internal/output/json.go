package output

import (
	"encoding/json"
	"io"
)

// ErrorCode is a machine-readable error classification.
type ErrorCode string

const (
	ErrGeneral     ErrorCode = "GENERAL_ERROR"
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrValidation  ErrorCode = "VALIDATION_ERROR"
	ErrConflict    ErrorCode = "CONFLICT"
	ErrStorage     ErrorCode = "STORAGE_ERROR"
	ErrUnavailable ErrorCode = "UNAVAILABLE"
)

const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitNotFound    = 2
	ExitValidation  = 3
	ExitConflict    = 4
	ExitStorage     = 5
	ExitUnavailable = 6
)

var exitCodes = map[ErrorCode]int{
	ErrNotFound:    ExitNotFound,
	ErrValidation:  ExitValidation,
	ErrConflict:    ExitConflict,
	ErrStorage:     ExitStorage,
	ErrUnavailable: ExitUnavailable,
}

// ExitCodeForError maps an ErrorCode to its process exit code. Unknown
// codes map to ExitGeneral.
func ExitCodeForError(code ErrorCode) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return ExitGeneral
}

type successEnvelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	OK    bool      `json:"ok"`
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

func encode(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeJSONSuccess(w io.Writer, data any, message string) {
	encode(w, successEnvelope{OK: true, Data: data, Message: message})
}

func writeJSONError(w io.Writer, err error, code ErrorCode) {
	encode(w, errorEnvelope{OK: false, Error: err.Error(), Code: code})
}
