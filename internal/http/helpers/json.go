// Package helpers holds request decoding and response writing shared by the
// controllers.
package helpers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/dropDatabas3/socialauth/internal/http/errors"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// ReadJSON decodes the body into v, tolerating unknown fields and an empty
// body. It writes the error response and returns false on failure.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			errors.WriteError(w, errors.ErrBodyTooLarge)
			return false
		}
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail(err.Error()))
		return false
	}
	return true
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
