package errors

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError renders err as the JSON error envelope. Server-side failures
// are logged with their cause; the cause never reaches the client.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	if appErr.HTTPStatus >= 500 && appErr.Err != nil {
		logger.L().Error("request failed", logger.String("code", appErr.Code), logger.Err(appErr.Err))
	}

	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
