package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", "err", err)
	}
}

// WriteError translates err into a status and error body. Anything that is not
// an expected AppError is logged and replaced by an opaque message.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code == ErrUnexpected {
		logger.Error("request failed", "err", err)
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{
			Error: ErrorDetail{Code: ErrUnexpected, Message: "Something went wrong"},
		})
		return
	}
	WriteJSON(w, AppErrorToHTTPStatus(appErr.Code), ErrorBody{
		Error: ErrorDetail{Code: appErr.Code, Message: appErr.Message},
	})
}
