package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gator-forum/internal/forum"
	"gator-forum/internal/middleware"
	"gator-forum/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// MessageResponse is returned by operations with nothing else to report.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	utils.WriteJSON(w, status, v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if s.Metrics != nil {
		code := utils.ErrUnexpected
		if appErr, ok := utils.AsAppError(err); ok {
			code = appErr.Code
		}
		s.Metrics.IncrementErrors(code)
	}
	utils.WriteError(w, s.Logger, err)
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return utils.NewValidationError("Request body is required")
		}
		return utils.NewValidationError("Invalid request body")
	}
	return nil
}

// pathID parses a uuid route parameter. Malformed ids can't name anything, so
// they are reported as not found.
func pathID(r *http.Request, param, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, utils.NewNotFoundError(what)
	}
	return id, nil
}

func caller(r *http.Request) (forum.Actor, error) {
	a, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		return forum.Actor{}, utils.NewUnauthorizedError("no token provided")
	}
	return a, nil
}
