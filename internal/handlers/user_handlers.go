package handlers

import (
	"net/http"
	"time"

	"gator-forum/internal/auth"
	"gator-forum/internal/middleware"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"
)

// SessionResponse is returned by register and login
type SessionResponse struct {
	Success   bool           `json:"success"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      models.Profile `json:"user"`
}

type ProfileResponse struct {
	Success bool           `json:"success"`
	User    models.Profile `json:"user"`
}

type UsersResponse struct {
	Success bool             `json:"success"`
	Users   []models.Profile `json:"users"`
}

func sessionResponse(session *auth.Session) SessionResponse {
	return SessionResponse{
		Success:   true,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	}
}

// HandleUserRegistration handles requests to register a new user
func (s *Server) HandleUserRegistration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterInput
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		session, err := s.Backend.Register(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, sessionResponse(session))
	}
}

// HandleUserLogin handles requests to log in a user
func (s *Server) HandleUserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginInput
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		session, err := s.Backend.Login(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, sessionResponse(session))
	}
}

// HandleProfile returns the authenticated caller's own profile
func (s *Server) HandleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			s.writeError(w, utils.NewUnauthorizedError("no token provided"))
			return
		}

		profile, err := s.Backend.Profile(r.Context(), userID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, ProfileResponse{Success: true, User: *profile})
	}
}

// HandleListUsers is admin only
func (s *Server) HandleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.Backend.ListUsers(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, UsersResponse{Success: true, Users: users})
	}
}
