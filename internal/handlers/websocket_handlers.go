package handlers

import (
	"net/http"

	"gator-forum/internal/utils"

	ws "github.com/gorilla/websocket"
)

func (s *Server) upgrader() *ws.Upgrader {
	return &ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleWebSocket subscribes the caller to the event feed. Browsers can't set
// headers on the handshake, so the token comes from the query string.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	upgrader := s.upgrader()
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			s.writeError(w, utils.NewUnauthorizedError("no token provided"))
			return
		}

		a, err := s.Gate.Resolve(r.Context(), tokenString)
		if err != nil {
			s.writeError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error
			s.Logger.Debug("websocket upgrade failed", "user", a.ID, "err", err)
			return
		}
		s.Hub.Attach(a.ID, conn)
		s.Logger.Debug("websocket client attached", "user", a.ID)
	}
}
