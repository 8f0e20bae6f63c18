package handlers

import (
	"net/http"
	"time"

	"gator-forum/internal/engine"
	"gator-forum/internal/forum"
	"gator-forum/internal/ledger"
)

// HealthResponse reports engine activity and live websocket connections
type HealthResponse struct {
	Status      string        `json:"status"`
	Engine      *engine.Stats `json:"engine,omitempty"`
	Connections int           `json:"connections"`
	Uptime      string        `json:"uptime,omitempty"`
	ServerTime  time.Time     `json:"serverTime"`
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy", ServerTime: time.Now().UTC()}
		if s.Hub != nil {
			resp.Connections = s.Hub.Connections()
		}
		if s.Metrics != nil {
			resp.Uptime = s.Metrics.Uptime().Round(time.Second).String()
		}

		stats, err := s.Backend.Stats()
		if err != nil {
			s.Logger.Warn("engine stats unavailable", "err", err)
			resp.Status = "degraded"
			s.writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Engine = stats
		s.writeJSON(w, http.StatusOK, resp)
	}
}

// HandleCreatePost creates a post owned by the caller
func (s *Server) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		var req forum.PostInput
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		post, err := s.Backend.CreatePost(r.Context(), a, req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, post)
	}
}

// HandleListPosts lists every post, or only active ones, newest first
func (s *Server) HandleListPosts(activeOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := s.Backend.ListPosts(r.Context(), activeOnly)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, posts)
	}
}

func (s *Server) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := pathID(r, "postId", "Post")
		if err != nil {
			s.writeError(w, err)
			return
		}

		post, err := s.Backend.GetPost(r.Context(), postID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, post)
	}
}

// HandleEditPost applies a partial update; absent fields keep their value
func (s *Server) HandleEditPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		postID, err := pathID(r, "postId", "Post")
		if err != nil {
			s.writeError(w, err)
			return
		}
		var patch forum.PostPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			s.writeError(w, err)
			return
		}

		post, err := s.Backend.EditPost(r.Context(), a, postID, patch)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, post)
	}
}

func (s *Server) HandleArchivePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		postID, err := pathID(r, "postId", "Post")
		if err != nil {
			s.writeError(w, err)
			return
		}

		if _, err := s.Backend.ArchivePost(r.Context(), a, postID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Post archived successfully"})
	}
}

// HandleVotePost responds with the post's counters after the vote
func (s *Server) HandleVotePost(dir ledger.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		postID, err := pathID(r, "postId", "Post")
		if err != nil {
			s.writeError(w, err)
			return
		}

		tally, err := s.Backend.VotePost(r.Context(), a, postID, dir)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, tally)
	}
}
