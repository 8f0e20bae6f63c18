package handlers

import (
	"net/http"

	"gator-forum/internal/forum"
	"gator-forum/internal/ledger"

	"github.com/google/uuid"
)

// commentPath parses both ids of a /posts/{postId}/comments/{commentId} route
func commentPath(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	postID, err := pathID(r, "postId", "Post")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	commentID, err := pathID(r, "commentId", "Comment")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return postID, commentID, nil
}

// HandleAddComment responds with the created comment
func (s *Server) HandleAddComment() http.HandlerFunc {
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
		var req forum.CommentInput
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}

		comment, err := s.Backend.AddComment(r.Context(), a, postID, req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, comment)
	}
}

// HandleListComments keeps insertion order
func (s *Server) HandleListComments(activeOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, err := pathID(r, "postId", "Post")
		if err != nil {
			s.writeError(w, err)
			return
		}

		comments, err := s.Backend.ListComments(r.Context(), postID, activeOnly)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, comments)
	}
}

func (s *Server) HandleEditComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		postID, commentID, err := commentPath(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		var patch forum.CommentPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			s.writeError(w, err)
			return
		}

		comment, err := s.Backend.EditComment(r.Context(), a, postID, commentID, patch)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, comment)
	}
}

func (s *Server) HandleArchiveComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		postID, commentID, err := commentPath(r)
		if err != nil {
			s.writeError(w, err)
			return
		}

		if _, err := s.Backend.ArchiveComment(r.Context(), a, postID, commentID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Comment archived successfully"})
	}
}

func (s *Server) HandleVoteComment(dir ledger.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := caller(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		postID, commentID, err := commentPath(r)
		if err != nil {
			s.writeError(w, err)
			return
		}

		tally, err := s.Backend.VoteComment(r.Context(), a, postID, commentID, dir)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, tally)
	}
}
