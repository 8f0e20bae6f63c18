package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gator-forum/internal/auth"
	"gator-forum/internal/engine"
	"gator-forum/internal/forum"
	"gator-forum/internal/ledger"
	"gator-forum/internal/middleware"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"
	"gator-forum/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Backend is everything the HTTP layer calls. *engine.Engine implements it.
type Backend interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ListUsers(ctx context.Context) ([]models.Profile, error)

	CreatePost(ctx context.Context, a forum.Actor, in forum.PostInput) (*models.Post, error)
	EditPost(ctx context.Context, a forum.Actor, postID uuid.UUID, patch forum.PostPatch) (*models.Post, error)
	ArchivePost(ctx context.Context, a forum.Actor, postID uuid.UUID) (*models.Post, error)
	VotePost(ctx context.Context, a forum.Actor, postID uuid.UUID, dir ledger.Direction) (ledger.Tally, error)

	AddComment(ctx context.Context, a forum.Actor, postID uuid.UUID, in forum.CommentInput) (*models.Comment, error)
	EditComment(ctx context.Context, a forum.Actor, postID, commentID uuid.UUID, patch forum.CommentPatch) (*models.Comment, error)
	ArchiveComment(ctx context.Context, a forum.Actor, postID, commentID uuid.UUID) (*models.Comment, error)
	VoteComment(ctx context.Context, a forum.Actor, postID, commentID uuid.UUID, dir ledger.Direction) (ledger.Tally, error)

	ListPosts(ctx context.Context, activeOnly bool) ([]models.PostView, error)
	GetPost(ctx context.Context, postID uuid.UUID) (*models.PostView, error)
	ListComments(ctx context.Context, postID uuid.UUID, activeOnly bool) ([]models.CommentView, error)

	Stats() (*engine.Stats, error)
}

var _ Backend = (*engine.Engine)(nil)

// Server holds all HTTP dependencies
type Server struct {
	Backend        Backend
	Gate           *middleware.Gate
	Hub            *websocket.Hub
	Limiter        *middleware.RateLimiter
	Metrics        *utils.MetricsCollector
	AllowedOrigins []string
	RequestTimeout time.Duration
	// TrustProxy honours forwarding headers for the client address. Left
	// off, the rate limiter keys on the connection's own address.
	TrustProxy bool
	Logger     *slog.Logger
}

// NewServer creates a new Server instance with the given components
func NewServer(
	backend Backend,
	gate *middleware.Gate,
	hub *websocket.Hub,
	limiter *middleware.RateLimiter,
	metrics *utils.MetricsCollector,
	allowedOrigins []string,
	requestTimeout time.Duration,
	logger *slog.Logger,
) *Server {
	return &Server{
		Backend:        backend,
		Gate:           gate,
		Hub:            hub,
		Limiter:        limiter,
		Metrics:        metrics,
		AllowedOrigins: allowedOrigins,
		RequestTimeout: requestTimeout,
		Logger:         logger,
	}
}

// Routes builds the chi router for the whole API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if s.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(s.Logger, s.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(s.AllowedOrigins)))

	r.Get("/health", s.HandleHealth())
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}
	// The websocket feed must not sit behind the request timeout
	if s.Hub != nil {
		r.Get("/ws", s.HandleWebSocket())
	}

	r.Route("/v1/api", func(r chi.Router) {
		if s.Limiter != nil {
			r.Use(s.Limiter.Middleware)
		}
		if s.RequestTimeout > 0 {
			r.Use(chimw.Timeout(s.RequestTimeout))
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.HandleUserRegistration())
			r.Post("/login", s.HandleUserLogin())
			r.With(s.Gate.Authenticate).Get("/profile", s.HandleProfile())
			r.With(s.Gate.Authenticate, s.Gate.RequireAdmin).Get("/", s.HandleListUsers())
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.HandleListPosts(false))
			r.Get("/active", s.HandleListPosts(true))
			r.Get("/{postId}", s.HandleGetPost())
			r.Get("/{postId}/comments", s.HandleListComments(false))
			r.Get("/{postId}/comments/active", s.HandleListComments(true))

			r.Group(func(r chi.Router) {
				r.Use(s.Gate.Authenticate)

				r.Post("/", s.HandleCreatePost())
				r.Put("/{postId}", s.HandleEditPost())
				r.Patch("/{postId}/archive", s.HandleArchivePost())
				r.Post("/{postId}/upvote", s.HandleVotePost(ledger.Upvote))
				r.Post("/{postId}/downvote", s.HandleVotePost(ledger.Downvote))

				r.Post("/{postId}/comments", s.HandleAddComment())
				r.Put("/{postId}/comments/{commentId}", s.HandleEditComment())
				r.Patch("/{postId}/comments/{commentId}/archive", s.HandleArchiveComment())
				r.Post("/{postId}/comments/{commentId}/upvote", s.HandleVoteComment(ledger.Upvote))
				r.Post("/{postId}/comments/{commentId}/downvote", s.HandleVoteComment(ledger.Downvote))
			})
		})
	})

	return r
}
