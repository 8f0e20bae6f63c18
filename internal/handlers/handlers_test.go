package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gator-forum/internal/auth"
	"gator-forum/internal/config"
	"gator-forum/internal/database"
	"gator-forum/internal/engine"
	"gator-forum/internal/forum"
	"gator-forum/internal/ledger"
	"gator-forum/internal/logging"
	"gator-forum/internal/middleware"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"
	"gator-forum/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminEmail = "admin@forum.dev"

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T, rateLimit int) *testAPI {
	t.Helper()
	return newTestAPIWith(t, rateLimit, false)
}

func newTestAPIWith(t *testing.T, rateLimit int, trustProxy bool) *testAPI {
	t.Helper()
	logger := logging.Discard()
	metrics := utils.NewMetricsCollector()
	store := database.NewMemoryStore()

	authService, err := auth.NewService(store, &config.AuthConfig{
		JWTSecret:   "handler-test",
		JWTIssuer:   "gator-forum",
		BcryptCost:  bcrypt.MinCost,
		RegisterTTL: time.Hour,
		LoginTTL:    time.Hour,
		AdminEmails: []string{adminEmail},
	}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	forumService := forum.NewService(store, store, hub, metrics, 3, logger)
	eng := engine.NewEngine(engine.NewActorSystem(logger), forumService, authService, &config.EngineConfig{
		PostShards:      2,
		MutationRetries: 3,
		AskTimeout:      5 * time.Second,
	}, metrics, logger)

	server := NewServer(
		eng,
		middleware.NewGate(authService, logger),
		hub,
		middleware.NewRateLimiter(rateLimit, 15*time.Minute, logger),
		metrics,
		[]string{"http://localhost:3000"},
		10*time.Second,
		logger,
	)
	server.TrustProxy = trustProxy
	srv := httptest.NewServer(server.Routes())
	t.Cleanup(func() {
		srv.Close()
		eng.Stop()
		cancel()
	})
	return &testAPI{t: t, srv: srv}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (a *testAPI) do(method, path, token string, body interface{}, out interface{}) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) errorCode(method, path, token string, body interface{}) (int, string) {
	a.t.Helper()
	var e utils.ErrorBody
	status := a.do(method, path, token, body, &e)
	return status, e.Error.Code
}

func (a *testAPI) register(username, email string) SessionResponse {
	a.t.Helper()
	var session SessionResponse
	status := a.do(http.MethodPost, "/v1/api/users/register", "", auth.RegisterInput{
		Username: username,
		Email:    email,
		Password: "password123",
	}, &session)
	require.Equal(a.t, http.StatusCreated, status)
	return session
}

func (a *testAPI) createPost(token string) models.Post {
	a.t.Helper()
	var post models.Post
	status := a.do(http.MethodPost, "/v1/api/posts", token, forum.PostInput{
		Title:    "Gators at dusk",
		Message:  "Saw three by the lake",
		Category: "Entertainment",
		Tags:     []string{"wildlife"},
	}, &post)
	require.Equal(a.t, http.StatusCreated, status)
	return post
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t, 100)
	session := api.register("alice", "alice@forum.dev")
	assert.True(t, session.Success)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "alice", session.User.Username)

	status, code := api.errorCode(http.MethodPost, "/v1/api/users/register", "", auth.RegisterInput{
		Username: "alice2", Email: "ALICE@forum.dev", Password: "password123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, utils.ErrDuplicateEmail, code)

	var login SessionResponse
	status = api.do(http.MethodPost, "/v1/api/users/login", "", auth.LoginInput{
		Email: "alice@forum.dev", Password: "password123",
	}, &login)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, session.User.ID, login.User.ID)

	status, code = api.errorCode(http.MethodPost, "/v1/api/users/login", "", auth.LoginInput{
		Email: "alice@forum.dev", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, utils.ErrInvalidCredentials, code)

	status, code = api.errorCode(http.MethodPost, "/v1/api/users/login", "", auth.LoginInput{
		Email: "nobody@forum.dev", Password: "password123",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, utils.ErrUserNotFound, code)
}

func TestRegisterRejectsBadBody(t *testing.T) {
	api := newTestAPI(t, 100)
	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/v1/api/users/register", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp, err := api.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, code := api.errorCode(http.MethodPost, "/v1/api/users/register", "", auth.RegisterInput{
		Username: "bob", Email: "not-an-email", Password: "password123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, utils.ErrInvalidInput, code)
}

func TestProfileAndAdminListing(t *testing.T) {
	api := newTestAPI(t, 100)
	member := api.register("member", "member@forum.dev")
	admin := api.register("root", adminEmail)
	assert.True(t, admin.User.IsAdmin)

	status, code := api.errorCode(http.MethodGet, "/v1/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, utils.ErrUnauthorized, code)

	var profile ProfileResponse
	status = api.do(http.MethodGet, "/v1/api/users/profile", member.Token, nil, &profile)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "member@forum.dev", profile.User.Email)
	assert.False(t, profile.User.IsAdmin)

	status, code = api.errorCode(http.MethodGet, "/v1/api/users", member.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, utils.ErrForbidden, code)

	var users UsersResponse
	status = api.do(http.MethodGet, "/v1/api/users", admin.Token, nil, &users)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, users.Users, 2)
}

func TestPostLifecycle(t *testing.T) {
	api := newTestAPI(t, 100)
	author := api.register("author", "author@forum.dev")
	other := api.register("other", "other@forum.dev")

	status, _ := api.errorCode(http.MethodPost, "/v1/api/posts", "", forum.PostInput{Title: "x"})
	assert.Equal(t, http.StatusUnauthorized, status)

	post := api.createPost(author.Token)
	assert.True(t, post.Active)
	assert.Equal(t, models.CategoryEntertainment, post.Category)
	path := "/v1/api/posts/" + post.ID.String()

	var view models.PostView
	status = api.do(http.MethodGet, path, "", nil, &view)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "author", view.Author.Username)

	status, code := api.errorCode(http.MethodGet, "/v1/api/posts/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, utils.ErrNotFound, code)

	newTitle := "Gators at dawn"
	status, code = api.errorCode(http.MethodPut, path, other.Token, forum.PostPatch{Title: &newTitle})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, utils.ErrForbidden, code)

	var edited models.Post
	status = api.do(http.MethodPut, path, author.Token, forum.PostPatch{Title: &newTitle}, &edited)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, newTitle, edited.Title)
	assert.Equal(t, "Saw three by the lake", edited.Message)

	var msg MessageResponse
	status = api.do(http.MethodPatch, path+"/archive", author.Token, nil, &msg)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Post archived successfully", msg.Message)

	status, code = api.errorCode(http.MethodPatch, path+"/archive", author.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, utils.ErrAlreadyArchived, code)

	var all, active []models.PostView
	api.do(http.MethodGet, "/v1/api/posts", "", nil, &all)
	api.do(http.MethodGet, "/v1/api/posts/active", "", nil, &active)
	assert.Len(t, all, 1)
	assert.Empty(t, active)
}

func TestPostVoting(t *testing.T) {
	api := newTestAPI(t, 100)
	author := api.register("author", "author@forum.dev")
	voter := api.register("voter", "voter@forum.dev")
	post := api.createPost(author.Token)
	path := "/v1/api/posts/" + post.ID.String()

	var tally ledger.Tally
	status := api.do(http.MethodPost, path+"/upvote", voter.Token, nil, &tally)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, ledger.Tally{Upvotes: 1}, tally)

	status, code := api.errorCode(http.MethodPost, path+"/upvote", voter.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, utils.ErrDuplicateVote, code)

	status = api.do(http.MethodPost, path+"/downvote", voter.Token, nil, &tally)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, ledger.Tally{Downvotes: 1}, tally)

	status, code = api.errorCode(http.MethodPost, "/v1/api/posts/"+uuid.NewString()+"/upvote", voter.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, utils.ErrNotFound, code)
}

func TestCommentLifecycle(t *testing.T) {
	api := newTestAPI(t, 100)
	author := api.register("author", "author@forum.dev")
	commenter := api.register("commenter", "commenter@forum.dev")
	post := api.createPost(author.Token)
	base := "/v1/api/posts/" + post.ID.String() + "/comments"

	rating := 4
	var comment models.Comment
	status := api.do(http.MethodPost, base, commenter.Token, forum.CommentInput{Message: "Nice", Rating: &rating}, &comment)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, commenter.User.ID, comment.AuthorID)
	cpath := base + "/" + comment.ID.String()

	bad := 9
	status, code := api.errorCode(http.MethodPost, base, commenter.Token, forum.CommentInput{Message: "x", Rating: &bad})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, utils.ErrInvalidInput, code)

	var tally ledger.Tally
	status = api.do(http.MethodPost, cpath+"/downvote", author.Token, nil, &tally)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, ledger.Tally{Downvotes: 1}, tally)

	updated := "Very nice"
	status, _ = api.errorCode(http.MethodPut, cpath, author.Token, forum.CommentPatch{Message: &updated})
	assert.Equal(t, http.StatusForbidden, status)

	var edited models.Comment
	status = api.do(http.MethodPut, cpath, commenter.Token, forum.CommentPatch{Message: &updated}, &edited)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, updated, edited.Message)
	require.NotNil(t, edited.Rating)
	assert.Equal(t, 4, *edited.Rating)

	status = api.do(http.MethodPatch, cpath+"/archive", commenter.Token, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	var all, active []models.CommentView
	api.do(http.MethodGet, base, "", nil, &all)
	api.do(http.MethodGet, base+"/active", "", nil, &active)
	require.Len(t, all, 1)
	assert.Equal(t, "commenter", all[0].Author.Username)
	assert.Empty(t, active)

	status, code = api.errorCode(http.MethodPost, base+"/"+uuid.NewString()+"/upvote", author.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, utils.ErrNotFound, code)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, 100)
	api.register("alice", "alice@forum.dev")

	var health HealthResponse
	status := api.do(http.MethodGet, "/health", "", nil, &health)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", health.Status)
	require.NotNil(t, health.Engine)
	assert.Equal(t, 1, health.Engine.Registrations)
	assert.Len(t, health.Engine.ShardWrites, 2)
}

func TestRateLimitAppliesToAPI(t *testing.T) {
	api := newTestAPI(t, 2)
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/v1/api/posts", "", nil, nil))
	}
	status, code := api.errorCode(http.MethodGet, "/v1/api/posts", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, utils.ErrTooManyRequests, code)

	// Health and metrics sit outside the limiter
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", "", nil, nil))
}

// getFrom sends a GET claiming to be forwarded for client.
func (a *testAPI) getFrom(path, client string) int {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+path, nil)
	require.NoError(a.t, err)
	req.Header.Set("X-Forwarded-For", client)
	req.Header.Set("X-Real-IP", client)
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	api := newTestAPI(t, 2)
	statuses := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		statuses = append(statuses, api.getFrom("/v1/api/posts", fmt.Sprintf("203.0.113.%d", i+1)))
	}
	assert.Equal(t, []int{200, 200, 429, 429, 429, 429}, statuses)
}

func TestRateLimitTrustsProxyWhenConfigured(t *testing.T) {
	api := newTestAPIWith(t, 1, true)
	assert.Equal(t, http.StatusOK, api.getFrom("/v1/api/posts", "203.0.113.1"))
	assert.Equal(t, http.StatusOK, api.getFrom("/v1/api/posts", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, api.getFrom("/v1/api/posts", "203.0.113.1"))
}

func TestWebSocketRequiresToken(t *testing.T) {
	api := newTestAPI(t, 100)
	status, code := api.errorCode(http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, utils.ErrUnauthorized, code)

	resp, err := api.srv.Client().Get(api.srv.URL + "/ws?token=garbage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
