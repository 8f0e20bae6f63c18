package simulator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"gator-forum/internal/auth"
	"gator-forum/internal/config"
	"gator-forum/internal/database"
	"gator-forum/internal/engine"
	"gator-forum/internal/forum"
	"gator-forum/internal/handlers"
	"gator-forum/internal/logging"
	"gator-forum/internal/middleware"
	"gator-forum/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func startForum(t *testing.T) (*httptest.Server, *database.MemoryStore) {
	t.Helper()
	logger := logging.Discard()
	metrics := utils.NewMetricsCollector()
	store := database.NewMemoryStore()

	authService, err := auth.NewService(store, &config.AuthConfig{
		JWTSecret:   "sim-test",
		JWTIssuer:   "gator-forum",
		BcryptCost:  bcrypt.MinCost,
		RegisterTTL: time.Hour,
		LoginTTL:    time.Hour,
	}, logger)
	require.NoError(t, err)
	forumService := forum.NewService(store, store, nil, metrics, 3, logger)
	eng := engine.NewEngine(engine.NewActorSystem(logger), forumService, authService, &config.EngineConfig{
		PostShards:      4,
		MutationRetries: 3,
		AskTimeout:      5 * time.Second,
	}, metrics, logger)

	server := handlers.NewServer(eng, middleware.NewGate(authService, logger), nil,
		middleware.NewRateLimiter(1_000_000, time.Minute, logger), metrics, nil, 10*time.Second, logger)
	srv := httptest.NewServer(server.Routes())
	t.Cleanup(func() {
		srv.Close()
		eng.Stop()
	})
	return srv, store
}

func TestSimulationAgainstLiveServer(t *testing.T) {
	srv, store := startForum(t)

	cfg := DefaultSimConfig()
	cfg.NumUsers = 4
	cfg.SeedPosts = 3
	cfg.Workers = 3
	cfg.EngineURL = srv.URL

	sim, err := NewEnhancedSimulator(cfg, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	require.NoError(t, sim.Run(ctx))

	report := sim.GetMetrics()
	assert.Greater(t, report.TotalRequests, int64(cfg.NumUsers+cfg.SeedPosts))
	assert.GreaterOrEqual(t, report.TotalPosts, cfg.SeedPosts)
	assert.LessOrEqual(t, report.P50Latency, report.P99Latency)

	// Every post's counters still agree with its voter records
	posts, err := store.ListPosts(context.Background(), false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(posts), report.TotalPosts)
	for _, p := range posts {
		assert.True(t, p.Ledger.Consistent(), "post %s", p.ID)
	}
	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, cfg.NumUsers)
}

func TestSimConfigValidation(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.ZipfS = 1
	_, err := NewEnhancedSimulator(cfg, logging.Discard())
	assert.Error(t, err)

	cfg = DefaultSimConfig()
	cfg.VoteRatio, cfg.CommentRatio = 0.8, 0.5
	_, err = NewEnhancedSimulator(cfg, logging.Discard())
	assert.Error(t, err)
}

func TestPercentile(t *testing.T) {
	latencies := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(latencies, 0.5))
	assert.Equal(t, time.Duration(10), percentile(latencies, 0.99))
	assert.Zero(t, percentile(nil, 0.5))
}
