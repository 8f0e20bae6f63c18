// Package simulator drives the forum API with simulated users. Vote and
// comment targets follow a Zipf distribution so a few posts run hot.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SimConfig struct {
	NumUsers       int
	SeedPosts      int
	SimulationTime time.Duration
	Workers        int
	// Fractions of actions; whatever is left over creates posts
	VoteRatio    float64
	CommentRatio float64
	ZipfS        float64
	EngineURL    string
}

// DefaultSimConfig is a short local run against the default port.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		NumUsers:       20,
		SeedPosts:      10,
		SimulationTime: time.Minute,
		Workers:        5,
		VoteRatio:      0.6,
		CommentRatio:   0.3,
		ZipfS:          1.07,
		EngineURL:      "http://localhost:4000",
	}
}

func (c SimConfig) validate() error {
	if c.NumUsers < 1 || c.Workers < 1 || c.SeedPosts < 1 {
		return fmt.Errorf("users, workers and seed posts must all be at least 1")
	}
	if c.ZipfS <= 1 {
		return fmt.Errorf("zipf exponent must be greater than 1, got %.2f", c.ZipfS)
	}
	if c.VoteRatio < 0 || c.CommentRatio < 0 || c.VoteRatio+c.CommentRatio > 1 {
		return fmt.Errorf("vote and comment ratios must be non-negative and sum to at most 1")
	}
	return nil
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	TotalPosts       int
	TotalComments    int
	TotalVotes       int
	DuplicateVotes   int
	ErrorsByCode     map[string]int
	RequestLatencies []time.Duration
}

// Report is a point-in-time copy of the stats.
type Report struct {
	Elapsed         time.Duration
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalPosts      int
	TotalComments   int
	TotalVotes      int
	DuplicateVotes  int
	ErrorsByCode    map[string]int
	P50Latency      time.Duration
	P99Latency      time.Duration
}

// SimulatedUser is one registered account and its session token.
type SimulatedUser struct {
	ID       uuid.UUID
	Username string
	Email    string
	Token    string
}

type EnhancedSimulator struct {
	config SimConfig
	stats  *SimulationStats
	users  []*SimulatedUser
	posts  []uuid.UUID
	client *http.Client
	logger *slog.Logger
	mu     sync.RWMutex
}

func NewEnhancedSimulator(config SimConfig, logger *slog.Logger) (*EnhancedSimulator, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &EnhancedSimulator{
		config: config,
		stats: &SimulationStats{
			StartTime:    time.Now(),
			ErrorsByCode: make(map[string]int),
		},
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// Run registers users, seeds posts, then generates traffic until ctx ends.
func (s *EnhancedSimulator) Run(ctx context.Context) error {
	s.logger.Info("starting simulation", "users", s.config.NumUsers, "workers", s.config.Workers, "url", s.config.EngineURL)

	if err := s.createInitialUsers(ctx); err != nil {
		return fmt.Errorf("failed to create initial users: %w", err)
	}
	if err := s.seedPosts(ctx); err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	return s.SimulateActivities(ctx)
}

func (s *EnhancedSimulator) createInitialUsers(ctx context.Context) error {
	userJobs := make(chan int)
	results := make(chan *SimulatedUser, s.config.NumUsers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for userNum := range userJobs {
				user := &SimulatedUser{
					Username: fmt.Sprintf("sim_user_%d", userNum),
					Email:    fmt.Sprintf("sim_user_%d_%s@example.com", userNum, uuid.NewString()[:8]),
				}

				// Exponential backoff between retries
				var err error
				for retries := 0; retries < 3; retries++ {
					if err = s.registerUser(ctx, user); err == nil {
						results <- user
						break
					}
					backoff := time.Duration(math.Pow(2, float64(retries))) * 100 * time.Millisecond
					s.logger.Debug("registration retry", "worker", workerID, "user", user.Username, "backoff", backoff, "err", err)
					select {
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
				}
				if err != nil {
					s.logger.Warn("registration failed", "user", user.Username, "err", err)
				}
			}
		}(i)
	}

	go func() {
		defer close(userJobs)
		for i := 0; i < s.config.NumUsers; i++ {
			select {
			case <-ctx.Done():
				return
			case userJobs <- i:
			}
		}
	}()

	wg.Wait()
	close(results)

	s.mu.Lock()
	for user := range results {
		s.users = append(s.users, user)
	}
	count := len(s.users)
	s.mu.Unlock()

	if count == 0 {
		return fmt.Errorf("no users could be registered")
	}
	s.logger.Info("users registered", "count", count)
	return nil
}

func (s *EnhancedSimulator) registerUser(ctx context.Context, user *SimulatedUser) error {
	var session struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	err := s.makeRequest(ctx, http.MethodPost, "/v1/api/users/register", "", map[string]string{
		"username": user.Username,
		"email":    user.Email,
		"password": "simpass123",
	}, &session)
	if err != nil {
		return err
	}
	user.ID = session.User.ID
	user.Token = session.Token
	return nil
}

func (s *EnhancedSimulator) seedPosts(ctx context.Context) error {
	for i := 0; i < s.config.SeedPosts; i++ {
		if err := s.createPost(ctx, s.randomUser()); err != nil {
			return err
		}
	}
	return nil
}

// APIError is a non-2xx response from the forum.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// makeRequest sends body as JSON and decodes a 2xx response into out.
func (s *EnhancedSimulator) makeRequest(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.EngineURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.recordRequest(time.Since(start), err == nil && resp.StatusCode < 400)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		apiErr := &APIError{Status: resp.StatusCode, Code: errBody.Error.Code, Message: errBody.Error.Message}
		s.recordError(apiErr.Code)
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *EnhancedSimulator) recordRequest(latency time.Duration, ok bool) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	s.stats.TotalRequests++
	if ok {
		s.stats.SuccessRequests++
	} else {
		s.stats.FailedRequests++
	}
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, latency)
}

func (s *EnhancedSimulator) recordError(code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	s.stats.mu.Lock()
	s.stats.ErrorsByCode[code]++
	s.stats.mu.Unlock()
}

// GetMetrics returns a snapshot of the simulation counters.
func (s *EnhancedSimulator) GetMetrics() Report {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	r := Report{
		Elapsed:         time.Since(s.stats.StartTime),
		TotalRequests:   s.stats.TotalRequests,
		SuccessRequests: s.stats.SuccessRequests,
		FailedRequests:  s.stats.FailedRequests,
		TotalPosts:      s.stats.TotalPosts,
		TotalComments:   s.stats.TotalComments,
		TotalVotes:      s.stats.TotalVotes,
		DuplicateVotes:  s.stats.DuplicateVotes,
		ErrorsByCode:    make(map[string]int, len(s.stats.ErrorsByCode)),
	}
	for code, n := range s.stats.ErrorsByCode {
		r.ErrorsByCode[code] = n
	}

	latencies := append([]time.Duration(nil), s.stats.RequestLatencies...)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	r.P50Latency = percentile(latencies, 0.50)
	r.P99Latency = percentile(latencies, 0.99)
	return r
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
