package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

var postCategories = []string{"Technology", "Health", "Finance", "Education", "Entertainment", "Other"}

// Helper function to generate random post topics
func getRandomTheme() string {
	themes := []string{
		"gaming", "tech", "science", "music", "movies",
		"books", "sports", "food", "travel", "art",
		"photography", "fitness", "programming", "news", "memes",
	}
	return themes[rand.Intn(len(themes))]
}

// SimulateActivities runs the worker pool until ctx is done.
func (s *EnhancedSimulator) SimulateActivities(ctx context.Context) error {
	s.logger.Info("starting activities")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			// Each worker gets its own source; rand.Rand is not safe to share
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			for ctx.Err() == nil {
				if err := s.step(ctx, rng); err != nil && ctx.Err() == nil {
					s.logger.Debug("activity failed", "worker", workerID, "err", err)
				}
			}
		}(i)
	}
	wg.Wait()

	r := s.GetMetrics()
	s.logger.Info("simulation finished",
		"requests", r.TotalRequests,
		"failed", r.FailedRequests,
		"posts", r.TotalPosts,
		"comments", r.TotalComments,
		"votes", r.TotalVotes,
		"p99", r.P99Latency,
	)
	return nil
}

func (s *EnhancedSimulator) step(ctx context.Context, rng *rand.Rand) error {
	user := s.randomUser()
	roll := rng.Float64()
	switch {
	case roll < s.config.VoteRatio:
		return s.vote(ctx, rng, user)
	case roll < s.config.VoteRatio+s.config.CommentRatio:
		return s.comment(ctx, rng, user)
	default:
		return s.createPost(ctx, user)
	}
}

func (s *EnhancedSimulator) randomUser() *SimulatedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[rand.Intn(len(s.users))]
}

// pickPost chooses a post by Zipf rank. Older posts rank higher, so the seed
// posts collect most of the traffic.
func (s *EnhancedSimulator) pickPost(rng *rand.Rand) uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.posts) == 1 {
		return s.posts[0]
	}
	zipf := rand.NewZipf(rng, s.config.ZipfS, 1, uint64(len(s.posts)-1))
	return s.posts[zipf.Uint64()]
}

func (s *EnhancedSimulator) createPost(ctx context.Context, user *SimulatedUser) error {
	theme := getRandomTheme()
	var post struct {
		ID uuid.UUID `json:"id"`
	}
	err := s.makeRequest(ctx, http.MethodPost, "/v1/api/posts", user.Token, map[string]interface{}{
		"title":    fmt.Sprintf("Thoughts on %s", theme),
		"message":  fmt.Sprintf("%s wants to talk about %s", user.Username, theme),
		"category": postCategories[rand.Intn(len(postCategories))],
		"tags":     []string{theme},
	}, &post)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.posts = append(s.posts, post.ID)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalPosts++
	s.stats.mu.Unlock()
	return nil
}

func (s *EnhancedSimulator) comment(ctx context.Context, rng *rand.Rand, user *SimulatedUser) error {
	postID := s.pickPost(rng)
	rating := rng.Intn(5) + 1
	err := s.makeRequest(ctx, http.MethodPost, "/v1/api/posts/"+postID.String()+"/comments", user.Token, map[string]interface{}{
		"message": fmt.Sprintf("%s agrees", user.Username),
		"rating":  rating,
	}, nil)
	if err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalComments++
	s.stats.mu.Unlock()
	return nil
}

// vote upvotes two times in three. Repeats are expected under Zipf and are
// counted separately from failures.
func (s *EnhancedSimulator) vote(ctx context.Context, rng *rand.Rand, user *SimulatedUser) error {
	postID := s.pickPost(rng)
	direction := "upvote"
	if rng.Intn(3) == 0 {
		direction = "downvote"
	}

	err := s.makeRequest(ctx, http.MethodPost, "/v1/api/posts/"+postID.String()+"/"+direction, user.Token, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "DUPLICATE_VOTE" {
		s.stats.mu.Lock()
		s.stats.DuplicateVotes++
		s.stats.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.TotalVotes++
	s.stats.mu.Unlock()
	return nil
}
