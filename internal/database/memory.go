package database

import (
	"context"
	"sort"
	"sync"

	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
)

// MemoryStore keeps users and posts in process. It honors the same contract
// as MongoDB, including the version check on ReplacePost, and is used for
// DB_TYPE=memory and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
	posts   map[uuid.UUID]*models.Post
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
		posts:   make(map[uuid.UUID]*models.Post),
	}
}

func (s *MemoryStore) InsertUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return utils.NewAppError(utils.ErrDuplicateEmail, "User with this email already exists", nil)
	}
	cp := *user
	s.users[user.ID] = &cp
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, utils.NewUserNotFoundError(email)
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) GetUsersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			cp := *user
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		cp := *user
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemoryStore) InsertPost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.Version = 1
	s.posts[post.ID] = post.Clone()
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, utils.NewNotFoundError("Post")
	}
	return post.Clone(), nil
}

func (s *MemoryStore) ReplacePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[post.ID]
	if !ok {
		return utils.NewNotFoundError("Post")
	}
	if stored.Version != post.Version {
		return ErrVersionConflict
	}
	post.Version++
	s.posts[post.ID] = post.Clone()
	return nil
}

func (s *MemoryStore) ListPosts(_ context.Context, activeOnly bool) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if activeOnly && !post.Active {
			continue
		}
		posts = append(posts, post.Clone())
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}
