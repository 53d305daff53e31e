package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msblog/userpost-system/internal/core/ports"
)

// PendingNotificationStore is the in-process cascade retry queue.
type PendingNotificationStore struct {
	mu      sync.Mutex
	pending map[string]ports.PendingNotification
}

func NewPendingNotificationStore() *PendingNotificationStore {
	return &PendingNotificationStore{pending: make(map[string]ports.PendingNotification)}
}

func (s *PendingNotificationStore) Add(_ context.Context, userID int64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := ports.PendingNotification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Attempts:  1,
		CreatedAt: time.Now().UTC(),
	}
	if cause != nil {
		n.LastError = cause.Error()
	}
	s.pending[n.ID] = n
	return nil
}

func (s *PendingNotificationStore) Poll(_ context.Context, limit int) ([]ports.PendingNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ports.PendingNotification, 0, len(s.pending))
	for _, n := range s.pending {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PendingNotificationStore) MarkPublished(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	return nil
}

func (s *PendingNotificationStore) MarkFailed(_ context.Context, id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.pending[id]
	if !ok {
		return nil
	}
	n.Attempts++
	if cause != nil {
		n.LastError = cause.Error()
	}
	s.pending[id] = n
	return nil
}
