package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/msblog/userpost-system/internal/core/domain"
)

type PostRepository struct {
	mu     sync.RWMutex
	nextID int64
	posts  map[int64]domain.Post
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[int64]domain.Post)}
}

func (r *PostRepository) Save(_ context.Context, p *domain.Post) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *p
	if stored.ID == 0 {
		r.nextID++
		stored.ID = r.nextID
	} else if stored.ID > r.nextID {
		r.nextID = stored.ID
	}
	r.posts[stored.ID] = stored
	return &stored, nil
}

func (r *PostRepository) FindByID(_ context.Context, id int64) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return &p, nil
}

func (r *PostRepository) FindByOwnerAndID(_ context.Context, ownerID, id int64) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok || p.UserID != ownerID {
		return nil, domain.ErrPostNotFound
	}
	return &p, nil
}

func (r *PostRepository) FindAll(_ context.Context) ([]*domain.Post, error) {
	return r.filter(func(domain.Post) bool { return true }), nil
}

func (r *PostRepository) FindByOwner(_ context.Context, ownerID int64) ([]*domain.Post, error) {
	return r.filter(func(p domain.Post) bool { return p.UserID == ownerID }), nil
}

func (r *PostRepository) DeleteByID(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return false, nil
	}
	delete(r.posts, id)
	return true, nil
}

func (r *PostRepository) DeleteByOwner(_ context.Context, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, p := range r.posts {
		if p.UserID == ownerID {
			delete(r.posts, id)
			n++
		}
	}
	return n, nil
}

func (r *PostRepository) filter(keep func(domain.Post) bool) []*domain.Post {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Post, 0)
	for _, p := range r.posts {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
