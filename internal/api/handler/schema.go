package handler

import "github.com/msblog/userpost-system/internal/core/domain"

// --- Request / Response types ---

type createUserRequest struct {
	Name string `json:"name" validate:"required"`
}

// createPostRequest carries no validation tags: admission decides, so an
// out-of-range body is rejected as such whatever the owner id.
type createPostRequest struct {
	UserID int64  `json:"user_id"`
	Body   string `json:"body"`
}

type userResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type postResponse struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Body   string `json:"body"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toPostResponse(p *domain.Post) postResponse {
	return postResponse{ID: p.ID, UserID: p.UserID, Body: p.Body}
}

func toPostResponses(posts []*domain.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return out
}
