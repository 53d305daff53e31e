package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/msblog/userpost-system/internal/api/metrics"
	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

// PostHandler serves the Post authority endpoints.
type PostHandler struct {
	service ports.PostService
}

func NewPostHandler(service ports.PostService) *PostHandler {
	return &PostHandler{service: service}
}

// Create handles POST /posts. The owner must exist in the users service at
// the time of the call.
func (h *PostHandler) Create(c echo.Context) error {
	var req createPostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := h.service.CreatePost(c.Request().Context(), ports.CreatePostInput{
		UserID: req.UserID,
		Body:   req.Body,
	})
	if err != nil {
		if rej, ok := domain.AsRejection(err); ok {
			metrics.AdmissionRejectionsTotal.WithLabelValues(string(rej.Reason)).Inc()
		}
		return err
	}
	return c.JSON(http.StatusCreated, toPostResponse(p))
}

// List handles GET /posts.
func (h *PostHandler) List(c echo.Context) error {
	posts, err := h.service.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponses(posts))
}

// Get handles GET /posts/:id.
func (h *PostHandler) Get(c echo.Context) error {
	id, err := int64Param(c, "id")
	if err != nil {
		return err
	}

	p, err := h.service.GetPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponse(p))
}

// ListByOwner handles GET /users/:userId/posts.
func (h *PostHandler) ListByOwner(c echo.Context) error {
	ownerID, err := int64Param(c, "userId")
	if err != nil {
		return err
	}

	posts, err := h.service.ListPostsByOwner(c.Request().Context(), ownerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponses(posts))
}

// GetByOwner handles GET /users/:userId/posts/:postId.
func (h *PostHandler) GetByOwner(c echo.Context) error {
	ownerID, err := int64Param(c, "userId")
	if err != nil {
		return err
	}
	postID, err := int64Param(c, "postId")
	if err != nil {
		return err
	}

	p, err := h.service.GetPostByOwnerAndID(c.Request().Context(), ownerID, postID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponse(p))
}

// Delete handles DELETE /posts/:id.
func (h *PostHandler) Delete(c echo.Context) error {
	id, err := int64Param(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeletePost(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
