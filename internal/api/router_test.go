package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msblog/userpost-system/internal/api/handler"
	"github.com/msblog/userpost-system/internal/api/middleware"
	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/service"
	"github.com/msblog/userpost-system/internal/infrastructure/db/memory"
)

type noopPublisher struct{ published []int64 }

func (p *noopPublisher) PublishUserDeleted(_ context.Context, id int64) error {
	p.published = append(p.published, id)
	return nil
}

type stubChecker struct {
	existing map[int64]bool
	err      error
}

func (c *stubChecker) UserExists(_ context.Context, id int64) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.existing[id], nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func testDeps(secret string, deps ...handler.Dependency) RouterDeps {
	return RouterDeps{
		Log:       zerolog.Nop(),
		JWTSecret: secret,
		Readiness: deps,
		Registry:  prometheus.NewRegistry(),
	}
}

func do(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func newUsersAPI(t *testing.T, secret string) (*echo.Echo, *noopPublisher) {
	t.Helper()
	pub := &noopPublisher{}
	svc := service.NewUserService(memory.NewUserRepository(), pub, memory.NewPendingNotificationStore(), zerolog.Nop())
	return NewUsersRouter(svc, testDeps(secret)), pub
}

func newPostsAPI(t *testing.T, checker *stubChecker) *echo.Echo {
	t.Helper()
	svc := service.NewPostService(memory.NewPostRepository(), service.NewAdmission(checker, zerolog.Nop()), zerolog.Nop())
	return NewPostsRouter(svc, testDeps(""))
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestUsersAPI_CreateGetList(t *testing.T) {
	e, _ := newUsersAPI(t, "")

	rec := do(e, http.MethodPost, "/users", `{"name":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"alice"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"alice"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"name":"alice"}]`, rec.Body.String())
}

func TestUsersAPI_CreateRejectsShortName(t *testing.T) {
	e, _ := newUsersAPI(t, "")

	rec := do(e, http.MethodPost, "/users", `{"name":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/users", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", decodeError(t, rec))
}

func TestUsersAPI_GetErrors(t *testing.T) {
	e, _ := newUsersAPI(t, "")

	rec := do(e, http.MethodGet, "/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/users/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user not found", decodeError(t, rec))
}

func TestUsersAPI_DeletePublishes(t *testing.T) {
	e, pub := newUsersAPI(t, "")
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/users", `{"name":"alice"}`).Code)

	rec := do(e, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{1}, pub.published)

	rec = do(e, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, pub.published, 1)
}

func TestUsersAPI_DeleteRequiresAdminWhenAuthEnabled(t *testing.T) {
	e, pub := newUsersAPI(t, "secret")
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/users", `{"name":"alice"}`).Code)

	rec := do(e, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	reader := sign(t, "reader")
	rec = do(e, http.MethodDelete, "/users/1", "", echo.HeaderAuthorization, "Bearer "+reader)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, pub.published)

	admin := sign(t, middleware.RoleAdmin)
	rec = do(e, http.MethodDelete, "/users/1", "", echo.HeaderAuthorization, "Bearer "+admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{1}, pub.published)
}

func sign(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{Role: role}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

// ---------------------------------------------------------------------------
// Posts
// ---------------------------------------------------------------------------

func TestPostsAPI_CreateAndRead(t *testing.T) {
	e := newPostsAPI(t, &stubChecker{existing: map[int64]bool{1: true}})

	rec := do(e, http.MethodPost, "/posts", `{"user_id":1,"body":"0123456789"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1,"user_id":1,"body":"0123456789"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/posts/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/users/1/posts/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/users/2/posts/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "post not found", decodeError(t, rec))

	rec = do(e, http.MethodGet, "/users/1/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"user_id":1,"body":"0123456789"}]`, rec.Body.String())

	rec = do(e, http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostsAPI_Rejections(t *testing.T) {
	e := newPostsAPI(t, &stubChecker{existing: map[int64]bool{1: true}})

	rec := do(e, http.MethodPost, "/posts", `{"user_id":1,"body":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrInvalidBody.Error(), decodeError(t, rec))

	rec = do(e, http.MethodPost, "/posts", `{"user_id":999,"body":"0123456789"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), domain.ErrUnknownOwner.Error())

	rec = do(e, http.MethodPost, "/posts", `{"body":"0123456789"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), domain.ErrUnknownOwner.Error())

	rec = do(e, http.MethodPost, "/posts", `{"user_id":0,"body":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrInvalidBody.Error(), decodeError(t, rec))

	rec = do(e, http.MethodGet, "/posts", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPostsAPI_UsersServiceDownIsRetryable(t *testing.T) {
	for _, cause := range []error{domain.ErrTransportFailure, domain.ErrLookupFailed} {
		e := newPostsAPI(t, &stubChecker{err: cause})

		rec := do(e, http.MethodPost, "/posts", `{"user_id":1,"body":"0123456789"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, cause.Error())
	}
}

func TestPostsAPI_Delete(t *testing.T) {
	e := newPostsAPI(t, &stubChecker{existing: map[int64]bool{1: true}})
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/posts", `{"user_id":1,"body":"0123456789"}`).Code)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/posts/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/posts/1", "").Code)
}

// ---------------------------------------------------------------------------
// Health & metrics
// ---------------------------------------------------------------------------

func TestHealthProbes(t *testing.T) {
	svc := service.NewUserService(memory.NewUserRepository(), &noopPublisher{}, nil, zerolog.Nop())
	e := NewUsersRouter(svc, testDeps("",
		handler.Dependency{Name: "mongodb", Pinger: stubPinger{}},
		handler.Dependency{Name: "redis", Pinger: stubPinger{err: errors.New("connection refused")}},
	))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health", "").Code)

	rec := do(e, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status       string                       `json:"status"`
		Dependencies map[string]map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Dependencies["mongodb"]["status"])
	assert.Equal(t, "unhealthy", body.Dependencies["redis"]["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newUsersAPI(t, "")
	do(e, http.MethodGet, "/users", "")

	rec := do(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requests_total")
}
