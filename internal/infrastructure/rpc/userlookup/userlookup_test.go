package userlookup

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

var _ ports.UserExistenceChecker = (*Client)(nil)

// stubLookup answers from a fixed map; ids listed in faulty fail and ids in
// slow block until the request is cancelled.
type stubLookup struct {
	users  map[int64]string
	faulty map[int64]bool
	slow   map[int64]bool
	panics bool
}

func (s *stubLookup) LookupUser(ctx context.Context, id int64) domain.UserLookup {
	if s.panics {
		panic("lookup exploded")
	}
	if s.slow[id] {
		<-ctx.Done()
		return domain.LookupFailed(ctx.Err())
	}
	if s.faulty[id] {
		return domain.LookupFailed(errors.New("store offline"))
	}
	if name, ok := s.users[id]; ok {
		return domain.Found(domain.User{ID: id, Name: name})
	}
	return domain.NotFound()
}

func startPair(t *testing.T, lookup *stubLookup, timeout time.Duration, opts ...ServerOption) (*Client, func()) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := NewGRPCServer(zerolog.Nop())
	NewServer(lookup, zerolog.Nop(), opts...).Register(srv)
	go func() { _ = srv.Serve(lis) }()

	client, err := Dial("passthrough:///bufnet", timeout, zerolog.Nop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
	})
	return client, srv.Stop
}

func TestClient_UserExists(t *testing.T) {
	client, _ := startPair(t, &stubLookup{users: map[int64]string{1: "alice"}}, time.Second)
	ctx := context.Background()

	ok, err := client.UserExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.UserExists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_LookupReturnsName(t *testing.T) {
	client, _ := startPair(t, &stubLookup{users: map[int64]string{7: "grace"}}, time.Second)

	res, err := client.Lookup(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.LookupFound, res.Status)
	assert.Equal(t, "grace", res.User.Name)
}

func TestClient_LookupFaultIsDistinctFromNotFound(t *testing.T) {
	client, _ := startPair(t, &stubLookup{faulty: map[int64]bool{5: true}}, time.Second)

	ok, err := client.UserExists(context.Background(), 5)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrLookupFailed))
	assert.False(t, errors.Is(err, domain.ErrTransportFailure))
}

func TestClient_CollapsedLookupFaultReadsAsNotFound(t *testing.T) {
	client, _ := startPair(t, &stubLookup{faulty: map[int64]bool{5: true}}, time.Second, WithCollapsedErrors(true))

	ok, err := client.UserExists(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_ServerPanicIsLookupFailure(t *testing.T) {
	client, _ := startPair(t, &stubLookup{panics: true}, time.Second)

	_, err := client.UserExists(context.Background(), 1)
	assert.True(t, errors.Is(err, domain.ErrLookupFailed))
}

func TestClient_TimeoutIsTransportFailure(t *testing.T) {
	client, _ := startPair(t, &stubLookup{slow: map[int64]bool{3: true}}, 50*time.Millisecond)

	start := time.Now()
	_, err := client.UserExists(context.Background(), 3)
	assert.True(t, errors.Is(err, domain.ErrTransportFailure))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_CallerCancellationIsTransportFailure(t *testing.T) {
	client, _ := startPair(t, &stubLookup{slow: map[int64]bool{3: true}}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := client.UserExists(ctx, 3)
	assert.True(t, errors.Is(err, domain.ErrTransportFailure))
}

func TestClient_UnreachableServerIsTransportFailure(t *testing.T) {
	client, stop := startPair(t, &stubLookup{users: map[int64]string{1: "alice"}}, 200*time.Millisecond)
	stop()

	ok, err := client.UserExists(context.Background(), 1)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrTransportFailure))
}

func TestClient_ConcurrentCallsShareConnection(t *testing.T) {
	users := map[int64]string{}
	for i := int64(1); i <= 20; i++ {
		users[i] = "user"
	}
	client, _ := startPair(t, &stubLookup{users: users}, time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := int64(1); i <= 40; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ok, err := client.UserExists(context.Background(), id)
			if err != nil {
				errs <- err
				return
			}
			if ok != (id <= 20) {
				errs <- errors.New("wrong existence answer")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestServer_NotFoundUsesSentinel(t *testing.T) {
	s := NewServer(&stubLookup{}, zerolog.Nop())

	resp, err := s.GetUserByID(context.Background(), &UserRequest{UserID: 42})
	require.NoError(t, err)
	assert.Equal(t, domain.NotFoundUserID, resp.UserID)
	assert.Empty(t, resp.Name)
}

func TestJSONCodec_WireFieldNames(t *testing.T) {
	b, err := jsonCodec{}.Marshal(&UserResponse{UserID: -1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":-1,"name":""}`, string(b))
}
