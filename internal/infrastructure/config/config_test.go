package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoadPosts_Defaults(t *testing.T) {
	cfg := LoadPosts(zerolog.Nop())

	assert.Equal(t, "post_user", cfg.Cascade.Stream)
	assert.Equal(t, "post_user_group", cfg.Cascade.Group)
	assert.Equal(t, 2*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 4, cfg.CascadeWorkers)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
}

func TestLoadUsers_Env(t *testing.T) {
	t.Setenv("USERS_GRPC_ADDR", ":9999")
	t.Setenv("USERS_COLLAPSE_LOOKUP_ERRORS", "true")
	t.Setenv("STORE_DRIVER", "memory")

	cfg := LoadUsers(zerolog.Nop())

	assert.Equal(t, ":9999", cfg.GRPCAddr)
	assert.True(t, cfg.CollapseLookupErrors)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
}

func TestLoadPosts_InvalidDurationPanics(t *testing.T) {
	t.Setenv("POSTS_USERS_RPC_TIMEOUT", "soon")
	assert.Panics(t, func() { LoadPosts(zerolog.Nop()) })
}
