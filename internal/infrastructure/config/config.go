package config

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Common holds settings shared by both services.
type Common struct {
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	JWTSecret   string `env:"JWT_SECRET"`
	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Cascade CascadeConfig
}

type MongoConfig struct {
	URI     string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Timeout time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// CascadeConfig names the user-deleted channel. Both services must agree.
type CascadeConfig struct {
	Stream string `env:"CASCADE_STREAM, default=post_user"`
	Group  string `env:"CASCADE_GROUP,  default=post_user_group"`
	MaxLen int64  `env:"CASCADE_MAXLEN, default=100000"`
}

// Users configures the User authority process.
type Users struct {
	Common

	HTTPPort             string        `env:"USERS_HTTP_PORT,              default=8081"`
	GRPCAddr             string        `env:"USERS_GRPC_ADDR,              default=:9090"`
	Database             string        `env:"USERS_MONGO_DB,               default=users"`
	CollapseLookupErrors bool          `env:"USERS_COLLAPSE_LOOKUP_ERRORS, default=false"`
	RetryInterval        time.Duration `env:"USERS_CASCADE_RETRY_INTERVAL, default=15s"`
	RetryBatch           int           `env:"USERS_CASCADE_RETRY_BATCH,    default=100"`
}

// Posts configures the Post authority process.
type Posts struct {
	Common

	HTTPPort     string        `env:"POSTS_HTTP_PORT,       default=8082"`
	Database     string        `env:"POSTS_MONGO_DB,        default=posts"`
	UsersRPCAddr string        `env:"POSTS_USERS_RPC_ADDR,  default=localhost:9090"`
	RPCTimeout   time.Duration `env:"POSTS_USERS_RPC_TIMEOUT, default=2s"`

	CascadeWorkers   int           `env:"POSTS_CASCADE_WORKERS,    default=4"`
	CascadeBlock     time.Duration `env:"POSTS_CASCADE_BLOCK,      default=5s"`
	CascadeBatch     int64         `env:"POSTS_CASCADE_BATCH,      default=32"`
	CascadeClaimIdle time.Duration `env:"POSTS_CASCADE_CLAIM_IDLE, default=1m"`
	DedupTTL         time.Duration `env:"POSTS_CASCADE_DEDUP_TTL,  default=1h"`
}

// LoadUsers reads the users service configuration from the environment.
func LoadUsers(log zerolog.Logger) *Users {
	var cfg Users
	mustProcess(log, &cfg)
	return &cfg
}

// LoadPosts reads the posts service configuration from the environment.
func LoadPosts(log zerolog.Logger) *Posts {
	var cfg Posts
	mustProcess(log, &cfg)
	return &cfg
}

func mustProcess(log zerolog.Logger, cfg any) {
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		panic(err)
	}
}
