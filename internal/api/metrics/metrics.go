// Package metrics defines and registers the custom Prometheus metrics of the
// users and posts services. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default registry at package init via promauto and
// are served by the echoprometheus handler mounted on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	usersNamespace = "users"
	postsNamespace = "posts"
)

// ── Users service ─────────────────────────────────────────────────────────────

// UserLookupsTotal counts existence queries answered by the RPC server.
// Label:
//   - result: "found", "not_found" or "lookup_error"
var UserLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: usersNamespace,
		Name:      "lookups_total",
		Help:      "Total number of user existence queries served, by result.",
	},
	[]string{"result"},
)

// RPCDuration measures server-side handling time of RPC methods.
// Labels:
//   - method: full gRPC method name
//   - code: gRPC status code
var RPCDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: usersNamespace,
		Name:      "rpc_duration_seconds",
		Help:      "Duration of RPC handling on the users service.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "code"},
)

// CascadePublishedTotal counts user-deleted notifications accepted by the bus.
var CascadePublishedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: usersNamespace,
		Subsystem: "cascade",
		Name:      "published_total",
		Help:      "Total number of user-deleted notifications published.",
	},
)

// CascadePublishFailuresTotal counts user-deleted notifications the bus refused.
var CascadePublishFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: usersNamespace,
		Subsystem: "cascade",
		Name:      "publish_failures_total",
		Help:      "Total number of user-deleted notifications that failed to publish.",
	},
)

// CascadeRetriesTotal counts retry-queue republish attempts.
// Label:
//   - result: "published", "failed"
var CascadeRetriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: usersNamespace,
		Subsystem: "cascade",
		Name:      "retries_total",
		Help:      "Total number of republish attempts from the retry queue, by result.",
	},
	[]string{"result"},
)

// CascadeRetryPending reports how many notifications the last relay poll found.
var CascadeRetryPending = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: usersNamespace,
		Subsystem: "cascade",
		Name:      "retry_pending",
		Help:      "Notifications waiting in the retry queue at the last poll.",
	},
)

// ── Posts service ─────────────────────────────────────────────────────────────

// ExistenceChecksTotal counts calls made to the users service.
// Label:
//   - result: "exists", "missing", "transport_error" or "lookup_error"
var ExistenceChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: postsNamespace,
		Name:      "existence_checks_total",
		Help:      "Total number of user existence checks, by result.",
	},
	[]string{"result"},
)

// ExistenceCheckDuration measures round-trip time of existence checks.
var ExistenceCheckDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: postsNamespace,
		Name:      "existence_check_duration_seconds",
		Help:      "Round-trip duration of user existence checks.",
		Buckets:   prometheus.DefBuckets,
	},
)

// AdmissionRejectionsTotal counts refused post creations.
// Label:
//   - reason: "invalid_body" or "unknown_owner"
var AdmissionRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: postsNamespace,
		Name:      "admission_rejections_total",
		Help:      "Total number of post creations rejected by admission, by reason.",
	},
	[]string{"reason"},
)

// CascadeProcessedTotal counts user-deleted notifications applied to the post store.
var CascadeProcessedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: postsNamespace,
		Subsystem: "cascade",
		Name:      "processed_total",
		Help:      "Total number of user-deleted notifications applied.",
	},
)

// CascadePostsDeletedTotal counts posts removed by cascade deletes.
var CascadePostsDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: postsNamespace,
		Subsystem: "cascade",
		Name:      "posts_deleted_total",
		Help:      "Total number of posts removed because their owner was deleted.",
	},
)

// CascadeMalformedTotal counts notifications dropped because the payload was
// not a valid user id.
var CascadeMalformedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: postsNamespace,
		Subsystem: "cascade",
		Name:      "malformed_total",
		Help:      "Total number of malformed cascade notifications dropped.",
	},
)

// CascadeFailuresTotal counts notifications whose handling failed and were left
// pending for redelivery.
// Label:
//   - reason: "store_error" or "panic"
var CascadeFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: postsNamespace,
		Subsystem: "cascade",
		Name:      "failures_total",
		Help:      "Total number of cascade notifications that failed processing.",
	},
	[]string{"reason"},
)

// CascadeDedupTotal counts deduplication decisions.
// Label:
//   - result: "hit" (already applied, skipped) or "miss"
var CascadeDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: postsNamespace,
		Subsystem: "cascade",
		Name:      "dedup_total",
		Help:      "Total number of deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// CascadeQueueDepth tracks notifications waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var CascadeQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: postsNamespace,
		Subsystem: "cascade",
		Name:      "queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// CascadeProcessingDuration measures how long one notification takes to apply.
// Label:
//   - result: "ok" or "error"
var CascadeProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: postsNamespace,
		Subsystem: "cascade",
		Name:      "processing_duration_seconds",
		Help:      "Duration of cascade handling from dequeue to store delete.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
