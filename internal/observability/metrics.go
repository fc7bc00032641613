package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// AuthAttempts counts register/login/verify outcomes.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_attempts_total",
		Help: "Total authentication operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// PostOperations counts post service calls by operation and outcome.
	PostOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_operations_total",
		Help: "Total post operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// DraftCacheLookups counts autosave cache hits and misses.
	DraftCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_draft_cache_lookups_total",
		Help: "Autosave draft cache lookups by result",
	}, []string{"result"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// Outcome labels an operation result for the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

const queryStartKey = "inkwell:query_start"

// RegisterDatabaseMetrics installs GORM callbacks that observe query latency.
func RegisterDatabaseMetrics(db *gorm.DB) error {
	cb := db.Callback()
	steps := []error{
		cb.Create().Before("gorm:create").Register("metrics:before_create", startTimer),
		cb.Create().After("gorm:create").Register("metrics:after_create", observeQuery("create")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", startTimer),
		cb.Query().After("gorm:query").Register("metrics:after_query", observeQuery("query")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", startTimer),
		cb.Update().After("gorm:update").Register("metrics:after_update", observeQuery("update")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", startTimer),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", observeQuery("delete")),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", startTimer),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", observeQuery("raw")),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func observeQuery(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
