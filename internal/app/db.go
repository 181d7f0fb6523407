package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/riskibarqy/rugby-live/internal/config"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
	"github.com/riskibarqy/rugby-live/internal/platform/pgdsn"
)

const (
	dbPingTimeout        = 5 * time.Second
	maxTracedQueryLength = 512
)

// poolDSN is the connection string for the sqlx pool. Connections are
// labelled with the service name in pg_stat_activity.
func poolDSN(cfg config.Config) pgdsn.DSN {
	dsn := pgdsn.Parse(cfg.DBURL).WithDefault("application_name", cfg.ServiceName)
	if cfg.DBDisablePreparedBinary {
		dsn = dsn.WithDefault("disable_prepared_binary_result", "yes")
	}
	return dsn
}

// listenerDSN is the connection string for the dedicated LISTEN connection.
// It runs no queries, so only the label differs from the pool.
func listenerDSN(cfg config.Config) pgdsn.DSN {
	return pgdsn.Parse(cfg.DBURL).WithDefault("application_name", cfg.ServiceName+"-listener")
}

// openDB opens a traced Postgres pool and verifies it with a ping.
func openDB(ctx context.Context, cfg config.Config, logger *logging.Logger) (*sqlx.DB, error) {
	dsn := poolDSN(cfg)

	db, err := otelsqlx.Open("postgres", dsn.String(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dsn.Name()),
		otelsql.WithQueryFormatter(traceQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres %s: %w", dsn.Redacted(), err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", dsn.Redacted(), err)
	}

	otelsql.ReportDBStatsMetrics(db.DB, otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
	logger.Info("postgres connected", "db", dsn.Name(), "prepared_binary_disabled", cfg.DBDisablePreparedBinary)
	return db, nil
}

// traceQuery collapses whitespace and caps the statement recorded on spans.
func traceQuery(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	cut := maxTracedQueryLength
	for cut > 0 && !utf8.RuneStart(normalized[cut]) {
		cut--
	}
	return normalized[:cut] + "..."
}
