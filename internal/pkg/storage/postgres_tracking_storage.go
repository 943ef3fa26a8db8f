package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Vodeneev/livebet/internal/pkg/config"
)

// Ensure PostgresTrackingStorage implements TrackingStorage
var _ TrackingStorage = (*PostgresTrackingStorage)(nil)

// PostgresTrackingStorage stores option snapshots taken by the watch loop.
type PostgresTrackingStorage struct {
	db *sql.DB
}

// NewPostgresTrackingStorage opens the database and creates the tables.
func NewPostgresTrackingStorage(cfg *config.PostgresConfig) (*PostgresTrackingStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresTrackingStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL tracking storage initialized successfully")
	return s, nil
}

func (s *PostgresTrackingStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS option_snapshots (
		fixture_id BIGINT NOT NULL,
		phrase VARCHAR(255) NOT NULL,
		tracking_id VARCHAR(64) NOT NULL,
		market_key VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		odds DECIMAL(10, 2) NOT NULL,
		odds_source VARCHAR(20) NOT NULL,
		probability SMALLINT NOT NULL,
		hedge_available BOOLEAN NOT NULL DEFAULT FALSE,
		minute SMALLINT NOT NULL,
		score_home SMALLINT NOT NULL,
		score_away SMALLINT NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		PRIMARY KEY (fixture_id, phrase)
	);

	CREATE TABLE IF NOT EXISTS option_history (
		id SERIAL PRIMARY KEY,
		fixture_id BIGINT NOT NULL,
		phrase VARCHAR(255) NOT NULL,
		tracking_id VARCHAR(64) NOT NULL,
		market_key VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL,
		odds DECIMAL(10, 2) NOT NULL,
		odds_source VARCHAR(20) NOT NULL,
		probability SMALLINT NOT NULL,
		hedge_available BOOLEAN NOT NULL DEFAULT FALSE,
		minute SMALLINT NOT NULL,
		score_home SMALLINT NOT NULL,
		score_away SMALLINT NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_option_history_fixture_phrase ON option_history(fixture_id, phrase, recorded_at);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

const snapshotColumns = `fixture_id, phrase, tracking_id, market_key, status, odds, odds_source,
		probability, hedge_available, minute, score_home, score_away, recorded_at`

// StoreOptionSnapshot upserts the latest row for (fixture_id, phrase) and appends a history point.
func (s *PostgresTrackingStorage) StoreOptionSnapshot(ctx context.Context, snap OptionSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := []any{
		snap.FixtureID, snap.Phrase, snap.TrackingID, snap.MarketKey, snap.Status, snap.Odds, snap.OddsSource,
		snap.Probability, snap.HedgeAvailable, snap.Minute, snap.ScoreHome, snap.ScoreAway, snap.RecordedAt,
	}

	upsert := `
	INSERT INTO option_snapshots (` + snapshotColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (fixture_id, phrase) DO UPDATE SET
		tracking_id = EXCLUDED.tracking_id,
		market_key = EXCLUDED.market_key,
		status = EXCLUDED.status,
		odds = EXCLUDED.odds,
		odds_source = EXCLUDED.odds_source,
		probability = EXCLUDED.probability,
		hedge_available = EXCLUDED.hedge_available,
		minute = EXCLUDED.minute,
		score_home = EXCLUDED.score_home,
		score_away = EXCLUDED.score_away,
		recorded_at = EXCLUDED.recorded_at
	`
	if _, err := tx.ExecContext(ctx, upsert, args...); err != nil {
		return fmt.Errorf("failed to upsert option snapshot: %w", err)
	}

	history := `
	INSERT INTO option_history (` + snapshotColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if _, err := tx.ExecContext(ctx, history, args...); err != nil {
		return fmt.Errorf("failed to append option history: %w", err)
	}

	return tx.Commit()
}

// LastOptionSnapshot returns the latest stored snapshot for (fixture_id, phrase).
func (s *PostgresTrackingStorage) LastOptionSnapshot(ctx context.Context, fixtureID int64, phrase string) (OptionSnapshot, bool, error) {
	query := `SELECT ` + snapshotColumns + ` FROM option_snapshots WHERE fixture_id = $1 AND phrase = $2`

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, fixtureID, phrase))
	if errors.Is(err, sql.ErrNoRows) {
		return OptionSnapshot{}, false, nil
	}
	if err != nil {
		return OptionSnapshot{}, false, fmt.Errorf("failed to get last option snapshot: %w", err)
	}
	return snap, true, nil
}

// OptionHistory returns the most recent history points, oldest first.
func (s *PostgresTrackingStorage) OptionHistory(ctx context.Context, fixtureID int64, phrase string, limit int) ([]OptionSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT ` + snapshotColumns + ` FROM (
		SELECT * FROM option_history
		WHERE fixture_id = $1 AND phrase = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	) recent ORDER BY recorded_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, fixtureID, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query option history: %w", err)
	}
	defer rows.Close()

	var out []OptionSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option history: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// CleanFinished deletes snapshots and history of fixtures not updated since before.
func (s *PostgresTrackingStorage) CleanFinished(ctx context.Context, before time.Time) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM option_snapshots WHERE recorded_at < $1`, before)
	if err != nil {
		return fmt.Errorf("failed to clean option_snapshots: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM option_history WHERE recorded_at < $1`, before); err != nil {
		return fmt.Errorf("failed to clean option_history: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		slog.Info("Cleaned stale option snapshots", "rows_deleted", rows)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresTrackingStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (OptionSnapshot, error) {
	var snap OptionSnapshot
	err := row.Scan(
		&snap.FixtureID, &snap.Phrase, &snap.TrackingID, &snap.MarketKey, &snap.Status, &snap.Odds, &snap.OddsSource,
		&snap.Probability, &snap.HedgeAvailable, &snap.Minute, &snap.ScoreHome, &snap.ScoreAway, &snap.RecordedAt,
	)
	return snap, err
}
