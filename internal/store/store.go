// Package store persists finished analyses to Postgres as JSONB
// documents and serves the read-side history queries.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/reachskumar/echomarket/config"
	"github.com/reachskumar/echomarket/internal/pipeline"
)

type Store struct {
	DB *sql.DB
}

// New opens and pings the database. An empty DSN means persistence is
// not configured; callers get (nil, nil) and treat the store as absent.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	dsn, ok := cfg.DSN()
	if !ok {
		return nil, nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// InsertAnalysis writes one finished analysis document and returns the
// generated row id.
func (s *Store) InsertAnalysis(ctx context.Context, doc pipeline.AnalysisDocument) (string, error) {
	payload, err := json.Marshal(doc.State)
	if err != nil {
		return "", fmt.Errorf("encode analysis document: %w", err)
	}
	var id string
	err = s.DB.QueryRowContext(ctx,
		`INSERT INTO analyses (query_id, ticker, created_at, document) VALUES ($1,$2,$3,$4) RETURNING id`,
		doc.QueryID, doc.Ticker, doc.Timestamp, payload).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

// AnalysisRecord is one persisted analysis as read back from the
// history tables.
type AnalysisRecord struct {
	ID        string                  `json:"id"`
	QueryID   string                  `json:"query_id"`
	Ticker    string                  `json:"ticker"`
	CreatedAt time.Time               `json:"created_at"`
	State     *pipeline.AnalysisState `json:"state"`
}

// GetAnalysis fetches one analysis by row id. The boolean reports
// whether the row exists.
func (s *Store) GetAnalysis(ctx context.Context, id string) (AnalysisRecord, bool, error) {
	var rec AnalysisRecord
	var payload []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, query_id, ticker, created_at, document FROM analyses WHERE id = $1`,
		id).Scan(&rec.ID, &rec.QueryID, &rec.Ticker, &rec.CreatedAt, &payload)
	if err == sql.ErrNoRows {
		return AnalysisRecord{}, false, nil
	}
	if err != nil {
		return AnalysisRecord{}, false, fmt.Errorf("get analysis: %w", err)
	}
	if err := json.Unmarshal(payload, &rec.State); err != nil {
		return AnalysisRecord{}, false, fmt.Errorf("decode analysis document: %w", err)
	}
	return rec, true, nil
}

// ListAnalyses returns the most recent analyses for a ticker, newest
// first. An empty ticker lists across all tickers.
func (s *Store) ListAnalyses(ctx context.Context, ticker string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, query_id, ticker, created_at, document FROM analyses`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = $1`
		args = append(args, ticker)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.QueryID, &rec.Ticker, &rec.CreatedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.State); err != nil {
			return nil, fmt.Errorf("decode analysis document: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
