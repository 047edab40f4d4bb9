package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL feedback store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Save stores or updates feedback for an assessment.
func (s *PostgresStore) Save(ctx context.Context, feedback *Feedback) error {
	symptoms, err := prepare(feedback)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO assessment_feedback (
			assessment_id, profile, symptoms, imaging_verdict, imaging_confidence,
			suggested_risk, suggested_level, clinician_level, outcome, agreed,
			notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (assessment_id) DO UPDATE SET
			profile = EXCLUDED.profile,
			symptoms = EXCLUDED.symptoms,
			imaging_verdict = EXCLUDED.imaging_verdict,
			imaging_confidence = EXCLUDED.imaging_confidence,
			suggested_risk = EXCLUDED.suggested_risk,
			suggested_level = EXCLUDED.suggested_level,
			clinician_level = EXCLUDED.clinician_level,
			outcome = EXCLUDED.outcome,
			agreed = EXCLUDED.agreed,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		feedback.AssessmentID,
		feedback.Profile,
		symptoms,
		string(feedback.ImagingVerdict),
		feedback.ImagingConfidence,
		feedback.SuggestedRisk,
		string(feedback.SuggestedLevel),
		string(feedback.ClinicianLevel),
		string(feedback.Outcome),
		feedback.Agreed,
		feedback.Notes,
		now,
		now,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	feedback.UpdatedAt = now
	return nil
}

// Get retrieves feedback for an assessment.
func (s *PostgresStore) Get(ctx context.Context, assessmentID string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM assessment_feedback WHERE assessment_id = $1 LIMIT 1",
		assessmentID,
	)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return fb, nil
}

// List returns feedback entries, newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM assessment_feedback ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessment_feedback").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// Delete removes a feedback entry by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM assessment_feedback WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("feedback %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ExportJSON exports all feedback to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON imports feedback from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importAll(ctx, s, reader)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
