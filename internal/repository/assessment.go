// Package repository persists completed assessments in PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// AssessmentRepository handles assessment persistence. The full record is
// kept as JSONB; the columns beside it exist for filtering and reporting.
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// Save inserts an assessment. Saving an ID twice keeps the first record.
func (r *AssessmentRepository) Save(ctx context.Context, record *domain.AssessmentRecord) error {
	if record == nil || record.ID == "" {
		return domain.NewValidationError("id", "assessment ID is required", nil)
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling assessment: %w", err)
	}

	query := `
		INSERT INTO assessments (
			id, profile, case_name, risk_percentage, risk_level,
			imaging_verdict, imaging_confidence, record, assessed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.Profile,
		string(record.Risk.Case),
		record.Risk.Percentage,
		string(record.Risk.RiskLevel),
		string(record.Imaging.Verdict),
		record.Imaging.Confidence,
		recordJSON,
		record.AssessedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": record.ID,
			"error":         err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": record.ID,
		"case":          record.Risk.Case,
		"risk_level":    record.Risk.RiskLevel,
	}).Debug("Assessment saved")
	return nil
}

// Get retrieves an assessment by its ID
func (r *AssessmentRepository) Get(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	var recordJSON []byte
	err := r.db.QueryRow(ctx, `SELECT record FROM assessments WHERE id = $1`, id).Scan(&recordJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrUnknownAssessment)
		}
		return nil, fmt.Errorf("getting assessment: %w", err)
	}

	var record domain.AssessmentRecord
	if err := json.Unmarshal(recordJSON, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling assessment: %w", err)
	}
	return &record, nil
}

// List returns assessments, newest first.
func (r *AssessmentRepository) List(ctx context.Context, limit, offset int) ([]*domain.AssessmentRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT record FROM assessments
		ORDER BY assessed_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	var records []*domain.AssessmentRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		var record domain.AssessmentRecord
		if err := json.Unmarshal(recordJSON, &record); err != nil {
			return nil, fmt.Errorf("unmarshaling assessment: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// CountByRiskLevel tallies stored assessments per risk level.
func (r *AssessmentRepository) CountByRiskLevel(ctx context.Context) (map[domain.RiskLevel]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT risk_level, COUNT(*) FROM assessments GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("counting assessments: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RiskLevel]int64)
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[domain.RiskLevel(level)] = n
	}
	return counts, rows.Err()
}

// Close releases the connection pool.
func (r *AssessmentRepository) Close() error {
	r.db.Close()
	return nil
}

var _ domain.AssessmentStore = (*AssessmentRepository)(nil)
