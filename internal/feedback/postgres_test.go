package feedback

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var feedbackColumns = []string{
	"id", "assessment_id", "profile", "symptoms", "imaging_verdict", "imaging_confidence",
	"suggested_risk", "suggested_level", "clinician_level", "outcome", "agreed",
	"notes", "created_at", "updated_at",
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO assessment_feedback (.+) ON CONFLICT \\(assessment_id\\) DO UPDATE").
		WithArgs(
			"a-1", "default", `["cough","fever"]`, "POSITIVE", 0.9,
			95.0, "HIGH", "HIGH", "confirmed", true,
			"consolidation in right lower lobe", sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	fb := sampleFeedback("a-1")
	require.NoError(t, store.Save(context.Background(), fb))
	assert.Equal(t, int64(7), fb.ID)
	assert.Equal(t, created, fb.CreatedAt)
	assert.False(t, fb.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRejectsInvalid(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	fb := sampleFeedback("a-1")
	fb.ClinicianLevel = ""
	err := store.Save(context.Background(), fb)

	var validation *domain.ValidationError
	assert.True(t, errors.As(err, &validation))
	assert.NoError(t, mock.ExpectationsWereMet(), "no query issued")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM assessment_feedback WHERE assessment_id").
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(feedbackColumns).AddRow(
			int64(3), "a-1", "default", `["fever"]`, "NEGATIVE", 0.1,
			12.0, "LOW", "MODERATE", "pending", false,
			"", now, now,
		))

	got, err := store.Get(context.Background(), "a-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, []string{"fever"}, got.Symptoms)
	assert.Equal(t, domain.NEGATIVE, got.ImagingVerdict)
	assert.Equal(t, domain.LOW, got.SuggestedLevel)
	assert.Equal(t, domain.MODERATE, got.ClinicianLevel)
	assert.Equal(t, OutcomePending, got.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	mock.ExpectQuery("SELECT (.+) FROM assessment_feedback WHERE assessment_id").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	got, err := store.Get(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(feedbackColumns).
		AddRow(int64(2), "a-2", "default", `[]`, "", 0.0, 2.5, "LOW", "LOW", "ruled_out", true, "", now, now).
		AddRow(int64(1), "a-1", "default", `["cough"]`, "POSITIVE", 0.8, 95.0, "HIGH", "HIGH", "confirmed", true, "", now, now)
	mock.ExpectQuery("SELECT (.+) FROM assessment_feedback ORDER BY created_at DESC").
		WithArgs(10, 0).
		WillReturnRows(rows)

	list, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a-2", list[0].AssessmentID)
	assert.Empty(t, list[0].Symptoms)
	assert.Equal(t, OutcomeRuledOut, list[0].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := setupMockStore(t)
	defer store.Close()
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectExec("DELETE FROM assessment_feedback").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM assessment_feedback").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	assert.NoError(t, store.Delete(ctx, 4))
	assert.ErrorIs(t, store.Delete(ctx, 5), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
