package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

func TestDialect_IsDuplicate(t *testing.T) {
	d := Dialect{}
	assert.True(t, d.IsDuplicate(&pq.Error{Code: "23505"}))
	assert.False(t, d.IsDuplicate(&pq.Error{Code: "40001"}))
}

func TestStore_ClaimUsesDollarPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO risk_assessments
  (risk_assessment_id, session_id, project_id, kind, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (risk_assessment_id) DO NOTHING`).
		WithArgs("R-001", "s1", "p1", "risk", "alice", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT session_id FROM risk_assessments WHERE risk_assessment_id = $1`).
		WithArgs("R-001").
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow("s0"))
	mock.ExpectRollback()

	err = NewStore(db).SaveBatch(context.Background(), &assessment.Batch{
		AssessmentID: "R-001", SessionID: "s1", ProjectID: "p1", Kind: assessment.KindRisk, CreatedBy: "alice", CreatedAt: at,
	})
	assert.ErrorIs(t, err, assessment.ErrDuplicateIdentifier)
	assert.NoError(t, mock.ExpectationsWereMet())
}
