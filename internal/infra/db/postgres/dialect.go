package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/bryanwahyu/automaton-risk/internal/infra/db/sqlstore"
)

const uniqueViolation = pq.ErrorCode("23505")

type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Rebind(q string) string { return sqlstore.RebindDollar(q) }

func (Dialect) ClaimSQL() string {
	return `INSERT INTO risk_assessments
  (risk_assessment_id, session_id, project_id, kind, created_by, created_at)
VALUES (?,?,?,?,?,?)
ON CONFLICT (risk_assessment_id) DO NOTHING`
}

func (Dialect) IsDuplicate(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}

func NewStore(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect{})
}

var _ sqlstore.Dialect = Dialect{}
