// Package sqlstore implements the assessment ports on database/sql. The
// MySQL and Postgres packages supply the connection and a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

type Store struct {
	db *sql.DB
	d  Dialect
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d}
}

// Repos returns the repositories sharing this store's connection.
func (s *Store) Repos() (assessment.Repository, assessment.RiskRepository, assessment.ControlRepository, assessment.ResultRepository) {
	return s, &RiskRepository{db: s.db, d: s.d}, &ControlRepository{db: s.db, d: s.d}, &ResultRepository{db: s.db, d: s.d}
}

// Ping is used by the health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) DB() *sql.DB { return s.db }

const (
	ownerOfClaimSQL = `SELECT session_id FROM risk_assessments WHERE risk_assessment_id = ?`

	lastSequentialSQL = `
SELECT risk_assessment_id FROM risk_assessments
WHERE risk_assessment_id LIKE ?
ORDER BY LENGTH(risk_assessment_id) DESC, risk_assessment_id DESC
LIMIT 1`
)

// SaveBatch claims the identifier, then writes the blob, risks and controls
// in one transaction.
func (s *Store) SaveBatch(ctx context.Context, b *assessment.Batch) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.claim(ctx, tx, b); err != nil {
		return err
	}
	if b.Result != nil {
		if err = insertResult(ctx, tx, s.d, b.Result); err != nil {
			return err
		}
	}
	if err = insertRisks(ctx, tx, s.d, b.Risks); err != nil {
		return err
	}
	if err = insertControls(ctx, tx, s.d, b.Controls); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (s *Store) claim(ctx context.Context, tx *sql.Tx, b *assessment.Batch) error {
	_, err := tx.ExecContext(ctx, s.d.Rebind(s.d.ClaimSQL()),
		b.AssessmentID, b.SessionID, b.ProjectID, string(b.Kind), stringOrDash(b.CreatedBy), b.CreatedAt)
	if err != nil {
		if s.d.IsDuplicate(err) {
			return fmt.Errorf("%w: %s", assessment.ErrDuplicateIdentifier, b.AssessmentID)
		}
		return storageErr("claim assessment id", err)
	}
	var owner string
	if err := tx.QueryRowContext(ctx, s.d.Rebind(ownerOfClaimSQL), b.AssessmentID).Scan(&owner); err != nil {
		return storageErr("read claim", err)
	}
	if owner != b.SessionID {
		return fmt.Errorf("%w: %s", assessment.ErrDuplicateIdentifier, b.AssessmentID)
	}
	return nil
}

func (s *Store) LastSequentialID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.d.Rebind(lastSequentialSQL), assessment.SequentialPrefix+"%").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageErr("last sequential id", err)
	}
	return id, nil
}
