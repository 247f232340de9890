package mysql

import (
	"database/sql"
	"errors"

	driver "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/automaton-risk/internal/infra/db/sqlstore"
)

// erDupEntry is MySQL's duplicate key error number.
const erDupEntry = 1062

// Dialect is the MySQL flavour of sqlstore.
type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) Rebind(q string) string { return q }

// ClaimSQL leaves an existing claim untouched; the caller reads back the owner.
func (Dialect) ClaimSQL() string {
	return `INSERT INTO risk_assessments
  (risk_assessment_id, session_id, project_id, kind, created_by, created_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE risk_assessment_id = risk_assessment_id`
}

func (Dialect) IsDuplicate(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}

// NewStore wires a sqlstore.Store over a MySQL connection.
func NewStore(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect{})
}

var _ sqlstore.Dialect = Dialect{}
