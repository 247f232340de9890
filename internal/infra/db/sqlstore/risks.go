package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

const riskColumns = `id, risk_assessment_id, session_id, project_id, risk_name, risk_owner, severity,
 justification, mitigation, target_date, created_by, is_active, created_at, updated_at`

const riskColumnCount = 14

const riskOrder = ` ORDER BY severity DESC, created_at DESC`

type RiskRepository struct {
	db *sql.DB
	d  Dialect
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRisk(row scanner) (*assessment.Risk, error) {
	var r assessment.Risk
	var target sql.NullTime
	if err := row.Scan(
		&r.ID, &r.RiskAssessmentID, &r.SessionID, &r.ProjectID, &r.RiskName, &r.RiskOwner, &r.Severity,
		&r.Justification, &r.Mitigation, &target, &r.CreatedBy, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.TargetDate = timePtr(target)
	return &r, nil
}

func insertRisks(ctx context.Context, tx *sql.Tx, d Dialect, risks []*assessment.Risk) error {
	for start := 0; start < len(risks); start += insertChunk {
		end := start + insertChunk
		if end > len(risks) {
			end = len(risks)
		}
		chunk := risks[start:end]
		args := make([]any, 0, len(chunk)*riskColumnCount)
		for _, r := range chunk {
			args = append(args,
				r.ID, r.RiskAssessmentID, r.SessionID, r.ProjectID, r.RiskName, r.RiskOwner, r.Severity,
				r.Justification, r.Mitigation, nullTime(r.TargetDate), stringOrDash(r.CreatedBy), r.IsActive, r.CreatedAt, r.UpdatedAt,
			)
		}
		q := "INSERT INTO risk_matrix_risks (" + riskColumns + ") VALUES " + valuesList(len(chunk), riskColumnCount)
		if _, err := tx.ExecContext(ctx, d.Rebind(q), args...); err != nil {
			return storageErr("insert risks", err)
		}
	}
	return nil
}

func (r *RiskRepository) list(ctx context.Context, q string, args ...any) ([]*assessment.Risk, error) {
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, storageErr("list risks", err)
	}
	defer rows.Close()
	out := []*assessment.Risk{}
	for rows.Next() {
		risk, err := scanRisk(rows)
		if err != nil {
			return nil, storageErr("scan risk", err)
		}
		out = append(out, risk)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list risks", err)
	}
	return out, nil
}

func (r *RiskRepository) Get(ctx context.Context, id string) (*assessment.Risk, error) {
	q := "SELECT " + riskColumns + " FROM risk_matrix_risks WHERE id = ? AND is_active = TRUE"
	risk, err := scanRisk(r.db.QueryRowContext(ctx, r.d.Rebind(q), id))
	if err != nil {
		return nil, storageErr("get risk", err)
	}
	return risk, nil
}

func (r *RiskRepository) ListByAssessment(ctx context.Context, assessmentID string) ([]*assessment.Risk, error) {
	return r.list(ctx, "SELECT "+riskColumns+" FROM risk_matrix_risks WHERE risk_assessment_id = ? AND is_active = TRUE"+riskOrder, assessmentID)
}

func (r *RiskRepository) ListBySession(ctx context.Context, sessionID string) ([]*assessment.Risk, error) {
	return r.list(ctx, "SELECT "+riskColumns+" FROM risk_matrix_risks WHERE session_id = ? AND is_active = TRUE"+riskOrder, sessionID)
}

func (r *RiskRepository) ListByProject(ctx context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Risk], error) {
	w := &where{}
	w.add("project_id = ?", projectID)
	w.add("is_active = TRUE")
	if req.Severity > 0 {
		w.add("severity = ?", req.Severity)
	}
	return r.page(ctx, w, req)
}

func (r *RiskRepository) List(ctx context.Context, f assessment.RiskFilter, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Risk], error) {
	w := &where{}
	w.add("is_active = TRUE")
	if f.ProjectID != "" {
		w.add("project_id = ?", f.ProjectID)
	}
	if f.SessionID != "" {
		w.add("session_id = ?", f.SessionID)
	}
	if req.Severity > 0 {
		w.add("severity = ?", req.Severity)
	}
	if req.Search != "" {
		p := likePattern(req.Search)
		w.add("(LOWER(risk_name) LIKE ? OR LOWER(risk_owner) LIKE ? OR LOWER(justification) LIKE ? OR LOWER(mitigation) LIKE ?)", p, p, p, p)
	}
	return r.page(ctx, w, req)
}

func (r *RiskRepository) page(ctx context.Context, w *where, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Risk], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, r.d.Rebind("SELECT COUNT(*) FROM risk_matrix_risks"+w.String()), w.args...).Scan(&total); err != nil {
		return assessment.PaginatedResult[*assessment.Risk]{}, storageErr("count risks", err)
	}
	args := append(append([]any{}, w.args...), req.PageSize, req.Offset())
	data, err := r.list(ctx, "SELECT "+riskColumns+" FROM risk_matrix_risks"+w.String()+riskOrder+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return assessment.PaginatedResult[*assessment.Risk]{}, err
	}
	return assessment.NewPage(data, req, total), nil
}

func (r *RiskRepository) ListSeverities(ctx context.Context, projectID string) ([]assessment.SeverityRow, error) {
	w := &where{}
	w.add("is_active = TRUE")
	if projectID != "" {
		w.add("project_id = ?", projectID)
	}
	rows, err := r.db.QueryContext(ctx, r.d.Rebind("SELECT risk_assessment_id, session_id, severity FROM risk_matrix_risks"+w.String()), w.args...)
	if err != nil {
		return nil, storageErr("list severities", err)
	}
	defer rows.Close()
	var out []assessment.SeverityRow
	for rows.Next() {
		var s assessment.SeverityRow
		if err := rows.Scan(&s.RiskAssessmentID, &s.SessionID, &s.Severity); err != nil {
			return nil, storageErr("scan severity", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list severities", err)
	}
	return out, nil
}

func (r *RiskRepository) Update(ctx context.Context, id string, u assessment.RiskUpdate, at time.Time) (*assessment.Risk, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.RiskName != nil {
		set("risk_name", *u.RiskName)
	}
	if u.RiskOwner != nil {
		set("risk_owner", *u.RiskOwner)
	}
	if u.Severity != nil {
		set("severity", *u.Severity)
	}
	if u.Justification != nil {
		set("justification", *u.Justification)
	}
	if u.Mitigation != nil {
		set("mitigation", *u.Mitigation)
	}
	if u.TargetDate != nil {
		set("target_date", nullTime(u.TargetDate))
	}
	set("updated_at", at)
	args = append(args, id)

	q := "UPDATE risk_matrix_risks SET " + strings.Join(sets, ", ") + " WHERE id = ? AND is_active = TRUE"
	if err := execAffecting(ctx, r.db, r.d.Rebind(q), "update risk", args...); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *RiskRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return execAffecting(ctx, r.db, r.d.Rebind("UPDATE risk_matrix_risks SET is_active = FALSE, updated_at = ? WHERE id = ? AND is_active = TRUE"),
		"delete risk", at, id)
}

// execAffecting runs q and reports ErrNotFound when no row matched.
func execAffecting(ctx context.Context, db *sql.DB, q, op string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return assessment.ErrNotFound
	}
	return nil
}
