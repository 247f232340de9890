package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

const controlColumns = `id, risk_assessment_id, session_id, project_id, control_id, code, section, control_text,
 requirements, status, tickets, related_risk, owner, created_by, is_active, created_at, updated_at`

const controlColumnCount = 17

const controlOrder = ` ORDER BY created_at DESC`

type ControlRepository struct {
	db *sql.DB
	d  Dialect
}

func scanControl(row scanner) (*assessment.Control, error) {
	var c assessment.Control
	if err := row.Scan(
		&c.ID, &c.RiskAssessmentID, &c.SessionID, &c.ProjectID, &c.ControlID, &c.Code, &c.Section, &c.Control,
		&c.Requirements, &c.Status, &c.Tickets, &c.RelatedRisk, &c.Owner, &c.CreatedBy, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func insertControls(ctx context.Context, tx *sql.Tx, d Dialect, controls []*assessment.Control) error {
	for start := 0; start < len(controls); start += insertChunk {
		end := start + insertChunk
		if end > len(controls) {
			end = len(controls)
		}
		chunk := controls[start:end]
		args := make([]any, 0, len(chunk)*controlColumnCount)
		for _, c := range chunk {
			args = append(args,
				c.ID, c.RiskAssessmentID, c.SessionID, c.ProjectID, c.ControlID, c.Code, c.Section, c.Control,
				c.Requirements, c.Status, c.Tickets, c.RelatedRisk, c.Owner, stringOrDash(c.CreatedBy), c.IsActive, c.CreatedAt, c.UpdatedAt,
			)
		}
		q := "INSERT INTO control_assessments (" + controlColumns + ") VALUES " + valuesList(len(chunk), controlColumnCount)
		if _, err := tx.ExecContext(ctx, d.Rebind(q), args...); err != nil {
			return storageErr("insert controls", err)
		}
	}
	return nil
}

func (r *ControlRepository) list(ctx context.Context, q string, args ...any) ([]*assessment.Control, error) {
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, storageErr("list controls", err)
	}
	defer rows.Close()
	out := []*assessment.Control{}
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, storageErr("scan control", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list controls", err)
	}
	return out, nil
}

func (r *ControlRepository) Get(ctx context.Context, id string) (*assessment.Control, error) {
	q := "SELECT " + controlColumns + " FROM control_assessments WHERE id = ? AND is_active = TRUE"
	c, err := scanControl(r.db.QueryRowContext(ctx, r.d.Rebind(q), id))
	if err != nil {
		return nil, storageErr("get control", err)
	}
	return c, nil
}

func (r *ControlRepository) ListByAssessment(ctx context.Context, assessmentID string) ([]*assessment.Control, error) {
	return r.list(ctx, "SELECT "+controlColumns+" FROM control_assessments WHERE risk_assessment_id = ? AND is_active = TRUE"+controlOrder, assessmentID)
}

func (r *ControlRepository) ListBySession(ctx context.Context, sessionID string) ([]*assessment.Control, error) {
	return r.list(ctx, "SELECT "+controlColumns+" FROM control_assessments WHERE session_id = ? AND is_active = TRUE"+controlOrder, sessionID)
}

func (r *ControlRepository) ListActive(ctx context.Context) ([]*assessment.Control, error) {
	return r.list(ctx, "SELECT "+controlColumns+" FROM control_assessments WHERE is_active = TRUE"+controlOrder)
}

func (r *ControlRepository) ListByProject(ctx context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Control], error) {
	w := &where{}
	w.add("project_id = ?", projectID)
	w.add("is_active = TRUE")
	if req.Status != "" {
		w.add("LOWER(status) = ?", strings.ToLower(req.Status))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, r.d.Rebind("SELECT COUNT(*) FROM control_assessments"+w.String()), w.args...).Scan(&total); err != nil {
		return assessment.PaginatedResult[*assessment.Control]{}, storageErr("count controls", err)
	}
	args := append(append([]any{}, w.args...), req.PageSize, req.Offset())
	data, err := r.list(ctx, "SELECT "+controlColumns+" FROM control_assessments"+w.String()+controlOrder+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return assessment.PaginatedResult[*assessment.Control]{}, err
	}
	return assessment.NewPage(data, req, total), nil
}

func (r *ControlRepository) Update(ctx context.Context, id string, u assessment.ControlUpdate, at time.Time) (*assessment.Control, error) {
	var sets []string
	var args []any
	set := func(col string, v *string) {
		if v == nil {
			return
		}
		sets = append(sets, col+" = ?")
		args = append(args, *v)
	}
	set("section", u.Section)
	set("control_text", u.Control)
	set("requirements", u.Requirements)
	set("status", u.Status)
	set("tickets", u.Tickets)
	set("related_risk", u.RelatedRisk)
	set("owner", u.Owner)
	sets = append(sets, "updated_at = ?")
	args = append(args, at, id)

	q := "UPDATE control_assessments SET " + strings.Join(sets, ", ") + " WHERE id = ? AND is_active = TRUE"
	if err := execAffecting(ctx, r.db, r.d.Rebind(q), "update control", args...); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *ControlRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return execAffecting(ctx, r.db, r.d.Rebind("UPDATE control_assessments SET is_active = FALSE, updated_at = ? WHERE id = ? AND is_active = TRUE"),
		"delete control", at, id)
}
