package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

const resultColumns = `id, risk_assessment_id, project_id, session_id, use_case_type, summary, markdown_table,
 control_matrix, artifact_url, fallback, created_by, is_active, created_at, updated_at`

const resultColumnCount = 14

type ResultRepository struct {
	db *sql.DB
	d  Dialect
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanResult(row scanner) (*assessment.Result, error) {
	var r assessment.Result
	var useCase string
	if err := row.Scan(
		&r.ID, &r.RiskAssessmentID, &r.ProjectID, &r.SessionID, &useCase, &r.Summary, &r.MarkdownTable,
		&r.ControlMatrix, &r.ArtifactURL, &r.Fallback, &r.CreatedBy, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.UseCaseType = assessment.UseCaseType(useCase)
	return &r, nil
}

func insertResult(ctx context.Context, ex execer, d Dialect, r *assessment.Result) error {
	q := "INSERT INTO risk_matrix_results (" + resultColumns + ") VALUES " + valuesList(1, resultColumnCount)
	_, err := ex.ExecContext(ctx, d.Rebind(q),
		r.ID, r.RiskAssessmentID, r.ProjectID, r.SessionID, string(r.UseCaseType), r.Summary, r.MarkdownTable,
		r.ControlMatrix, r.ArtifactURL, r.Fallback, stringOrDash(r.CreatedBy), r.IsActive, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if d.IsDuplicate(err) {
			return fmt.Errorf("%w: %s", assessment.ErrDuplicateSession, r.SessionID)
		}
		return storageErr("insert result", err)
	}
	return nil
}

func (r *ResultRepository) list(ctx context.Context, q string, args ...any) ([]*assessment.Result, error) {
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, storageErr("list results", err)
	}
	defer rows.Close()
	out := []*assessment.Result{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, storageErr("scan result", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list results", err)
	}
	return out, nil
}

func (r *ResultRepository) Create(ctx context.Context, res *assessment.Result) error {
	return insertResult(ctx, r.db, r.d, res)
}

func (r *ResultRepository) Get(ctx context.Context, id string) (*assessment.Result, error) {
	q := "SELECT " + resultColumns + " FROM risk_matrix_results WHERE id = ? AND is_active = TRUE"
	res, err := scanResult(r.db.QueryRowContext(ctx, r.d.Rebind(q), id))
	if err != nil {
		return nil, storageErr("get result", err)
	}
	return res, nil
}

func (r *ResultRepository) GetBySession(ctx context.Context, sessionID string) (*assessment.Result, error) {
	q := "SELECT " + resultColumns + " FROM risk_matrix_results WHERE session_id = ? AND is_active = TRUE"
	res, err := scanResult(r.db.QueryRowContext(ctx, r.d.Rebind(q), sessionID))
	if err != nil {
		return nil, storageErr("get result by session", err)
	}
	return res, nil
}

func activeResults(projectID, search string) *where {
	w := &where{}
	w.add("is_active = TRUE")
	if projectID != "" {
		w.add("project_id = ?", projectID)
	}
	if search != "" {
		p := likePattern(search)
		w.add("(LOWER(summary) LIKE ? OR LOWER(session_id) LIKE ?)", p, p)
	}
	return w
}

func (r *ResultRepository) Paginate(ctx context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Result], error) {
	w := activeResults(projectID, req.Search)
	var total int64
	if err := r.db.QueryRowContext(ctx, r.d.Rebind("SELECT COUNT(*) FROM risk_matrix_results"+w.String()), w.args...).Scan(&total); err != nil {
		return assessment.PaginatedResult[*assessment.Result]{}, storageErr("count results", err)
	}
	args := append(append([]any{}, w.args...), req.PageSize, req.Offset())
	data, err := r.list(ctx, "SELECT "+resultColumns+" FROM risk_matrix_results"+w.String()+" ORDER BY created_at DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return assessment.PaginatedResult[*assessment.Result]{}, err
	}
	return assessment.NewPage(data, req, total), nil
}

func (r *ResultRepository) ListActive(ctx context.Context, projectID string) ([]*assessment.Result, error) {
	w := activeResults(projectID, "")
	return r.list(ctx, "SELECT "+resultColumns+" FROM risk_matrix_results"+w.String()+" ORDER BY created_at DESC", w.args...)
}

func (r *ResultRepository) Update(ctx context.Context, id string, u assessment.ResultUpdate, at time.Time) (*assessment.Result, error) {
	var sets []string
	var args []any
	if u.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *u.Summary)
	}
	if u.MarkdownTable != nil {
		sets = append(sets, "markdown_table = ?")
		args = append(args, *u.MarkdownTable)
	}
	if u.ArtifactURL != nil {
		sets = append(sets, "artifact_url = ?")
		args = append(args, *u.ArtifactURL)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, at, id)

	q := "UPDATE risk_matrix_results SET " + strings.Join(sets, ", ") + " WHERE id = ? AND is_active = TRUE"
	if err := execAffecting(ctx, r.db, r.d.Rebind(q), "update result", args...); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *ResultRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return execAffecting(ctx, r.db, r.d.Rebind("UPDATE risk_matrix_results SET is_active = FALSE, updated_at = ? WHERE id = ? AND is_active = TRUE"),
		"delete result", at, id)
}
