// Package memory is an in-process implementation of the assessment ports.
// It backs the "memory" database driver and the application tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

type Store struct {
	mu       sync.RWMutex
	claims   map[string]string // assessment id -> session id
	results  []*assessment.Result
	risks    []*assessment.Risk
	controls []*assessment.Control

	// FailNextSave makes the next SaveBatch fail with ErrStorage. Tests only.
	FailNextSave bool
}

func New() *Store {
	return &Store{claims: make(map[string]string)}
}

// Repos returns the store under each port it implements.
func (s *Store) Repos() (assessment.Repository, assessment.RiskRepository, assessment.ControlRepository, assessment.ResultRepository) {
	return s, riskRepo{s}, controlRepo{s}, resultRepo{s}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) SaveBatch(_ context.Context, b *assessment.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNextSave {
		s.FailNextSave = false
		return fmt.Errorf("%w: injected failure", assessment.ErrStorage)
	}
	if owner, ok := s.claims[b.AssessmentID]; ok && owner != b.SessionID {
		return fmt.Errorf("%w: %s", assessment.ErrDuplicateIdentifier, b.AssessmentID)
	}
	if b.Result != nil && s.activeResultBySession(b.Result.SessionID) != nil {
		return fmt.Errorf("%w: %s", assessment.ErrDuplicateSession, b.Result.SessionID)
	}

	s.claims[b.AssessmentID] = b.SessionID
	if b.Result != nil {
		r := *b.Result
		s.results = append(s.results, &r)
	}
	for _, r := range b.Risks {
		cp := *r
		s.risks = append(s.risks, &cp)
	}
	for _, c := range b.Controls {
		cp := *c
		s.controls = append(s.controls, &cp)
	}
	return nil
}

func (s *Store) LastSequentialID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best string
	for id := range s.claims {
		if !strings.HasPrefix(id, assessment.SequentialPrefix) {
			continue
		}
		if len(id) > len(best) || (len(id) == len(best) && id > best) {
			best = id
		}
	}
	return best, nil
}

// AllRisks returns a copy of every stored risk, deleted ones included.
func (s *Store) AllRisks() []assessment.Risk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]assessment.Risk, 0, len(s.risks))
	for _, x := range s.risks {
		out = append(out, *x)
	}
	return out
}

// AllControls returns a copy of every stored control, deleted ones included.
func (s *Store) AllControls() []assessment.Control {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]assessment.Control, 0, len(s.controls))
	for _, x := range s.controls {
		out = append(out, *x)
	}
	return out
}

func (s *Store) activeResultBySession(sessionID string) *assessment.Result {
	for _, r := range s.results {
		if r.IsActive && r.SessionID == sessionID {
			return r
		}
	}
	return nil
}

func paginate[T any](rows []T, req assessment.PageRequest) assessment.PaginatedResult[T] {
	total := int64(len(rows))
	start := req.Offset()
	if start < 0 {
		start = 0
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := start + req.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return assessment.NewPage(rows[start:end], req, total)
}

//
// ==== RISKS ====
//

type riskRepo struct{ s *Store }

func (r riskRepo) find(id string) *assessment.Risk {
	for _, x := range r.s.risks {
		if x.ID == id && x.IsActive {
			return x
		}
	}
	return nil
}

func (r riskRepo) filter(keep func(*assessment.Risk) bool) []*assessment.Risk {
	out := []*assessment.Risk{}
	for _, x := range r.s.risks {
		if x.IsActive && keep(x) {
			cp := *x
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r riskRepo) Get(_ context.Context, id string) (*assessment.Risk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	x := r.find(id)
	if x == nil {
		return nil, assessment.ErrNotFound
	}
	cp := *x
	return &cp, nil
}

func (r riskRepo) ListByAssessment(_ context.Context, assessmentID string) ([]*assessment.Risk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(x *assessment.Risk) bool { return x.RiskAssessmentID == assessmentID }), nil
}

func (r riskRepo) ListBySession(_ context.Context, sessionID string) ([]*assessment.Risk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(x *assessment.Risk) bool { return x.SessionID == sessionID }), nil
}

func (r riskRepo) ListByProject(_ context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Risk], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.filter(func(x *assessment.Risk) bool {
		return x.ProjectID == projectID && (req.Severity == 0 || x.Severity == req.Severity)
	})
	return paginate(rows, req), nil
}

func (r riskRepo) List(_ context.Context, f assessment.RiskFilter, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Risk], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	search := strings.ToLower(req.Search)
	rows := r.filter(func(x *assessment.Risk) bool {
		if f.ProjectID != "" && x.ProjectID != f.ProjectID {
			return false
		}
		if f.SessionID != "" && x.SessionID != f.SessionID {
			return false
		}
		if req.Severity != 0 && x.Severity != req.Severity {
			return false
		}
		if search == "" {
			return true
		}
		for _, field := range []string{x.RiskName, x.RiskOwner, x.Justification, x.Mitigation} {
			if strings.Contains(strings.ToLower(field), search) {
				return true
			}
		}
		return false
	})
	return paginate(rows, req), nil
}

func (r riskRepo) ListSeverities(_ context.Context, projectID string) ([]assessment.SeverityRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []assessment.SeverityRow
	for _, x := range r.s.risks {
		if !x.IsActive || (projectID != "" && x.ProjectID != projectID) {
			continue
		}
		out = append(out, assessment.SeverityRow{
			RiskAssessmentID: x.RiskAssessmentID,
			SessionID:        x.SessionID,
			Severity:         x.Severity,
		})
	}
	return out, nil
}

func (r riskRepo) Update(_ context.Context, id string, u assessment.RiskUpdate, at time.Time) (*assessment.Risk, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x := r.find(id)
	if x == nil {
		return nil, assessment.ErrNotFound
	}
	if u.RiskName != nil {
		x.RiskName = *u.RiskName
	}
	if u.RiskOwner != nil {
		x.RiskOwner = *u.RiskOwner
	}
	if u.Severity != nil {
		x.Severity = *u.Severity
	}
	if u.Justification != nil {
		x.Justification = *u.Justification
	}
	if u.Mitigation != nil {
		x.Mitigation = *u.Mitigation
	}
	if u.TargetDate != nil {
		t := *u.TargetDate
		x.TargetDate = &t
	}
	x.UpdatedAt = at
	cp := *x
	return &cp, nil
}

func (r riskRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x := r.find(id)
	if x == nil {
		return assessment.ErrNotFound
	}
	x.IsActive = false
	x.UpdatedAt = at
	return nil
}

//
// ==== CONTROLS ====
//

type controlRepo struct{ s *Store }

func (r controlRepo) find(id string) *assessment.Control {
	for _, x := range r.s.controls {
		if x.ID == id && x.IsActive {
			return x
		}
	}
	return nil
}

func (r controlRepo) filter(keep func(*assessment.Control) bool) []*assessment.Control {
	out := []*assessment.Control{}
	for _, x := range r.s.controls {
		if x.IsActive && keep(x) {
			cp := *x
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r controlRepo) Get(_ context.Context, id string) (*assessment.Control, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	x := r.find(id)
	if x == nil {
		return nil, assessment.ErrNotFound
	}
	cp := *x
	return &cp, nil
}

func (r controlRepo) ListByAssessment(_ context.Context, assessmentID string) ([]*assessment.Control, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(x *assessment.Control) bool { return x.RiskAssessmentID == assessmentID }), nil
}

func (r controlRepo) ListBySession(_ context.Context, sessionID string) ([]*assessment.Control, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(x *assessment.Control) bool { return x.SessionID == sessionID }), nil
}

func (r controlRepo) ListActive(_ context.Context) ([]*assessment.Control, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(*assessment.Control) bool { return true }), nil
}

func (r controlRepo) ListByProject(_ context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Control], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.filter(func(x *assessment.Control) bool {
		return x.ProjectID == projectID && (req.Status == "" || strings.EqualFold(x.Status, req.Status))
	})
	return paginate(rows, req), nil
}

func (r controlRepo) Update(_ context.Context, id string, u assessment.ControlUpdate, at time.Time) (*assessment.Control, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x := r.find(id)
	if x == nil {
		return nil, assessment.ErrNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&x.Section, u.Section)
	set(&x.Control, u.Control)
	set(&x.Requirements, u.Requirements)
	set(&x.Status, u.Status)
	set(&x.Tickets, u.Tickets)
	set(&x.RelatedRisk, u.RelatedRisk)
	set(&x.Owner, u.Owner)
	x.UpdatedAt = at
	cp := *x
	return &cp, nil
}

func (r controlRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x := r.find(id)
	if x == nil {
		return assessment.ErrNotFound
	}
	x.IsActive = false
	x.UpdatedAt = at
	return nil
}

//
// ==== RESULTS ====
//

type resultRepo struct{ s *Store }

func (r resultRepo) Create(_ context.Context, res *assessment.Result) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.activeResultBySession(res.SessionID) != nil {
		return fmt.Errorf("%w: %s", assessment.ErrDuplicateSession, res.SessionID)
	}
	cp := *res
	r.s.results = append(r.s.results, &cp)
	return nil
}

func (r resultRepo) Get(_ context.Context, id string) (*assessment.Result, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, x := range r.s.results {
		if x.ID == id && x.IsActive {
			cp := *x
			return &cp, nil
		}
	}
	return nil, assessment.ErrNotFound
}

func (r resultRepo) GetBySession(_ context.Context, sessionID string) (*assessment.Result, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	x := r.s.activeResultBySession(sessionID)
	if x == nil {
		return nil, assessment.ErrNotFound
	}
	cp := *x
	return &cp, nil
}

func (r resultRepo) active(projectID, search string) []*assessment.Result {
	search = strings.ToLower(search)
	var out []*assessment.Result
	for i := len(r.s.results) - 1; i >= 0; i-- {
		x := r.s.results[i]
		if !x.IsActive || (projectID != "" && x.ProjectID != projectID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(x.Summary), search) &&
			!strings.Contains(strings.ToLower(x.SessionID), search) {
			continue
		}
		cp := *x
		out = append(out, &cp)
	}
	// newest first; later inserts win ties
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r resultRepo) Paginate(_ context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Result], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return paginate(r.active(projectID, req.Search), req), nil
}

func (r resultRepo) ListActive(_ context.Context, projectID string) ([]*assessment.Result, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.active(projectID, ""), nil
}

func (r resultRepo) Update(_ context.Context, id string, u assessment.ResultUpdate, at time.Time) (*assessment.Result, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.results {
		if x.ID != id || !x.IsActive {
			continue
		}
		if u.Summary != nil {
			x.Summary = *u.Summary
		}
		if u.MarkdownTable != nil {
			x.MarkdownTable = *u.MarkdownTable
		}
		if u.ArtifactURL != nil {
			x.ArtifactURL = *u.ArtifactURL
		}
		x.UpdatedAt = at
		cp := *x
		return &cp, nil
	}
	return nil, assessment.ErrNotFound
}

func (r resultRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.results {
		if x.ID == id && x.IsActive {
			x.IsActive = false
			x.UpdatedAt = at
			return nil
		}
	}
	return assessment.ErrNotFound
}
