package assessment

import (
	"context"
	"time"
)

// Repository writes assessment batches and exposes the identifier registry.
type Repository interface {
	// SaveBatch claims b.AssessmentID for b.SessionID and inserts the blob,
	// risks and controls in one transaction. A claim held by another session
	// fails with ErrDuplicateIdentifier and nothing is written.
	SaveBatch(ctx context.Context, b *Batch) error
	// LastSequentialID returns the highest claimed R-### identifier, or "".
	LastSequentialID(ctx context.Context) (string, error)
}

// RiskRepository port for risk records
type RiskRepository interface {
	Get(ctx context.Context, id string) (*Risk, error)
	ListByAssessment(ctx context.Context, assessmentID string) ([]*Risk, error)
	ListBySession(ctx context.Context, sessionID string) ([]*Risk, error)
	ListByProject(ctx context.Context, projectID string, req PageRequest) (PaginatedResult[*Risk], error)
	// List pages over every active risk matching f, req.Severity and req.Search.
	List(ctx context.Context, f RiskFilter, req PageRequest) (PaginatedResult[*Risk], error)
	ListSeverities(ctx context.Context, projectID string) ([]SeverityRow, error)
	Update(ctx context.Context, id string, u RiskUpdate, at time.Time) (*Risk, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// ControlRepository port for control records
type ControlRepository interface {
	Get(ctx context.Context, id string) (*Control, error)
	ListByAssessment(ctx context.Context, assessmentID string) ([]*Control, error)
	ListBySession(ctx context.Context, sessionID string) ([]*Control, error)
	ListByProject(ctx context.Context, projectID string, req PageRequest) (PaginatedResult[*Control], error)
	// ListActive returns every active control, newest first.
	ListActive(ctx context.Context) ([]*Control, error)
	Update(ctx context.Context, id string, u ControlUpdate, at time.Time) (*Control, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// ResultRepository port for summary blobs
type ResultRepository interface {
	Create(ctx context.Context, r *Result) error
	Get(ctx context.Context, id string) (*Result, error)
	GetBySession(ctx context.Context, sessionID string) (*Result, error)
	Paginate(ctx context.Context, projectID string, req PageRequest) (PaginatedResult[*Result], error)
	// ListActive returns every active blob, newest first.
	ListActive(ctx context.Context, projectID string) ([]*Result, error)
	Update(ctx context.Context, id string, u ResultUpdate, at time.Time) (*Result, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// SequenceAllocator hands out sequential numbers atomically. floor is the
// highest number already stored; the result is always greater than floor.
type SequenceAllocator interface {
	Next(ctx context.Context, floor int) (int, error)
}

// CodeGenerator produces short display codes such as AI-0427. Codes are not
// guaranteed unique.
type CodeGenerator interface {
	Code(prefix string) string
}

// ArtifactStore archives raw analysis output.
type ArtifactStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}
