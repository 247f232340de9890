package assessment

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// maxOffset keeps Offset inside a 32-bit OFFSET on every driver.
const maxOffset = math.MaxInt32

// PageRequest is a 1-based offset pagination request with optional filters.
type PageRequest struct {
	Page     int
	PageSize int
	// Severity filters risks when > 0.
	Severity int
	// Status filters controls when non-empty.
	Status string
	// Search is a case-insensitive substring. Results match on summary and
	// session id, risks on name, owner, justification and mitigation.
	Search string
}

// Normalize applies defaults and bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if lastPage := maxOffset/p.PageSize + 1; p.Page > lastPage {
		p.Page = lastPage
	}
	return p
}

// Offset of the first row of the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPage builds a PaginatedResult; data is never encoded as null.
func NewPage[T any](data []T, req PageRequest, total int64) PaginatedResult[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if req.PageSize > 0 {
		pages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	}
	return PaginatedResult[T]{
		Data:       data,
		Page:       req.Page,
		PageSize:   req.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}
