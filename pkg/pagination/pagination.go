package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any paged query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Page describes the pagination block returned alongside list payloads.
type Page struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Normalize clamps the params into valid ranges.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized params.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// BuildPage computes the pagination block for a result set of total rows where
// returned rows were fetched at the params' offset.
func BuildPage(params Params, returned int, total int64) Page {
	n := params.Normalize()
	totalPages := int(total) / n.Limit
	if int(total)%n.Limit != 0 {
		totalPages++
	}
	return Page{
		CurrentPage: n.Page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNextPage: int64(n.Offset()+returned) < total,
		HasPrevPage: n.Page > 1,
	}
}
