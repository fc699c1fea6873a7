package domain

// Pagination carries paging params and totals.
type Pagination struct {
	Page       int `json:"currentPage"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination normalizes page/limit and derives the page count. Limit 0 disables paging.
func NewPagination(page, limit, total int) Pagination {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		return Pagination{Page: 1, Limit: 0, Total: total, TotalPages: 1}
	}
	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Offset returns the row offset for LIMIT/OFFSET queries.
func (p Pagination) Offset() int {
	if p.Limit <= 0 || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Actor carries authenticated user info when available.
type Actor struct {
	UserID  int64  `json:"userId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}
