package adminusers

import (
	"strings"

	"spiceportal/internal/domain"
)

// Filter narrows a user list snapshot. Zero values mean "no constraint".
type Filter struct {
	Query  string
	Role   domain.UserRole
	Status domain.UserStatus
}

// Apply projects the snapshot through the filter without mutating it. The
// free-text query matches name or email, case-insensitively.
func (f Filter) Apply(users []domain.UserRecord) []domain.UserRecord {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.UserRecord, 0, len(users))
	for _, u := range users {
		if query != "" &&
			!strings.Contains(strings.ToLower(u.Name), query) &&
			!strings.Contains(strings.ToLower(u.Email), query) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		out = append(out, u)
	}
	return out
}

// Page is one page of a filtered list.
type Page struct {
	Items      []domain.UserRecord `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

const defaultPageSize = 10

// Paginate slices the filtered list into page number `page` (1-based). An
// out-of-range page clamps to the nearest valid one so a filter change never
// strands the caller on an empty page.
func Paginate(users []domain.UserRecord, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	total := len(users)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := make([]domain.UserRecord, end-start)
	copy(items, users[start:end])

	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
