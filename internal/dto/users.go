package dto

// Pagination limits for user listing
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ListUsersQuery is bound from the query string
type ListUsersQuery struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

// Normalize clamps page and per_page into their allowed ranges
func (q *ListUsersQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
}

// UpdateUserRequest is a partial update. Absent fields are left untouched.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
}

// Pagination describes a page of a listing
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NewPagination computes page counts for the given total
func NewPagination(page, perPage, total int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// UserListResponse is a page of users
type UserListResponse struct {
	Users      []*UserInfo `json:"users"`
	Pagination Pagination  `json:"pagination"`
}
