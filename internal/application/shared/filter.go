package shared

import (
	domain "github.com/erp/construction/internal/domain/shared"
)

// ListFilter is the paging input shared by list operations
type ListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1" json:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" json:"page_size"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at updated_at number folio version_number code" json:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc" json:"order_dir"`
}

// ToDomain fills defaults and converts to a domain filter
func (f ListFilter) ToDomain() domain.Filter {
	out := domain.DefaultFilter()
	if f.Page > 0 {
		out.Page = f.Page
	}
	if f.PageSize > 0 {
		out.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		out.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		out.OrderDir = f.OrderDir
	}
	return out
}
