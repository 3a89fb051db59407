package dto

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

type IDUriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type DateUriRequest struct {
	Date string `uri:"date" binding:"required"`
}

type RangeFilter struct {
	From string `form:"from"`
	To   string `form:"to"`
}
