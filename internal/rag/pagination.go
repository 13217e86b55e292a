package rag

import "github.com/verdantlabs/corpusd/internal/vectorstore"

// Pagination describes the slice of the ranked match list a retrieval
// returned. TotalResults counts all matches before paging.
type Pagination struct {
	Page         int  `json:"page"`
	PageSize     int  `json:"page_size"`
	TotalResults int  `json:"total_results"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// paginate slices matches into the requested page. Out-of-range pages yield
// an empty page, never an error.
func paginate(matches []vectorstore.Match, page, pageSize int) ([]vectorstore.Match, Pagination) {
	total := len(matches)
	totalPages := (total + pageSize - 1) / pageSize

	p := Pagination{
		Page:         page,
		PageSize:     pageSize,
		TotalResults: total,
		TotalPages:   totalPages,
		HasNext:      page < totalPages,
		HasPrevious:  page > 1 && total > 0,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return nil, p
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matches[start:end], p
}
