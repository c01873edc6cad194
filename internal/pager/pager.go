// Package pager slices a reward dataset into pages.
package pager

import (
	"github.com/vadiminshakov/stakeview/internal/dataset"
	"github.com/vadiminshakov/stakeview/internal/domain"
)

const (
	// DefaultPageSize is used when a non-positive page size is requested.
	DefaultPageSize = 10
	// DefaultWindow is the number of numbered page buttons shown at once.
	DefaultWindow = 5
)

// AllowedSizes are the page sizes offered to users.
var AllowedSizes = []int{10, 25, 50, 100, 200}

// IsAllowedSize reports whether size is one of AllowedSizes.
func IsAllowedSize(size int) bool {
	for _, s := range AllowedSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Page is one contiguous slice of a dataset.
type Page struct {
	Rows       []domain.Record
	PageSize   int
	PageIndex  int // 1-based
	PageCount  int // at least 1
	StartIndex int // 0-based, inclusive
	EndIndex   int // 0-based, exclusive
	Total      int
}

// Paginate returns the page at pageIndex, clamping the index into range.
func Paginate(ds dataset.Dataset, pageSize, pageIndex int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := ds.Len()
	pageCount := Count(total, pageSize)
	pageIndex = Clamp(pageIndex, pageCount)

	start := (pageIndex - 1) * pageSize
	if start > total {
		start = total
	}
	end := min(start+pageSize, total)

	return Page{
		Rows:       ds.Slice(start, end),
		PageSize:   pageSize,
		PageIndex:  pageIndex,
		PageCount:  pageCount,
		StartIndex: start,
		EndIndex:   end,
		Total:      total,
	}
}

// Count returns ceil(total/pageSize), reported as 1 for an empty dataset.
func Count(total, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	count := (total + pageSize - 1) / pageSize
	if count < 1 {
		return 1
	}
	return count
}

// Clamp keeps pageIndex within [1, pageCount].
func Clamp(pageIndex, pageCount int) int {
	if pageCount < 1 {
		pageCount = 1
	}
	if pageIndex < 1 {
		return 1
	}
	if pageIndex > pageCount {
		return pageCount
	}
	return pageIndex
}

// From is the 1-based position of the first row, 0 when the page is empty.
func (p Page) From() int {
	if p.Total == 0 {
		return 0
	}
	return p.StartIndex + 1
}

// To is the 1-based position of the last row.
func (p Page) To() int {
	return p.EndIndex
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool {
	return p.PageIndex > 1
}

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool {
	return p.PageIndex < p.PageCount
}

// Window returns up to width consecutive page numbers around pageIndex.
// The window keeps pageIndex centred and shifts at either end of the range.
func Window(pageIndex, pageCount, width int) []int {
	if width <= 0 {
		width = DefaultWindow
	}
	if pageCount < 1 {
		pageCount = 1
	}
	pageIndex = Clamp(pageIndex, pageCount)

	n := min(width, pageCount)
	first := pageIndex - width/2
	if first < 1 {
		first = 1
	}
	if first+n-1 > pageCount {
		first = pageCount - n + 1
	}

	pages := make([]int, n)
	for i := range pages {
		pages[i] = first + i
	}
	return pages
}
