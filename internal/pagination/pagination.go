// Package pagination turns a total item count and a requested page number
// into offsets and navigation data for list pages.
//
// Unlike a clamping paginator, a page past the end is NOT moved back to the
// last page: it is reported as out of range and callers render an empty list.
package pagination

import (
	"errors"
	"math"
	"strconv"
)

// PerPage is the number of posts shown on every list page.
const PerPage = 10

// maxNumber keeps (Number-1)*PerPage and Number+1 from overflowing.
const maxNumber = math.MaxInt / PerPage

// Page describes one slice of an ordered collection.
type Page struct {
	Number  int // 1-based page number requested
	PerPage int
	Total   int // items in the whole collection
}

// New builds a Page. Numbers below 1 become 1 and a non-positive perPage
// falls back to PerPage.
func New(number, perPage, total int) Page {
	if number < 1 {
		number = 1
	}
	if perPage <= 0 {
		perPage = PerPage
	}
	if total < 0 {
		total = 0
	}
	return Page{Number: number, PerPage: perPage, Total: total}
}

// ParseNumber reads a ?page= value. Anything missing or non-numeric is page 1.
// Huge values are capped; they are past the end either way.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		return maxNumber
	}
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxNumber)
}

// Offset is how many items precede this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit is the maximum number of items on this page.
func (p Page) Limit() int {
	return p.PerPage
}

// NumPages is the page count; an empty collection still has one (empty) page.
func (p Page) NumPages() int {
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// InRange reports whether the page holds any items.
func (p Page) InRange() bool {
	return p.Total > 0 && p.Number <= p.NumPages()
}

// Len is min(PerPage, remaining) for an in-range page, 0 otherwise.
func (p Page) Len() int {
	if !p.InRange() {
		return 0
	}
	remaining := p.Total - p.Offset()
	if remaining < p.PerPage {
		return remaining
	}
	return p.PerPage
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages()
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

func (p Page) NextNumber() int {
	return p.Number + 1
}

func (p Page) PreviousNumber() int {
	return p.Number - 1
}

// Numbers lists every page number, for the paginator links.
func (p Page) Numbers() []int {
	n := p.NumPages()
	nums := make([]int, n)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}
