// internal/query/query.go
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rovshanmuradov/orderdesk/internal/order"
)

// Column is a sortable table column.
type Column string

const (
	ColumnID           Column = "id"
	ColumnCustomerName Column = "customerName"
	ColumnStatus       Column = "status"
	ColumnTotalAmount  Column = "totalAmount"
	ColumnCreatedAt    Column = "createdAt"
)

// Columns lists the sortable columns in display order.
var Columns = []Column{ColumnID, ColumnCustomerName, ColumnStatus, ColumnTotalAmount, ColumnCreatedAt}

var columnLabels = map[Column]string{
	ColumnID:           "Order ID",
	ColumnCustomerName: "Customer Name",
	ColumnStatus:       "Status",
	ColumnTotalAmount:  "Total Amount",
	ColumnCreatedAt:    "Created Date",
}

// Label is the column header text.
func (c Column) Label() string {
	if l, ok := columnLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseColumn validates a column name.
func ParseColumn(s string) (Column, error) {
	c := Column(s)
	if _, ok := columnLabels[c]; !ok {
		return "", fmt.Errorf("unknown sort column %q", s)
	}
	return c, nil
}

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// FilterAll disables status filtering.
const FilterAll = "all"

// PageSizeAll shows every row on one page.
const PageSizeAll = 0

// DefaultPageSize is the initial page size.
const DefaultPageSize = 10

// PageSizes lists the selectable page sizes; PageSizeAll comes last.
var PageSizes = []int{10, 25, 50, PageSizeAll}

// State is the table's view state.
type State struct {
	Page          int
	PageSize      int // PageSizeAll shows everything
	SortColumn    Column
	SortDirection Direction
	StatusFilter  string // FilterAll or an order.Status
	Search        string
}

// Result is one rendered page.
type Result struct {
	Rows       []order.Order
	Total      int // matching rows across all pages
	TotalPages int
}

// Default returns the initial state: newest first, ten rows, no filters.
func Default() State {
	return State{
		PageSize:      DefaultPageSize,
		SortColumn:    ColumnCreatedAt,
		SortDirection: Desc,
		StatusFilter:  FilterAll,
	}
}

// SetSort sorts by c, flipping the direction when c is already ascending.
func (s State) SetSort(c Column) State {
	if s.SortColumn == c && s.SortDirection == Asc {
		s.SortDirection = Desc
	} else {
		s.SortDirection = Asc
	}
	s.SortColumn = c
	return s
}

// SetStatusFilter filters by status and returns to the first page.
func (s State) SetStatusFilter(f string) State {
	s.StatusFilter = f
	s.Page = 0
	return s
}

// SetSearch sets the search text and returns to the first page.
func (s State) SetSearch(q string) State {
	s.Search = q
	s.Page = 0
	return s
}

// SetPageSize changes the page size and returns to the first page.
func (s State) SetPageSize(n int) State {
	if n < 0 {
		n = PageSizeAll
	}
	s.PageSize = n
	s.Page = 0
	return s
}

// SetPage moves to page p.
func (s State) SetPage(p int) State {
	s.Page = max(p, 0)
	return s
}

// Apply filters, sorts and paginates orders. The input is not modified.
func (s State) Apply(orders []order.Order) Result {
	rows := s.filter(orders)
	s.sort(rows)

	res := Result{Total: len(rows), TotalPages: s.totalPages(len(rows))}
	if s.PageSize == PageSizeAll {
		res.Rows = rows
		return res
	}

	start := s.Page * s.PageSize
	if start >= len(rows) {
		res.Rows = []order.Order{}
		return res
	}
	res.Rows = rows[start:min(start+s.PageSize, len(rows))]
	return res
}

func (s State) filter(orders []order.Order) []order.Order {
	q := strings.ToLower(strings.TrimSpace(s.Search))
	filterStatus := s.StatusFilter != "" && s.StatusFilter != FilterAll

	rows := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if filterStatus && string(o.Status) != s.StatusFilter {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(o.CustomerName), q) &&
			!strings.Contains(strings.ToLower(o.ID), q) {
			continue
		}
		rows = append(rows, o)
	}
	return rows
}

func (s State) sort(rows []order.Order) {
	if s.SortColumn == "" {
		return
	}
	cmpFn := compareBy(s.SortColumn)
	slices.SortStableFunc(rows, func(a, b order.Order) int {
		if s.SortDirection == Desc {
			return cmpFn(b, a)
		}
		return cmpFn(a, b)
	})
}

func compareBy(c Column) func(a, b order.Order) int {
	switch c {
	case ColumnTotalAmount:
		return func(a, b order.Order) int { return a.TotalAmount.Cmp(b.TotalAmount) }
	case ColumnCreatedAt:
		return func(a, b order.Order) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case ColumnCustomerName:
		return func(a, b order.Order) int {
			return cmp.Compare(strings.ToLower(a.CustomerName), strings.ToLower(b.CustomerName))
		}
	case ColumnStatus:
		return func(a, b order.Order) int {
			return cmp.Compare(strings.ToLower(string(a.Status)), strings.ToLower(string(b.Status)))
		}
	default:
		return func(a, b order.Order) int {
			return cmp.Compare(strings.ToLower(a.ID), strings.ToLower(b.ID))
		}
	}
}

func (s State) totalPages(n int) int {
	if s.PageSize == PageSizeAll {
		if n == 0 {
			return 0
		}
		return 1
	}
	return (n + s.PageSize - 1) / s.PageSize
}
