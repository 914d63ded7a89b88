package board

import (
	"sort"

	"github.com/stitchboard/stitchboard/pkg/models"
)

// Catalog holds the workflow stages fetched at session start. It is
// read-mostly reference data; column order is decided here, once, so
// every view renders the same layout.
type Catalog struct {
	columns []models.Status
}

// NewCatalog sorts statuses by their order value. The sort is stable:
// equal order values keep the fetch order.
func NewCatalog(statuses []models.Status) *Catalog {
	columns := make([]models.Status, len(statuses))
	copy(columns, statuses)
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].Ord < columns[j].Ord
	})
	return &Catalog{columns: columns}
}

// Columns returns the stages in board order, left to right.
func (c *Catalog) Columns() []models.Status {
	out := make([]models.Status, len(c.columns))
	copy(out, c.columns)
	return out
}

// Known reports whether slug is a current stage value. Orders carrying
// an unknown slug simply render in no column; this mirror of the
// storage layer's soft invariant is advisory only.
func (c *Catalog) Known(slug string) bool {
	for _, s := range c.columns {
		if s.Value == slug {
			return true
		}
	}
	return false
}

// Title returns the display name for slug, or the slug itself when the
// stage is unknown.
func (c *Catalog) Title(slug string) string {
	for _, s := range c.columns {
		if s.Value == slug {
			return s.Title
		}
	}
	return slug
}

func (c *Catalog) Len() int {
	return len(c.columns)
}
