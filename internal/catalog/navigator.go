// Package catalog provides chapter navigation for the reader.
package catalog

import (
	"sort"

	"textbook-gateway/internal/models"
)

// Navigator tracks the selected chapter of one textbook. Prev and Next move
// by position in the ordinal-sorted list, so gaps in chapter ids are
// skipped.
type Navigator struct {
	chapters []models.Chapter
	current  int
}

func NewNavigator(chapters []models.Chapter) *Navigator {
	sorted := make([]models.Chapter, len(chapters))
	copy(sorted, chapters)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	n := &Navigator{chapters: sorted, current: -1}
	if len(sorted) > 0 {
		n.current = 0
	}
	return n
}

func (n *Navigator) Chapters() []models.Chapter {
	out := make([]models.Chapter, len(n.chapters))
	copy(out, n.chapters)
	return out
}

// Current returns the selected chapter, if any.
func (n *Navigator) Current() (models.Chapter, bool) {
	if n.current < 0 {
		return models.Chapter{}, false
	}
	return n.chapters[n.current], true
}

// Select makes the chapter with the given id current. Unknown ids leave the
// selection unchanged.
func (n *Navigator) Select(id int) bool {
	for i, ch := range n.chapters {
		if ch.ID == id {
			n.current = i
			return true
		}
	}
	return false
}

func (n *Navigator) HasPrev() bool { return n.current > 0 }

func (n *Navigator) HasNext() bool { return n.current >= 0 && n.current < len(n.chapters)-1 }

func (n *Navigator) Prev() (models.Chapter, bool) {
	if n.HasPrev() {
		n.current--
	}
	return n.Current()
}

func (n *Navigator) Next() (models.Chapter, bool) {
	if n.HasNext() {
		n.current++
	}
	return n.Current()
}
