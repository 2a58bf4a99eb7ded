// Package placement computes stacking offsets for popups sharing an
// anchor edge. It is a pure snapshot computation: the sibling set is
// read once at registration time and the resulting offset is never
// revised, so a popup expiring early leaves its gap open.
package placement

import (
	"sort"

	"github.com/wisp-notify/wisp/internal/model"
)

// Offset returns the distance in pixels along the stacking axis for a
// new popup of height ownHeight anchored at edge, given the currently
// registered siblings. Popups stack outward from the screen edge in
// registration order: the first shown sits at defaultOffset, each later
// one past the accumulated heights and gaps of its predecessors.
//
// The center edge is single-slot and never stacks.
func Offset(edge model.Edge, siblings []model.Record, gap, defaultOffset, ownHeight int) int {
	if edge == model.EdgeCenter {
		return defaultOffset
	}

	same := make([]model.Record, 0, len(siblings))
	for _, s := range siblings {
		if s.Edge == edge {
			same = append(same, s)
		}
	}
	sort.Slice(same, func(i, j int) bool {
		if same[i].CreatedAt != same[j].CreatedAt {
			return same[i].CreatedAt < same[j].CreatedAt
		}
		return same[i].ID < same[j].ID
	})

	offset := defaultOffset
	for _, s := range same {
		offset += s.Height + gap
	}
	return offset
}
