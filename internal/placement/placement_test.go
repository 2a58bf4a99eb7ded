package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wisp-notify/wisp/internal/model"
)

func sibling(edge model.Edge, height int, createdAt int64) model.Record {
	return model.Record{
		Schema:    model.SchemaVersion,
		ID:        model.NewID(),
		Edge:      edge,
		Height:    height,
		Width:     350,
		CreatedAt: createdAt,
	}
}

func TestOffset_NoSiblings(t *testing.T) {
	got := Offset(model.EdgeTop, nil, 10, 20, 100)
	assert.Equal(t, 20, got)
}

func TestOffset_GapSeparatedSequence(t *testing.T) {
	// Fixed size 100, gap 10, default offset 20: successive arrivals
	// land at 20, 130, 240.
	var siblings []model.Record
	want := []int{20, 130, 240}

	for i, expected := range want {
		got := Offset(model.EdgeTop, siblings, 10, 20, 100)
		assert.Equal(t, expected, got, "arrival %d", i)

		rec := sibling(model.EdgeTop, 100, int64(1000+i))
		rec.Offset = got
		siblings = append(siblings, rec)
	}

	// Strictly increasing in registration order.
	for i := 1; i < len(siblings); i++ {
		assert.Greater(t, siblings[i].Offset, siblings[i-1].Offset)
		assert.Equal(t, siblings[i-1].Offset+siblings[i-1].Height+10, siblings[i].Offset)
	}
}

func TestOffset_IgnoresOtherEdges(t *testing.T) {
	siblings := []model.Record{
		sibling(model.EdgeBottom, 100, 1),
		sibling(model.EdgeTopLeft, 100, 2),
	}
	got := Offset(model.EdgeTop, siblings, 10, 0, 50)
	assert.Equal(t, 0, got)
}

func TestOffset_RegistrationOrderNotSliceOrder(t *testing.T) {
	// Later-created sibling listed first; accumulation still follows
	// created_at order, so the sum is the same either way.
	newer := sibling(model.EdgeBottomRight, 60, 200)
	older := sibling(model.EdgeBottomRight, 40, 100)
	got := Offset(model.EdgeBottomRight, []model.Record{newer, older}, 5, 10, 80)
	assert.Equal(t, 10+40+5+60+5, got)
}

func TestOffset_CenterIsSingleSlot(t *testing.T) {
	siblings := []model.Record{
		sibling(model.EdgeCenter, 100, 1),
		sibling(model.EdgeCenter, 100, 2),
	}
	got := Offset(model.EdgeCenter, siblings, 10, 250, 100)
	assert.Equal(t, 250, got)
}

func TestOffset_TwoPopupsEndToEnd(t *testing.T) {
	// A (edge=top, size=50) then B (edge=top, size=50), gap=10,
	// default offset 0: B lands at 60.
	a := sibling(model.EdgeTop, 50, 100)
	got := Offset(model.EdgeTop, []model.Record{a}, 10, 0, 50)
	assert.Equal(t, 60, got)
}
