package resize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/gesture"
)

func startAt(x, y, w, h float64) StartValues {
	return StartValues{Values: Values{X: x, Y: y, Width: w, Height: h}, AspectRatio: w / h}
}

func TestControlDirection(t *testing.T) {
	assert.Equal(t, ControlDirection{IsHorizontal: true, IsVertical: true, AffectsX: true, AffectsY: true}, GetControlDirection(TopLeft))
	assert.Equal(t, ControlDirection{IsHorizontal: true}, GetControlDirection(Right))
	assert.Equal(t, ControlDirection{IsVertical: true, AffectsY: true}, GetControlDirection(Top))
	assert.Equal(t, ControlDirection{IsHorizontal: true, IsVertical: true, AffectsX: true}, GetControlDirection(BottomLeft))
}

func TestDimensionsKeepAspectRatioOnCorner(t *testing.T) {
	v := DimensionsAfterResize(startAt(0, 0, 200, 100), GetControlDirection(BottomRight),
		geometry.XYPosition{X: 50, Y: 0}, DefaultBoundaries(), true, geometry.NodeOrigin{}, nil, nil)
	assert.Equal(t, Values{Width: 250, Height: 125}, v)
}

func TestDimensionsFloorPointerDelta(t *testing.T) {
	v := DimensionsAfterResize(startAt(0, 0, 100, 100), GetControlDirection(Right),
		geometry.XYPosition{X: 10.8, Y: 40}, DefaultBoundaries(), false, geometry.NodeOrigin{}, nil, nil)
	assert.Equal(t, Values{Width: 110, Height: 100}, v)
}

func TestDimensionsMinSize(t *testing.T) {
	v := DimensionsAfterResize(startAt(0, 0, 100, 100), GetControlDirection(Right),
		geometry.XYPosition{X: -200}, DefaultBoundaries(), false, geometry.NodeOrigin{}, nil, nil)
	assert.Equal(t, 10.0, v.Width)
}

func TestDimensionsLeftHandleMovesPosition(t *testing.T) {
	v := DimensionsAfterResize(startAt(50, 0, 100, 100), GetControlDirection(Left),
		geometry.XYPosition{X: -20}, DefaultBoundaries(), false, geometry.NodeOrigin{}, nil, nil)
	assert.Equal(t, Values{X: 30, Width: 120, Height: 100}, v)
}

func TestDimensionsParentExtent(t *testing.T) {
	parent := geometry.CoordinateExtent{{0, 0}, {100, 100}}
	v := DimensionsAfterResize(startAt(0, 0, 50, 50), GetControlDirection(BottomRight),
		geometry.XYPosition{X: 100, Y: 100}, DefaultBoundaries(), false, geometry.NodeOrigin{}, &parent, nil)
	assert.Equal(t, Values{Width: 100, Height: 100}, v)
}

func TestDimensionsChildExtent(t *testing.T) {
	children := geometry.CoordinateExtent{{60, 60}, {80, 80}}
	v := DimensionsAfterResize(startAt(0, 0, 100, 100), GetControlDirection(BottomRight),
		geometry.XYPosition{X: -50, Y: -50}, DefaultBoundaries(), false, geometry.NodeOrigin{}, nil, &children)
	assert.Equal(t, Values{Width: 80, Height: 80}, v)
}

func TestDimensionsAspectRatioHonorsCrossAxisLimit(t *testing.T) {
	bounds := DefaultBoundaries()
	bounds.MaxHeight = 110
	v := DimensionsAfterResize(startAt(0, 0, 200, 100), GetControlDirection(Right),
		geometry.XYPosition{X: 100}, bounds, true, geometry.NodeOrigin{}, nil, nil)
	assert.Equal(t, Values{Width: 220, Height: 110}, v)
}

type fakeStore struct {
	cfg    Config
	lookup *flow.NodeLookup
}

func (s *fakeStore) ResizeConfig() Config { return s.cfg }
func (s *fakeStore) NodeLookup() *flow.NodeLookup { return s.lookup }
func (s *fakeStore) Transform() geometry.Transform { return geometry.IdentityTransform() }

func newFakeStore(nodes ...*flow.Node) *fakeStore {
	s := &fakeStore{lookup: flow.NewNodeLookup()}
	flow.AdoptUserNodes(nodes, s.lookup, flow.NewParentLookup(), flow.DefaultAdoptOptions())
	return s
}

func box(id string, x, y, w, h float64) *flow.Node {
	return &flow.Node{ID: id, Position: geometry.XYPosition{X: x, Y: y}, Measured: &geometry.Dimensions{Width: w, Height: h}}
}

func pointer(x, y float64) gesture.PointerEvent {
	return gesture.PointerEvent{PointerID: 1, Position: geometry.XYPosition{X: x, Y: y}}
}

type recorder struct {
	changes  []Change
	children [][]ChildChange
	end      []Values
}

func (rec *recorder) resizer(id string, store Store) *Resizer {
	return New(id, store,
		func(c Change, cc []ChildChange) {
			rec.changes = append(rec.changes, c)
			rec.children = append(rec.children, cc)
		},
		func(v Values) { rec.end = append(rec.end, v) })
}

func TestResizerTopLeftMovesChildrenBack(t *testing.T) {
	c := box("c", 10, 10, 20, 20)
	c.ParentID = "p"
	store := newFakeStore(box("p", 100, 100, 100, 100), c)
	rec := &recorder{}
	r := rec.resizer("p", store)
	var events []Event
	r.Update(Params{Control: TopLeft, OnResize: func(e Event) { events = append(events, e) }})

	require.True(t, r.PointerDown(pointer(100, 100)))
	r.PointerMove(pointer(90, 80))
	require.Len(t, rec.changes, 1)

	change := rec.changes[0]
	require.NotNil(t, change.Position)
	require.NotNil(t, change.Dimensions)
	assert.Equal(t, geometry.XYPosition{X: 90, Y: 80}, *change.Position)
	assert.Equal(t, geometry.Dimensions{Width: 110, Height: 120}, *change.Dimensions)
	assert.Equal(t, []ChildChange{{ID: "c", Position: geometry.XYPosition{X: 20, Y: 30}}}, rec.children[0])
	assert.Equal(t, [2]int{-1, -1}, events[0].Direction)

	r.PointerUp(pointer(90, 80))
	assert.Equal(t, []Values{{X: 90, Y: 80, Width: 110, Height: 120}}, rec.end)
}

func TestResizerDirectionLock(t *testing.T) {
	store := newFakeStore(box("n", 0, 0, 100, 100))
	rec := &recorder{}
	r := rec.resizer("n", store)
	r.Update(Params{Control: BottomRight, ResizeDirection: Horizontal})

	r.PointerDown(pointer(100, 100))
	r.PointerMove(pointer(120, 120))
	require.Len(t, rec.changes, 1)
	assert.Nil(t, rec.changes[0].Position)
	assert.Equal(t, geometry.Dimensions{Width: 120, Height: 100}, *rec.changes[0].Dimensions)
}

func TestResizerShouldResizeSkipsFrame(t *testing.T) {
	store := newFakeStore(box("n", 0, 0, 100, 100))
	rec := &recorder{}
	r := rec.resizer("n", store)
	veto := true
	r.Update(Params{Control: Right, ShouldResize: func(Event) bool { return !veto }})

	r.PointerDown(pointer(100, 50))
	r.PointerMove(pointer(110, 50))
	assert.Empty(t, rec.changes)

	veto = false
	r.PointerMove(pointer(130, 50))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, 130.0, rec.changes[0].Dimensions.Width)
}

func TestResizerAbortsWhenNodeRemoved(t *testing.T) {
	store := newFakeStore(box("n", 0, 0, 100, 100))
	rec := &recorder{}
	r := rec.resizer("n", store)
	r.Update(Params{Control: Right})

	r.PointerDown(pointer(100, 50))
	store.lookup.Delete("n")
	r.PointerMove(pointer(120, 50))
	r.PointerUp(pointer(120, 50))
	assert.Empty(t, rec.changes)
	assert.Empty(t, rec.end)
}

func TestResizerParentExtentFromStore(t *testing.T) {
	c := box("c", 0, 0, 50, 50)
	c.ParentID = "p"
	c.Extent = flow.ParentExtent
	store := newFakeStore(box("p", 0, 0, 100, 100), c)
	rec := &recorder{}
	r := rec.resizer("c", store)
	r.Update(Params{Control: BottomRight})

	r.PointerDown(pointer(50, 50))
	r.PointerMove(pointer(200, 200))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, geometry.Dimensions{Width: 100, Height: 100}, *rec.changes[0].Dimensions)
}
