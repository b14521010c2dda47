// Package gesture turns raw pointer and wheel input into start/drag/end
// callbacks with an activation filter, independent of the event source.
package gesture

import (
	"slices"
	"strings"

	"github.com/tiger-colonel/xyflow-study/internal/geometry"
)

// Buttons as reported by pointer events.
const (
	ButtonPrimary   = 0
	ButtonAuxiliary = 1
	ButtonSecondary = 2
)

// Modifiers is the keyboard modifier state at the time of an event.
type Modifiers struct {
	Shift bool `json:"shift,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Meta  bool `json:"meta,omitempty"`
	Alt   bool `json:"alt,omitempty"`
}

// Element is one element on the path from an event target up to the
// container.
type Element struct {
	ID      string   `json:"id,omitempty"`
	Tag     string   `json:"tag,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

// Matches supports ".class", "#id" and plain tag selectors.
func (e Element) Matches(selector string) bool {
	switch {
	case strings.HasPrefix(selector, "."):
		return slices.Contains(e.Classes, selector[1:])
	case strings.HasPrefix(selector, "#"):
		return e.ID == selector[1:]
	}
	return strings.EqualFold(e.Tag, selector)
}

// Path is the target element first, then its ancestors.
type Path []Element

// Has reports whether any element on the path matches selector. A
// comma-separated selector matches if any part does.
func (p Path) Has(selector string) bool {
	parts := strings.Split(selector, ",")
	for _, el := range p {
		for _, part := range parts {
			if el.Matches(strings.TrimSpace(part)) {
				return true
			}
		}
	}
	return false
}

// HasClass reports whether any element on the path carries class.
func (p Path) HasClass(class string) bool {
	return p.Has("." + class)
}

// PointerEvent is a pointer down, move or up. Position is relative to the
// container's top-left corner, in screen pixels.
type PointerEvent struct {
	PointerID   int                 `json:"pointerId"`
	PointerType string              `json:"pointerType,omitempty"`
	Position    geometry.XYPosition `json:"position"`
	Button      int                 `json:"button"`
	// Touches is the number of active touch points, 0 for mouse and pen.
	Touches   int       `json:"touches,omitempty"`
	Modifiers Modifiers `json:"modifiers"`
	Path      Path      `json:"path,omitempty"`
}

// Delta modes of wheel events.
const (
	DeltaPixel = 0
	DeltaLine  = 1
	DeltaPage  = 2
)

// WheelEvent is a wheel or trackpad scroll. A pinch reports as a wheel
// event with Ctrl set.
type WheelEvent struct {
	Position  geometry.XYPosition `json:"position"`
	DeltaX    float64             `json:"deltaX"`
	DeltaY    float64             `json:"deltaY"`
	DeltaMode int                 `json:"deltaMode"`
	Modifiers Modifiers           `json:"modifiers"`
	Path      Path                `json:"path,omitempty"`
}
