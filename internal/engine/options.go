package engine

import (
	"github.com/tiger-colonel/xyflow-study/internal/config"
	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/panzoom"
)

// Mode says who owns a node or edge array.
type Mode int

const (
	// Managed stores apply every change to their own array. Change
	// callbacks only observe.
	Managed Mode = iota
	// Unmanaged stores leave the array to the consumer, which applies the
	// emitted changes and hands the result back with SetNodes or SetEdges.
	Unmanaged
)

func (m Mode) String() string {
	if m == Unmanaged {
		return "unmanaged"
	}
	return "managed"
}

// FitViewOptions select what FitView frames and how.
type FitViewOptions struct {
	// Padding defaults to 10% of the container when nil.
	Padding            *geometry.Padding
	IncludeHiddenNodes bool
	// MinZoom and MaxZoom override the store limits when non-zero.
	MinZoom float64
	MaxZoom float64
	// Nodes limits the fit to these ids.
	Nodes      []string
	Transition panzoom.TransitionOptions
}

// Options configure a Store.
type Options struct {
	NodeMode Mode
	EdgeMode Mode

	NodeOrigin           geometry.NodeOrigin
	NodeExtent           geometry.CoordinateExtent
	ElevateNodesOnSelect bool

	SnapToGrid        bool
	SnapGrid          geometry.SnapGrid
	NodesDraggable    bool
	SelectNodesOnDrag bool
	NodeDragThreshold float64
	AutoPanOnNodeDrag bool
	AutoPanSpeed      float64

	// FitViewOnInit fits the view once, as soon as every node is measured.
	FitViewOnInit  bool
	FitViewOptions FitViewOptions

	PanZoom panzoom.Options
}

// DefaultOptions returns a managed store with the usual editor behavior.
func DefaultOptions() Options {
	return Options{
		NodeExtent:           geometry.InfiniteExtent,
		ElevateNodesOnSelect: true,
		SnapGrid:             geometry.DefaultSnapGrid,
		NodesDraggable:       true,
		SelectNodesOnDrag:    true,
		NodeDragThreshold:    1,
		AutoPanOnNodeDrag:    true,
		AutoPanSpeed:         geometry.DefaultAutoPanSpeed,
		PanZoom:              panzoom.DefaultOptions(),
	}
}

// OptionsFromConfig maps the FLOW_* engine settings onto DefaultOptions.
func OptionsFromConfig(cfg *config.Config) Options {
	o := DefaultOptions()
	if len(cfg.NodeOrigin) == 2 {
		o.NodeOrigin = geometry.NodeOrigin{cfg.NodeOrigin[0], cfg.NodeOrigin[1]}
	}
	if len(cfg.SnapGrid) == 2 {
		o.SnapGrid = geometry.SnapGrid{cfg.SnapGrid[0], cfg.SnapGrid[1]}
	}
	o.SnapToGrid = cfg.SnapToGrid
	o.NodeDragThreshold = cfg.NodeDragThreshold
	o.AutoPanSpeed = cfg.AutoPanSpeed
	o.ElevateNodesOnSelect = cfg.ElevateNodesOnSelect
	o.SelectNodesOnDrag = cfg.SelectNodesOnDrag
	o.PanZoom.MinZoom = cfg.MinZoom
	o.PanZoom.MaxZoom = cfg.MaxZoom
	o.PanZoom.PanOnScrollSpeed = cfg.PanOnScrollSpeed
	return o
}

func (o Options) adoptOptions(checkEquality bool) flow.AdoptOptions {
	return flow.AdoptOptions{
		NodeOrigin:           o.NodeOrigin,
		NodeExtent:           o.NodeExtent,
		ElevateNodesOnSelect: o.ElevateNodesOnSelect,
		CheckEquality:        checkEquality,
	}
}
