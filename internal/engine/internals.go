package engine

import (
	"github.com/tiger-colonel/xyflow-study/internal/flow"
)

// SetMeasurer installs the renderer's measurement source.
func (s *Store) SetMeasurer(m flow.Measurer) { s.measurer = m }

// UpdateNodeInternals re-measures the given nodes through the measurer.
// New sizes are reported as dimension changes; a pending initial fit runs
// once measurements land.
func (s *Store) UpdateNodeInternals(updates ...flow.InternalsUpdate) {
	opts := s.opts.adoptOptions(true)
	changes, updated := flow.UpdateNodeInternals(updates, s.nodeLookup, s.parentLookup, s.measurer, opts)
	if !updated {
		return
	}
	flow.UpdateAbsolutePositions(s.nodeLookup, s.parentLookup, opts)

	if s.fitViewQueued {
		s.fitViewQueued = false
		s.FitView(s.opts.FitViewOptions)
	} else {
		s.redraw()
	}
	s.TriggerNodeChanges(changes)
}
