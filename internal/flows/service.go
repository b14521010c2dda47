// Package flows keeps the registry of flows and their saved snapshots.
package flows

import (
	"context"
	"errors"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tiger-colonel/xyflow-study/internal/flow"
	"github.com/tiger-colonel/xyflow-study/internal/geometry"
	"github.com/tiger-colonel/xyflow-study/internal/typeid"
)

var (
	ErrNotFound  = errors.New("flow not found")
	ErrForbidden = errors.New("forbidden")
)

type Flow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Snapshot is the saved state of a flow.
type Snapshot struct {
	ID       string            `json:"id"`
	FlowID   string            `json:"flowId"`
	Version  int               `json:"version"`
	Nodes    []*flow.Node      `json:"nodes"`
	Edges    []*flow.Edge      `json:"edges"`
	Viewport geometry.Viewport `json:"viewport"`
	SavedAt  string            `json:"savedAt"`
}

type record struct {
	flow      Flow
	snapshots []*Snapshot
}

// Service is an in-memory flow store. Flows list in creation order.
type Service struct {
	mu    sync.RWMutex
	flows *orderedmap.OrderedMap[string, *record]
	now   func() time.Time
}

func NewService() *Service {
	return &Service{
		flows: orderedmap.New[string, *record](),
		now:   time.Now,
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05Z")
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Flow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ts := s.timestamp()
	f := Flow{
		ID:        typeid.NewFlowID(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows.Set(f.ID, &record{flow: f})
	return &f, nil
}

func (s *Service) Get(ctx context.Context, flowID string) (*Flow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.flows.Get(flowID)
	if !ok {
		return nil, ErrNotFound
	}
	f := rec.flow
	return &f, nil
}

// List returns the flows owned by ownerID.
func (s *Service) List(ctx context.Context, ownerID string) ([]Flow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	flows := []Flow{}
	for pair := s.flows.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.flow.OwnerID == ownerID {
			flows = append(flows, pair.Value.flow)
		}
	}
	return flows, nil
}

func (s *Service) Delete(ctx context.Context, flowID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows.Get(flowID)
	if !ok {
		return ErrNotFound
	}
	if rec.flow.OwnerID != userID {
		return ErrForbidden
	}
	s.flows.Delete(flowID)
	return nil
}

// SaveSnapshot stores the next version of a flow's state.
func (s *Service) SaveSnapshot(ctx context.Context, flowID string, nodes []*flow.Node, edges []*flow.Edge, viewport geometry.Viewport) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows.Get(flowID)
	if !ok {
		return nil, ErrNotFound
	}
	ts := s.timestamp()
	snap := &Snapshot{
		ID:       typeid.NewSnapshotID(),
		FlowID:   flowID,
		Version:  len(rec.snapshots) + 1,
		Nodes:    nodes,
		Edges:    edges,
		Viewport: viewport,
		SavedAt:  ts,
	}
	rec.snapshots = append(rec.snapshots, snap)
	rec.flow.UpdatedAt = ts
	return snap, nil
}

// LatestSnapshot returns the newest snapshot, or nil for a flow that was
// never saved.
func (s *Service) LatestSnapshot(ctx context.Context, flowID string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.flows.Get(flowID)
	if !ok {
		return nil, ErrNotFound
	}
	if len(rec.snapshots) == 0 {
		return nil, nil
	}
	return rec.snapshots[len(rec.snapshots)-1], nil
}
