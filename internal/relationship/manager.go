// Package relationship tracks directed pairwise sentiment between entities
// across seven axes, with event-driven updates and periodic decay of the
// volatile axes.
package relationship

import (
	"context"
	"strings"
	"sync"

	"genesis/internal/logging"
	"genesis/internal/world"
)

// Relation is a directed A→B sentiment snapshot. Axes are in [-1,1];
// anger, gratitude, and fear decay toward zero, the others persist.
type Relation struct {
	Trust       float64 `json:"trust"`
	Familiarity float64 `json:"familiarity"`
	Anger       float64 `json:"anger"`
	Gratitude   float64 `json:"gratitude"`
	Fear        float64 `json:"fear"`
	Respect     float64 `json:"respect"`
	Rivalry     float64 `json:"rivalry"`
}

// DecayFactor shrinks the volatile axes each decay cycle.
const DecayFactor = 0.9

// DecayInterval is the tick modulus at which decay runs.
const DecayInterval = 10

// delta is one entry in the event-type table.
type delta struct {
	Trust, Familiarity, Anger, Gratitude, Fear, Respect, Rivalry float64
}

// eventDeltas maps relationship event types to axis adjustments, scaled by
// the caller-supplied magnitude.
var eventDeltas = map[string]delta{
	"long_talk":       {Trust: 0.05, Familiarity: 0.08},
	"short_talk":      {Familiarity: 0.04},
	"insulted":        {Trust: -0.10, Anger: 0.15},
	"complimented":    {Trust: 0.05, Gratitude: 0.10},
	"helped":          {Trust: 0.10, Gratitude: 0.15},
	"attacked":        {Trust: -0.20, Anger: 0.20, Fear: 0.20},
	"threatened":      {Trust: -0.10, Fear: 0.15},
	"shared_creation": {Trust: 0.08, Familiarity: 0.08, Respect: 0.10},
	"competed_won":    {Respect: 0.05, Rivalry: 0.10},
	"competed_lost":   {Trust: -0.05, Anger: 0.08, Rivalry: 0.15},
	"agreement":       {Trust: 0.08, Respect: 0.05},
	"friendly_chat":   {Trust: 0.05, Familiarity: 0.06},
}

// KnownEventTypes reports whether the manager has a delta entry for the
// event type.
func KnownEventType(eventType string) bool {
	_, ok := eventDeltas[eventType]
	return ok
}

type pair struct {
	source, target string
}

// Store persists relationship rows.
type Store interface {
	UpsertRelationship(ctx context.Context, source, target string, relation Relation) error
}

// Manager holds all directed relations in memory, writing through to an
// optional store.
type Manager struct {
	mu        sync.RWMutex
	relations map[pair]Relation
	store     Store
	logger    logging.Logger
}

// NewManager creates an empty relationship manager. store may be nil.
func NewManager(store Store, logger logging.Logger) *Manager {
	return &Manager{
		relations: make(map[pair]Relation),
		store:     store,
		logger:    logging.OrNop(logger),
	}
}

// Get returns the A→B snapshot, zeros if none exists.
func (m *Manager) Get(source, target string) Relation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.relations[pair{source, target}]
}

// Seed installs a relation directly, used when loading persisted state.
func (m *Manager) Seed(source, target string, relation Relation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relations[pair{source, target}] = relation
}

// Update applies the delta table entry for eventType, scaled by magnitude,
// to the A→B relation. Unknown event types are ignored with a warning.
func (m *Manager) Update(ctx context.Context, source, target, eventType string, magnitude float64, tick int64) {
	d, ok := eventDeltas[eventType]
	if !ok {
		m.logger.Warn("unknown relationship event type %q (tick %d)", eventType, tick)
		return
	}
	if magnitude == 0 {
		magnitude = 1
	}

	m.mu.Lock()
	key := pair{source, target}
	relation := m.relations[key]
	relation.Trust = clampAxis(relation.Trust + d.Trust*magnitude)
	relation.Familiarity = clampAxis(relation.Familiarity + d.Familiarity*magnitude)
	relation.Anger = clampAxis(relation.Anger + d.Anger*magnitude)
	relation.Gratitude = clampAxis(relation.Gratitude + d.Gratitude*magnitude)
	relation.Fear = clampAxis(relation.Fear + d.Fear*magnitude)
	relation.Respect = clampAxis(relation.Respect + d.Respect*magnitude)
	relation.Rivalry = clampAxis(relation.Rivalry + d.Rivalry*magnitude)
	m.relations[key] = relation
	m.mu.Unlock()

	m.persist(ctx, source, target, relation)
}

// DecayAll multiplies the volatile axes (anger, gratitude, fear) by the
// decay factor for every relation originating at source.
func (m *Manager) DecayAll(ctx context.Context, source string) {
	type decayed struct {
		target   string
		relation Relation
	}
	var updated []decayed

	m.mu.Lock()
	for key, relation := range m.relations {
		if key.source != source {
			continue
		}
		relation.Anger *= DecayFactor
		relation.Gratitude *= DecayFactor
		relation.Fear *= DecayFactor
		m.relations[key] = relation
		updated = append(updated, decayed{target: key.target, relation: relation})
	}
	m.mu.Unlock()

	for _, entry := range updated {
		m.persist(ctx, source, entry.target, entry.relation)
	}
}

func (m *Manager) persist(ctx context.Context, source, target string, relation Relation) {
	if m.store == nil {
		return
	}
	if err := m.store.UpsertRelationship(ctx, source, target, relation); err != nil {
		m.logger.Warn("relationship persistence failed (%s->%s): %v", source, target, err)
	}
}

// Describe synthesizes a short prose description of the relation for prompt
// embedding. An all-zero relation describes a stranger.
func Describe(relation Relation, targetName string) string {
	var parts []string

	switch {
	case relation.Familiarity >= 0.6:
		parts = append(parts, "you know "+targetName+" well")
	case relation.Familiarity >= 0.2:
		parts = append(parts, "you are acquainted with "+targetName)
	default:
		parts = append(parts, targetName+" is nearly a stranger to you")
	}

	switch {
	case relation.Trust >= 0.5:
		parts = append(parts, "you trust them deeply")
	case relation.Trust >= 0.2:
		parts = append(parts, "you trust them somewhat")
	case relation.Trust <= -0.4:
		parts = append(parts, "you deeply distrust them")
	case relation.Trust <= -0.1:
		parts = append(parts, "you are wary of them")
	}

	if relation.Anger >= 0.3 {
		parts = append(parts, "you hold anger toward them")
	}
	if relation.Gratitude >= 0.3 {
		parts = append(parts, "you feel grateful to them")
	}
	if relation.Fear >= 0.3 {
		parts = append(parts, "they frighten you")
	}
	if relation.Respect >= 0.4 {
		parts = append(parts, "you respect them")
	}
	if relation.Rivalry >= 0.3 {
		parts = append(parts, "you see them as a rival")
	}

	return strings.Join(parts, "; ")
}

func clampAxis(v float64) float64 {
	return world.Clamp(v, -1, 1)
}
