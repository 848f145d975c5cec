package world

// EntityKind distinguishes who controls an entity.
type EntityKind string

const (
	KindNative EntityKind = "native"
	KindAvatar EntityKind = "avatar"
	KindGod    EntityKind = "god"
	KindSystem EntityKind = "system"
)

// BehaviorMode is a discrete modifier of goal selection.
type BehaviorMode string

const (
	ModeNormal    BehaviorMode = "normal"
	ModeDesperate BehaviorMode = "desperate"
	ModeRampage   BehaviorMode = "rampage"
)

// MaxVisitedPositions bounds the visited-positions ring.
const MaxVisitedPositions = 20

// AgentPolicy is an optional directive bag for user-controlled agents.
type AgentPolicy struct {
	Directive string `json:"directive,omitempty"`
	// PreferredGoal, when set, biases goal selection toward the named goal.
	PreferredGoal string `json:"preferred_goal,omitempty"`
}

// State is the mutable per-entity bag. It replaces the source system's
// dynamic dict with well-typed fields; it is serialized as an opaque JSON
// blob only at the persistence boundary.
type State struct {
	Needs                 Needs            `json:"needs"`
	BehaviorMode          BehaviorMode     `json:"behavior_mode"`
	VisitedPositions      []Vec3           `json:"visited_positions"`
	LastConversationTicks map[string]int64 `json:"last_conversation_ticks"`
	KnownEntityIDs        map[string]bool  `json:"known_entity_ids"`
	ObserverCount         int              `json:"observer_count"`
}

// NewState returns the birth state.
func NewState() State {
	return State{
		Needs:                 DefaultNeeds(),
		BehaviorMode:          ModeNormal,
		LastConversationTicks: make(map[string]int64),
		KnownEntityIDs:        make(map[string]bool),
	}
}

// RecordVisit pushes a position onto the visited list, keeping only the most
// recent MaxVisitedPositions entries.
func (s *State) RecordVisit(pos Vec3) {
	s.VisitedPositions = append(s.VisitedPositions, pos)
	if len(s.VisitedPositions) > MaxVisitedPositions {
		s.VisitedPositions = s.VisitedPositions[len(s.VisitedPositions)-MaxVisitedPositions:]
	}
}

// VisitedCentroid returns the mean of the visited positions and whether any
// positions were recorded.
func (s *State) VisitedCentroid() (Vec3, bool) {
	if len(s.VisitedPositions) == 0 {
		return Vec3{}, false
	}
	var sum Vec3
	for _, pos := range s.VisitedPositions {
		sum = sum.Add(pos)
	}
	return sum.Scale(1 / float64(len(s.VisitedPositions))), true
}

// Clone returns a deep copy so a tick can work on a snapshot.
func (s State) Clone() State {
	clone := s
	clone.VisitedPositions = append([]Vec3(nil), s.VisitedPositions...)
	clone.LastConversationTicks = make(map[string]int64, len(s.LastConversationTicks))
	for k, v := range s.LastConversationTicks {
		clone.LastConversationTicks[k] = v
	}
	clone.KnownEntityIDs = make(map[string]bool, len(s.KnownEntityIDs))
	for k, v := range s.KnownEntityIDs {
		clone.KnownEntityIDs[k] = v
	}
	return clone
}

// Entity is one inhabitant of the world. Personality is written once at
// creation and never mutated.
type Entity struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Kind          EntityKind   `json:"kind"`
	Position      Vec3         `json:"position"`
	Facing        Vec2         `json:"facing"`
	Alive         bool         `json:"alive"`
	BirthTick     int64        `json:"birth_tick"`
	DeathTick     int64        `json:"death_tick,omitempty"`
	Personality   Personality  `json:"personality"`
	State         State        `json:"state"`
	MetaAwareness float64      `json:"meta_awareness"`
	Policy        *AgentPolicy `json:"agent_policy,omitempty"`
}

// Snapshot returns a deep copy of the entity for a tick worker. Only the
// owning tick mutates its entity; everything else reads snapshots.
func (e *Entity) Snapshot() Entity {
	clone := *e
	clone.State = e.State.Clone()
	if e.Policy != nil {
		policy := *e.Policy
		clone.Policy = &policy
	}
	return clone
}

// Die marks the entity dead at the given tick.
func (e *Entity) Die(tick int64) {
	e.Alive = false
	e.DeathTick = tick
}

// Age returns the entity age in ticks.
func (e *Entity) Age(now int64) int64 {
	return now - e.BirthTick
}
