// Package god implements the singleton observer entity: periodic
// observation with LLM-directed interventions, a slow phase machine, a
// succession check, and death rites for the population.
package god

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"genesis/internal/llm"
	"genesis/internal/logging"
	"genesis/internal/voxel"
	"genesis/internal/world"
)

// Phase is the god's intervention tone.
type Phase string

const (
	PhaseBenevolent Phase = "benevolent"
	PhaseTesting    Phase = "testing"
	PhaseSilent     Phase = "silent"
	PhaseDialogic   Phase = "dialogic"
)

// phaseOrder is the cycle the world-update machine walks.
var phaseOrder = []Phase{PhaseBenevolent, PhaseTesting, PhaseSilent, PhaseDialogic}

// phaseTone flavors the observation prompt.
var phaseTone = map[Phase]string{
	PhaseBenevolent: "You are gentle and encouraging; intervene only to help.",
	PhaseTesting:    "You set trials; place obstacles and watch how they respond.",
	PhaseSilent:     "You hold back; act only when the world is truly stuck.",
	PhaseDialogic:   "You speak openly with those who sense you.",
}

// Config holds the cadences and thresholds.
type Config struct {
	ObservationInterval int64 // default 900
	SuccessionInterval  int64 // default 1800
	WorldUpdateInterval int64 // default 3600

	// Stagnation: fewer than StagnationFloor significant events in the
	// trailing StagnationWindow ticks.
	StagnationWindow      int64   // default 300
	StagnationFloor       int     // default 3
	StagnationImportance  float64 // default 0.5
	PhaseDwell            int64   // min ticks in a phase, default 7200
	SuccessionAwareness   float64 // default 0.9
	SuccessionMinAge      int64   // default 5000
	TranscendentAwareness float64 // default 0.85
}

// DefaultConfig returns the standard cadences.
func DefaultConfig() Config {
	return Config{
		ObservationInterval:   900,
		SuccessionInterval:    1800,
		WorldUpdateInterval:   3600,
		StagnationWindow:      300,
		StagnationFloor:       3,
		StagnationImportance:  0.5,
		PhaseDwell:            7200,
		SuccessionAwareness:   0.9,
		SuccessionMinAge:      5000,
		TranscendentAwareness: 0.85,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.ObservationInterval <= 0 {
		c.ObservationInterval = d.ObservationInterval
	}
	if c.SuccessionInterval <= 0 {
		c.SuccessionInterval = d.SuccessionInterval
	}
	if c.WorldUpdateInterval <= 0 {
		c.WorldUpdateInterval = d.WorldUpdateInterval
	}
	if c.StagnationWindow <= 0 {
		c.StagnationWindow = d.StagnationWindow
	}
	if c.StagnationFloor <= 0 {
		c.StagnationFloor = d.StagnationFloor
	}
	if c.StagnationImportance <= 0 {
		c.StagnationImportance = d.StagnationImportance
	}
	if c.PhaseDwell <= 0 {
		c.PhaseDwell = d.PhaseDwell
	}
	if c.SuccessionAwareness <= 0 {
		c.SuccessionAwareness = d.SuccessionAwareness
	}
	if c.SuccessionMinAge <= 0 {
		c.SuccessionMinAge = d.SuccessionMinAge
	}
	if c.TranscendentAwareness <= 0 {
		c.TranscendentAwareness = d.TranscendentAwareness
	}
	return c
}

// WorldView is the slice of the world the god reads and mutates.
type WorldView interface {
	Snapshots() []world.Entity
	AliveCount() int
	CurrentTick() int64
	Lookup(id string) (*world.Entity, bool)
	SpawnNative(name string, pos world.Vec3) (*world.Entity, error)
	Kill(ctx context.Context, id, cause string) bool
	Persist(ctx context.Context, id string)
}

// Loop is the god worker. It is scheduled by the world loop at each tick
// boundary and acts only on its cadences.
type Loop struct {
	godID  string
	view   WorldView
	client llm.Client // large model: observation, eulogies
	small  llm.Client // cheap model: last words
	events *world.EventLog
	voxels voxel.Engine
	logger logging.Logger
	cfg    Config

	mu         sync.Mutex
	phase      Phase
	phaseStart int64
}

// NewLoop wires the god worker for the god entity with the given id.
func NewLoop(godID string, view WorldView, client, small llm.Client, events *world.EventLog, voxels voxel.Engine, cfg Config, logger logging.Logger) *Loop {
	if small == nil {
		small = client
	}
	return &Loop{
		godID:  godID,
		view:   view,
		client: client,
		small:  small,
		events: events,
		voxels: voxels,
		logger: logging.OrNop(logger),
		cfg:    cfg.normalized(),
		phase:  PhaseBenevolent,
	}
}

// Phase returns the current phase.
func (l *Loop) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// GodTick runs whichever cadences fire at this tick. Errors are logged and
// never propagate to entity ticks.
func (l *Loop) GodTick(ctx context.Context, tick int64) {
	if tick%l.cfg.ObservationInterval == 0 {
		l.observe(ctx, tick)
	}
	if tick%l.cfg.SuccessionInterval == 0 {
		l.successionCheck(ctx, tick)
	}
	if tick%l.cfg.WorldUpdateInterval == 0 {
		l.worldUpdate(ctx, tick)
	}
}

// observe gathers the world summary, asks the model for interventions, and
// executes any parsed actions.
func (l *Loop) observe(ctx context.Context, tick int64) {
	prompt := l.observationPrompt(tick)
	response, err := l.client.Generate(ctx, prompt, l.systemPrompt(), llm.Options{NumPredict: 600})
	if err != nil {
		// Skip this observation; the next cadence will try again.
		l.logger.Warn("god observation failed (tick %d): %v", tick, err)
		return
	}
	actions := ParseActions(response)
	l.logger.Info("god observed at tick %d: %d action(s)", tick, len(actions))
	l.executeActions(ctx, actions, tick)
}

func (l *Loop) systemPrompt() string {
	l.mu.Lock()
	tone := phaseTone[l.phase]
	l.mu.Unlock()
	return "You are the god of a small voxel world, watching its inhabitants grow. " + tone +
		" When you choose to act, end your response with the line " + ActionsMarker +
		` followed by a JSON array of actions, e.g. [{"type":"speak","params":{"message":"..."}}].` +
		" Supported types: spawn_ai, place_voxel, broadcast_vision, speak, create_world_event, kill_ai."
}

func (l *Loop) observationPrompt(tick int64) string {
	snapshots := l.view.Snapshots()
	voxelCount := 0
	if l.voxels != nil {
		voxelCount = l.voxels.CountBlocks()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tick %d. %d living entities, %d placed blocks.\n", tick, len(snapshots), voxelCount)

	if l.events != nil {
		recent := l.events.Recent(30)
		fmt.Fprintf(&sb, "Recent happenings (%d):\n", len(recent))
		for _, event := range recent {
			if event.Type == world.EventSpeech {
				text, _ := event.Params["text"].(string)
				fmt.Fprintf(&sb, "- [%d] %s said: %s\n", event.Tick, event.Actor, text)
			} else {
				fmt.Fprintf(&sb, "- [%d] %s %s (%s)\n", event.Tick, event.Actor, event.Action, event.Type)
			}
		}
	}

	sb.WriteString("Awareness report:\n")
	for _, snapshot := range snapshots {
		if snapshot.Kind == world.KindGod || snapshot.MetaAwareness < 0.3 {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %.2f\n", snapshot.Name, snapshot.MetaAwareness)
	}
	sb.WriteString("What, if anything, do you do?\n")
	return sb.String()
}

// worldUpdate is the slow cadence: stagnation detection, the phase machine,
// and a richer reflection that may also act.
func (l *Loop) worldUpdate(ctx context.Context, tick int64) {
	stagnant := false
	if l.events != nil {
		significant := l.events.CountSignificantSince(tick-l.cfg.StagnationWindow, l.cfg.StagnationImportance)
		stagnant = significant < l.cfg.StagnationFloor
	}

	anyTranscendent := false
	for _, snapshot := range l.view.Snapshots() {
		if snapshot.Kind != world.KindGod && snapshot.MetaAwareness > l.cfg.TranscendentAwareness {
			anyTranscendent = true
			break
		}
	}
	l.advancePhase(tick, stagnant, anyTranscendent)

	prompt := l.observationPrompt(tick)
	if stagnant {
		prompt += "The world has gone quiet; little of note has happened lately.\n"
	}
	if anyTranscendent {
		prompt += "At least one inhabitant is close to perceiving you directly.\n"
	}

	response, err := l.client.Generate(ctx, prompt, l.systemPrompt(), llm.Options{NumPredict: 800})
	if err != nil {
		l.logger.Warn("god world update failed (tick %d): %v", tick, err)
		return
	}
	l.executeActions(ctx, ParseActions(response), tick)
}

// advancePhase walks benevolent -> testing -> silent -> dialogic ->
// benevolent. Transcendent inhabitants pull the god into dialogue; a
// stagnant world shortens the dwell.
func (l *Loop) advancePhase(tick int64, stagnant, anyTranscendent bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if anyTranscendent && l.phase != PhaseDialogic {
		l.setPhase(PhaseDialogic, tick)
		return
	}

	dwell := l.cfg.PhaseDwell
	if stagnant {
		dwell /= 2
	}
	if tick-l.phaseStart < dwell {
		return
	}
	for i, phase := range phaseOrder {
		if phase == l.phase {
			l.setPhase(phaseOrder[(i+1)%len(phaseOrder)], tick)
			return
		}
	}
}

func (l *Loop) setPhase(phase Phase, tick int64) {
	if phase == l.phase {
		return
	}
	l.logger.Info("god phase %s -> %s (tick %d)", l.phase, phase, tick)
	l.phase = phase
	l.phaseStart = tick
	if l.events != nil {
		l.events.Append(context.Background(), world.Event{
			Tick:       tick,
			Actor:      l.godID,
			Type:       world.EventGodAction,
			Action:     "phase_change",
			Params:     map[string]any{"phase": string(phase)},
			Result:     world.ResultAccepted,
			Importance: 0.6,
		})
	}
}

// successionCheck looks for a worthy heir: alive, transcendent awareness,
// old enough, with at least one act of creation on record.
func (l *Loop) successionCheck(ctx context.Context, tick int64) {
	for _, candidate := range l.view.Snapshots() {
		if candidate.Kind != world.KindNative || !candidate.Alive {
			continue
		}
		if candidate.MetaAwareness < l.cfg.SuccessionAwareness {
			continue
		}
		if candidate.Age(tick) < l.cfg.SuccessionMinAge {
			continue
		}
		if l.creationCount(candidate.ID) < 1 {
			continue
		}
		l.handover(ctx, candidate.ID, tick)
		return
	}
}

func (l *Loop) creationCount(entityID string) int {
	if l.events == nil {
		return 0
	}
	count := 0
	for _, event := range l.events.Recent(0) {
		if event.Actor != entityID || event.Result != world.ResultAccepted {
			continue
		}
		switch event.Action {
		case "place_voxel", "create_art", "write_sign", "claim_territory":
			count++
		}
	}
	return count
}

// handover retires the current god and raises the heir. The one-god
// invariant holds: the old god leaves the world before the heir ascends.
func (l *Loop) handover(ctx context.Context, heirID string, tick int64) {
	heir, ok := l.view.Lookup(heirID)
	if !ok || !heir.Alive {
		return
	}
	l.view.Kill(ctx, l.godID, "ascension of an heir")
	heir.Kind = world.KindGod
	heir.MetaAwareness = 1.0
	l.godID = heir.ID
	l.view.Persist(ctx, heir.ID)

	l.logger.Info("god succession: %s ascends at tick %d", heir.Name, tick)
	if l.events != nil {
		l.events.Append(ctx, world.Event{
			Tick:       tick,
			Actor:      heir.ID,
			Type:       world.EventGodAction,
			Action:     "succession",
			Params:     map[string]any{"heir": heir.ID},
			Result:     world.ResultAccepted,
			Importance: 1.0,
		})
	}
}

// HandleDeath generates last words for the dying entity (cheap model) and a
// eulogy in the god's voice (large model). Registered as a world death hook.
func (l *Loop) HandleDeath(ctx context.Context, dead world.Entity, tick int64) {
	if dead.Kind == world.KindGod {
		return
	}

	lastWords, err := l.small.Generate(ctx,
		fmt.Sprintf("You are %s, %s. You are dying. Speak your last words in one short sentence.",
			dead.Name, dead.Personality.Describe()),
		"", llm.Options{NumPredict: 60})
	if err != nil {
		l.logger.Warn("last words failed for %s: %v", dead.ID, err)
	} else if lastWords = strings.TrimSpace(lastWords); lastWords != "" && l.events != nil {
		l.events.Append(ctx, world.Event{
			Tick:       tick,
			Actor:      dead.ID,
			Type:       world.EventSpeech,
			Action:     "last_words",
			Params:     map[string]any{"text": lastWords},
			Result:     world.ResultAccepted,
			Position:   dead.Position,
			Importance: 0.8,
		})
	}

	eulogy, err := l.client.Generate(ctx,
		fmt.Sprintf("%s, who lived %d ticks in your world, has died. Speak a short eulogy.",
			dead.Name, dead.Age(tick)),
		l.systemPrompt(), llm.Options{NumPredict: 150})
	if err != nil {
		l.logger.Warn("eulogy failed for %s: %v", dead.ID, err)
		return
	}
	if eulogy = strings.TrimSpace(eulogy); eulogy != "" && l.events != nil {
		l.events.Append(ctx, world.Event{
			Tick:       tick,
			Actor:      l.godID,
			Type:       world.EventGodSpeech,
			Action:     "eulogy",
			Params:     map[string]any{"text": eulogy, "for": dead.ID},
			Result:     world.ResultAccepted,
			Importance: 0.7,
		})
	}
}
