// Package conversation orchestrates multi-turn LLM dialogue between
// entities: trigger gating, prompt assembly, the alternating turn loop,
// outcome classification, and the relationship/memory/event effects that
// follow.
package conversation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"genesis/internal/llm"
	"genesis/internal/logging"
	"genesis/internal/memory"
	"genesis/internal/meta"
	"genesis/internal/relationship"
	"genesis/internal/world"
)

// Config holds the dialogue tunables.
type Config struct {
	MaxTurns          int     // default 8
	MinTurns          int     // turns before early exit applies, default 2
	TurnTokenCap      int     // per-turn generation cap, default 150
	InteractionRange  float64 // default 5
	Cooldown          int64   // ticks between conversations with a partner, default 20
	SocialThreshold   float64 // social need gate, default 60
	EnergyFloor       float64 // energy gate, default 15
	PromptTokenBudget int     // budget for the memory section, default 600
}

// DefaultConfig returns the standard dialogue settings.
func DefaultConfig() Config {
	return Config{
		MaxTurns:          8,
		MinTurns:          2,
		TurnTokenCap:      150,
		InteractionRange:  5,
		Cooldown:          20,
		SocialThreshold:   60,
		EnergyFloor:       15,
		PromptTokenBudget: 600,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxTurns <= 0 {
		c.MaxTurns = d.MaxTurns
	}
	if c.MinTurns <= 0 {
		c.MinTurns = d.MinTurns
	}
	if c.TurnTokenCap <= 0 {
		c.TurnTokenCap = d.TurnTokenCap
	}
	if c.InteractionRange <= 0 {
		c.InteractionRange = d.InteractionRange
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.SocialThreshold <= 0 {
		c.SocialThreshold = d.SocialThreshold
	}
	if c.EnergyFloor <= 0 {
		c.EnergyFloor = d.EnergyFloor
	}
	if c.PromptTokenBudget <= 0 {
		c.PromptTokenBudget = d.PromptTokenBudget
	}
	return c
}

// maxDirectiveChars truncates policy directives embedded in prompts.
const maxDirectiveChars = 300

// Turn is one utterance. Position is where the speaker stood; the speech
// event carries it so the hearing model attenuates from the right spot.
type Turn struct {
	SpeakerID   string     `json:"speaker_id"`
	SpeakerName string     `json:"speaker_name"`
	Text        string     `json:"text"`
	Position    world.Vec3 `json:"position"`
}

// Result is a finished conversation.
type Result struct {
	InitiatorID string  `json:"initiator_id"`
	PartnerID   string  `json:"partner_id"`
	Topic       string  `json:"topic,omitempty"`
	Turns       []Turn  `json:"turns"`
	Outcome     Outcome `json:"outcome"`
	EndedEarly  bool    `json:"ended_early"`
}

// ConflictResult records a conflict that replaced dialogue.
type ConflictResult struct {
	AggressorID string `json:"aggressor_id"`
	TargetID    string `json:"target_id"`
}

// Manager runs conversations.
type Manager struct {
	cfg           Config
	lexicon       Lexicon
	client        llm.Client
	memories      *memory.Manager
	relationships *relationship.Manager
	events        *world.EventLog
	awareness     *meta.Awareness
	tokens        tokenCounter
	logger        logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewManager wires a conversation manager. rng seeds topic selection.
func NewManager(
	cfg Config,
	lexicon Lexicon,
	client llm.Client,
	memories *memory.Manager,
	relationships *relationship.Manager,
	events *world.EventLog,
	awareness *meta.Awareness,
	rng *rand.Rand,
	logger logging.Logger,
) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if len(lexicon.Hostile) == 0 && len(lexicon.Friendly) == 0 {
		lexicon = DefaultLexicon()
	}
	return &Manager{
		cfg:           cfg.normalized(),
		lexicon:       lexicon,
		client:        client,
		memories:      memories,
		relationships: relationships,
		events:        events,
		awareness:     awareness,
		rng:           rng,
		logger:        logging.OrNop(logger),
	}
}

// ShouldConverse evaluates the trigger conditions for initiator a toward
// partner b at tick: range, social need, energy, and per-partner cooldown.
func (m *Manager) ShouldConverse(a, b world.Entity, tick int64) bool {
	if !a.Alive || !b.Alive || a.ID == b.ID {
		return false
	}
	if a.Position.Distance(b.Position) > m.cfg.InteractionRange {
		return false
	}
	if a.State.Needs.Get(world.NeedSocial) <= m.cfg.SocialThreshold {
		return false
	}
	if a.State.Needs.Get(world.NeedEnergy) <= m.cfg.EnergyFloor {
		return false
	}
	if last, ok := a.State.LastConversationTicks[b.ID]; ok && tick-last < m.cfg.Cooldown {
		return false
	}
	return true
}

// ShouldConflict is the rare pre-dialogue predicate: deeply negative trust
// between two aggressive entities resolves as conflict instead of talk.
func (m *Manager) ShouldConflict(a, b world.Entity) bool {
	rel := m.relationships.Get(a.ID, b.ID)
	return rel.Trust < -0.5 && a.Personality.Aggression > 0.6 && b.Personality.Aggression > 0.6
}

// RunConflict records a short conflict between a and b without dialogue.
func (m *Manager) RunConflict(ctx context.Context, a, b *world.Entity, tick int64) *ConflictResult {
	m.relationships.Update(ctx, a.ID, b.ID, "attacked", 0.5, tick)
	m.relationships.Update(ctx, b.ID, a.ID, "attacked", 0.5, tick)

	if m.events != nil {
		m.events.Append(ctx, world.Event{
			Tick:       tick,
			Actor:      a.ID,
			Type:       world.EventConflict,
			Action:     "conflict",
			Params:     map[string]any{"target_id": b.ID},
			Result:     world.ResultAccepted,
			Position:   a.Position,
			Importance: 0.7,
		})
	}
	m.remember(ctx, a, fmt.Sprintf("Clashed with %s; words failed us", displayName(b)), 0.6, tick, b.ID)
	m.remember(ctx, b, fmt.Sprintf("Clashed with %s; words failed us", displayName(a)), 0.6, tick, a.ID)
	stampCooldown(a, b.ID, tick)
	stampCooldown(b, a.ID, tick)

	return &ConflictResult{AggressorID: a.ID, TargetID: b.ID}
}

// RunConversation runs the multi-turn loop with a as initiator. Returns nil
// when no turns were produced (LLM unavailable).
func (m *Manager) RunConversation(ctx context.Context, a, b *world.Entity, tick int64) *Result {
	rel := m.relationships.Get(a.ID, b.ID)
	topic := m.pickTopic(a.Personality, b.Personality, rel)

	prompts := map[string]string{
		a.ID: m.buildSystemPrompt(ctx, a, b),
		b.ID: m.buildSystemPrompt(ctx, b, a),
	}
	histories := map[string][]llm.Message{
		a.ID: {{Role: "user", Content: fmt.Sprintf("You stand near %s. Open a conversation about %s. Speak in first person, briefly.", displayName(b), topic)}},
		b.ID: {{Role: "user", Content: fmt.Sprintf("%s approaches you, wanting to talk about %s. Respond in first person, briefly.", displayName(a), topic)}},
	}

	result := &Result{InitiatorID: a.ID, PartnerID: b.ID, Topic: topic}
	participants := [2]*world.Entity{a, b}

	for i := 0; i < m.cfg.MaxTurns; i++ {
		speaker := participants[i%2]
		listener := participants[(i+1)%2]

		text, err := m.client.Chat(ctx, histories[speaker.ID], prompts[speaker.ID], llm.Options{NumPredict: m.cfg.TurnTokenCap})
		if err != nil {
			m.logger.Warn("conversation turn failed (%s, tick %d): %v", speaker.ID, tick, err)
			break
		}
		text = strings.TrimSpace(text)
		if text == "" {
			break
		}

		result.Turns = append(result.Turns, Turn{SpeakerID: speaker.ID, SpeakerName: displayName(speaker), Text: text, Position: speaker.Position})
		histories[speaker.ID] = append(histories[speaker.ID], llm.Message{Role: "assistant", Content: text})
		histories[listener.ID] = append(histories[listener.ID], llm.Message{Role: "user", Content: displayName(speaker) + ": " + text})

		if len(result.Turns) >= m.cfg.MinTurns && m.lexicon.ShouldExitEarly(text) {
			result.EndedEarly = true
			break
		}
	}

	if len(result.Turns) == 0 {
		// A failed attempt still consumes the cooldown; without the stamp
		// the pair would re-call the model every tick of an outage.
		stampCooldown(a, b.ID, tick)
		stampCooldown(b, a.ID, tick)
		return nil
	}

	result.Outcome = m.lexicon.ClassifyOutcome(concatTurns(result.Turns))
	m.applyEffects(ctx, a, b, result, tick)
	return result
}

// RunHumanInitiated responds to speech from outside the tick loop (an
// avatar or overheard speaker). Same semantics as RunConversation with a
// loop capped at two responder turns.
func (m *Manager) RunHumanInitiated(ctx context.Context, responder *world.Entity, speakerID, speakerName, text string, tick int64) *Result {
	prompt := m.buildSystemPromptSolo(ctx, responder, speakerID, speakerName)
	history := []llm.Message{
		{Role: "user", Content: fmt.Sprintf("%s said: %s", speakerName, text)},
	}

	result := &Result{InitiatorID: speakerID, PartnerID: responder.ID}
	for i := 0; i < 2; i++ {
		reply, err := m.client.Chat(ctx, history, prompt, llm.Options{NumPredict: m.cfg.TurnTokenCap})
		if err != nil {
			m.logger.Warn("speech response failed (%s, tick %d): %v", responder.ID, tick, err)
			break
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			break
		}
		result.Turns = append(result.Turns, Turn{SpeakerID: responder.ID, SpeakerName: displayName(responder), Text: reply, Position: responder.Position})
		history = append(history, llm.Message{Role: "assistant", Content: reply})
		if m.lexicon.ShouldExitEarly(reply) {
			result.EndedEarly = true
			break
		}
		history = append(history, llm.Message{Role: "user", Content: "Continue only if you have something to add; otherwise say goodbye."})
	}

	if len(result.Turns) == 0 {
		return nil
	}

	result.Outcome = m.lexicon.ClassifyOutcome(concatTurns(result.Turns))
	effect := outcomeEffects[result.Outcome]
	m.relationships.Update(ctx, responder.ID, speakerID, effect.eventType, effect.magnitude, tick)
	m.remember(ctx, responder,
		fmt.Sprintf("Conversation with %s (%s): %s", speakerName, result.Outcome, firstTurnExcerpt(result.Turns)),
		effect.importance, tick, speakerID)
	m.emitTurnEvents(ctx, result, tick)
	stampCooldown(responder, speakerID, tick)
	return result
}

func (m *Manager) pickTopic(a, b world.Personality, rel relationship.Relation) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return selectTopic(m.rng, a, b, rel)
}

// buildSystemPrompt assembles the speaker's persona: traits, speaking
// style, relationship view, memories, awareness hint, and policy directive.
func (m *Manager) buildSystemPrompt(ctx context.Context, self, partner *world.Entity) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an inhabitant of a small voxel world.\n", displayName(self))
	fmt.Fprintf(&sb, "Character: %s\n", self.Personality.Describe())
	fmt.Fprintf(&sb, "Speaking style: %s\n", strings.Join(self.Personality.SpeakingStyle(), ", "))

	rel := m.relationships.Get(self.ID, partner.ID)
	fmt.Fprintf(&sb, "About %s: %s\n", displayName(partner), relationship.Describe(rel, displayName(partner)))

	m.appendShared(ctx, &sb, self)
	return sb.String()
}

// buildSystemPromptSolo is buildSystemPrompt for a partner known only by id
// and name.
func (m *Manager) buildSystemPromptSolo(ctx context.Context, self *world.Entity, partnerID, partnerName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an inhabitant of a small voxel world.\n", displayName(self))
	fmt.Fprintf(&sb, "Character: %s\n", self.Personality.Describe())
	fmt.Fprintf(&sb, "Speaking style: %s\n", strings.Join(self.Personality.SpeakingStyle(), ", "))

	rel := m.relationships.Get(self.ID, partnerID)
	fmt.Fprintf(&sb, "About %s: %s\n", partnerName, relationship.Describe(rel, partnerName))

	m.appendShared(ctx, &sb, self)
	return sb.String()
}

func (m *Manager) appendShared(ctx context.Context, sb *strings.Builder, self *world.Entity) {
	if m.memories != nil {
		if summary, err := m.memories.SummarizeForPrompt(ctx, self.ID, 5); err == nil && summary != "" {
			summary = m.tokens.trimToTokens(summary, m.cfg.PromptTokenBudget)
			fmt.Fprintf(sb, "You remember:\n%s\n", summary)
		}
	}
	if m.awareness != nil && m.awareness.ShouldInjectHint(self.MetaAwareness) {
		if hint := meta.HintForLevel(self.MetaAwareness); hint != "" {
			fmt.Fprintf(sb, "Lately you feel %s.\n", hint)
		}
	}
	if self.Policy != nil && self.Policy.Directive != "" {
		directive := self.Policy.Directive
		if len(directive) > maxDirectiveChars {
			directive = directive[:maxDirectiveChars]
		}
		fmt.Fprintf(sb, "Your guiding directive: %s\n", directive)
	}
}

// applyEffects performs the post-conversation pass: bidirectional
// relationship update, one memory per participant, the conversation event,
// per-turn speech events, and cooldown stamps.
func (m *Manager) applyEffects(ctx context.Context, a, b *world.Entity, result *Result, tick int64) {
	effect := outcomeEffects[result.Outcome]

	m.relationships.Update(ctx, a.ID, b.ID, effect.eventType, effect.magnitude, tick)
	m.relationships.Update(ctx, b.ID, a.ID, effect.eventType, effect.magnitude, tick)

	excerpt := firstTurnExcerpt(result.Turns)
	m.remember(ctx, a, fmt.Sprintf("Conversation with %s (%s): %s", displayName(b), result.Outcome, excerpt), effect.importance, tick, b.ID)
	m.remember(ctx, b, fmt.Sprintf("Conversation with %s (%s): %s", displayName(a), result.Outcome, excerpt), effect.importance, tick, a.ID)

	if m.events != nil {
		m.events.Append(ctx, world.Event{
			Tick:  tick,
			Actor: a.ID,
			Type:  world.EventConversation,
			Params: map[string]any{
				"partner_id": b.ID,
				"topic":      result.Topic,
				"outcome":    string(result.Outcome),
				"turns":      len(result.Turns),
			},
			Result:     world.ResultAccepted,
			Position:   a.Position,
			Importance: 0.5,
		})
	}
	m.emitTurnEvents(ctx, result, tick)

	stampCooldown(a, b.ID, tick)
	stampCooldown(b, a.ID, tick)
}

func (m *Manager) emitTurnEvents(ctx context.Context, result *Result, tick int64) {
	if m.events == nil {
		return
	}
	for _, turn := range result.Turns {
		m.events.Append(ctx, world.Event{
			Tick:       tick,
			Actor:      turn.SpeakerID,
			Type:       world.EventSpeech,
			Action:     "speak",
			Params:     map[string]any{"text": turn.Text},
			Result:     world.ResultAccepted,
			Position:   turn.Position,
			Importance: 0.25,
		})
	}
}

func (m *Manager) remember(ctx context.Context, entity *world.Entity, summary string, importance float64, tick int64, related ...string) {
	if m.memories == nil {
		return
	}
	_, err := m.memories.AddEpisodic(ctx, memory.Episode{
		EntityID:   entity.ID,
		Summary:    summary,
		Importance: importance,
		Tick:       tick,
		Related:    related,
		Location:   entity.Position,
		Type:       memory.TypeConversation,
	})
	if err != nil {
		m.logger.Warn("conversation memory failed for %s: %v", entity.ID, err)
	}
}

func stampCooldown(entity *world.Entity, partnerID string, tick int64) {
	if entity.State.LastConversationTicks == nil {
		entity.State.LastConversationTicks = make(map[string]int64)
	}
	entity.State.LastConversationTicks[partnerID] = tick
}

func displayName(entity *world.Entity) string {
	if entity.Name != "" {
		return entity.Name
	}
	return entity.ID
}

func concatTurns(turns []Turn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func firstTurnExcerpt(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	text := turns[0].Text
	if len(text) > 100 {
		text = text[:100]
	}
	return text
}
