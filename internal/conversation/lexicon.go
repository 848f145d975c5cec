package conversation

import "strings"

// Outcome classifies a finished conversation.
type Outcome string

const (
	OutcomeConflict  Outcome = "conflict"
	OutcomeAgreement Outcome = "agreement"
	OutcomeHostile   Outcome = "hostile"
	OutcomeFriendly  Outcome = "friendly"
	OutcomeNeutral   Outcome = "neutral"
)

// Lexicon holds the keyword bags driving outcome classification and early
// exit. The bags are configuration; hosts may localize them.
type Lexicon struct {
	Hostile   []string
	Friendly  []string
	Agreement []string
	Farewell  []string
}

// DefaultLexicon returns the english keyword bags.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Hostile: []string{
			"hate", "enemy", "fight", "attack", "leave me", "go away",
			"stupid", "fool", "threat", "destroy you", "never trust",
		},
		Friendly: []string{
			"friend", "thank", "glad", "wonderful", "together", "help you",
			"like you", "appreciate", "welcome", "kind",
		},
		Agreement: []string{
			"agree", "deal", "promise", "we will", "let us", "settled",
			"understood", "yes, exactly",
		},
		Farewell: []string{
			"goodbye", "farewell", "see you", "must go", "until next time",
			"take care",
		},
	}
}

// countMatches counts how many bag entries occur in text (case-insensitive).
func countMatches(text string, bag []string) int {
	lowered := strings.ToLower(text)
	count := 0
	for _, token := range bag {
		count += strings.Count(lowered, token)
	}
	return count
}

// conflictFloor is the hostile-match count at which a conversation reads as
// open conflict.
const conflictFloor = 3

// ClassifyOutcome scans the concatenated conversation text against the
// keyword bags. Precedence: conflict, agreement, hostile, friendly, neutral.
func (l Lexicon) ClassifyOutcome(text string) Outcome {
	hostile := countMatches(text, l.Hostile)
	friendly := countMatches(text, l.Friendly)
	agreement := countMatches(text, l.Agreement)

	switch {
	case hostile >= conflictFloor:
		return OutcomeConflict
	case agreement >= 2 && agreement >= hostile:
		return OutcomeAgreement
	case hostile > friendly:
		return OutcomeHostile
	case friendly > 0:
		return OutcomeFriendly
	default:
		return OutcomeNeutral
	}
}

// ShouldExitEarly reports whether a turn's text signals the conversation is
// over (farewell or open hostility).
func (l Lexicon) ShouldExitEarly(text string) bool {
	return countMatches(text, l.Farewell) > 0 || countMatches(text, l.Hostile) > 0
}

// outcomeEffect maps an outcome to its relationship event and memory
// importance.
type outcomeEffect struct {
	eventType  string
	magnitude  float64
	importance float64
}

var outcomeEffects = map[Outcome]outcomeEffect{
	OutcomeConflict:  {eventType: "attacked", magnitude: 1.0, importance: 0.85},
	OutcomeAgreement: {eventType: "agreement", magnitude: 1.0, importance: 0.65},
	OutcomeHostile:   {eventType: "insulted", magnitude: 1.0, importance: 0.7},
	OutcomeFriendly:  {eventType: "friendly_chat", magnitude: 1.0, importance: 0.6},
	OutcomeNeutral:   {eventType: "short_talk", magnitude: 0.5, importance: 0.4},
}
