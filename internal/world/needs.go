package world

// NeedKind names one of the eight scalar drives.
type NeedKind string

const (
	NeedCuriosity     NeedKind = "curiosity"
	NeedSocial        NeedKind = "social"
	NeedCreation      NeedKind = "creation"
	NeedDominance     NeedKind = "dominance"
	NeedSafety        NeedKind = "safety"
	NeedExpression    NeedKind = "expression"
	NeedUnderstanding NeedKind = "understanding"
	NeedEnergy        NeedKind = "energy"
)

// AllNeeds lists every need in a stable order.
var AllNeeds = []NeedKind{
	NeedCuriosity,
	NeedSocial,
	NeedCreation,
	NeedDominance,
	NeedSafety,
	NeedExpression,
	NeedUnderstanding,
	NeedEnergy,
}

// Needs holds the eight drives, each in [0,100]. Energy drains over time;
// the others accumulate until satisfied by actions.
type Needs struct {
	Curiosity     float64 `json:"curiosity"`
	Social        float64 `json:"social"`
	Creation      float64 `json:"creation"`
	Dominance     float64 `json:"dominance"`
	Safety        float64 `json:"safety"`
	Expression    float64 `json:"expression"`
	Understanding float64 `json:"understanding"`
	Energy        float64 `json:"energy"`
}

// DefaultNeeds returns the birth values: 50 everywhere except dominance=30,
// safety=20, energy=100.
func DefaultNeeds() Needs {
	return Needs{
		Curiosity:     50,
		Social:        50,
		Creation:      50,
		Dominance:     30,
		Safety:        20,
		Expression:    50,
		Understanding: 50,
		Energy:        100,
	}
}

// Get returns the value for kind.
func (n Needs) Get(kind NeedKind) float64 {
	switch kind {
	case NeedCuriosity:
		return n.Curiosity
	case NeedSocial:
		return n.Social
	case NeedCreation:
		return n.Creation
	case NeedDominance:
		return n.Dominance
	case NeedSafety:
		return n.Safety
	case NeedExpression:
		return n.Expression
	case NeedUnderstanding:
		return n.Understanding
	case NeedEnergy:
		return n.Energy
	}
	return 0
}

// Set assigns the value for kind.
func (n *Needs) Set(kind NeedKind, value float64) {
	switch kind {
	case NeedCuriosity:
		n.Curiosity = value
	case NeedSocial:
		n.Social = value
	case NeedCreation:
		n.Creation = value
	case NeedDominance:
		n.Dominance = value
	case NeedSafety:
		n.Safety = value
	case NeedExpression:
		n.Expression = value
	case NeedUnderstanding:
		n.Understanding = value
	case NeedEnergy:
		n.Energy = value
	}
}

// Add offsets the value for kind by delta, without clamping. Callers clamp at
// the end of the tick (step 12).
func (n *Needs) Add(kind NeedKind, delta float64) {
	n.Set(kind, n.Get(kind)+delta)
}

// Clamp limits every need to [0,100].
func (n *Needs) Clamp() {
	for _, kind := range AllNeeds {
		n.Set(kind, Clamp(n.Get(kind), 0, 100))
	}
}

// CriticalCount reports how many non-energy needs exceed the threshold.
func (n Needs) CriticalCount(threshold float64) int {
	count := 0
	for _, kind := range AllNeeds {
		if kind == NeedEnergy {
			continue
		}
		if n.Get(kind) > threshold {
			count++
		}
	}
	return count
}
