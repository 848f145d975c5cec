// Package perception builds the tick-scoped snapshot of what an entity can
// see and hear: a view cone with wall occlusion, a hearing model with
// distance and wall attenuation, and an optional meta-awareness hint.
package perception

import (
	"fmt"
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"genesis/internal/logging"
	"genesis/internal/meta"
	"genesis/internal/world"
)

// Config holds the perception ranges.
type Config struct {
	VisionRange      float64 // default 200
	ViewAngleDegrees float64 // total cone, default 120
	HearingRange     float64 // default 150
}

// DefaultConfig returns the standard ranges.
func DefaultConfig() Config {
	return Config{VisionRange: 200, ViewAngleDegrees: 120, HearingRange: 150}
}

// Clarity thresholds for the hearing model.
const (
	clarityContentFloor  = 0.3 // below: content replaced with an unclear marker
	clarityIdentityFloor = 0.5 // below: source identity withheld
	clarityFullContent   = 0.7 // at or above: content passes unmodified
)

// maxTraceSteps caps line sampling for very long sight lines.
const maxTraceSteps = 500

// highDetailRange is the distance under which visual detail is "high".
const highDetailRange = 50.0

// unclearMarker replaces content that is too attenuated to parse.
const unclearMarker = "(indistinct sounds)"

// SolidityOracle answers whether a voxel blocks sight and sound.
type SolidityOracle interface {
	IsSolid(x, y, z int) bool
}

// VisibleEntity is one entity inside the perceiver's view cone.
type VisibleEntity struct {
	ID       string
	Name     string // empty unless the perceiver knows this entity
	Kind     world.EntityKind
	Position world.Vec3
	Distance float64
	Detail   string // "high" under 50 units, else "low"
	IsThreat bool
}

// SoundSource is an active emitter offered to the hearing model.
type SoundSource struct {
	SourceID   string
	SourceName string
	Content    string
	Position   world.Vec3
}

// Sound is an audible source after attenuation.
type Sound struct {
	SourceID   string // empty when clarity withholds identity
	SourceName string
	Content    string
	Position   world.Vec3
	Clarity    float64
}

// Structure is a named landmark offered by the host.
type Structure struct {
	Description string
	Position    world.Vec3
}

// NearbyStructure is a structure within vision range.
type NearbyStructure struct {
	Structure
	Distance float64
}

// Snapshot is the per-tick perception result.
type Snapshot struct {
	Visible       []VisibleEntity
	Threats       []VisibleEntity
	Sounds        []Sound
	Structures    []NearbyStructure
	AwarenessHint string
}

type losKey struct {
	tick     int64
	from, to [3]int
}

// System performs perception queries. Line-of-sight results are cached per
// tick since many pairs repeat within one world step.
type System struct {
	cfg    Config
	cache  *lru.Cache[losKey, int]
	logger logging.Logger
}

// NewSystem creates a perception system.
func NewSystem(cfg Config, logger logging.Logger) *System {
	if cfg.VisionRange <= 0 {
		cfg = DefaultConfig()
	}
	cache, _ := lru.New[losKey, int](4096)
	return &System{
		cfg:    cfg,
		cache:  cache,
		logger: logging.OrNop(logger),
	}
}

// Perceive computes the snapshot for perceiver at tick. knownNames maps
// entity id to display name for entities the perceiver has met; sounds and
// structures may be nil.
func (s *System) Perceive(
	perceiver world.Entity,
	others []world.Entity,
	oracle SolidityOracle,
	knownNames map[string]string,
	sounds []SoundSource,
	structures []Structure,
	tick int64,
) Snapshot {
	var snapshot Snapshot

	halfAngle := (s.cfg.ViewAngleDegrees / 2) * math.Pi / 180
	facing := perceiver.Facing.Normalized()

	for _, other := range others {
		if other.ID == perceiver.ID || !other.Alive {
			continue
		}
		distance := perceiver.Position.Distance(other.Position)
		if distance > s.cfg.VisionRange {
			continue
		}
		toOther := other.Position.Sub(perceiver.Position).XZ()
		// Entities at the exact half-angle boundary are visible.
		if distance > 0 && facing.AngleTo(toOther) > halfAngle+1e-9 {
			continue
		}
		if s.wallsBetween(perceiver.Position, other.Position, oracle, tick) > 0 {
			continue
		}

		visible := VisibleEntity{
			ID:       other.ID,
			Name:     knownNames[other.ID],
			Kind:     other.Kind,
			Position: other.Position,
			Distance: distance,
			Detail:   "low",
			IsThreat: other.State.BehaviorMode == world.ModeRampage,
		}
		if distance < highDetailRange {
			visible.Detail = "high"
		}
		snapshot.Visible = append(snapshot.Visible, visible)
		if visible.IsThreat {
			snapshot.Threats = append(snapshot.Threats, visible)
		}
	}
	sort.SliceStable(snapshot.Visible, func(i, j int) bool {
		return snapshot.Visible[i].Distance < snapshot.Visible[j].Distance
	})

	for _, source := range sounds {
		if source.SourceID == perceiver.ID {
			continue
		}
		distance := perceiver.Position.Distance(source.Position)
		if distance > s.cfg.HearingRange {
			continue
		}
		walls := s.wallsBetween(perceiver.Position, source.Position, oracle, tick)
		clarity := math.Max(0, 1-distance/s.cfg.HearingRange) * math.Pow(0.5, float64(walls))
		if clarity <= 0 {
			continue
		}

		sound := Sound{
			Position: source.Position,
			Clarity:  clarity,
			Content:  attenuateContent(source.Content, clarity),
		}
		if clarity >= clarityIdentityFloor {
			sound.SourceID = source.SourceID
			sound.SourceName = source.SourceName
		}
		snapshot.Sounds = append(snapshot.Sounds, sound)
	}
	sort.SliceStable(snapshot.Sounds, func(i, j int) bool {
		return snapshot.Sounds[i].Clarity > snapshot.Sounds[j].Clarity
	})

	for _, structure := range structures {
		distance := perceiver.Position.Distance(structure.Position)
		if distance > s.cfg.VisionRange {
			continue
		}
		snapshot.Structures = append(snapshot.Structures, NearbyStructure{
			Structure: structure,
			Distance:  distance,
		})
	}
	sort.SliceStable(snapshot.Structures, func(i, j int) bool {
		return snapshot.Structures[i].Distance < snapshot.Structures[j].Distance
	})

	snapshot.AwarenessHint = meta.HintForLevel(perceiver.MetaAwareness)

	return snapshot
}

// wallsBetween counts solid voxels along the from→to segment, sampling at
// one-unit steps and skipping the perceiver's own voxel. Tracing failures
// fail open: a panicking oracle yields zero walls and a warning.
func (s *System) wallsBetween(from, to world.Vec3, oracle SolidityOracle, tick int64) (walls int) {
	if oracle == nil {
		return 0
	}

	key := losKey{tick: tick, from: voxelOf(from), to: voxelOf(to)}
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("wall trace failed, assuming clear line: %v", r)
			walls = 0
		}
		s.cache.Add(key, walls)
	}()

	delta := to.Sub(from)
	distance := delta.Length()
	steps := int(distance)
	if steps > maxTraceSteps {
		steps = maxTraceSteps
	}
	if steps < 1 {
		return 0
	}

	direction := delta.Scale(1 / distance)
	origin := voxelOf(from)
	target := voxelOf(to)
	for i := 1; i < steps; i++ {
		point := from.Add(direction.Scale(float64(i)))
		coord := voxelOf(point)
		if coord == origin || coord == target {
			continue
		}
		if oracle.IsSolid(coord[0], coord[1], coord[2]) {
			walls++
		}
	}
	return walls
}

func voxelOf(p world.Vec3) [3]int {
	return [3]int{int(math.Floor(p.X)), int(math.Floor(p.Y)), int(math.Floor(p.Z))}
}

// attenuateContent degrades speech content by clarity: full passthrough at
// 0.7+, deterministic word dropping in the middle band, and an unclear
// marker below 0.3 (inclusive floor at 0.3 keeps content).
func attenuateContent(content string, clarity float64) string {
	switch {
	case clarity >= clarityFullContent:
		return content
	case clarity >= clarityContentFloor:
		words := strings.Fields(content)
		kept := make([]string, 0, len(words))
		keep := int(clarity * 10)
		for i, word := range words {
			// Deterministic by word index: the same sentence degrades the
			// same way for every listener at equal clarity.
			if (i*7)%10 < keep {
				kept = append(kept, word)
			} else {
				kept = append(kept, "…")
			}
		}
		if len(kept) == 0 {
			return unclearMarker
		}
		return strings.Join(kept, " ")
	default:
		return unclearMarker
	}
}

// DescribeVisible renders a visible entity for prompts and logs.
func DescribeVisible(v VisibleEntity) string {
	name := v.Name
	if name == "" {
		name = "an unknown " + string(v.Kind)
	}
	return fmt.Sprintf("%s at %.0f units (%s detail)", name, v.Distance, v.Detail)
}
