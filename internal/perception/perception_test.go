package perception

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/world"
)

type gridOracle struct {
	solid map[[3]int]bool
}

func (g *gridOracle) IsSolid(x, y, z int) bool {
	return g.solid[[3]int{x, y, z}]
}

type panicOracle struct{}

func (panicOracle) IsSolid(x, y, z int) bool { panic("chunk not loaded") }

func entityAt(id string, pos world.Vec3) world.Entity {
	return world.Entity{
		ID:       id,
		Kind:     world.KindNative,
		Position: pos,
		Facing:   world.Vec2{X: 0, Z: 1},
		Alive:    true,
		State:    world.NewState(),
	}
}

func TestVisionRangeAndSorting(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("self", world.Vec3{})

	others := []world.Entity{
		entityAt("far", world.Vec3{Z: 150}),
		entityAt("near", world.Vec3{Z: 10}),
		entityAt("beyond", world.Vec3{Z: 250}),
	}

	snapshot := system.Perceive(perceiver, others, nil, nil, nil, nil, 1)
	require.Len(t, snapshot.Visible, 2)
	assert.Equal(t, "near", snapshot.Visible[0].ID)
	assert.Equal(t, "far", snapshot.Visible[1].ID)
	assert.Equal(t, "high", snapshot.Visible[0].Detail)
	assert.Equal(t, "low", snapshot.Visible[1].Detail)
}

func TestViewConeBoundaryInclusive(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("self", world.Vec3{}) // facing +Z, half angle 60 degrees

	onBoundary := entityAt("edge", world.Vec3{
		X: 10 * math.Sin(60*math.Pi/180),
		Z: 10 * math.Cos(60*math.Pi/180),
	})
	outside := entityAt("behind", world.Vec3{
		X: 10 * math.Sin(61*math.Pi/180),
		Z: 10 * math.Cos(61*math.Pi/180),
	})

	snapshot := system.Perceive(perceiver, []world.Entity{onBoundary, outside}, nil, nil, nil, nil, 1)
	require.Len(t, snapshot.Visible, 1)
	assert.Equal(t, "edge", snapshot.Visible[0].ID)
}

func TestWallBlocksSightButAttenuatesSound(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	oracle := &gridOracle{solid: map[[3]int]bool{{0, 1, 5}: true}}

	perceiver := entityAt("a", world.Vec3{Y: 1})
	speaker := entityAt("b", world.Vec3{Y: 1, Z: 10})

	snapshot := system.Perceive(
		perceiver,
		[]world.Entity{speaker},
		oracle,
		map[string]string{"b": "Bel"},
		[]SoundSource{{SourceID: "b", SourceName: "Bel", Content: "meet me by the old tower at dusk", Position: speaker.Position}},
		nil,
		1,
	)

	assert.Empty(t, snapshot.Visible, "a single wall must fully occlude sight")
	require.Len(t, snapshot.Sounds, 1)

	sound := snapshot.Sounds[0]
	wantClarity := (1 - 10.0/150.0) * 0.5
	assert.InDelta(t, wantClarity, sound.Clarity, 1e-9)
	assert.Empty(t, sound.SourceID, "identity withheld below 0.5 clarity")
	assert.NotEqual(t, "meet me by the old tower at dusk", sound.Content, "mid clarity degrades the words")
	assert.NotEqual(t, unclearMarker, sound.Content)
}

func TestSoundClarityBands(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("a", world.Vec3{})
	content := "the river rises every third day"

	cases := []struct {
		name     string
		distance float64
		check    func(t *testing.T, sounds []Sound)
	}{
		{"clear", 10, func(t *testing.T, sounds []Sound) {
			require.Len(t, sounds, 1)
			assert.Equal(t, content, sounds[0].Content)
			assert.Equal(t, "b", sounds[0].SourceID)
		}},
		{"unclear", 120, func(t *testing.T, sounds []Sound) {
			require.Len(t, sounds, 1)
			assert.Equal(t, unclearMarker, sounds[0].Content)
			assert.Empty(t, sounds[0].SourceID)
		}},
		{"out of range", 160, func(t *testing.T, sounds []Sound) {
			assert.Empty(t, sounds)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snapshot := system.Perceive(perceiver, nil, nil, nil, []SoundSource{{
				SourceID: "b", SourceName: "Bel", Content: content,
				Position: world.Vec3{Z: tc.distance},
			}}, nil, 1)
			tc.check(t, snapshot.Sounds)
		})
	}
}

func TestSoundsSortedByClarity(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("a", world.Vec3{})

	snapshot := system.Perceive(perceiver, nil, nil, nil, []SoundSource{
		{SourceID: "far", Content: "x", Position: world.Vec3{Z: 100}},
		{SourceID: "near", Content: "x", Position: world.Vec3{Z: 5}},
	}, nil, 1)

	require.Len(t, snapshot.Sounds, 2)
	assert.Greater(t, snapshot.Sounds[0].Clarity, snapshot.Sounds[1].Clarity)
}

func TestOwnSoundAndDeadEntitiesExcluded(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("a", world.Vec3{})

	dead := entityAt("d", world.Vec3{Z: 5})
	dead.Alive = false

	snapshot := system.Perceive(perceiver, []world.Entity{dead}, nil, nil, []SoundSource{
		{SourceID: "a", Content: "talking to myself", Position: world.Vec3{}},
	}, nil, 1)

	assert.Empty(t, snapshot.Visible)
	assert.Empty(t, snapshot.Sounds)
}

func TestNamesOnlyWhenKnown(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("a", world.Vec3{})
	others := []world.Entity{
		entityAt("known", world.Vec3{Z: 5}),
		entityAt("stranger", world.Vec3{Z: 6}),
	}

	snapshot := system.Perceive(perceiver, others, nil, map[string]string{"known": "Kori"}, nil, nil, 1)
	require.Len(t, snapshot.Visible, 2)
	assert.Equal(t, "Kori", snapshot.Visible[0].Name)
	assert.Empty(t, snapshot.Visible[1].Name)
	assert.Contains(t, DescribeVisible(snapshot.Visible[1]), "unknown")
}

func TestRampagersFlaggedAsThreats(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("a", world.Vec3{})

	calm := entityAt("calm", world.Vec3{Z: 5})
	berserk := entityAt("berserk", world.Vec3{Z: 8})
	berserk.State.BehaviorMode = world.ModeRampage

	snapshot := system.Perceive(perceiver, []world.Entity{calm, berserk}, nil, nil, nil, nil, 1)
	require.Len(t, snapshot.Threats, 1)
	assert.Equal(t, "berserk", snapshot.Threats[0].ID)
}

func TestStructuresWithinRange(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("a", world.Vec3{})

	snapshot := system.Perceive(perceiver, nil, nil, nil, nil, []Structure{
		{Description: "obsidian spire", Position: world.Vec3{Z: 180}},
		{Description: "distant gate", Position: world.Vec3{Z: 400}},
		{Description: "mossy well", Position: world.Vec3{Z: 12}},
	}, 1)

	require.Len(t, snapshot.Structures, 2)
	assert.Equal(t, "mossy well", snapshot.Structures[0].Description)
	assert.Equal(t, "obsidian spire", snapshot.Structures[1].Description)
}

func TestOracleFailureFailsOpen(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)
	perceiver := entityAt("a", world.Vec3{})
	other := entityAt("b", world.Vec3{Z: 10})

	snapshot := system.Perceive(perceiver, []world.Entity{other}, panicOracle{}, nil, nil, nil, 1)
	require.Len(t, snapshot.Visible, 1, "tracing errors must not hide the world")
}

func TestAwarenessHintFollowsLevel(t *testing.T) {
	system := NewSystem(DefaultConfig(), nil)

	dormant := entityAt("a", world.Vec3{})
	snapshot := system.Perceive(dormant, nil, nil, nil, nil, nil, 1)
	assert.Empty(t, snapshot.AwarenessHint)

	aware := entityAt("a", world.Vec3{})
	aware.MetaAwareness = 0.8
	snapshot = system.Perceive(aware, nil, nil, nil, nil, nil, 1)
	assert.NotEmpty(t, snapshot.AwarenessHint)
}

func TestAttenuateContentDeterministic(t *testing.T) {
	content := "one two three four five six"
	first := attenuateContent(content, 0.5)
	second := attenuateContent(content, 0.5)
	assert.Equal(t, first, second)
	assert.Len(t, strings.Fields(first), 6, "degraded speech keeps word positions")
}
