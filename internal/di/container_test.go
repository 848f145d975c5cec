package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/config"
	"genesis/internal/world"
)

func testConfig(t *testing.T) config.RuntimeConfig {
	t.Helper()
	cfg := config.Default()
	cfg.LLMProvider = "mock"
	cfg.StorePath = filepath.Join(t.TempDir(), "genesis.db")
	return cfg
}

func TestBuildContainerFreshWorld(t *testing.T) {
	c, err := BuildContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Cleanup()

	require.NotNil(t, c.World)
	require.NotNil(t, c.God)
	assert.Equal(t, 1, c.World.AliveCount(), "a fresh world gets its god")

	godEntity, ok := c.World.Lookup(c.GodID)
	require.True(t, ok)
	assert.Equal(t, world.KindGod, godEntity.Kind)
	assert.Equal(t, DefaultGodName, godEntity.Name)
	assert.Equal(t, 1.0, godEntity.MetaAwareness)
}

func TestContainerRunsTicksAndPersists(t *testing.T) {
	cfg := testConfig(t)
	c, err := BuildContainer(cfg)
	require.NoError(t, err)

	_, err = c.World.SpawnNative("Ash", world.Vec3{X: 1})
	require.NoError(t, err)
	c.World.RunTick(context.Background())
	require.NoError(t, c.Cleanup())

	// The same store path restores the population, god included, and the
	// second build does not spawn another god.
	c, err = BuildContainer(cfg)
	require.NoError(t, err)
	defer c.Cleanup()
	assert.Equal(t, 2, c.World.AliveCount())

	godCount := 0
	for _, snapshot := range c.World.Snapshots() {
		if snapshot.Kind == world.KindGod {
			godCount++
		}
	}
	assert.Equal(t, 1, godCount)
}

func TestContainerSandboxWired(t *testing.T) {
	c, err := BuildContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Cleanup()

	require.NotNil(t, c.Sandbox)
	entity, err := c.World.SpawnNative("Ash", world.Vec3{})
	require.NoError(t, err)

	// Forbidden code never spawns a process, so this is safe without a
	// python runtime, and still leaves a code_executed event.
	results := c.Sandbox.ExecuteText(context.Background(), entity,
		"```python\nimport os\n```", 1)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)

	found := false
	for _, event := range c.Events.Recent(0) {
		if event.Type == world.EventCodeExecuted {
			found = true
			assert.Equal(t, world.ResultRejected, event.Result)
		}
	}
	assert.True(t, found)
}
