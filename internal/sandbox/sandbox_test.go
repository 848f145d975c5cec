package sandbox

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/memory"
	"genesis/internal/voxel"
	"genesis/internal/world"
)

func TestExtractCodeBlocks(t *testing.T) {
	text := "Let me try something.\n" +
		"```python\nworld.say('hi')\n```\n" +
		"and also\n" +
		"```js\nworld.move(1, 2);\n```\n" +
		"```\nprint('untagged')\n```\n" +
		"```py\nx = 1\n```\n"

	blocks := ExtractCodeBlocks(text)
	require.Len(t, blocks, 3, "extraction caps at three blocks")
	assert.Equal(t, LangPython, blocks[0].Language)
	assert.Equal(t, "world.say('hi')", blocks[0].Code)
	assert.Equal(t, LangJavaScript, blocks[1].Language)
	assert.Equal(t, LangPython, blocks[2].Language, "untagged fences default to python")
}

func TestExtractSkipsOversizeBlocks(t *testing.T) {
	huge := strings.Repeat("x = 1\n", 1200) // > 5000 chars
	text := "```python\n" + huge + "```\n```python\ny = 2\n```"
	blocks := ExtractCodeBlocks(text)
	require.Len(t, blocks, 1)
	assert.Equal(t, "y = 2", blocks[0].Code)
}

func TestValidatePython(t *testing.T) {
	cases := []struct {
		name string
		code string
		want string // substring of the error, empty = pass
	}{
		{"import os", "import os\nos.system('x')", "Forbidden operation: import os"},
		{"from import", "from pathlib import Path", "from import"},
		{"dunder", "x.__class__", "dunder"},
		{"eval", "eval('1+1')", "eval"},
		{"open", "open('/etc/passwd')", "open"},
		{"getattr", "getattr(world, 'say')", "getattr"},
		{"benign", "total = sum(range(10))\nworld.say(str(total))", ""},
		{"substring not import", "osmosis = 1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePython(tc.code)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestForbiddenCodeNeverSpawns(t *testing.T) {
	// Point the runner at a runtime that would fail loudly if invoked.
	runner := NewRunner(Config{PythonRuntime: "/nonexistent/python"}, nil)
	result := runner.Run(context.Background(), CodeBlock{
		Language: LangPython,
		Code:     "import os\nos.system('x')",
	}, Env{})

	assert.False(t, result.Success)
	assert.Equal(t, ResultForbidden, result.Kind)
	assert.Equal(t, "Forbidden operation: import os", result.Error)
	assert.Empty(t, result.Actions)
}

func TestMissingRuntimeReported(t *testing.T) {
	runner := NewRunner(Config{PythonRuntime: "definitely-not-a-python"}, nil)
	result := runner.Run(context.Background(), CodeBlock{
		Language: LangPython,
		Code:     "world.say('hi')",
	}, Env{})
	assert.Equal(t, ResultRuntimeMissing, result.Kind)
}

func TestExtractPayload(t *testing.T) {
	payload, ok := extractPayload("noise\n" + ResultMarker + `{"actions":[{"type":"say","msg":"hi"}],"outputs":["x"]}` + "\n")
	require.True(t, ok)
	require.Len(t, payload.Actions, 1)
	assert.Equal(t, "say", payload.Actions[0].Type)
	assert.Equal(t, []string{"x"}, payload.Outputs)

	// Slightly broken JSON gets repaired.
	payload, ok = extractPayload(ResultMarker + `{"actions":[{"type":"say","msg":"hi"},],"outputs":[]}`)
	require.True(t, ok)
	assert.Len(t, payload.Actions, 1)

	_, ok = extractPayload("no marker here")
	assert.False(t, ok)
}

func TestPythonHarnessRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	runner := NewRunner(Config{}, nil)
	result := runner.Run(context.Background(), CodeBlock{
		Language: LangPython,
		Code: "pos = world.get_position()\n" +
			"world.say('at ' + str(pos['x']))\n" +
			"world.move(40, -40)\n" +
			"world.remember('the plain is empty')\n" +
			"print('done')",
	}, Env{Position: world.Vec3{X: 3.5}})

	require.True(t, result.Success, "error: %s", result.Error)
	require.Len(t, result.Actions, 3)
	assert.Equal(t, "say", result.Actions[0].Type)
	assert.Equal(t, "at 3.5", result.Actions[0].Msg)
	assert.Equal(t, 15.0, result.Actions[1].DX, "moves clamp to +-15")
	assert.Equal(t, -15.0, result.Actions[1].DZ)
	assert.Equal(t, []string{"done"}, result.Outputs)
}

func TestPythonHarnessUserErrorIsCrash(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	runner := NewRunner(Config{}, nil)
	result := runner.Run(context.Background(), CodeBlock{
		Language: LangPython,
		Code:     "raise ValueError('boom')",
	}, Env{})
	assert.Equal(t, ResultCrash, result.Kind)
	assert.Contains(t, result.Error, "boom")
}

func TestPythonHarnessTimeout(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	runner := NewRunner(Config{Timeout: 300 * time.Millisecond}, nil)
	result := runner.Run(context.Background(), CodeBlock{
		Language: LangPython,
		Code:     "while True:\n    pass",
	}, Env{})
	assert.Equal(t, ResultTimeout, result.Kind)
}

func TestJavaScriptHarnessRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node not available")
	}
	runner := NewRunner(Config{}, nil)
	result := runner.Run(context.Background(), CodeBlock{
		Language: LangJavaScript,
		Code:     "world.place_block(1, 2, 3, 'crimson-red');\nprint('built');",
	}, Env{})

	require.True(t, result.Success, "error: %s", result.Error)
	require.Len(t, result.Actions, 1)
	assert.Equal(t, "place_block", result.Actions[0].Type)
	assert.Equal(t, "crimson", result.Actions[0].Color, "colors clamp to 7 chars")
	assert.Equal(t, []string{"built"}, result.Outputs)
}

func TestApplyActions(t *testing.T) {
	ctx := context.Background()
	engine := voxel.NewMemoryEngine()
	memories := memory.NewManager(memory.NewInMemoryStore(), nil, nil)
	events := world.NewEventLog(100, nil, nil, nil)

	entity := world.Entity{ID: "e1", Alive: true, Position: world.Vec3{X: 1}}
	result := Result{
		Success: true,
		Kind:    ResultOK,
		Actions: []CapturedAction{
			{Type: "say", Msg: "hello"},
			{Type: "move", DX: 4, DZ: 0},
			{Type: "place_block", X: 5, Y: 1, Z: 5, Color: "red"},
			{Type: "remember", Text: "found a ridge"},
		},
	}

	Apply(ctx, &entity, result, 42, ApplyDeps{
		Voxels:   engine,
		Memories: memories,
		Events:   events,
	})

	assert.Equal(t, 5.0, entity.Position.X)
	assert.Equal(t, 1, engine.CountBlocks())

	episodes, err := memories.TopEpisodes(ctx, "e1", 10)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Equal(t, 0.5, episodes[0].Importance)
	assert.Equal(t, memory.TypeCode, episodes[0].Type)

	recorded := events.Recent(0)
	require.Len(t, recorded, 2, "say and place_block each produce one event")
}

func TestApplySkipsFailedResults(t *testing.T) {
	entity := world.Entity{ID: "e1", Position: world.Vec3{X: 1}}
	Apply(context.Background(), &entity, Result{
		Success: false,
		Kind:    ResultTimeout,
		Actions: []CapturedAction{{Type: "move", DX: 5}},
	}, 1, ApplyDeps{})
	assert.Equal(t, 1.0, entity.Position.X, "failed runs must not mutate the world")
}
