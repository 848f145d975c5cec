// Package sandbox runs LLM-authored code in an isolated child process. Code
// is extracted from fenced blocks, pre-validated (python), executed under a
// harness that exposes a restricted world capability, and returned as a
// structured result. Failures never propagate as errors; every path yields
// a Result.
package sandbox

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"genesis/internal/logging"
	"genesis/internal/observability"
	"genesis/internal/world"
)

//go:embed assets/harness.py
var pythonHarness []byte

//go:embed assets/harness.js
var jsHarness []byte

// ResultMarker prefixes the single stdout line carrying the child's result.
const ResultMarker = "__GENESIS_RESULT__"

// maxCapturedOutput truncates child stdout/stderr capture.
const maxCapturedOutput = 2000

// ResultKind classifies a sandbox run.
type ResultKind string

const (
	ResultOK             ResultKind = "ok"
	ResultForbidden      ResultKind = "forbidden"
	ResultTimeout        ResultKind = "timeout"
	ResultRuntimeMissing ResultKind = "runtime_missing"
	ResultCrash          ResultKind = "crash"
)

// CapturedAction is one world call recorded by the harness.
type CapturedAction struct {
	Type  string  `json:"type"`
	Msg   string  `json:"msg,omitempty"`
	DX    float64 `json:"dx,omitempty"`
	DZ    float64 `json:"dz,omitempty"`
	X     int     `json:"x,omitempty"`
	Y     int     `json:"y,omitempty"`
	Z     int     `json:"z,omitempty"`
	Color string  `json:"color,omitempty"`
	Text  string  `json:"text,omitempty"`
}

// Result is the structured outcome of one code block.
type Result struct {
	Success bool             `json:"success"`
	Kind    ResultKind       `json:"kind"`
	Error   string           `json:"error,omitempty"`
	Actions []CapturedAction `json:"actions"`
	Outputs []string         `json:"outputs"`
}

func failure(kind ResultKind, err string) Result {
	return Result{Kind: kind, Error: err, Actions: []CapturedAction{}, Outputs: []string{}}
}

// NearbyEntity is what get_nearby_entities exposes to the child.
type NearbyEntity struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Distance float64 `json:"distance"`
}

// Env is the world view handed to the child via the descriptor.
type Env struct {
	Position world.Vec3
	Nearby   []NearbyEntity
}

// descriptor is the structured stdin record the harness reads.
type descriptor struct {
	Code     string         `json:"code"`
	Position map[string]any `json:"position"`
	Nearby   []NearbyEntity `json:"nearby"`
}

// harnessPayload is the JSON object after the result marker.
type harnessPayload struct {
	Actions []CapturedAction `json:"actions"`
	Outputs []string         `json:"outputs"`
}

// Config selects runtimes and the wall-clock budget.
type Config struct {
	PythonRuntime string        // default "python3"
	NodeRuntime   string        // default "node"
	Timeout       time.Duration // default 5s
}

// Runner executes code blocks.
type Runner struct {
	cfg     Config
	logger  logging.Logger
	metrics *observability.Metrics
}

// NewRunner creates a sandbox runner.
func NewRunner(cfg Config, logger logging.Logger) *Runner {
	if cfg.PythonRuntime == "" {
		cfg.PythonRuntime = "python3"
	}
	if cfg.NodeRuntime == "" {
		cfg.NodeRuntime = "node"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Runner{cfg: cfg, logger: logging.OrNop(logger)}
}

// SetMetrics enables per-run counting. Safe to skip; counting is optional.
func (r *Runner) SetMetrics(metrics *observability.Metrics) {
	r.metrics = metrics
}

// RunAll extracts code blocks from LLM text and runs each, returning one
// result per block. Text with no blocks yields an empty slice.
func (r *Runner) RunAll(ctx context.Context, text string, env Env) []Result {
	blocks := ExtractCodeBlocks(text)
	results := make([]Result, 0, len(blocks))
	for _, block := range blocks {
		results = append(results, r.Run(ctx, block, env))
	}
	return results
}

// Run executes a single code block. Python blocks failing validation never
// spawn a process.
func (r *Runner) Run(ctx context.Context, block CodeBlock, env Env) Result {
	result := r.run(ctx, block, env)
	r.metrics.CountSandboxRun(string(result.Kind))
	return result
}

func (r *Runner) run(ctx context.Context, block CodeBlock, env Env) Result {
	if block.Language == LangPython {
		if err := ValidatePython(block.Code); err != nil {
			r.logger.Warn("sandbox rejected code: %v", err)
			return failure(ResultForbidden, err.Error())
		}
	}

	harness, runtime := pythonHarness, r.cfg.PythonRuntime
	suffix := ".py"
	if block.Language == LangJavaScript {
		harness, runtime = jsHarness, r.cfg.NodeRuntime
		suffix = ".js"
	}

	harnessPath, cleanup, err := writeHarness(harness, suffix)
	if err != nil {
		return failure(ResultCrash, "harness setup: "+err.Error())
	}
	defer cleanup()

	input, err := json.Marshal(descriptor{
		Code: block.Code,
		Position: map[string]any{
			"x": env.Position.X, "y": env.Position.Y, "z": env.Position.Z,
		},
		Nearby: env.Nearby,
	})
	if err != nil {
		return failure(ResultCrash, "descriptor encode: "+err.Error())
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, runtime, harnessPath)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		r.logger.Warn("sandbox timeout after %s", r.cfg.Timeout)
		return failure(ResultTimeout, fmt.Sprintf("execution exceeded %s", r.cfg.Timeout))
	case errors.Is(runErr, exec.ErrNotFound):
		return failure(ResultRuntimeMissing, runtime+" not found")
	}

	payload, found := extractPayload(stdout.String())
	if found {
		return Result{
			Success: true,
			Kind:    ResultOK,
			Actions: payload.Actions,
			Outputs: payload.Outputs,
		}
	}

	message := cleanStderr(stderr.String())
	if message == "" && runErr != nil {
		message = runErr.Error()
	}
	if message == "" {
		message = "no result produced"
	}
	return failure(ResultCrash, truncate(message, maxCapturedOutput))
}

// extractPayload finds the marker line and decodes the JSON after it,
// repairing slightly malformed output.
func extractPayload(stdout string) (harnessPayload, bool) {
	var payload harnessPayload
	for _, line := range strings.Split(stdout, "\n") {
		if !strings.HasPrefix(line, ResultMarker) {
			continue
		}
		raw := strings.TrimPrefix(line, ResultMarker)
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			return payload, true
		}
		repaired, err := jsonrepair.JSONRepair(raw)
		if err != nil {
			return payload, false
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return payload, false
		}
		return payload, true
	}
	return payload, false
}

// cleanStderr drops harness plumbing lines so the agent sees only its own
// error.
func cleanStderr(stderr string) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		if strings.Contains(line, "harness") || strings.Contains(line, ResultMarker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func writeHarness(content []byte, suffix string) (string, func(), error) {
	file, err := os.CreateTemp("", "genesis-harness-*"+suffix)
	if err != nil {
		return "", nil, err
	}
	path := file.Name()
	if _, err := file.Write(content); err != nil {
		file.Close()
		os.Remove(path)
		return "", nil, err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}
	return path, func() { os.Remove(filepath.Clean(path)) }, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
