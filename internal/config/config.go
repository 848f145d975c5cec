package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RuntimeConfig captures user-configurable settings shared across binaries.
type RuntimeConfig struct {
	// World loop
	TickRateHz           float64 `json:"tick_rate_hz" yaml:"tick_rate_hz"`
	MaxEntityConcurrency int     `json:"max_entity_concurrency" yaml:"max_entity_concurrency"`

	// Perception
	VisionRange      float64 `json:"vision_range" yaml:"vision_range"`
	ViewAngleDegrees float64 `json:"view_angle" yaml:"view_angle"`
	HearingRange     float64 `json:"hearing_range" yaml:"hearing_range"`
	InteractionRange float64 `json:"interaction_range" yaml:"interaction_range"`

	// Conversation
	ConversationCooldown int     `json:"conversation_cooldown" yaml:"conversation_cooldown"`
	SocialNeedThreshold  float64 `json:"social_need_threshold" yaml:"social_need_threshold"`

	// LLM
	LLMProvider       string `json:"llm_provider" yaml:"llm_provider"`
	LLMModel          string `json:"llm_model" yaml:"llm_model"`
	LLMSmallModel     string `json:"llm_small_model" yaml:"llm_small_model"`
	LLMBaseURL        string `json:"llm_base_url" yaml:"llm_base_url"`
	LLMTimeoutSeconds int    `json:"llm_timeout_seconds" yaml:"llm_timeout_seconds"`
	MaxLLMConcurrency int    `json:"max_llm_concurrency" yaml:"max_llm_concurrency"`

	// Sandbox
	SandboxTimeoutSeconds int    `json:"sandbox_timeout" yaml:"sandbox_timeout"`
	PythonRuntime         string `json:"python_runtime" yaml:"python_runtime"`
	NodeRuntime           string `json:"node_runtime" yaml:"node_runtime"`

	// God loop cadences, in ticks.
	GodObservationInterval int `json:"god_observation_interval" yaml:"god_observation_interval"`
	GodSuccessionInterval  int `json:"god_succession_interval" yaml:"god_succession_interval"`
	GodWorldUpdateInterval int `json:"god_world_update_interval" yaml:"god_world_update_interval"`

	// Persistence
	StorePath string `json:"store_path" yaml:"store_path"`

	Verbose bool `json:"verbose" yaml:"verbose"`
}

// Default returns the baseline configuration before file/env overrides.
func Default() RuntimeConfig {
	return RuntimeConfig{
		TickRateHz:             1,
		MaxEntityConcurrency:   0, // 0 = number of CPU cores
		VisionRange:            200,
		ViewAngleDegrees:       120,
		HearingRange:           150,
		InteractionRange:       5,
		ConversationCooldown:   20,
		SocialNeedThreshold:    60,
		LLMProvider:            "ollama",
		LLMModel:               "llama3.1:8b",
		LLMSmallModel:          "llama3.2:1b",
		LLMBaseURL:             "http://localhost:11434",
		LLMTimeoutSeconds:      60,
		MaxLLMConcurrency:      8,
		SandboxTimeoutSeconds:  5,
		PythonRuntime:          "python3",
		NodeRuntime:            "node",
		GodObservationInterval: 900,
		GodSuccessionInterval:  1800,
		GodWorldUpdateInterval: 3600,
		StorePath:              "genesis.db",
	}
}

// EnvLookup resolves an environment variable, mirroring os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// Load builds the runtime configuration from defaults plus GENESIS_*
// environment overrides. File-level overrides are applied by the CLI through
// viper before this env pass.
func Load(lookup EnvLookup) (RuntimeConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()
	if err := applyEnv(&cfg, lookup); err != nil {
		return RuntimeConfig{}, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overlays GENESIS_* environment overrides onto cfg. The CLI calls
// this after file-level overrides so the precedence is defaults, file, env.
func ApplyEnv(cfg *RuntimeConfig, lookup EnvLookup) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return applyEnv(cfg, lookup)
}

func applyEnv(cfg *RuntimeConfig, lookup EnvLookup) error {
	var err error
	setFloat := func(key string, dst *float64) {
		if err != nil {
			return
		}
		if raw, ok := lookup(key); ok {
			parsed, parseErr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if parseErr != nil {
				err = fmt.Errorf("invalid %s: %w", key, parseErr)
				return
			}
			*dst = parsed
		}
	}
	setInt := func(key string, dst *int) {
		if err != nil {
			return
		}
		if raw, ok := lookup(key); ok {
			parsed, parseErr := strconv.Atoi(strings.TrimSpace(raw))
			if parseErr != nil {
				err = fmt.Errorf("invalid %s: %w", key, parseErr)
				return
			}
			*dst = parsed
		}
	}
	setString := func(key string, dst *string) {
		if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
			*dst = strings.TrimSpace(raw)
		}
	}

	setFloat("GENESIS_TICK_RATE_HZ", &cfg.TickRateHz)
	setInt("GENESIS_MAX_ENTITY_CONCURRENCY", &cfg.MaxEntityConcurrency)
	setFloat("GENESIS_VISION_RANGE", &cfg.VisionRange)
	setFloat("GENESIS_VIEW_ANGLE", &cfg.ViewAngleDegrees)
	setFloat("GENESIS_HEARING_RANGE", &cfg.HearingRange)
	setFloat("GENESIS_INTERACTION_RANGE", &cfg.InteractionRange)
	setInt("GENESIS_CONVERSATION_COOLDOWN", &cfg.ConversationCooldown)
	setFloat("GENESIS_SOCIAL_NEED_THRESHOLD", &cfg.SocialNeedThreshold)
	setString("GENESIS_LLM_PROVIDER", &cfg.LLMProvider)
	setString("GENESIS_LLM_MODEL", &cfg.LLMModel)
	setString("GENESIS_LLM_SMALL_MODEL", &cfg.LLMSmallModel)
	setString("GENESIS_LLM_BASE_URL", &cfg.LLMBaseURL)
	setInt("GENESIS_LLM_TIMEOUT_SECONDS", &cfg.LLMTimeoutSeconds)
	setInt("GENESIS_MAX_LLM_CONCURRENCY", &cfg.MaxLLMConcurrency)
	setInt("GENESIS_SANDBOX_TIMEOUT", &cfg.SandboxTimeoutSeconds)
	setString("GENESIS_PYTHON_RUNTIME", &cfg.PythonRuntime)
	setString("GENESIS_NODE_RUNTIME", &cfg.NodeRuntime)
	setString("GENESIS_STORE_PATH", &cfg.StorePath)
	if raw, ok := lookup("GENESIS_VERBOSE"); ok {
		cfg.Verbose = raw == "1" || strings.EqualFold(raw, "true")
	}

	return err
}

// Normalize clamps nonsensical values back to safe defaults.
func (c *RuntimeConfig) Normalize() {
	def := Default()
	if c.TickRateHz <= 0 {
		c.TickRateHz = def.TickRateHz
	}
	if c.VisionRange <= 0 {
		c.VisionRange = def.VisionRange
	}
	if c.ViewAngleDegrees <= 0 || c.ViewAngleDegrees > 360 {
		c.ViewAngleDegrees = def.ViewAngleDegrees
	}
	if c.HearingRange <= 0 {
		c.HearingRange = def.HearingRange
	}
	if c.InteractionRange <= 0 {
		c.InteractionRange = def.InteractionRange
	}
	if c.ConversationCooldown < 0 {
		c.ConversationCooldown = def.ConversationCooldown
	}
	if c.MaxLLMConcurrency <= 0 {
		c.MaxLLMConcurrency = def.MaxLLMConcurrency
	}
	if c.SandboxTimeoutSeconds <= 0 {
		c.SandboxTimeoutSeconds = def.SandboxTimeoutSeconds
	}
	if c.GodObservationInterval <= 0 {
		c.GodObservationInterval = def.GodObservationInterval
	}
	if c.GodSuccessionInterval <= 0 {
		c.GodSuccessionInterval = def.GodSuccessionInterval
	}
	if c.GodWorldUpdateInterval <= 0 {
		c.GodWorldUpdateInterval = def.GodWorldUpdateInterval
	}
}

// TickInterval converts the configured rate into a loop period.
func (c RuntimeConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.TickRateHz)
}

// SandboxTimeout returns the sandbox wall-clock budget.
func (c RuntimeConfig) SandboxTimeout() time.Duration {
	return time.Duration(c.SandboxTimeoutSeconds) * time.Second
}
