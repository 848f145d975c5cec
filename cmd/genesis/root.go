package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"genesis/internal/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "genesis",
		Short: "A persistent world of autonomous AI entities",
		Long: "Genesis runs a tick-driven voxel world where AI entities perceive,\n" +
			"plan, build, talk, and occasionally notice they are being watched.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default: genesis.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(newRunCmd())

	viper.SetConfigName("genesis")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")

	return rootCmd
}

// loadConfig resolves the runtime configuration: defaults, then the config
// file, then GENESIS_* environment overrides, then flags.
func loadConfig(cmd *cobra.Command) (config.RuntimeConfig, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	applyViper(&cfg)

	if err := config.ApplyEnv(&cfg, nil); err != nil {
		return cfg, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	cfg.Normalize()
	return cfg, nil
}

func applyViper(cfg *config.RuntimeConfig) {
	setFloat := func(key string, dst *float64) {
		if viper.IsSet(key) {
			*dst = viper.GetFloat64(key)
		}
	}
	setInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}
	setString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}

	setFloat("tick_rate_hz", &cfg.TickRateHz)
	setInt("max_entity_concurrency", &cfg.MaxEntityConcurrency)
	setFloat("vision_range", &cfg.VisionRange)
	setFloat("view_angle", &cfg.ViewAngleDegrees)
	setFloat("hearing_range", &cfg.HearingRange)
	setFloat("interaction_range", &cfg.InteractionRange)
	setInt("conversation_cooldown", &cfg.ConversationCooldown)
	setFloat("social_need_threshold", &cfg.SocialNeedThreshold)
	setString("llm_provider", &cfg.LLMProvider)
	setString("llm_model", &cfg.LLMModel)
	setString("llm_small_model", &cfg.LLMSmallModel)
	setString("llm_base_url", &cfg.LLMBaseURL)
	setInt("llm_timeout_seconds", &cfg.LLMTimeoutSeconds)
	setInt("max_llm_concurrency", &cfg.MaxLLMConcurrency)
	setInt("sandbox_timeout", &cfg.SandboxTimeoutSeconds)
	setString("python_runtime", &cfg.PythonRuntime)
	setString("node_runtime", &cfg.NodeRuntime)
	setInt("god_observation_interval", &cfg.GodObservationInterval)
	setInt("god_succession_interval", &cfg.GodSuccessionInterval)
	setInt("god_world_update_interval", &cfg.GodWorldUpdateInterval)
	setString("store_path", &cfg.StorePath)
	if viper.IsSet("verbose") {
		cfg.Verbose = viper.GetBool("verbose")
	}
}
