// Package config loads the driver configuration once at startup.
// Everything downstream receives an explicit Config; no other package
// reads the process environment, so tests stay deterministic.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the resolved driver configuration: tool locations, library
// roots, and the flag overrides the original environment variables
// carried.
type Config struct {
	// SDKPath overrides SDK installation discovery.
	SDKPath string `mapstructure:"sdk_path"`

	// GCNRoot overrides the alternate-family device-library root.
	GCNRoot string `mapstructure:"gcn_root"`

	// ToolDir holds the driver-bundled tools (llvm-link, opt, llc, lld,
	// llvm-nm, clang-fixup-fatbin).
	ToolDir string `mapstructure:"tool_dir"`

	// ResourceDir is the host compiler resource directory holding the
	// wrapper headers.
	ResourceDir string `mapstructure:"resource_dir"`

	// AssemblerPath and PackagerPath override the SDK-provided tools.
	AssemblerPath string `mapstructure:"assembler_path"`
	PackagerPath  string `mapstructure:"packager_path"`

	// LinkFlags are appended verbatim to the bitcode merge stage.
	LinkFlags []string `mapstructure:"link_flags"`

	// OptFlags replace the optimize stage's default flags when set.
	OptFlags []string `mapstructure:"opt_flags"`

	// LowerFlags are extra flags for the codegen stage.
	LowerFlags []string `mapstructure:"lower_flags"`
}

// Load builds the configuration from defaults, an optional config file,
// and the environment. Env keys use the OFFLOADC_ prefix; the legacy
// variable names the original driver honored are kept as fallbacks.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OFFLOADC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees bound keys, so every key is bound explicitly.
	for _, key := range []string{
		"sdk_path", "tool_dir", "resource_dir", "assembler_path", "packager_path",
	} {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("gcn_root", "OFFLOADC_GCN_ROOT", "LIBAMDGCN")
	_ = v.BindEnv("link_flags", "OFFLOADC_LINK_FLAGS", "CLANG_TARGET_LINK_OPTS")
	_ = v.BindEnv("opt_flags", "OFFLOADC_OPT_FLAGS", "CLANG_TARGET_OPT_OPTS")
	_ = v.BindEnv("lower_flags", "OFFLOADC_LOWER_FLAGS", "CLANG_TARGET_LLC_OPTS")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	// Env-sourced flag lists are space-separated strings.
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(" "),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
