// Package kconfig loads kernel configuration with koanf v2, layering
// built-in defaults, an optional YAML file, and environment variable
// overrides, in that precedence order -- the same three-layer pattern
// the rest of this module's ambient stack uses for every other
// configuration surface.
package kconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// RingConfig carries the io_uring-backend tunables: a provided-buffer
// ring of {entries, entry_size}.
type RingConfig struct {
	Entries   uint32 `koanf:"entries"`
	EntrySize uint32 `koanf:"entry_size"`
}

// Config is the full set of kernel tunables: quit_timeout_ms,
// poll_timeout_ns, optional emulated kernel
// version, optional provided-buffer ring {entries, entry_size}. No
// environment variables or on-disk state are part of the kernel's own
// semantics -- this package exists so a host process can still configure
// the ambient knobs (queue backend choice, logging, metrics) the way the
// rest of this module's stack is configured, without the kernel itself
// depending on koanf.
type Config struct {
	QuitTimeout          time.Duration `koanf:"quit_timeout_ms"`
	PollTimeout          time.Duration `koanf:"poll_timeout_ns"`
	EmulatedKernelVersion string       `koanf:"emulated_kernel_version"`
	Ring                  RingConfig   `koanf:"provided_buffer_ring"`

	// QueueBackend selects "multimap" (portable, default) or "ring"
	// (Linux io_uring). Requesting "ring" on a non-Linux GOOS or a
	// kernel without io_uring support falls back to "multimap".
	QueueBackend string `koanf:"queue_backend"`

	// LogLevel and LogFormat are carried into the root package's Config;
	// nothing in this module applies them to internal/klog's
	// package-global logger.
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// MetricsEnabled toggles internal/kmetrics collection.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// SupervisorRestartIntensity and SupervisorRestartPeriod are loaded
	// here only; internal/supervisor's TreeConfig has its own
	// failure-threshold fields and does not read them.
	SupervisorRestartIntensity int           `koanf:"supervisor_restart_intensity"`
	SupervisorRestartPeriod    time.Duration `koanf:"supervisor_restart_period"`
}

// Default returns the built-in defaults, applied before any file or
// environment layer.
func Default() Config {
	return Config{
		QuitTimeout:                5 * time.Second,
		PollTimeout:                1 * time.Millisecond,
		EmulatedKernelVersion:      "",
		Ring:                       RingConfig{Entries: 256, EntrySize: 4096},
		QueueBackend:               "multimap",
		LogLevel:                   "info",
		LogFormat:                  "json",
		MetricsEnabled:             true,
		SupervisorRestartIntensity: 5,
		SupervisorRestartPeriod:    1 * time.Minute,
	}
}

// ConfigPathEnvVar overrides the config file search with an explicit
// path.
const ConfigPathEnvVar = "ICHOR_CONFIG_PATH"

// DefaultConfigPaths lists the paths searched, in order, for a config
// file when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"ichor.yaml",
	"ichor.yml",
	"/etc/ichor/ichor.yaml",
}

// Load builds a Config from defaults, an optional YAML file, and
// environment variables prefixed ICHOR_ (ICHOR_QUIT_TIMEOUT_MS ->
// quit_timeout_ms, etc.), in that precedence order.
func Load() (Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("kconfig: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("kconfig: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("ICHOR_", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("kconfig: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("kconfig: unmarshal: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envKeyMap = map[string]string{
	"quit_timeout_ms":              "quit_timeout_ms",
	"poll_timeout_ns":               "poll_timeout_ns",
	"emulated_kernel_version":       "emulated_kernel_version",
	"ring_entries":                  "provided_buffer_ring.entries",
	"ring_entry_size":               "provided_buffer_ring.entry_size",
	"queue_backend":                 "queue_backend",
	"log_level":                     "log_level",
	"log_format":                    "log_format",
	"metrics_enabled":               "metrics_enabled",
	"supervisor_restart_intensity":  "supervisor_restart_intensity",
	"supervisor_restart_period":     "supervisor_restart_period",
}

func envTransform(key string) string {
	mapped, ok := envKeyMap[normalizeEnvKey(strings.TrimPrefix(key, "ICHOR_"))]
	if !ok {
		return ""
	}
	return mapped
}

func normalizeEnvKey(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
