package browserflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration for a hosting process.
type Config struct {
	// FlowsDir is the directory holding persisted flow documents. Empty
	// selects the default under the user's home directory.
	FlowsDir string `yaml:"flows_dir,omitempty"`

	// JournalDir is the directory holding run journals. Empty disables
	// journaling.
	JournalDir string `yaml:"journal_dir,omitempty"`

	// ListenAddr is the HTTP control surface listen address.
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// AgentCommand is the command line of the agent subprocess used to
	// execute tasks.
	AgentCommand []string `yaml:"agent_command,omitempty"`

	// StopGraceSeconds bounds how long stopping a recording waits for
	// graceful termination before forcing the session down.
	StopGraceSeconds int `yaml:"stop_grace_seconds,omitempty"`

	// PostgresDSN, when set, selects the Postgres-backed flow store instead
	// of the file-based one.
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ":5001",
		StopGraceSeconds: int(DefaultStopGracePeriod / time.Second),
	}
}

// LoadConfigFile reads a YAML configuration file, filling unset fields with
// defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, nil
}

// StopGracePeriod returns the configured grace period as a duration.
func (c *Config) StopGracePeriod() time.Duration {
	if c.StopGraceSeconds <= 0 {
		return DefaultStopGracePeriod
	}
	return time.Duration(c.StopGraceSeconds) * time.Second
}
