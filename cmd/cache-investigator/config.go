package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML config file. Flags given on the command line
// override its values.
type Config struct {
	MaxIterations int           `yaml:"maxIterations"`
	Timeout       time.Duration `yaml:"timeout"`
	OracleTimeout time.Duration `yaml:"oracleTimeout"`
	Provider      string        `yaml:"provider"`
	Model         string        `yaml:"model"`
	DB            string        `yaml:"db"`
	RPS           float64       `yaml:"rps"`
	CompactAfter  int           `yaml:"compactAfter"`
	UserAgent     string        `yaml:"userAgent"`
}

func getConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return config, fmt.Errorf("%s: %w", filename, err)
	}
	return config, nil
}

// apply copies config values into the flag variables the user did not set
// explicitly.
func (c Config) apply(explicit map[string]bool) {
	if c.MaxIterations > 0 && !explicit["max-iterations"] {
		maxIterationsFlag = c.MaxIterations
	}
	if c.Timeout > 0 && !explicit["timeout"] {
		timeoutFlag = c.Timeout
	}
	if c.OracleTimeout > 0 && !explicit["oracle-timeout"] {
		oracleTimeoutFlag = c.OracleTimeout
	}
	if c.Provider != "" && !explicit["provider"] {
		providerFlag = c.Provider
	}
	if c.Model != "" && !explicit["model"] {
		modelFlag = c.Model
	}
	if c.DB != "" && !explicit["db"] {
		dbFilenameFlag = c.DB
	}
	if c.RPS > 0 && !explicit["rps"] {
		rpsFlag = c.RPS
	}
	if c.CompactAfter > 0 && !explicit["compact-after"] {
		compactAfterFlag = c.CompactAfter
	}
	if c.UserAgent != "" && !explicit["user-agent"] {
		userAgentFlag = c.UserAgent
	}
}
