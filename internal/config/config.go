// Package config loads the darvis TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the darvis configuration. Every field has a working default
// so a missing file is fine.
type Config struct {
	Agent string `toml:"agent"`

	AI          AI                `toml:"ai"`
	Wake        Wake              `toml:"wake"`
	Audio       Audio             `toml:"audio"`
	STT         STT               `toml:"stt"`
	Mirror      Mirror            `toml:"mirror"`
	WebServices map[string]string `toml:"web-services"`
	Statusbar   bool              `toml:"statusbar"`
}

type AI struct {
	// Command overrides opencode binary resolution.
	Command string `toml:"command"`
	// TimeoutSeconds bounds one AI query.
	TimeoutSeconds int `toml:"timeout-seconds"`
	// Continuation selects "session" or "recent" follow-up framing.
	Continuation string `toml:"continuation"`
}

type Wake struct {
	Words []string `toml:"words"`
}

type Audio struct {
	// Chime is the mp3 played on activation; empty disables it.
	Chime string `toml:"chime"`
	// Duck scales other applications' volume while darvis is busy.
	Duck bool `toml:"duck"`
}

type STT struct {
	// Engine is "whisper" (local) or "cloud" (OpenAI API).
	Engine string `toml:"engine"`
	// Model is the whisper.cpp model path for the local engine.
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

type Mirror struct {
	// Addr is the listen address for the chat mirror; empty disables it.
	Addr string `toml:"addr"`
}

// DefaultPath is ~/.config/darvis/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "darvis", "config.toml"), nil
}

// Load reads the config at path, applying defaults for everything the
// file leaves out. A missing file yields pure defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 120
	}
	if len(cfg.Wake.Words) == 0 {
		cfg.Wake.Words = defaultWakeWords()
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Agent: "darvis",
		AI: AI{
			TimeoutSeconds: 120,
			Continuation:   "session",
		},
		Wake: Wake{Words: defaultWakeWords()},
		STT: STT{
			Engine:   "whisper",
			Language: "auto",
		},
		Statusbar: true,
	}
}

func defaultWakeWords() []string {
	return []string{
		"hey darvis",
		"hey jarvis",
		"hi darvis",
		"hi jarvis",
	}
}
