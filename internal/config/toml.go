// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Trial TrialFileConfig `toml:"trial"`
	Text  TextFileConfig  `toml:"text"`
	Audio AudioFileConfig `toml:"audio"`
	Log   LogFileConfig   `toml:"log"`
}

// TrialFileConfig maps trial timing and matching settings.
type TrialFileConfig struct {
	SoundMode        *string `toml:"sound-mode"`
	Duration         *string `toml:"duration"`
	FeedbackDuration *string `toml:"feedback-duration"`
	MatchPolicy      *string `toml:"match-policy"`
}

// TextFileConfig maps target text settings.
type TextFileConfig struct {
	Mode                    *string  `toml:"mode"`
	Sentence                *string  `toml:"sentence"`
	RandomStringProbability *float64 `toml:"random-string-probability"`
	PoolSize                *int     `toml:"pool-size"`
	SubjectsFile            *string  `toml:"subjects-file"`
	VerbsFile               *string  `toml:"verbs-file"`
	ObjectsFile             *string  `toml:"objects-file"`
}

// AudioFileConfig maps feedback output settings.
type AudioFileConfig struct {
	Enabled    *bool    `toml:"enabled"`
	SampleRate *int     `toml:"sample-rate"`
	VolumeDB   *float64 `toml:"volume-db"`
}

// LogFileConfig maps logger settings.
type LogFileConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
