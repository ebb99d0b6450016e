package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/verte-zerg/keytrial/internal/generator"
	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/wordlist"
)

// SoundModeRandom asks for the sound mode to be drawn at trial start.
const SoundModeRandom = "random"

// Built-in defaults.
const (
	DefaultTextMode                = string(model.TextGenerated)
	DefaultSoundMode               = SoundModeRandom
	DefaultFeedbackDuration        = time.Second
	DefaultMatchPolicy             = string(model.PrefixAbort)
	DefaultRandomStringProbability = 0.5
	DefaultLogLevel                = "info"
	DefaultSampleRate              = 44100
)

// Settings is the fully resolved configuration. Values are layered: defaults,
// then the TOML file, then .env and KEYTRIAL_* variables, then CLI flags.
type Settings struct {
	TextMode                string  `env:"KEYTRIAL_TEXT_MODE"`
	Sentence                string  `env:"KEYTRIAL_SENTENCE"`
	RandomStringProbability float64 `env:"KEYTRIAL_RANDOM_STRING_PROBABILITY"`
	PoolSize                int     `env:"KEYTRIAL_POOL_SIZE"`
	SubjectsFile            string  `env:"KEYTRIAL_SUBJECTS_FILE"`
	VerbsFile               string  `env:"KEYTRIAL_VERBS_FILE"`
	ObjectsFile             string  `env:"KEYTRIAL_OBJECTS_FILE"`

	SoundMode        string        `env:"KEYTRIAL_SOUND_MODE"`
	TrialDuration    time.Duration `env:"KEYTRIAL_TRIAL_DURATION"`
	FeedbackDuration time.Duration `env:"KEYTRIAL_FEEDBACK_DURATION"`
	MatchPolicy      string        `env:"KEYTRIAL_MATCH_POLICY"`

	AudioEnabled bool    `env:"KEYTRIAL_AUDIO"`
	SampleRate   int     `env:"KEYTRIAL_SAMPLE_RATE"`
	VolumeDB     float64 `env:"KEYTRIAL_VOLUME_DB"`

	LogLevel string `env:"KEYTRIAL_LOG_LEVEL"`
	LogFile  string `env:"KEYTRIAL_LOG_FILE"`
	DBPath   string `env:"KEYTRIAL_DB"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		TextMode:                DefaultTextMode,
		RandomStringProbability: DefaultRandomStringProbability,
		PoolSize:                generator.DefaultPoolSize,
		SoundMode:               DefaultSoundMode,
		FeedbackDuration:        DefaultFeedbackDuration,
		MatchPolicy:             DefaultMatchPolicy,
		AudioEnabled:            true,
		SampleRate:              DefaultSampleRate,
		LogLevel:                DefaultLogLevel,
		LogFile:                 DefaultLogPath(),
		DBPath:                  DefaultDBPath(),
	}
}

// Load resolves settings from the TOML file at path and the environment.
// envFiles are loaded with godotenv first; missing env files are ignored and
// variables already set in the process environment win.
func Load(path string, envFiles ...string) (Settings, error) {
	s := Defaults()
	fileCfg, err := LoadConfig(path)
	if err != nil {
		return Settings{}, err
	}
	if err := s.ApplyFile(fileCfg); err != nil {
		return Settings{}, err
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return s, nil
}

// ApplyFile overlays every value present in the TOML file.
func (s *Settings) ApplyFile(f FileConfig) error {
	setString(&s.TextMode, f.Text.Mode)
	setString(&s.Sentence, f.Text.Sentence)
	setFloat(&s.RandomStringProbability, f.Text.RandomStringProbability)
	setInt(&s.PoolSize, f.Text.PoolSize)
	setString(&s.SubjectsFile, f.Text.SubjectsFile)
	setString(&s.VerbsFile, f.Text.VerbsFile)
	setString(&s.ObjectsFile, f.Text.ObjectsFile)

	setString(&s.SoundMode, f.Trial.SoundMode)
	setString(&s.MatchPolicy, f.Trial.MatchPolicy)
	if err := setDuration(&s.TrialDuration, f.Trial.Duration, "trial.duration"); err != nil {
		return err
	}
	if err := setDuration(&s.FeedbackDuration, f.Trial.FeedbackDuration, "trial.feedback-duration"); err != nil {
		return err
	}

	if f.Audio.Enabled != nil {
		s.AudioEnabled = *f.Audio.Enabled
	}
	setInt(&s.SampleRate, f.Audio.SampleRate)
	setFloat(&s.VolumeDB, f.Audio.VolumeDB)

	setString(&s.LogLevel, f.Log.Level)
	setString(&s.LogFile, f.Log.File)
	return nil
}

// Validate checks ranges and enumerations.
func (s Settings) Validate() error {
	switch model.TextMode(s.TextMode) {
	case model.TextFixed, model.TextGenerated:
	default:
		return fmt.Errorf("--text-mode must be %q or %q", model.TextFixed, model.TextGenerated)
	}
	if _, err := ParseSoundMode(s.SoundMode); err != nil {
		return err
	}
	if !model.MatchPolicy(s.MatchPolicy).Valid() {
		return fmt.Errorf("--policy must be %q or %q", model.PrefixAbort, model.PositionLocked)
	}
	if s.RandomStringProbability < 0 || s.RandomStringProbability > 1 {
		return fmt.Errorf("--random-string-probability must be between 0 and 1")
	}
	if s.PoolSize <= 0 {
		return fmt.Errorf("--pool-size must be > 0")
	}
	if s.TrialDuration < 0 {
		return fmt.Errorf("--duration must be >= 0")
	}
	if s.FeedbackDuration < 0 {
		return fmt.Errorf("--feedback-duration must be >= 0")
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("--sample-rate must be > 0")
	}
	return nil
}

// TrialConfig converts validated settings into a trial configuration, loading
// any configured word lists.
func (s Settings) TrialConfig() (model.TrialConfig, error) {
	if err := s.Validate(); err != nil {
		return model.TrialConfig{}, err
	}
	mode, err := ParseSoundMode(s.SoundMode)
	if err != nil {
		return model.TrialConfig{}, err
	}
	src := model.TextSource{
		Mode:                    model.TextMode(s.TextMode),
		Sentence:                s.Sentence,
		RandomStringProbability: s.RandomStringProbability,
		PoolSize:                s.PoolSize,
	}
	lists := []struct {
		path   string
		target *[]string
	}{
		{s.SubjectsFile, &src.Subjects},
		{s.VerbsFile, &src.Verbs},
		{s.ObjectsFile, &src.Objects},
	}
	for _, l := range lists {
		if l.path == "" {
			continue
		}
		words, err := wordlist.LoadWords(l.path)
		if err != nil {
			return model.TrialConfig{}, fmt.Errorf("failed to load word list: %w", err)
		}
		*l.target = words
	}
	return model.TrialConfig{
		Text:             src,
		SoundMode:        mode,
		TrialDuration:    s.TrialDuration,
		FeedbackDuration: s.FeedbackDuration,
		MatchPolicy:      model.MatchPolicy(s.MatchPolicy),
	}, nil
}

// ParseSoundMode accepts a mode name or its number. "random" and the empty
// string yield nil, meaning the mode is drawn at trial start.
func ParseSoundMode(v string) (*model.SoundMode, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" || v == SoundModeRandom {
		return nil, nil
	}
	for _, m := range []model.SoundMode{model.SoundAligned, model.SoundVariable, model.SoundMostlyAligned} {
		if v == m.String() || v == strconv.Itoa(int(m)) {
			mode := m
			return &mode, nil
		}
	}
	return nil, fmt.Errorf("--sound-mode must be one of aligned, variable, mostly-aligned, random (or 0-2), got %q", v)
}

func setString(target, value *string) {
	if value != nil {
		*target = *value
	}
}

func setInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func setFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
}

func setDuration(target *time.Duration, value *string, key string) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*value))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = d
	return nil
}
