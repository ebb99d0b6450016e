// Package main provides the CLI entrypoint for keytrial.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/keytrial/internal/audio"
	"github.com/verte-zerg/keytrial/internal/config"
	"github.com/verte-zerg/keytrial/internal/generator"
	"github.com/verte-zerg/keytrial/internal/logging"
	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/record"
	"github.com/verte-zerg/keytrial/internal/rng"
	"github.com/verte-zerg/keytrial/internal/sound"
	"github.com/verte-zerg/keytrial/internal/stats"
	"github.com/verte-zerg/keytrial/internal/statsui"
	"github.com/verte-zerg/keytrial/internal/store"
	"github.com/verte-zerg/keytrial/internal/trial"
	"github.com/verte-zerg/keytrial/internal/tui"
)

const (
	defaultSampleCount  = 10
	defaultResultsLimit = 20
)

var (
	configPath string
	envFile    string

	flags = config.Defaults()

	outPath string
	noStore bool

	sampleCount int
	sampleSeed  int64

	resultsLimit  int
	resultsID     int64
	resultsBrowse bool
	resultsMode   string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keytrial",
		Short:         "Typing trials with randomized keystroke sound feedback",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runTrialCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with KEYTRIAL_* variables")

	addTextFlags(rootCmd)
	rootCmd.Flags().StringVar(&flags.SoundMode, "sound-mode", flags.SoundMode, "aligned, variable, mostly-aligned or random (0-2 also accepted)")
	rootCmd.Flags().DurationVar(&flags.TrialDuration, "duration", flags.TrialDuration, "trial time limit (0 means unlimited)")
	rootCmd.Flags().DurationVar(&flags.FeedbackDuration, "feedback-duration", flags.FeedbackDuration, "pause between completion and the end of the trial")
	rootCmd.Flags().StringVar(&flags.MatchPolicy, "policy", flags.MatchPolicy, "matching policy: prefix-abort or position-locked")
	rootCmd.Flags().BoolVar(&flags.AudioEnabled, "audio", flags.AudioEnabled, "play keystroke sounds")
	rootCmd.Flags().IntVar(&flags.SampleRate, "sample-rate", flags.SampleRate, "audio sample rate in Hz")
	rootCmd.Flags().Float64Var(&flags.VolumeDB, "volume-db", flags.VolumeDB, "click volume adjustment (base 2, negative is quieter)")
	rootCmd.Flags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flags.LogFile, "log-file", flags.LogFile, "log file path ('-' for stderr)")
	rootCmd.Flags().StringVar(&flags.DBPath, "db", flags.DBPath, "results database path")
	rootCmd.Flags().StringVar(&outPath, "out", "", "also write the result to a .json, .yaml or .yml file")
	rootCmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the result in the database")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSampleCmd())
	rootCmd.AddCommand(newResultsCmd())

	return rootCmd
}

func addTextFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flags.TextMode, "text-mode", flags.TextMode, "target text source: fixed or generated")
	cmd.Flags().StringVar(&flags.Sentence, "sentence", flags.Sentence, "text to type in fixed mode")
	cmd.Flags().Float64Var(&flags.RandomStringProbability, "random-string-probability", flags.RandomStringProbability, "probability of a random-letter text (0-1)")
	cmd.Flags().IntVar(&flags.PoolSize, "pool-size", flags.PoolSize, "number of random-letter texts generated per trial")
	cmd.Flags().StringVar(&flags.SubjectsFile, "subjects-file", flags.SubjectsFile, "word list of sentence subjects")
	cmd.Flags().StringVar(&flags.VerbsFile, "verbs-file", flags.VerbsFile, "word list of sentence verbs")
	cmd.Flags().StringVar(&flags.ObjectsFile, "objects-file", flags.ObjectsFile, "word list of sentence objects")
}

func runTrialCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	trialCfg, err := settings.TrialConfig()
	if err != nil {
		return err
	}
	if outPath != "" {
		if _, err := record.FormatFor(outPath); err != nil {
			return err
		}
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("keytrial needs an interactive terminal")
	}

	logger, err := logging.New(settings.LogLevel, settings.LogFile)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	results := make(chan model.TrialResult, 1)
	recorders := []record.Recorder{}
	if !noStore {
		st, err := store.Open(settings.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		recorders = append(recorders, record.StoreRecorder{Store: st})
	}
	if outPath != "" {
		recorders = append(recorders, record.FileRecorder{Path: outPath})
	}
	recorders = append(recorders, record.RecorderFunc(func(_ context.Context, res model.TrialResult) error {
		results <- res
		return nil
	}))
	fanout := record.NewFanout(logger, recorders...)

	var sink sound.Sink = sound.Nop{}
	if settings.AudioEnabled {
		speaker := audio.NewSpeaker(settings.SampleRate, settings.VolumeDB)
		defer speaker.Close()
		sink = speaker
	}

	source := tui.NewSource(time.Now)
	ctrl, err := trial.New(trialCfg, trial.Options{
		Sink:    sink,
		Input:   source,
		Results: fanout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ui := tui.NewModel(ctrl, source, results, tui.Options{
		ShowMode: trialCfg.Text.Mode == model.TextGenerated,
		Timeout:  trialCfg.TrialDuration,
	})
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		ctrl.Abort()
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := ui.Err(); err != nil {
		return err
	}

	res, ok := ui.Result()
	if !ok {
		ctrl.Abort()
		select {
		case res = <-results:
		case <-time.After(time.Second):
			return fmt.Errorf("trial ended without a result")
		}
	}
	if err := stats.RenderTrialSummary(cmd.OutOrStdout(), res); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := fanout.Err(); err != nil {
		logErrf("some recorders failed: %v\n", err)
	}
	if res.EndReason == model.EndMissingText {
		return fmt.Errorf("--sentence is required when --text-mode is %q", model.TextFixed)
	}
	return nil
}

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print target texts without running a trial",
		Args:  cobra.NoArgs,
		RunE:  runSampleCmd,
	}
	addTextFlags(cmd)
	cmd.Flags().IntVar(&sampleCount, "count", defaultSampleCount, "number of texts")
	cmd.Flags().Int64Var(&sampleSeed, "seed", 0, "random seed (0 uses the clock)")
	return cmd
}

func runSampleCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	trialCfg, err := settings.TrialConfig()
	if err != nil {
		return err
	}
	if sampleCount <= 0 {
		return fmt.Errorf("--count must be > 0")
	}
	rnd := rng.New()
	if sampleSeed != 0 {
		rnd = rng.NewSeeded(sampleSeed)
	}
	out := cmd.OutOrStdout()
	for i := 0; i < sampleCount; i++ {
		text, isReal, err := generator.New(rnd, trialCfg.Text).Target()
		if err != nil {
			return err
		}
		kind := "fixed"
		if isReal != nil {
			kind = "random"
			if *isReal {
				kind = "sentence"
			}
		}
		if _, err := fmt.Fprintf(out, "%-8s %s\n", kind, text); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List recorded trials",
		Args:  cobra.NoArgs,
		RunE:  runResultsCmd,
	}
	cmd.Flags().IntVar(&resultsLimit, "limit", defaultResultsLimit, "number of trials to show (0 shows all)")
	cmd.Flags().Int64Var(&resultsID, "id", 0, "show the keystrokes of one trial")
	cmd.Flags().BoolVar(&resultsBrowse, "browse", false, "browse trials interactively")
	cmd.Flags().StringVar(&resultsMode, "mode", "", "only list trials with this sound mode (browse only)")
	cmd.Flags().StringVar(&flags.DBPath, "db", flags.DBPath, "results database path")
	return cmd
}

func runResultsCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(settings.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if resultsBrowse {
		mode, err := config.ParseSoundMode(resultsMode)
		if err != nil {
			return err
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("--browse needs an interactive terminal")
		}
		ui := statsui.NewModel(st, statsui.Filter{Limit: resultsLimit, SoundMode: mode})
		if _, err := tea.NewProgram(ui, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	}

	ctx := context.Background()
	if resultsID > 0 {
		keys, err := st.ListKeystrokes(ctx, resultsID)
		if err != nil {
			return fmt.Errorf("failed to load keystrokes: %w", err)
		}
		return stats.RenderKeystrokes(cmd.OutOrStdout(), keys)
	}
	trials, err := st.ListTrials(ctx, resultsLimit)
	if err != nil {
		return fmt.Errorf("failed to load trials: %w", err)
	}
	return stats.RenderTrialList(cmd.OutOrStdout(), trials)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadSettings layers the config file and environment under the flags the
// user actually set.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.Load(configPath, envFile)
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlag(cmd, "text-mode", &s.TextMode, flags.TextMode)
	applyFlag(cmd, "sentence", &s.Sentence, flags.Sentence)
	applyFlag(cmd, "random-string-probability", &s.RandomStringProbability, flags.RandomStringProbability)
	applyFlag(cmd, "pool-size", &s.PoolSize, flags.PoolSize)
	applyFlag(cmd, "subjects-file", &s.SubjectsFile, flags.SubjectsFile)
	applyFlag(cmd, "verbs-file", &s.VerbsFile, flags.VerbsFile)
	applyFlag(cmd, "objects-file", &s.ObjectsFile, flags.ObjectsFile)
	applyFlag(cmd, "sound-mode", &s.SoundMode, flags.SoundMode)
	applyFlag(cmd, "duration", &s.TrialDuration, flags.TrialDuration)
	applyFlag(cmd, "feedback-duration", &s.FeedbackDuration, flags.FeedbackDuration)
	applyFlag(cmd, "policy", &s.MatchPolicy, flags.MatchPolicy)
	applyFlag(cmd, "audio", &s.AudioEnabled, flags.AudioEnabled)
	applyFlag(cmd, "sample-rate", &s.SampleRate, flags.SampleRate)
	applyFlag(cmd, "volume-db", &s.VolumeDB, flags.VolumeDB)
	applyFlag(cmd, "log-level", &s.LogLevel, flags.LogLevel)
	applyFlag(cmd, "log-file", &s.LogFile, flags.LogFile)
	applyFlag(cmd, "db", &s.DBPath, flags.DBPath)
	return s, nil
}

func applyFlag[T any](cmd *cobra.Command, name string, target *T, value T) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keytrial configuration
# Uncomment a value to enable it. KEYTRIAL_* variables and CLI flags override config values.

[trial]
# sound-mode = %q          # aligned, variable, mostly-aligned or random
# duration = "15s"              # Trial time limit; "0s" means unlimited
# feedback-duration = %q      # Pause between completion and the end of the trial
# match-policy = %q # prefix-abort or position-locked

[text]
# mode = %q            # fixed or generated
# sentence = "The quick brown fox"
# random-string-probability = %.2f
# pool-size = %d
# subjects-file = "/path/to/subjects.txt"
# verbs-file = "/path/to/verbs.txt"
# objects-file = "/path/to/objects.txt"

[audio]
# enabled = true
# sample-rate = %d
# volume-db = 0.0

[log]
# level = %q
# file = %q
`,
		config.DefaultSoundMode,
		config.DefaultFeedbackDuration.String(),
		config.DefaultMatchPolicy,
		config.DefaultTextMode,
		config.DefaultRandomStringProbability,
		generator.DefaultPoolSize,
		config.DefaultSampleRate,
		config.DefaultLogLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
