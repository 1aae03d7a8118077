package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alnah/vstprep/internal/audio"
	"github.com/alnah/vstprep/internal/config"
	"github.com/alnah/vstprep/internal/normalize"
	"github.com/alnah/vstprep/internal/observe"
	"github.com/alnah/vstprep/internal/pipeline"
)

// flagConfig names the persistent --config flag. The other setting flags
// share their names with the config keys.
const flagConfig = "config"

// RootCmd creates the vstprep command. It splits the given recordings and
// carries the config subcommand.
// The env parameter provides injectable dependencies for testing.
func RootCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vstprep <input_audio_file>... <output_directory>",
		Short: "Split piano recordings into normalized per-note samples",
		Long: `Split recordings of single piano notes into one clip per note.

Each input is cut at detected note attacks. Every clip is named after its
pitch (A4_note_1.wav) when one can be identified, or note_<i>.wav otherwise,
and is peak-normalized in the background into normalized_<name>.wav.

Clips land in <output_directory>/<input name>/. WAV inputs are read natively;
flac, aiff, mp3, ogg and m4a inputs need ffmpeg.

Settings resolve as flag > config file > environment > defaults.
Environment: VSTPREP_WORKERS, VSTPREP_TUNING_CENTS, VSTPREP_LOG_LEVEL, FFMPEG_PATH.`,
		Example: `  vstprep take1.wav take2.wav samples/
  vstprep session.flac samples/ --tuning-cents -12 --workers 8
  vstprep take.wav samples/ --threshold 0.1 --min-separation 0.5 --log-level debug`,
		Args: splitArgs,
		// Errors and usage are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, env, args)
		},
	}

	cmd.PersistentFlags().String(flagConfig, "", "Config file (default: $XDG_CONFIG_HOME/vstprep/config.yaml)")

	flags := cmd.Flags()
	flags.String(config.KeyLogLevel, config.DefaultLogLevel, "Log level: "+strings.Join(config.LogLevels, ", "))
	flags.Int(config.KeyWorkers, config.DefaultWorkers, "Concurrent normalization workers")
	flags.Float64(config.KeyTuningCents, config.DefaultTuningCents, "Piano tuning offset in cents (positive = flat)")
	flags.Float64(config.KeyPreRoll, config.DefaultPreRoll, "Seconds kept before each attack")
	flags.Float64(config.KeyThreshold, config.DefaultThreshold, "Onset threshold relative to the strongest attack (0-1]")
	flags.Float64(config.KeyMinSeparation, config.DefaultMinSeparation, "Minimum seconds between two attacks")
	flags.Int(config.KeyHopLength, config.DefaultHopLength, "Onset analysis hop in samples")

	cmd.AddCommand(ConfigCmd(env))

	return cmd
}

// splitArgs requires at least one input followed by the output directory.
func splitArgs(_ *cobra.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: need at least one input file and an output directory, got %d argument(s)",
			ErrInvalidArgs, len(args))
	}
	return nil
}

// runSplit executes one run: settings -> output dir -> pipeline -> drain ->
// summary. It returns context.Canceled when the run was interrupted.
func runSplit(cmd *cobra.Command, env *Env, args []string) error {
	ctx := cmd.Context()
	started := env.Now()
	inputs, outputRoot := args[:len(args)-1], config.ExpandPath(args[len(args)-1])

	cfg, err := loadSettings(cmd, env)
	if err != nil {
		return err
	}
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := newLogger(env.Stderr, level)
	logger.Debug("settings resolved", "settings", cfg)

	if err := config.EnsureOutputDir(outputRoot); err != nil {
		if errors.Is(err, config.ErrNotDirectory) {
			return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
		}
		return fmt.Errorf("%w: %w", ErrOutputDir, err)
	}

	resolver := env.FFmpegFactory.NewResolver(cfg.FFmpegPath, logger)
	checkFFmpeg(ctx, resolver, inputs, logger)
	codec := env.CodecFactory.NewCodec(resolver)

	analyzer, err := env.AnalyzerFactory.NewAnalyzer()
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	provider := observe.NewProvider(env.Version)
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	if err != nil {
		return err
	}

	sched := normalize.NewScheduler(cfg.Workers,
		normalize.WithCodec(codec),
		normalize.WithLogger(logger),
		normalize.WithMetrics(metrics),
	)
	// Queued clips are normalized even after an interrupt; only a second
	// interrupt (handled in main) cuts this short.
	drain := func() []normalize.Job {
		jobs, _ := sched.Drain(context.WithoutCancel(ctx))
		return jobs
	}

	proc, err := pipeline.NewProcessor(pipelineConfig(cfg), codec, analyzer, sched,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
	)
	if err != nil {
		drain()
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	sum := proc.ProcessFiles(ctx, inputs, outputRoot)
	if sum.Interrupted {
		logger.Info("waiting for queued clips to be normalized", "pending", sched.Stats().Pending)
	}
	jobs := drain()

	logSummary(context.WithoutCancel(ctx), logger, provider, sum, jobs, env.Now().Sub(started))

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// loadSettings resolves the run settings: flags override the config file,
// which overrides the environment, which overrides the defaults.
func loadSettings(cmd *cobra.Command, env *Env) (config.Config, error) {
	path, err := configPath(cmd, env)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := env.ConfigLoader.Load(path, env.Getenv)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	flags := cmd.Flags()
	var errs []error
	overrideString(flags, config.KeyLogLevel, &cfg.LogLevel, &errs)
	overrideInt(flags, config.KeyWorkers, &cfg.Workers, &errs)
	overrideFloat(flags, config.KeyTuningCents, &cfg.TuningCents, &errs)
	overrideFloat(flags, config.KeyPreRoll, &cfg.PreRoll, &errs)
	overrideFloat(flags, config.KeyThreshold, &cfg.Threshold, &errs)
	overrideFloat(flags, config.KeyMinSeparation, &cfg.MinSeparation, &errs)
	overrideInt(flags, config.KeyHopLength, &cfg.HopLength, &errs)
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return cfg, nil
}

func overrideString(flags *pflag.FlagSet, name string, dst *string, errs *[]error) {
	if !flags.Changed(name) {
		return
	}
	v, err := flags.GetString(name)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: --%s: %w", ErrInvalidOption, name, err))
		return
	}
	*dst = v
}

func overrideInt(flags *pflag.FlagSet, name string, dst *int, errs *[]error) {
	if !flags.Changed(name) {
		return
	}
	v, err := flags.GetInt(name)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: --%s: %w", ErrInvalidOption, name, err))
		return
	}
	*dst = v
}

func overrideFloat(flags *pflag.FlagSet, name string, dst *float64, errs *[]error) {
	if !flags.Changed(name) {
		return
	}
	v, err := flags.GetFloat64(name)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%w: --%s: %w", ErrInvalidOption, name, err))
		return
	}
	*dst = v
}

// configPath returns the --config value, or the default config location.
func configPath(cmd *cobra.Command, env *Env) (string, error) {
	if f := cmd.Flags().Lookup(flagConfig); f != nil && f.Value.String() != "" {
		return config.ExpandPath(f.Value.String()), nil
	}
	return env.ConfigPath()
}

// pipelineConfig maps resolved settings onto the splitting parameters.
func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		PreRoll:           cfg.PreRoll,
		RelativeThreshold: cfg.Threshold,
		MinSeparation:     cfg.MinSeparation,
		HopLength:         cfg.HopLength,
		TuningCents:       cfg.TuningCents,
	}
}

// checkFFmpeg warns up front when non-WAV inputs will be skipped for lack of
// ffmpeg, and checks its version otherwise.
func checkFFmpeg(ctx context.Context, r FFmpegResolver, inputs []string, logger *slog.Logger) {
	var transcoded []string
	for _, in := range inputs {
		if !audio.IsNative(in) {
			transcoded = append(transcoded, in)
		}
	}
	if len(transcoded) == 0 {
		return
	}

	path, err := r.Resolve(ctx)
	if err != nil {
		logger.Warn("ffmpeg unavailable, non-WAV inputs will be skipped",
			"files", len(transcoded), "error", err)
		return
	}
	if !r.CheckVersion(ctx, path) {
		logger.Debug("could not determine ffmpeg version", "path", path)
	}
}

// logSummary logs the run totals collected from the metrics provider, falling
// back to the pipeline and scheduler counts if collection fails.
func logSummary(ctx context.Context, logger *slog.Logger, p *observe.Provider, sum pipeline.Summary, jobs []normalize.Job, elapsed time.Duration) {
	totals, err := p.Totals(ctx)
	if err != nil {
		logger.Warn("metrics unavailable, summarizing from run state", "error", err)
		totals = fallbackTotals(sum, jobs)
	}

	logger.Info("run complete",
		"files", totals.Files-totals.SkippedFiles,
		"skipped_files", totals.SkippedFiles,
		"clips", totals.Clips,
		"classified", totals.Clips-totals.Unclassified,
		"hammer", totals.Unclassified,
		"skipped_clips", totals.SkippedClips,
		"normalized", totals.JobsSucceeded,
		"normalize_failed", totals.JobsFailed,
		"interrupted", sum.Interrupted,
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

// fallbackTotals rebuilds totals from the pipeline summary and job list.
func fallbackTotals(sum pipeline.Summary, jobs []normalize.Job) observe.Totals {
	t := observe.Totals{
		Files:        int64(sum.Files + sum.Skipped),
		SkippedFiles: int64(sum.Skipped),
		Clips:        int64(sum.Clips),
		Unclassified: int64(sum.Unclassified),
		SkippedClips: int64(sum.Degenerate),
	}
	for _, j := range jobs {
		switch j.Status {
		case normalize.Succeeded:
			t.JobsSucceeded++
		case normalize.Failed:
			t.JobsFailed++
		}
	}
	return t
}
