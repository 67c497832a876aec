package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BoweyLou/obssync/internal/builder"
	"github.com/BoweyLou/obssync/internal/config"
	"github.com/BoweyLou/obssync/internal/history"
	"github.com/BoweyLou/obssync/internal/index"
	"github.com/BoweyLou/obssync/internal/task"
)

// BuildOptions holds flags specific to the build command. Flag values layer
// over the config file, which layers over the built-in defaults.
type BuildOptions struct {
	ObsIndexPath string
	RemIndexPath string
	LinkPath     string
	HistoryPath  string

	MinScore          float64
	DateToleranceDays int
	IncludeDone       bool
	DryRun            bool
}

// BuildResult is the build command's output payload.
type BuildResult struct {
	ObsTotal  int  `json:"obs_total"`
	RemTotal  int  `json:"rem_total"`
	Matched   int  `json:"matched"`
	New       int  `json:"links_new"`
	Updated   int  `json:"links_updated"`
	Replaced  int  `json:"links_replaced"`
	Rejected  int  `json:"links_rejected"`
	LinkTotal int  `json:"link_total"`
	Written   bool `json:"written"`
	DryRun    bool `json:"dry_run,omitempty"`
}

func (r BuildResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "considered %d obsidian and %d reminders tasks, matched %d\n", r.ObsTotal, r.RemTotal, r.Matched)
	fmt.Fprintf(&b, "links: %d new, %d updated, %d replaced, %d rejected (%d total)", r.New, r.Updated, r.Replaced, r.Rejected, r.LinkTotal)
	if r.DryRun {
		b.WriteString("\ndry run: nothing written")
	} else if !r.Written {
		b.WriteString("\nlink file unchanged, write skipped")
	}
	return b.String()
}

// NewBuildCommand creates the build command: run one matching pass and
// persist the reconciled link file.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Match both indices and update the link file",
		Long: "Build reads the Obsidian and Reminders task indices, computes the optimal\n" +
			"one-to-one matching, reconciles it against the existing link file and\n" +
			"atomically writes the result.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ObsIndexPath, "obs-index", "", "path to the Obsidian task index")
	cmd.Flags().StringVar(&opts.RemIndexPath, "rem-index", "", "path to the Reminders task index")
	cmd.Flags().StringVar(&opts.LinkPath, "links", "", "path to the link file")
	cmd.Flags().StringVar(&opts.HistoryPath, "history", "", "path to the run-history database")
	cmd.Flags().Float64Var(&opts.MinScore, "min-score", -1, "minimum pair score (overrides config)")
	cmd.Flags().IntVar(&opts.DateToleranceDays, "date-tolerance", -1, "due-date tolerance in days (overrides config)")
	cmd.Flags().BoolVar(&opts.IncludeDone, "include-done", false, "include completed tasks in matching")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute the matching but write nothing")

	return cmd
}

func runBuild(cmd *cobra.Command, rootOpts *RootOptions, opts *BuildOptions) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	cfg, err := loadConfig(rootOpts, opts)
	if err != nil {
		return err
	}

	formatter.VerboseLog("reading indices: obs=%s rem=%s", cfg.ObsIndexPath, cfg.RemIndexPath)
	obs, err := index.ReadObsIndex(cfg.ObsIndexPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading obsidian index", err)
	}
	rem, err := index.ReadRemIndex(cfg.RemIndexPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading reminders index", err)
	}
	existing, err := index.ReadLinkFile(cfg.LinkPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading link file", err)
	}

	b := builder.New(task.SystemClock(), builder.Options{
		MinScore:            cfg.MinScore,
		DateToleranceDays:   cfg.DateToleranceDays,
		IncludeDone:         cfg.IncludeDone || opts.IncludeDone,
		PruneThreshold:      cfg.PruneThreshold,
		GreedyOnlyThreshold: cfg.GreedyOnlyThreshold,
		TopK:                cfg.TopK,
		Logf:                formatter.VerboseLog,
	})

	out, stats, err := b.BuildLinks(obs, rem, existing)
	if err != nil {
		return WrapExitError(ExitCommandError, "building links", err)
	}

	written := false
	if !opts.DryRun {
		written, err = index.WriteLinkFile(cfg.LinkPath, out)
		if err != nil {
			return WrapExitError(ExitCommandError, "writing link file", err)
		}
	}

	result := BuildResult{
		ObsTotal:  stats.ObsTotal,
		RemTotal:  stats.RemTotal,
		Matched:   stats.Matched,
		New:       stats.Counts.New,
		Updated:   stats.Counts.Updated,
		Replaced:  stats.Counts.Replaced,
		Rejected:  stats.Counts.Rejected,
		LinkTotal: len(out.Links),
		Written:   written,
		DryRun:    opts.DryRun,
	}

	if cfg.HistoryPath != "" && !opts.DryRun {
		if err := appendHistory(cmd.Context(), cfg.HistoryPath, out, result); err != nil {
			// History is an audit trail, not the artifact; a failed append
			// must not discard a pass whose link file already landed.
			formatter.VerboseLog("history append failed: %v", err)
		}
	}

	return formatter.Success(result)
}

// loadConfig resolves the effective configuration: file, then flags.
func loadConfig(rootOpts *RootOptions, opts *BuildOptions) (config.Config, error) {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "loading config", err)
	}

	if opts.ObsIndexPath != "" {
		cfg.ObsIndexPath = opts.ObsIndexPath
	}
	if opts.RemIndexPath != "" {
		cfg.RemIndexPath = opts.RemIndexPath
	}
	if opts.LinkPath != "" {
		cfg.LinkPath = opts.LinkPath
	}
	if opts.HistoryPath != "" {
		cfg.HistoryPath = opts.HistoryPath
	}
	if opts.MinScore >= 0 {
		cfg.MinScore = opts.MinScore
	}
	if opts.DateToleranceDays >= 0 {
		cfg.DateToleranceDays = opts.DateToleranceDays
	}

	if cfg.ObsIndexPath == "" || cfg.RemIndexPath == "" || cfg.LinkPath == "" {
		return config.Config{}, NewExitError(ExitCommandError, "obs-index, rem-index and links paths are required (flags or config file)")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

func appendHistory(ctx context.Context, path string, out *index.LinkFile, r BuildResult) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.AppendRun(ctx, history.Run{
		StartedAt: out.Meta.GeneratedAt,
		ObsTotal:  r.ObsTotal,
		RemTotal:  r.RemTotal,
		Matched:   r.Matched,
		New:       r.New,
		Updated:   r.Updated,
		Replaced:  r.Replaced,
		Rejected:  r.Rejected,
		LinkTotal: r.LinkTotal,
		Written:   r.Written,
	})
	return err
}
