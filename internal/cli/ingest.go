package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BoweyLou/obssync/internal/config"
	"github.com/BoweyLou/obssync/internal/identity"
	"github.com/BoweyLou/obssync/internal/index"
	"github.com/BoweyLou/obssync/internal/task"
)

// IngestResult is the ingest command's output payload.
type IngestResult struct {
	Side       string `json:"side"`
	Observed   int    `json:"observed"`
	Created    int    `json:"created"`
	Reused     int    `json:"reused"`
	Reconciled int    `json:"reconciled"`
	Missing    int    `json:"missing"`
	Deleted    int    `json:"deleted"`
	IndexTotal int    `json:"index_total"`
	Written    bool   `json:"written"`
}

func (r IngestResult) String() string {
	return fmt.Sprintf("ingested %d %s observations: %d created, %d reused, %d reconciled, %d missing, %d deleted (%d records)",
		r.Observed, r.Side, r.Created, r.Reused, r.Reconciled, r.Missing, r.Deleted, r.IndexTotal)
}

// NewIngestCommand creates the ingest command: resolve one collection pass's
// observations against a task index, assigning stable UUIDs.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		side          string
		obsPath       string
		indexPath     string
		retentionDays int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Resolve collected observations into a task index",
		Long: "Ingest reads one collection pass's observations (a JSON array), resolves\n" +
			"each against the existing task index so UUIDs stay stable across runs,\n" +
			"ages unobserved records through missing and deleted, and atomically\n" +
			"rewrites the index.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading config", err)
			}
			if retentionDays >= 0 {
				cfg.RetentionDays = retentionDays
			}
			if indexPath == "" {
				switch side {
				case "obs":
					indexPath = cfg.ObsIndexPath
				case "rem":
					indexPath = cfg.RemIndexPath
				}
			}
			if side != "obs" && side != "rem" {
				return NewExitError(ExitCommandError, "side must be obs or rem")
			}
			if obsPath == "" || indexPath == "" {
				return NewExitError(ExitCommandError, "observations and index paths are required (flags or config file)")
			}

			observations, err := readObservations(obsPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading observations", err)
			}
			formatter.VerboseLog("loaded %d observations from %s", len(observations), obsPath)

			clock := task.SystemClock()
			retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
			tracker := identity.NewTracker(clock, retention)

			result := IngestResult{Side: side, Observed: len(observations)}
			var report identity.Report

			switch side {
			case "obs":
				ix, err := readObsIndexOrEmpty(indexPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "loading index", err)
				}
				tasks := make(map[string]*task.Task, len(ix.Tasks))
				for id, rec := range ix.Tasks {
					tasks[id] = &rec.Task
				}
				report = tracker.Apply(tasks, observations)
				for id, t := range tasks {
					if _, ok := ix.Tasks[id]; !ok {
						ix.Tasks[id] = &task.ObsTask{Task: *t}
					}
				}
				ix.Meta.GeneratedAt = clock.Now()
				result.IndexTotal = len(ix.Tasks)
				result.Written, err = index.WriteObsIndex(indexPath, ix)
				if err != nil {
					return WrapExitError(ExitCommandError, "writing index", err)
				}
			case "rem":
				ix, err := readRemIndexOrEmpty(indexPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "loading index", err)
				}
				tasks := make(map[string]*task.Task, len(ix.Tasks))
				for id, rec := range ix.Tasks {
					tasks[id] = &rec.Task
				}
				report = tracker.Apply(tasks, observations)
				for id, t := range tasks {
					if _, ok := ix.Tasks[id]; !ok {
						ix.Tasks[id] = &task.RemTask{Task: *t}
					}
				}
				ix.Meta.GeneratedAt = clock.Now()
				result.IndexTotal = len(ix.Tasks)
				result.Written, err = index.WriteRemIndex(indexPath, ix)
				if err != nil {
					return WrapExitError(ExitCommandError, "writing index", err)
				}
			}

			result.Created = report.Created
			result.Reused = report.Reused
			result.Reconciled = report.Reconciled
			result.Missing = report.Missing
			result.Deleted = report.Deleted
			return formatter.Success(result)
		},
	}

	cmd.Flags().StringVar(&side, "side", "", "which store the observations came from (obs|rem)")
	cmd.Flags().StringVar(&obsPath, "observations", "", "path to the collected observations (JSON array)")
	cmd.Flags().StringVar(&indexPath, "index", "", "path to the task index to update")
	cmd.Flags().IntVar(&retentionDays, "retention-days", -1, "missing->deleted aging window (overrides config)")

	return cmd
}

func readObservations(path string) ([]identity.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var observations []identity.Observation
	if err := json.Unmarshal(data, &observations); err != nil {
		return nil, fmt.Errorf("malformed observations %s: %w", path, err)
	}
	return observations, nil
}

// First runs start from an empty index; a malformed existing one is still a
// hard failure.
func readObsIndexOrEmpty(path string) (*index.ObsIndex, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &index.ObsIndex{
			Meta:  index.Meta{Schema: index.SchemaVersion},
			Tasks: map[string]*task.ObsTask{},
		}, nil
	}
	return index.ReadObsIndex(path)
}

func readRemIndexOrEmpty(path string) (*index.RemIndex, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &index.RemIndex{
			Meta:  index.Meta{Schema: index.SchemaVersion},
			Tasks: map[string]*task.RemTask{},
		}, nil
	}
	return index.ReadRemIndex(path)
}
