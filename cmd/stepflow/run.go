package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/internal/queue"
	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/workflow"
	"github.com/stepflow/stepflow/pkg/workflow/store"
)

type runOptions struct {
	file         string
	input        string
	events       bool
	checkpointDB string
	resume       string
	redisAddr    string
	namespace    string
	timeout      time.Duration
}

func newRunCommand(logger *slog.Logger) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow definition",
		Example: `  stepflow run -f workflow.yaml --input '{"user_id": "u-1"}'
  stepflow run -f workflow.yaml --events
  stepflow run -f workflow.yaml --checkpoint-db runs.db
  stepflow run -f workflow.yaml --checkpoint-db runs.db --resume <run-id>
  stepflow run -f workflow.yaml --redis localhost:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd.Context(), logger, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "workflow definition file (required)")
	cmd.Flags().StringVar(&opts.input, "input", "", "workflow input as JSON")
	cmd.Flags().BoolVar(&opts.events, "events", false, "stream lifecycle events as JSON lines")
	cmd.Flags().StringVar(&opts.checkpointDB, "checkpoint-db", "", "SQLite file for checkpoints")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "resume the run with this ID from its checkpoint")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "dispatch tasks through Redis at this address")
	cmd.Flags().StringVar(&opts.namespace, "namespace", "stepflow", "queue key namespace")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort the run after this duration")
	cmd.MarkFlagRequired("file")

	return cmd
}

func runWorkflow(ctx context.Context, logger *slog.Logger, opts *runOptions) error {
	def, err := workflow.LoadDefinition(opts.file)
	if err != nil {
		return err
	}
	wf, err := def.Build(builtinRegistry())
	if err != nil {
		return err
	}

	var input any
	if opts.input != "" {
		if err := json.Unmarshal([]byte(opts.input), &input); err != nil {
			return fmt.Errorf("parse --input: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	runnerOpts := []workflow.RunnerOption{workflow.WithLogger(logger)}

	if opts.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer client.Close()
		broker := queue.NewRedis(client, opts.namespace)
		runnerOpts = append(runnerOpts,
			workflow.WithExecutor(workflow.NewQueueExecutor(broker)))
	}

	var cpStore store.Store
	var lastRunID string
	if opts.checkpointDB != "" {
		cpStore, err = store.NewSQLite(opts.checkpointDB)
		if err != nil {
			return err
		}
		defer cpStore.Close()
		save := store.CheckpointFunc(cpStore)
		// Track the run ID so a completed blocking run can drop its
		// checkpoint; streaming runs get it from the event stream.
		runnerOpts = append(runnerOpts,
			workflow.WithCheckpointFunc(func(ctx context.Context, cp *workflow.Checkpoint) error {
				lastRunID = cp.RunID
				return save(ctx, cp)
			}))
	}

	runner := workflow.NewRunner(runnerOpts...)

	if opts.resume != "" {
		if cpStore == nil {
			return &errors.ValidationError{
				Field:      "resume",
				Message:    "--resume requires --checkpoint-db",
				Suggestion: "pass the checkpoint database the run was started with",
			}
		}
		cp, err := cpStore.Load(ctx, opts.resume)
		if err != nil {
			return err
		}
		return finish(ctx, cpStore, opts, &lastRunID, func() (any, error) {
			return runner.Resume(ctx, wf, cp)
		}, func() (<-chan workflow.Event, error) {
			return runner.ResumeWithEvents(ctx, wf, cp)
		})
	}

	return finish(ctx, cpStore, opts, &lastRunID, func() (any, error) {
		return runner.Run(ctx, wf, input)
	}, func() (<-chan workflow.Event, error) {
		return runner.RunWithEvents(ctx, wf, input)
	})
}

// finish drives the run in either blocking or streaming mode and prints
// the result. Completed runs drop their checkpoint.
func finish(ctx context.Context, cpStore store.Store, opts *runOptions, lastRunID *string, run func() (any, error), stream func() (<-chan workflow.Event, error)) error {
	enc := json.NewEncoder(os.Stdout)

	if opts.events {
		events, err := stream()
		if err != nil {
			return err
		}
		var failure error
		var runID string
		for e := range events {
			runID = e.RunID
			if e.Type == workflow.EventWorkflowFailed {
				failure = e.Err
			}
			if err := enc.Encode(eventJSON(e)); err != nil {
				return err
			}
		}
		if failure != nil {
			return failure
		}
		dropCheckpoint(ctx, cpStore, runID)
		return nil
	}

	out, err := run()
	if err != nil {
		return err
	}
	dropCheckpoint(ctx, cpStore, *lastRunID)
	return enc.Encode(out)
}

func dropCheckpoint(ctx context.Context, cpStore store.Store, runID string) {
	if cpStore == nil || runID == "" {
		return
	}
	_ = cpStore.Delete(ctx, runID)
}

// eventJSON flattens an event for line-oriented output, rendering the
// error as a string.
func eventJSON(e workflow.Event) map[string]any {
	out := map[string]any{
		"type":      string(e.Type),
		"timestamp": e.Timestamp.Format(time.RFC3339Nano),
		"workflow":  e.WorkflowName,
		"run_id":    e.RunID,
	}
	if e.StepID != "" {
		out["step_id"] = e.StepID
	}
	if e.Duration > 0 {
		out["duration_ms"] = e.Duration.Milliseconds()
	}
	if e.Value != nil {
		out["value"] = e.Value
	}
	if e.Err != nil {
		out["error"] = e.Err.Error()
	}
	return out
}
