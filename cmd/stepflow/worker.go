package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/internal/queue"
	"github.com/stepflow/stepflow/internal/worker"
)

func newWorkerCommand(logger *slog.Logger) *cobra.Command {
	var (
		redisAddr   string
		namespace   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a task worker against a Redis queue",
		Long: `worker consumes tasks from a Redis-backed queue and reports results.
The built-in task set is available out of the box; programs with their
own tasks embed the worker pool and register them directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := redis.NewClient(&redis.Options{Addr: redisAddr})
			defer client.Close()

			broker := queue.NewRedis(client, namespace)
			pool := worker.NewPool(broker, builtinRegistry(), logger,
				worker.WithConcurrency(concurrency))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := pool.Start(ctx); err != nil {
				return err
			}
			logger.Info("worker started",
				"redis", redisAddr,
				"namespace", namespace,
				"concurrency", concurrency)

			<-ctx.Done()
			logger.Info("shutting down")
			pool.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&redisAddr, "redis", "localhost:6379", "Redis address")
	cmd.Flags().StringVar(&namespace, "namespace", "stepflow", "queue key namespace")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "concurrent tasks per worker")
	return cmd
}
