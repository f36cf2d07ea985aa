package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tuis-oj-prototype/core"
)

// main starts the Supervisor: it forks the configured worker pool as
// sibling OS processes and runs the Monitor/Recovery/Cleanup loops
// described in spec §4.9. It owns no HTTP surface of its own — operators
// reach it indirectly through the API process's /health* endpoints, which
// share the same broker and the same restart flag.
func main() {
	cfg := core.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "supervisor.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	broker := core.NewBroker(redisClient, cfg.RedisPrefix)

	if err := os.MkdirAll(cfg.CodeExecutionDir, 0o755); err != nil {
		log.Fatalf("failed to ensure code execution dir %s: %v", cfg.CodeExecutionDir, err)
	}

	sup := core.NewSupervisor(broker, core.SupervisorConfig{
		MaxWorkers:           cfg.MaxWorkers,
		MonitorInterval:      cfg.MonitorInterval,
		RecoverInterval:      cfg.RecoverInterval,
		CleanupInterval:      cfg.CleanupInterval,
		MaxTaskExecutionTime: cfg.MaxTaskExecutionTime,
		ResultExpiryTime:     cfg.ResultExpiryTime,
		ShutdownSignalDelay:  cfg.ShutdownSignalDelay,
		WorkerBinary:         workerBinaryPath(),
	})

	if err := sup.Start(); err != nil {
		log.Fatalf("supervisor: failed to start worker pool: %v", err)
	}
	log.Printf("supervisor: running with %d workers, waiting for shutdown signal", cfg.MaxWorkers)

	<-ctx.Done()
	log.Printf("supervisor: shutdown signal received")
	sup.Shutdown()
	log.Printf("supervisor: all workers stopped, exiting")
}

// workerBinaryPath resolves the worker executable the supervisor re-execs
// for each pool slot: by default a "worker" binary installed alongside the
// supervisor's own executable, overridable for non-standard deployments.
func workerBinaryPath() string {
	if p := os.Getenv("WORKER_BINARY"); p != "" {
		return p
	}
	self, err := os.Executable()
	if err != nil {
		return "worker"
	}
	return filepath.Join(filepath.Dir(self), "worker")
}
