package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tuis-oj-prototype/core"
)

// main is the body of a single worker process: one OS process, one
// WorkerLoop, re-exec'd by the supervisor for each slot in the pool (spec
// §4.9/§5). It owns no HTTP surface and no Postgres connection — only the
// broker and the local sandboxed judge pipeline.
func main() {
	workerIDFlag := flag.Int("worker-id", -1, "slot id assigned by the supervisor")
	flag.Parse()

	cfg := core.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "worker.log")
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

	workerID := core.NewWorkerID()
	if *workerIDFlag >= 0 {
		workerID = fmt.Sprintf("worker-%d", *workerIDFlag)
	}
	hostname, _ := os.Hostname()
	log.Printf("worker started. id=%s pid=%d host=%s", workerID, os.Getpid(), hostname)

	state := core.NewHeartbeatState(workerID, hostname, 1)
	go state.Start(ctx, redisClient)

	loop := &core.WorkerLoop{
		Broker:                broker,
		WorkerID:              workerID,
		CodeExecutionDir:      cfg.CodeExecutionDir,
		ResultExpiry:          cfg.ResultExpiryTime,
		TaskCompletionTimeout: cfg.TaskCompletionTimeout,
		EngineLimits: core.EngineLimits{
			MaxProcesses:   cfg.MaxProcesses,
			MaxOutputBytes: cfg.MaxOutputSize,
		},
	}

	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stopCh)
		close(done)
	}()

	<-ctx.Done()
	log.Printf("worker %s: shutdown signal received, finishing current task within %s", workerID, cfg.TaskCompletionTimeout)
	close(stopCh)
	<-done
	log.Printf("worker %s: exited cleanly", workerID)
}
