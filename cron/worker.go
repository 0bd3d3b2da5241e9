package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"coursebill/config"
	"coursebill/services/billing"
	"coursebill/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitBillingSweepWorker runs the async worker and the daily sweep schedule
// in the background.
func InitBillingSweepWorker(orchestrator billing.InvoiceOrchestrator) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisBillingJobDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			// Sweeps iterate rows sequentially on purpose; one worker slot is
			// enough and avoids two sweeps racing the same rows.
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBillingSweep, handleSweepTask(orchestrator))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Schedule the daily sweep.
	go func() {
		scheduler := asynq.NewScheduler(redisOpts, nil)

		task, err := tasks.NewSweepTask(config.AppConfig.SweepDaysAhead)
		if err != nil {
			log.Fatalf("[BillingSweep] failed to build sweep task: %v", err)
		}
		if _, err := scheduler.Register(config.AppConfig.SweepCronSpec, task); err != nil {
			log.Fatalf("[BillingSweep] failed to register sweep schedule: %v", err)
		}
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[BillingSweep] scheduler stopped: %v", err)
		}
	}()

	// Start async worker with retry logic
	go func() {
		log.Println("[BillingSweep] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[BillingSweep] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[BillingSweep] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleSweepTask(orchestrator billing.InvoiceOrchestrator) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.SweepPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[BillingSweep] invalid payload: %v", err)
			return err
		}
		if p.DaysAhead <= 0 {
			p.DaysAhead = config.AppConfig.SweepDaysAhead
		}

		result, err := orchestrator.SweepUpcoming(ctx, p.DaysAhead)
		if err != nil {
			log.Printf("[BillingSweep] sweep aborted: %v", err)
			return err
		}

		log.Printf("[BillingSweep] sweep done: created=%d failed=%d", result.Created, result.Failed)
		for _, msg := range result.Errors {
			log.Printf("[BillingSweep] row error: %s", msg)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisBillingJobDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[BillingSweep] redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
