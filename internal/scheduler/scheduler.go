package scheduler

import (
	"context"
	"log"
	"time"
)

type Task func(ctx context.Context) error

// Every runs task once right away, then on every tick until ctx ends.
// Errors are logged, never fatal: a failed collection sweep should not
// stop the next one.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	run := func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	go run()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
