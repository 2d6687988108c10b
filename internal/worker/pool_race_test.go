package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPool_RaceCondition(t *testing.T) {
	writer := &MockWriter{Delay: time.Millisecond}
	p := NewPool(PoolConfig{
		WorkerCount:   2,
		QueueSize:     1000,
		BatchSize:     10,
		FlushInterval: 10 * time.Millisecond,
		Writer:        writer,
		Logger:        zap.NewNop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	// Enqueue from many goroutines to trigger batching
	wg := sync.WaitGroup{}
	producers := 10
	playsPerProducer := 100

	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < playsPerProducer; j++ {
				if err := p.Enqueue(ctx, play(base*playsPerProducer+j)); err != nil {
					t.Errorf("Enqueue() error = %v", err)
					return
				}
				if j%10 == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	wg.Wait()
	p.Stop()

	if got := writer.Total(); got != producers*playsPerProducer {
		t.Errorf("writer received %d plays, want %d", got, producers*playsPerProducer)
	}
}
