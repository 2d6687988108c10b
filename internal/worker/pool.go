// Package worker implements the buffered worker pool used to persist play-by-play rows.
// Rows are enqueued by the loader and written to the play store in batches, flushed when a
// batch fills or on a ticker, and drained on shutdown.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/models"
)

// ErrPoolStopped is returned when enqueueing after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// Prometheus metrics
var (
	playsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcall_plays_ingested_total",
		Help: "Total number of plays queued for persistence",
	})

	playsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcall_plays_persisted_total",
		Help: "Total number of plays written to the play store",
	})

	playsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playcall_plays_failed_total",
		Help: "Total number of plays whose batch failed to write",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcall_worker_queue_depth",
		Help: "Current depth of the worker queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playcall_batch_insert_duration_seconds",
		Help:    "Duration of batch inserts to the play store",
		Buckets: prometheus.DefBuckets,
	})
)

// BatchWriter persists a batch of plays. Implementations must not retain the slice.
type BatchWriter interface {
	WritePlays(ctx context.Context, plays []models.PlayRecord) error
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	Writer        BatchWriter
	Logger        *zap.Logger
}

// Pool manages a pool of workers writing plays in batches
type Pool struct {
	config   PoolConfig
	jobQueue chan models.PlayRecord
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger

	stopOnce  sync.Once
	stopped   atomic.Bool
	persisted atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan models.PlayRecord, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes the queue and waits for the workers to flush what is left.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")
		p.stopped.Store(true)
		close(p.jobQueue)
		p.wg.Wait()
		if p.cancel != nil {
			p.cancel()
		}
		p.logger.Infow("Worker pool stopped",
			"persisted", p.persisted.Load(),
			"failed", p.failed.Load(),
		)
	})
}

// Enqueue adds a play to the queue, blocking while the queue is full.
func (p *Pool) Enqueue(ctx context.Context, play models.PlayRecord) (err error) {
	if p.stopped.Load() {
		return ErrPoolStopped
	}

	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			err = ErrPoolStopped
		}
	}()

	select {
	case p.jobQueue <- play:
		playsIngested.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// Persisted is the number of plays written successfully so far.
func (p *Pool) Persisted() int64 {
	return p.persisted.Load()
}

// Failed is the number of plays in batches the writer rejected.
func (p *Pool) Failed() int64 {
	return p.failed.Load()
}

// worker processes jobs from the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]models.PlayRecord, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.config.Writer.WritePlays(context.WithoutCancel(p.ctx), batch); err != nil {
			p.logger.Errorw("Batch write failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			playsFailed.Add(float64(len(batch)))
			p.failed.Add(int64(len(batch)))
		} else {
			p.logger.Debugw("Batch written", "worker", id, "batchSize", len(batch), "duration", time.Since(start))
			playsPersisted.Add(float64(len(batch)))
			p.persisted.Add(int64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case play, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, play)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			flush()
			return
		}
	}
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			queueDepth.Set(0)
			return
		}
	}
}
