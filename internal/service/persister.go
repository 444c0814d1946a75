package service

import (
	"log/slog"
	"sync"
)

// persister runs persistence writes on one background goroutine in the order
// they were enqueued, so snapshots of the same key are never reordered.
type persister struct {
	logger *slog.Logger
	jobs   chan persistJob
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type persistJob struct {
	name string
	run  func() error
	ack  chan struct{}
}

func newPersister(logger *slog.Logger, buffer int) *persister {
	p := &persister{
		logger: logger,
		jobs:   make(chan persistJob, buffer),
	}

	p.wg.Add(1)
	go p.loop()

	return p
}

func (p *persister) loop() {
	defer p.wg.Done()

	for job := range p.jobs {
		if job.run != nil {
			if err := job.run(); err != nil {
				p.logger.Warn("failed to persist", slog.String("key", job.name), slog.String("error", err.Error()))
			}
		}
		if job.ack != nil {
			close(job.ack)
		}
	}
}

// enqueue schedules run. Writes after Close are dropped.
func (p *persister) enqueue(name string, run func() error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Debug("persister closed, dropping write", slog.String("key", name))
		return
	}
	p.jobs <- persistJob{name: name, run: run}
}

// Flush blocks until every write enqueued before the call has finished.
func (p *persister) Flush() {
	ack := make(chan struct{})

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return
	}
	p.jobs <- persistJob{name: "flush", ack: ack}
	p.mu.RUnlock()

	<-ack
}

// Close drains pending writes and stops the goroutine.
func (p *persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
