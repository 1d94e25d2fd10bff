package processing

import (
	"log"
	"sync"

	"github.com/HKUDS/seabot-go/pkg/seatalk"
)

// EventHandler consumes one dequeued callback event.
type EventHandler interface {
	HandleEvent(env *seatalk.Envelope)
}

// Processor decouples webhook-accept latency from event handling: a bounded
// queue absorbs bursts, a fixed worker pool drains it, and enqueue rejects
// instead of blocking once the queue is at capacity.
type Processor struct {
	handler     EventHandler
	workerCount int

	queue chan *seatalk.Envelope
	wg    sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewProcessor creates a Processor with the given pool size and queue
// capacity. Values below 1 are clamped.
func NewProcessor(handler EventHandler, workerCount, queueSize int) *Processor {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Processor{
		handler:     handler,
		workerCount: workerCount,
		queue:       make(chan *seatalk.Envelope, queueSize),
	}
}

// Start launches the worker pool. Calling Start on a running processor is a
// no-op.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop rejects further enqueues, sends one stop sentinel per worker and waits
// for all workers to finish their current iteration. Idempotent.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	// Workers drain the queue in arrival order; the sentinels queue up
	// behind any still-pending events, so nothing accepted before Stop is
	// abandoned.
	for i := 0; i < p.workerCount; i++ {
		p.queue <- nil
	}
	p.wg.Wait()
}

// Enqueue offers an event to the queue without blocking. It returns false
// when the queue is full or the processor is stopped; the caller surfaces
// that as a non-fatal signal, never an error page.
func (p *Processor) Enqueue(env *seatalk.Envelope) bool {
	if env == nil {
		return false
	}
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		log.Printf("Webhook processor stopped. Dropping event_id=%s", env.EventID)
		return false
	}

	select {
	case p.queue <- env:
		return true
	default:
		log.Printf("Webhook queue is full. Dropping event_id=%s", env.EventID)
		return false
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()
	for env := range p.queue {
		if env == nil {
			return
		}
		p.handleOne(id, env)
	}
}

// handleOne shields the worker loop: one bad event must never kill a worker.
func (p *Processor) handleOne(id int, env *seatalk.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker %d panicked processing event_type=%s: %v", id, env.EventType, r)
		}
	}()
	p.handler.HandleEvent(env)
}
