package traffic

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

// Gate caps concurrent calls. Waiters are admitted in FIFO order.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	waiting  atomic.Int64
	observe  func(wait time.Duration)
	reject   func()
}

func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = 1
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// OnAdmit registers a callback receiving the queueing delay of each admitted call.
func (g *Gate) OnAdmit(fn func(wait time.Duration)) {
	g.observe = fn
}

// OnReject registers a callback for callers that gave up while queued.
func (g *Gate) OnReject(fn func()) {
	g.reject = fn
}

// Acquire blocks until a slot frees up or ctx ends. The returned release must be called once.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	started := time.Now()
	g.waiting.Add(1)
	err := g.sem.Acquire(ctx, 1)
	g.waiting.Add(-1)
	if err != nil {
		if g.reject != nil {
			g.reject()
		}
		return nil, domain.WrapError(domain.ErrOverloaded, "acquire llm slot", err)
	}
	g.inFlight.Add(1)
	if g.observe != nil {
		g.observe(time.Since(started))
	}
	return g.releaser(), nil
}

// TryAcquire admits only when a slot is free right now.
func (g *Gate) TryAcquire() (func(), bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	g.inFlight.Add(1)
	return g.releaser(), true
}

func (g *Gate) releaser() func() {
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			g.inFlight.Add(-1)
			g.sem.Release(1)
		}
	}
}

func (g *Gate) Capacity() int { return g.capacity }

func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }

func (g *Gate) Waiting() int { return int(g.waiting.Load()) }

// GatedAnswerer admits Answerer calls through a Gate and bounds each call with a timeout.
type GatedAnswerer struct {
	next    ports.Answerer
	gate    *Gate
	timeout time.Duration
}

func NewGatedAnswerer(next ports.Answerer, gate *Gate, timeout time.Duration) *GatedAnswerer {
	return &GatedAnswerer{next: next, gate: gate, timeout: timeout}
}

func (a *GatedAnswerer) Answer(ctx context.Context, input domain.AnswerInput) (*domain.Completion, error) {
	release, err := a.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	out, err := a.next.Answer(ctx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !domain.IsKind(err, domain.ErrTemporary) {
			return nil, domain.WrapError(domain.ErrTemporary, "answer", fmt.Errorf("timed out after %s: %w", a.timeout, err))
		}
		return nil, err
	}
	return out, nil
}
