package aggregate

import (
	"time"

	"github.com/shopsync/catalogcdc/internal/domain"
)

// Emitter is the downstream sink a FlushPolicy hands completed aggregates
// to; satisfied by the emit package's encoders.
type Emitter interface {
	Emit(*ChangeAggregate) error
}

// FlushPolicy drives an Aggregator from outside per §4.D's write-through
// rule: a Tick flushes when the aggregator holds maxSize or more distinct
// (key, id) pairs, or maxInterval has elapsed since the last flush,
// whichever comes first.
type FlushPolicy struct {
	Aggregator  *Aggregator
	emitter     Emitter
	maxSize     int
	maxInterval time.Duration
	lastFlush   time.Time
}

// NewFlushPolicy wraps agg with the given thresholds, handing flushed
// aggregates to emitter.
func NewFlushPolicy(agg *Aggregator, emitter Emitter, maxSize int, maxInterval time.Duration) *FlushPolicy {
	return &FlushPolicy{Aggregator: agg, emitter: emitter, maxSize: maxSize, maxInterval: maxInterval}
}

// Push absorbs one domain change into the wrapped aggregator.
func (p *FlushPolicy) Push(change *domain.ProductChange) {
	p.Aggregator.Push(change)
}

// PushMetadata records meta as the wrapped aggregator's last-seen position.
func (p *FlushPolicy) PushMetadata(meta EventMetadata) {
	p.Aggregator.PushMetadata(meta)
}

// Tick evaluates the write-through condition against the current time and,
// if due, flushes the aggregator and hands the result to the emitter.
// Called once per absorbed event, per §4.D's "push-then-maybe-write tick".
func (p *FlushPolicy) Tick(now time.Time) error {
	if p.lastFlush.IsZero() {
		p.lastFlush = now
	}
	if p.Aggregator.Size() < p.maxSize && now.Sub(p.lastFlush) < p.maxInterval {
		return nil
	}
	agg := p.Aggregator.Flush()
	if agg != nil {
		if err := p.emitter.Emit(agg); err != nil {
			return err
		}
	}
	p.lastFlush = now
	return nil
}

// Finish unconditionally flushes on end-of-stream, per §4.D.
func (p *FlushPolicy) Finish() error {
	agg := p.Aggregator.Flush()
	if agg == nil {
		return nil
	}
	return p.emitter.Emit(agg)
}
