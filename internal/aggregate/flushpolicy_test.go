package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingEmitter counts and retains every aggregate handed to it.
type recordingEmitter struct {
	emitted []*ChangeAggregate
}

func (e *recordingEmitter) Emit(agg *ChangeAggregate) error {
	e.emitted = append(e.emitted, agg)
	return nil
}

// TestMaxSizeTriggersFlush is §8 end-to-end scenario 4: max_size=2,
// max_interval=2s, four Created events pushed then one write — exactly one
// batch emitted, holding all four ids (the size check runs only on Tick, so
// nothing flushes while the pushes land).
func TestMaxSizeTriggersFlush(t *testing.T) {
	emitter := &recordingEmitter{}
	policy := NewFlushPolicy(New(Product), emitter, 2, 2*time.Second)
	now := time.Unix(0, 0)

	policy.Push(created(1))
	policy.Push(created(2))
	policy.Push(created(3))
	policy.Push(created(4))
	policy.PushMetadata(EventMetadata{Timestamp: 1})

	require.NoError(t, policy.Tick(now))
	require.Len(t, emitter.emitted, 1)
	require.Equal(t, []uint64{1, 2, 3, 4}, emitter.emitted[0].Data[NameKey(KeyCreated)].Ints)
}

// TestMaxIntervalTriggersFlush is §8 end-to-end scenario 5: max_size=5 (so
// size alone never triggers), max_interval=2s; a Tick right after the push
// emits nothing, but a Tick 3 virtual seconds later does.
func TestMaxIntervalTriggersFlush(t *testing.T) {
	emitter := &recordingEmitter{}
	policy := NewFlushPolicy(New(Product), emitter, 5, 2*time.Second)
	start := time.Unix(1000, 0)

	policy.Push(created(1))
	policy.PushMetadata(EventMetadata{Timestamp: 1})

	require.NoError(t, policy.Tick(start))
	require.Empty(t, emitter.emitted)

	require.NoError(t, policy.Tick(start.Add(3*time.Second)))
	require.Len(t, emitter.emitted, 1)
	require.Equal(t, []uint64{1}, emitter.emitted[0].Data[NameKey(KeyCreated)].Ints)
}

// TestTickBelowBothThresholdsDoesNotFlush covers the "whichever comes first"
// rule's negative case.
func TestTickBelowBothThresholdsDoesNotFlush(t *testing.T) {
	emitter := &recordingEmitter{}
	policy := NewFlushPolicy(New(Product), emitter, 10, time.Hour)
	start := time.Unix(0, 0)

	policy.Push(created(1))
	policy.PushMetadata(EventMetadata{Timestamp: 1})
	require.NoError(t, policy.Tick(start))
	require.NoError(t, policy.Tick(start.Add(time.Second)))
	require.Empty(t, emitter.emitted)
}

// TestFinishFlushesRemainder covers §4.D's unconditional end-of-stream
// flush, and that a Finish with nothing absorbed since the last flush emits
// nothing rather than an empty duplicate batch.
func TestFinishFlushesRemainder(t *testing.T) {
	emitter := &recordingEmitter{}
	policy := NewFlushPolicy(New(Product), emitter, 100, time.Hour)

	policy.Push(created(7))
	policy.PushMetadata(EventMetadata{Timestamp: 1})
	require.NoError(t, policy.Finish())
	require.Len(t, emitter.emitted, 1)

	// Nothing absorbed since; Finish again has no metadata to anchor to.
	require.NoError(t, policy.Finish())
	require.Len(t, emitter.emitted, 1)
}

// TestFinishPropagatesEmitError ensures a downstream encoding failure
// surfaces to the caller rather than being swallowed.
func TestFinishPropagatesEmitError(t *testing.T) {
	policy := NewFlushPolicy(New(Product), emitFunc(func(*ChangeAggregate) error {
		return errBoom
	}), 100, time.Hour)
	policy.Push(created(1))
	policy.PushMetadata(EventMetadata{Timestamp: 1})
	require.ErrorIs(t, policy.Finish(), errBoom)
}

type emitFunc func(*ChangeAggregate) error

func (f emitFunc) Emit(agg *ChangeAggregate) error { return f(agg) }

var errBoom = errFixed("boom")

type errFixed string

func (e errFixed) Error() string { return string(e) }
