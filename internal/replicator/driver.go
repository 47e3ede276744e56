// Package replicator implements the §4.F replication driver: the loop that
// pulls decoded binlog events from the upstream connection, resolves each
// row change through the schema and domain mapper, and fans the resulting
// domain changes out to one or more aggregator/flush-policy sinks running
// on their own goroutine, per the §5 concurrency model.
package replicator

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/shopsync/catalogcdc/internal/aggregate"
	"github.com/shopsync/catalogcdc/internal/binlogdecode"
	"github.com/shopsync/catalogcdc/internal/cdcerr"
	"github.com/shopsync/catalogcdc/internal/domain"
)

// channelCapacity is the bounded in-process channel capacity of §5: once
// full, the decode goroutine blocks on send, applying natural backpressure
// to the upstream read.
const channelCapacity = 10000

// RowSource is the upstream collaborator the driver pulls decoded events
// from; satisfied by *mysqlconn.Conn after Seek.
type RowSource interface {
	NextEvent() (*binlogdecode.DecodedEvent, error)
}

// Closer optionally accompanies a RowSource so driver cancellation can
// interrupt a blocking NextEvent read (watch mode never returns io.EOF on
// its own).
type Closer interface {
	Close() error
}

// Schema resolves column ordinals for the domain mapper; satisfied by
// *schema.Resolver.
type Schema = domain.Schema

// Sink is one chained aggregator/flush-policy pair the driver feeds.
// *aggregate.FlushPolicy satisfies this directly.
type Sink interface {
	Push(*domain.ProductChange)
	PushMetadata(aggregate.EventMetadata)
	Tick(now time.Time) error
	Finish() error
}

// Route pairs a Sink with the subset of domain.Kind values it should
// receive, so e.g. a category-only aggregator can be chained alongside the
// all-kinds product aggregator per §9's chaining note.
type Route struct {
	Sink   Sink
	Accept func(domain.Kind) bool
}

// AcceptAll routes every domain change kind to a sink.
func AcceptAll(domain.Kind) bool { return true }

// AcceptKind routes only changes of the given kind to a sink.
func AcceptKind(kind domain.Kind) func(domain.Kind) bool {
	return func(k domain.Kind) bool { return k == kind }
}

// Driver orchestrates components A-E: it holds the schema information
// (read-only from the driver's perspective once built) and is the sole
// mutator of the current BinlogPosition. The table-map cache lives in the
// RowSource's decoder, not in the Driver.
type Driver struct {
	Source RowSource
	Closer Closer // optional; Close interrupts a blocking NextEvent on cancellation
	Schema Schema
	Routes []Route
	Logger *zap.Logger

	// Clock stands in for time.Now in tests; defaults to time.Now.
	Clock func() time.Time

	position aggregate.BinlogPosition
}

type absorbed struct {
	change   *domain.ProductChange
	metadata aggregate.EventMetadata
}

// Position is the driver's current (file, offset), seeded by SeedPosition and
// advanced by every event and rotate per §4.A's state machine.
func (d *Driver) Position() aggregate.BinlogPosition { return d.position }

// SeedPosition sets the starting position before Run, normally the
// (file, offset) the caller requested the stream to begin at.
func (d *Driver) SeedPosition(pos aggregate.BinlogPosition) { d.position = pos }

func (d *Driver) clock() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

// Run pulls events until the source signals end-of-stream (io.EOF, for
// dump-mode non-blocking reads), ctx is cancelled, or a fatal error occurs.
// It returns the first fatal error encountered by either the decode loop or
// the sink goroutine, wrapped as a cdcerr kind where §7 names one.
func (d *Driver) Run(ctx context.Context) error {
	ch := make(chan absorbed, channelCapacity)

	sinkErr := make(chan error, 1)
	go d.runSinks(ch, sinkErr)

	cancelDone := make(chan struct{})
	if d.Closer != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = d.Closer.Close()
			case <-cancelDone:
			}
		}()
	}

	decodeErr := d.runDecode(ctx, ch)
	close(cancelDone)
	close(ch)

	if err := <-sinkErr; err != nil && decodeErr == nil {
		if _, ok := cdcerr.As(err); ok {
			return err
		}
		return cdcerr.NewSynchronization(err)
	}
	return decodeErr
}

func (d *Driver) runDecode(ctx context.Context, ch chan<- absorbed) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		ev, err := d.Source.NextEvent()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return cdcerr.NewTransport(err)
		}

		d.position.Offset = ev.Header.NextPos
		if ev.Rotate != nil {
			d.position.File = ev.Rotate.NextBinlog
			d.position.Offset = uint32(ev.Rotate.Position)
		}

		for _, row := range ev.Rows {
			meta := aggregate.EventMetadata{
				Timestamp: uint64(ev.Header.Timestamp),
				Position:  d.position,
			}
			change, err := domain.Map(row.Table.TableName, row, d.Schema)
			if err != nil {
				return err
			}
			item := absorbed{change: change, metadata: meta}
			select {
			case ch <- item:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (d *Driver) runSinks(ch <-chan absorbed, result chan<- error) {
	for item := range ch {
		for _, route := range d.Routes {
			if item.change == nil || route.Accept == nil || route.Accept(item.change.Kind) {
				route.Sink.Push(item.change)
			}
			route.Sink.PushMetadata(item.metadata)
			if err := route.Sink.Tick(d.clock()); err != nil {
				d.logger().Error("sink tick failed", zap.Error(err))
				result <- err
				drain(ch)
				return
			}
		}
	}
	result <- d.finishAll()
}

func (d *Driver) finishAll() error {
	var first error
	for _, route := range d.Routes {
		if err := route.Sink.Finish(); err != nil {
			d.logger().Error("sink finish failed", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// drain discards remaining items after a fatal sink error so the decode
// goroutine's blocked send (if any) can complete and Run can return.
func drain(ch <-chan absorbed) {
	for range ch {
	}
}
