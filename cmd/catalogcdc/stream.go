package main

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shopsync/catalogcdc/internal/aggregate"
	"github.com/shopsync/catalogcdc/internal/cdcerr"
	"github.com/shopsync/catalogcdc/internal/config"
	"github.com/shopsync/catalogcdc/internal/domain"
	"github.com/shopsync/catalogcdc/internal/emit"
	"github.com/shopsync/catalogcdc/internal/logging"
	"github.com/shopsync/catalogcdc/internal/replicator"
	"github.com/shopsync/catalogcdc/internal/schema"
)

// streamOptions are the knobs dump and watch share; watch additionally
// blocks forever and accepts a server-id override and heartbeat interval.
type streamOptions struct {
	file      string
	position  uint32
	output    string
	watch     bool
	serverID  uint32
	heartbeat time.Duration
}

func runStream(ctx context.Context, opts streamOptions) error {
	if err := validateOutputFormat(opts.output); err != nil {
		return err
	}

	logger, err := logging.New(logging.Console, "info")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn, err := connectAndAuth(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	resolver, err := schema.Load(conn, cfg.Database, cfg.TablePrefix)
	if err != nil {
		return cdcerr.NewTransport(err)
	}

	var serverID uint32
	if opts.watch {
		serverID = opts.serverID
		if serverID == 0 {
			serverID, err = replicator.PickServerID(conn)
			if err != nil {
				return err
			}
		}
		if opts.heartbeat > 0 {
			if err := conn.SetHeartbeatPeriod(opts.heartbeat); err != nil {
				return cdcerr.NewTransport(err)
			}
		}
	}

	if err := conn.Seek(serverID, opts.file, opts.position, cfg.Database, cfg.TablePrefix); err != nil {
		return cdcerr.NewTransport(err)
	}

	productEmitter, categoryEmitter := newEmitters(opts.output, os.Stdout)
	productPolicy := aggregate.NewFlushPolicy(aggregate.New(aggregate.Product), productEmitter, int(cfg.BatchSize), cfg.FlushInterval)
	categoryPolicy := aggregate.NewFlushPolicy(aggregate.New(aggregate.Category), categoryEmitter, int(cfg.BatchSize), cfg.FlushInterval)

	driver := &replicator.Driver{
		Source: conn,
		Closer: conn,
		Schema: resolver,
		Logger: logger,
		Routes: []replicator.Route{
			{Sink: productPolicy, Accept: replicator.AcceptAll},
			{Sink: categoryPolicy, Accept: replicator.AcceptKind(domain.Category)},
		},
	}
	driver.SeedPosition(aggregate.BinlogPosition{File: opts.file, Offset: opts.position})

	logger.Info("starting replication",
		zap.String("file", opts.file),
		zap.Uint32("position", opts.position),
		zap.Uint32("server_id", serverID),
	)

	return driver.Run(ctx)
}

func newEmitters(output string, w io.Writer) (aggregate.Emitter, aggregate.Emitter) {
	if output == "binary" {
		return emit.NewMsgpackEmitter(w), emit.NewMsgpackEmitter(w)
	}
	return emit.NewJSONEmitter(w), emit.NewJSONEmitter(w)
}
