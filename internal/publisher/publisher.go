// Package publisher is the client half of publishing: it persists a record
// locally, attributes it to the logged-in user and sends it to the feed.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sakif/brewlog/internal/local"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/service"
)

// ErrBusy is returned while another publish is in flight.
var ErrBusy = errors.New("publisher: a publish is already in progress")

// RecordStore persists local records. local.RecordService satisfies it.
type RecordStore interface {
	Save(ctx context.Context, r model.BrewRecord) (model.BrewRecord, error)
	Get(ctx context.Context, id string) (model.BrewRecord, error)
}

// IdentitySource supplies the publishing identity. local.SessionService
// satisfies it.
type IdentitySource interface {
	Identity(ctx context.Context) (model.Identity, error)
}

// Remote sends a record to the feed server. rpc.Client satisfies it.
type Remote interface {
	PublishRecord(ctx context.Context, in model.PublishInput) (*service.PublishResult, error)
}

// Refresher reloads the feed view after a publish. feed.Cache satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Outcome is a finished publish.
type Outcome struct {
	Record model.BrewRecord
	Result *service.PublishResult
}

// Publisher runs one publish at a time.
type Publisher struct {
	records  RecordStore
	identity IdentitySource
	remote   Remote
	feed     Refresher // optional
	logger   *slog.Logger

	busy atomic.Bool
}

// New returns a Publisher. feed may be nil.
func New(records RecordStore, identity IdentitySource, remote Remote, feed Refresher, logger *slog.Logger) *Publisher {
	return &Publisher{
		records:  records,
		identity: identity,
		remote:   remote,
		feed:     feed,
		logger:   logger,
	}
}

// Busy reports whether a publish is in flight.
func (p *Publisher) Busy() bool {
	return p.busy.Load()
}

// Publish validates r, saves it locally and publishes it under the current
// identity. Nothing is sent when validation, the local save or the
// identity check fails. A failed feed refresh is logged and does not fail
// the publish.
func (p *Publisher) Publish(ctx context.Context, r model.BrewRecord) (*Outcome, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	if err := local.ValidateRecord(r); err != nil {
		return nil, err
	}

	saved, err := p.records.Save(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("publisher: saving record: %w", err)
	}

	id, err := p.identity.Identity(ctx)
	if err != nil {
		return nil, err
	}

	result, err := p.remote.PublishRecord(ctx, model.NewPublishInput(saved, id))
	if err != nil {
		p.logger.Warn("publish failed",
			slog.String("record_id", saved.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	p.logger.Info("record published",
		slog.String("record_id", saved.ID),
		slog.String("feed_id", result.RecordID),
		slog.Bool("updated", result.Updated),
	)
	for _, w := range result.Warnings {
		p.logger.Warn("publish warning", slog.String("record_id", saved.ID), slog.String("warning", w))
	}

	if p.feed != nil {
		if err := p.feed.Refresh(ctx); err != nil {
			p.logger.Warn("refreshing feed after publish failed", slog.String("error", err.Error()))
		}
	}

	return &Outcome{Record: saved, Result: result}, nil
}

// PublishByID publishes a record already in the local log.
func (p *Publisher) PublishByID(ctx context.Context, id string) (*Outcome, error) {
	r, err := p.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Publish(ctx, r)
}
