// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/metrics"
	"github.com/henworth/seraphsix/internal/models"
)

// Job names carried in message metadata and used as metric labels.
const (
	JobScanMember    = "scan_member"
	JobReconcileClan = "reconcile_clan"
)

// scanTopic is the single topic all job messages flow through; the job name
// in metadata routes them to a handler.
const scanTopic = "seraphsix.jobs"

// defaultPendingTTL bounds how long a crashed worker's claim blocks
// re-enqueueing the same key.
const defaultPendingTTL = 15 * time.Minute

// ScanRequest is the payload of a dispatched job.
type ScanRequest struct {
	Job          string          `json:"job"`
	ClanID       int64           `json:"clan_id,omitempty"`
	GroupID      int64           `json:"group_id,omitempty"`
	MemberID     uuid.UUID       `json:"member_id,omitempty"`
	Platform     models.Platform `json:"platform,omitempty"`
	MembershipID int64           `json:"membership_id,omitempty"`
}

// DedupKey returns the key at most one in-flight job may hold. Member scans
// dedup per member, clan reconciles per clan.
func (r *ScanRequest) DedupKey() string {
	switch r.Job {
	case JobScanMember:
		return fmt.Sprintf("%s:%s", r.Job, r.MemberID)
	case JobReconcileClan:
		return fmt.Sprintf("%s:%d", r.Job, r.ClanID)
	default:
		return r.Job
	}
}

// Handler processes one dispatched job. Returning an error nacks the
// message for redelivery.
type Handler func(ctx context.Context, req *ScanRequest) error

// Dispatcher is the job queue contract the reconciliation engine enqueues
// through. Enqueue must be safe for concurrent use and must collapse
// duplicate submissions for the same dedup key.
type Dispatcher interface {
	Enqueue(ctx context.Context, req *ScanRequest) error
	Close() error
}

// GoChannelDispatcher is an in-process Dispatcher on Watermill's GoChannel
// Pub/Sub with a PendingSet guarding against duplicate in-flight jobs.
type GoChannelDispatcher struct {
	pubSub   *gochannel.GoChannel
	pending  PendingSet
	handlers map[string]Handler
	config   DispatcherConfig

	// ready is closed once Run has subscribed. Enqueue blocks on it so a
	// publish can never race ahead of the subscriber and vanish.
	ready     chan struct{}
	readyOnce sync.Once

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherConfig tunes the dispatcher.
type DispatcherConfig struct {
	// Buffer is the subscriber channel depth. Zero means unbuffered.
	Buffer int64

	// Workers is the number of concurrent message consumers.
	Workers int

	// PendingTTL caps how long a claim survives without completion.
	PendingTTL time.Duration
}

func (c *DispatcherConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = 64
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = defaultPendingTTL
	}
}

// NewGoChannelDispatcher creates a dispatcher. Register handlers before
// calling Run.
func NewGoChannelDispatcher(cfg DispatcherConfig, pending PendingSet) *GoChannelDispatcher {
	cfg.applyDefaults()

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: cfg.Buffer},
		newWatermillLogger(),
	)

	return &GoChannelDispatcher{
		pubSub:   pubSub,
		pending:  pending,
		handlers: make(map[string]Handler),
		config:   cfg,
		ready:    make(chan struct{}),
	}
}

// Register binds a handler to a job name. Not safe to call after Run.
func (d *GoChannelDispatcher) Register(job string, h Handler) {
	d.handlers[job] = h
}

// Enqueue claims the request's dedup key and publishes it. A duplicate
// submission returns nil after bumping the dedup metric so callers do not
// branch on it. Enqueue waits for the worker pool's subscription before
// publishing; an accepted enqueue always has a consumer.
func (d *GoChannelDispatcher) Enqueue(ctx context.Context, req *ScanRequest) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is closed")
	}
	d.mu.Unlock()

	select {
	case <-d.ready:
	case <-ctx.Done():
		return fmt.Errorf("dispatcher not running: %w", ctx.Err())
	}

	key := req.DedupKey()
	if err := d.pending.TryAdd(ctx, key, d.config.PendingTTL); err != nil {
		if errors.Is(err, ErrAlreadyPending) {
			metrics.JobsDeduplicated.WithLabelValues(req.Job).Inc()
			logging.Debug().Str("job", req.Job).Str("key", key).Msg("Job already pending, skipped")
			return nil
		}
		return fmt.Errorf("claim pending key: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		_ = d.pending.Remove(ctx, key)
		return fmt.Errorf("marshal job payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("job", req.Job)
	msg.Metadata.Set("dedup_key", key)

	if err := d.pubSub.Publish(scanTopic, msg); err != nil {
		_ = d.pending.Remove(ctx, key)
		return fmt.Errorf("publish job: %w", err)
	}

	metrics.JobsEnqueued.WithLabelValues(req.Job).Inc()
	return nil
}

// Run starts the worker pool and blocks until ctx is canceled. Call after
// all handlers are registered.
func (d *GoChannelDispatcher) Run(ctx context.Context) error {
	messages, err := d.pubSub.Subscribe(ctx, scanTopic)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	d.readyOnce.Do(func() { close(d.ready) })

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, messages)
	}

	<-ctx.Done()
	d.wg.Wait()
	return ctx.Err()
}

func (d *GoChannelDispatcher) worker(ctx context.Context, messages <-chan *message.Message) {
	defer d.wg.Done()

	for msg := range messages {
		d.handle(ctx, msg)
	}
}

func (d *GoChannelDispatcher) handle(ctx context.Context, msg *message.Message) {
	var req ScanRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Undecodable job payload dropped")
		msg.Ack()
		return
	}

	key := msg.Metadata.Get("dedup_key")

	handler, ok := d.handlers[req.Job]
	if !ok {
		logging.Error().Str("job", req.Job).Msg("No handler registered for job")
		d.release(key)
		msg.Ack()
		return
	}

	if err := handler(ctx, &req); err != nil {
		logging.Error().Err(err).Str("job", req.Job).Str("key", key).Msg("Job failed")
	}

	// The claim is released whether the job succeeded or not; retry policy
	// lives inside the handlers, not the queue.
	d.release(key)
	msg.Ack()
}

func (d *GoChannelDispatcher) release(key string) {
	if key == "" {
		return
	}
	if err := d.pending.Remove(context.Background(), key); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("Failed to release pending key")
	}
}

// Close shuts down the Pub/Sub; in-flight handlers finish via Run's wait.
func (d *GoChannelDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	return d.pubSub.Close()
}
