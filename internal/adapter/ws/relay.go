package ws

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/port/messagequeue"
)

// Relay feeds events published by other instances into the local hub and
// closes local sockets whose sessions were revoked anywhere. It implements
// suture.Service.
type Relay struct {
	hub   *Hub
	queue messagequeue.Queue
	log   *zap.Logger
}

// NewRelay creates a relay between queue and hub.
func NewRelay(hub *Hub, queue messagequeue.Queue, log *zap.Logger) *Relay {
	return &Relay{hub: hub, queue: queue, log: log.Named("ws-relay")}
}

// Serve subscribes to the relay subjects and blocks until ctx is canceled.
func (r *Relay) Serve(ctx context.Context) error {
	subjects := []struct {
		subject string
		handler messagequeue.Handler
	}{
		{messagequeue.SubjectRealtimeUser, r.onRealtime},
		{messagequeue.SubjectRealtimeRoom, r.onRealtime},
		{messagequeue.SubjectSessionsRevoked, r.onRevoked},
	}
	var cancels []func()
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()
	for _, s := range subjects {
		cancel, err := r.queue.Subscribe(ctx, s.subject, s.handler)
		if err != nil {
			return fmt.Errorf("relay subscribe %s: %w", s.subject, err)
		}
		cancels = append(cancels, cancel)
	}
	r.log.Info("realtime relay started")
	<-ctx.Done()
	return ctx.Err()
}

func (r *Relay) onRealtime(ctx context.Context, subject string, data []byte) error {
	var p messagequeue.RealtimePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode realtime payload: %w", err)
	}
	// Local sockets were served when the event was pushed.
	if p.Origin == r.hub.origin {
		return nil
	}
	r.hub.deliver(ctx, subject, p.Target, p.Event, json.RawMessage(p.Payload))
	return nil
}

func (r *Relay) onRevoked(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.SessionsRevokedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode revocation: %w", err)
	}
	r.hub.CloseSessions(ctx, p.Tokens)
	return nil
}

// String implements fmt.Stringer for supervisor logs.
func (r *Relay) String() string {
	return "ws-relay"
}
