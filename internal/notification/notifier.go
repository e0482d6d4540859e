// Package notification delivers signal alerts to external channels
// (log, Telegram, webhooks, Redis pub/sub).
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"marketqa/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Signal alerts also carry the
// signal itself for structured consumers.
type Alert struct {
	Level   AlertLevel    `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Signal  *model.Signal `json:"signal,omitempty"`
}

// SignalAlert builds the alert for a detected signal. Crosses are warnings;
// RSI threshold entries are informational.
func SignalAlert(sig model.Signal) Alert {
	level := AlertInfo
	switch sig.Kind {
	case model.SignalGoldenCross, model.SignalDeathCross:
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s: %s", sig.Ticker, sig.Kind.Label()),
		Message: fmt.Sprintf("%s on %s at close $%.2f (value %.2f)",
			sig.Kind.Label(), sig.Date.Format("2006-01-02"), sig.Close, sig.Value),
		Signal: &sig,
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts. It is always enabled.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to several notifiers. One failing backend does
// not stop delivery to the others.
type Multi struct {
	notifiers []Notifier

	// OnSent is called after each successful delivery (for metrics).
	OnSent func(notifier string)
}

// NewMulti combines notifiers. Nil entries are skipped.
func NewMulti(ns ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range ns {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

// Len returns the number of backends.
func (m *Multi) Len() int { return len(m.notifiers) }

// Send delivers alert to every backend and joins the failures.
func (m *Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[notify] %s failed: %v", n.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		if m.OnSent != nil {
			m.OnSent(n.Name())
		}
	}
	return errors.Join(errs...)
}

// Publisher is a pub/sub transport such as the Redis response cache.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// SignalChannel is the pub/sub channel signal alerts are published on.
const SignalChannel = "marketqa:signals"

// PubSubNotifier publishes alerts as JSON on a pub/sub channel.
type PubSubNotifier struct {
	pub     Publisher
	channel string
}

// NewPubSubNotifier creates a notifier publishing on channel.
func NewPubSubNotifier(pub Publisher, channel string) *PubSubNotifier {
	return &PubSubNotifier{pub: pub, channel: channel}
}

func (p *PubSubNotifier) Name() string { return "pubsub" }

func (p *PubSubNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(struct {
		Alert
		TS string `json:"ts"`
	}{alert, time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("pubsub: marshal: %w", err)
	}
	return p.pub.Publish(ctx, p.channel, body)
}
