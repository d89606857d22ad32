// Package events publishes build results to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

const flushTimeout = 2 * time.Second

// BrokenLink is a broken link or anchor reported by a build.
type BrokenLink struct {
	Kind   string `json:"kind"`
	Page   string `json:"page"`
	Target string `json:"target"`
}

// BuildEvent is the payload published after every build.
type BuildEvent struct {
	BuildID     string       `json:"buildId"`
	Site        string       `json:"site"`
	BaseURL     string       `json:"baseUrl"`
	Outcome     string       `json:"outcome"`
	Docs        int          `json:"docs"`
	Routes      int          `json:"routes"`
	InputHash   string       `json:"inputHash"`
	OutputHash  string       `json:"outputHash,omitempty"`
	DurationMS  int64        `json:"durationMs"`
	FinishedAt  time.Time    `json:"finishedAt"`
	Error       string       `json:"error,omitempty"`
	BrokenLinks []BrokenLink `json:"brokenLinks,omitempty"`
}

// Publisher sends build events.
type Publisher interface {
	Publish(ctx context.Context, ev BuildEvent) error
	Close() error
}

// NoopPublisher drops events (default when events are not configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BuildEvent) error { return nil }
func (NoopPublisher) Close() error                              { return nil }

// NATSPublisher publishes JSON build events to a NATS subject, optionally via JetStream.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	retry   retry.Policy
	send    func(ctx context.Context, data []byte) error
}

// publishPolicy retries transient publish failures a few times before giving up.
var publishPolicy = retry.NewPolicy(retry.Exponential, 200*time.Millisecond, 2*time.Second, 3)

// New returns a NATS publisher when cfg names a server and a NoopPublisher otherwise.
func New(cfg config.EventsConfig) (Publisher, error) {
	if cfg.NATSURL == "" {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg)
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.EventsConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("docsite"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p := &NATSPublisher{conn: conn, subject: cfg.Subject, retry: publishPolicy}
	p.send = p.sendNATS
	if cfg.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		p.js = js
	}
	slog.Info("NATS build events enabled",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject),
		slog.Bool("jetstream", cfg.JetStream))
	return p, nil
}

// Publish sends ev, retrying transient failures. With JetStream each attempt
// waits for the stream acknowledgement.
func (p *NATSPublisher) Publish(ctx context.Context, ev BuildEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	attempts := 0
	err = p.retry.Do(ctx, func(ctx context.Context) error {
		attempts++
		if err := p.send(ctx, data); err != nil {
			slog.Debug("Build event publish attempt failed",
				logfields.BuildID(ev.BuildID), slog.Int("attempt", attempts), logfields.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Debug("Published build event", logfields.BuildID(ev.BuildID), slog.String("subject", p.subject), slog.Int("attempts", attempts))
	return nil
}

func (p *NATSPublisher) sendNATS(ctx context.Context, data []byte) error {
	if p.js != nil {
		if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
			return fmt.Errorf("publish build event: %w", err)
		}
		return nil
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubject) {
			return retry.Permanent(fmt.Errorf("publish build event: %w", err))
		}
		return fmt.Errorf("publish build event: %w", err)
	}
	if err := p.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("flush build event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Encode serializes ev as JSON.
func Encode(ev BuildEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal build event: %w", err)
	}
	return data, nil
}
