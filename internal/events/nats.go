package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chatframe/sessiond/pkg/logger"
)

const (
	// SubjectPrefix is the prefix for all chat event subjects.
	SubjectPrefix = "chat.events"
)

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string
}

// NATSPublisher publishes store notifications to NATS subjects of the form
// chat.events.<session-id>.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// ConnectNATS establishes a connection to the NATS server and returns a
// publisher bound to it.
func ConnectNATS(cfg NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{
		conn:   nc,
		logger: log,
	}, nil
}

// EventSubject returns the subject for an event.
func EventSubject(sessionID string, eventType Type) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, sessionID, eventType)
}

// Publish implements Notifier. Failures are logged, never surfaced: event
// fan-out must not interfere with store operations.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal event")
		return
	}

	if err := p.conn.Publish(EventSubject(event.SessionID, event.Type), data); err != nil {
		p.logger.Warn("failed to publish event")
	}
}

// IsConnected returns true if connected to NATS.
func (p *NATSPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
