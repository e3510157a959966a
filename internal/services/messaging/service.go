package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"kepler-counter-go/internal/config"
	"kepler-counter-go/internal/models"
)

// connection is the part of *nats.Conn the service uses.
type connection interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
	Close()
	IsConnected() bool
}

// Service publishes crossing events and run summaries to NATS.
type Service struct {
	conn   connection
	closed chan struct{} // closed once the connection is fully closed
	cfg    *config.Config
}

func NewService(cfg *config.Config) (*Service, error) {
	closed := make(chan struct{})
	var closeOnce sync.Once

	opts := []nats.Option{
		nats.Name("kepler-counter"),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			closeOnce.Do(func() { close(closed) })
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NatsURL, err)
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn:   conn,
		closed: closed,
		cfg:    cfg,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

// PublishCrossing sends one crossing event on the crossings subject.
func (s *Service) PublishCrossing(ev models.CrossingEvent) error {
	return s.Publish(s.cfg.CrossingsSubject, ev)
}

// PublishSummary sends the end-of-run summary.
func (s *Service) PublishSummary(summary models.RunSummary) error {
	return s.Publish(s.cfg.SummarySubject, summary)
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Shutdown flushes pending messages, drains the connection and waits for it
// to close. When ctx expires first the connection is closed immediately.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}

	if err := s.conn.FlushWithContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush pending NATS messages")
	}

	// Try graceful drain, fallback to immediate close
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return nil
	}

	select {
	case <-s.closed:
		return nil
	case <-ctx.Done():
		s.conn.Close()
		return fmt.Errorf("nats drain: %w", ctx.Err())
	}
}
