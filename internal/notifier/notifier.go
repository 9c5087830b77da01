package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ibeckermayer/threadwatch/internal/config"
	"github.com/ibeckermayer/threadwatch/internal/metrics"
	"github.com/ibeckermayer/threadwatch/internal/notifier/providers"
)

// Delivery statuses used as the "status" label on the chunk counter.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notifier delivers run output to chat targets
type Notifier struct {
	sender   Sender
	targets  []string
	maxChars int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Sender defines the interface for delivering one message to one target
type Sender interface {
	Send(ctx context.Context, target, message string) error
}

// New creates a new notifier with the given sender
func New(sender Sender, targets []string, maxChars int, m *metrics.Metrics, logger *zap.Logger) *Notifier {
	if m == nil {
		m = metrics.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		sender:   sender,
		targets:  targets,
		maxChars: maxChars,
		metrics:  m,
		logger:   logger.Named("notifier"),
	}
}

// NewFromConfig creates a notifier backed by the configured send command
func NewFromConfig(cfg config.NotifyConfig, m *metrics.Metrics, logger *zap.Logger) (*Notifier, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New("no delivery targets configured (notify.targets, TG_DM or TG_GROUP)")
	}
	if cfg.Command == "" {
		return nil, errors.New("notify.command is required")
	}
	sender := providers.NewCommandSender(cfg.Command, cfg.Channel, nil)
	return New(sender, cfg.Targets, cfg.MaxChars, m, logger), nil
}

// Deliver splits text and sends every chunk to every target in order. Empty
// output sends nothing. The first failed send aborts delivery.
func (n *Notifier) Deliver(ctx context.Context, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	parts := Split(text, n.maxChars)
	sent := 0
	for i, part := range parts {
		msg := fmt.Sprintf("(%d/%d) %s", i+1, len(parts), part)
		for _, target := range n.targets {
			if err := n.sender.Send(ctx, target, msg); err != nil {
				n.metrics.Deliveries.WithLabelValues(StatusFailed).Inc()
				return sent, fmt.Errorf("failed to send part %d/%d to %s: %w", i+1, len(parts), target, err)
			}
			n.metrics.Deliveries.WithLabelValues(StatusSent).Inc()
			sent++
		}
	}

	n.logger.Info("delivered",
		zap.Int("parts", len(parts)),
		zap.Int("targets", len(n.targets)),
		zap.Int("messages", sent))
	return sent, nil
}

// Preview writes what Deliver would send without sending it.
func (n *Notifier) Preview(w io.Writer, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	parts := Split(text, n.maxChars)
	if _, err := fmt.Fprintf(w, "DRY_RUN: would send %d part(s) to %s\n",
		len(parts), strings.Join(n.targets, " + ")); err != nil {
		return err
	}
	for i, part := range parts {
		if _, err := fmt.Fprintf(w, "\n(%d/%d)\n%s\n", i+1, len(parts), part); err != nil {
			return err
		}
	}
	return nil
}
