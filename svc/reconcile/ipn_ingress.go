package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/pkg/queue"
)

type taskEnqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// IPNIngress accepts PayPal notifications. It only makes the raw body durable
// on the queue; verification happens in IPNProcessor.
type IPNIngress struct {
	enqueuer taskEnqueuer
	queue    string
	logger   *slog.Logger
}

func NewIPNIngress(enqueuer taskEnqueuer, cfg IPNConfig, log *slog.Logger) *IPNIngress {
	if enqueuer == nil {
		panic("enqueuer cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &IPNIngress{enqueuer: enqueuer, queue: cfg.Queue, logger: log.With(logger.Component("ipn_ingress"))}
}

// Handle enqueues raw and returns once the task is stored. A body that is
// not form-encoded is rejected with ErrMalformedEvent.
func (i *IPNIngress) Handle(ctx context.Context, raw []byte) error {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return fmt.Errorf("%w: empty body", ErrMalformedEvent)
	}
	if _, err := url.ParseQuery(body); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	var opts []queue.EnqueueOption
	if i.queue != "" {
		opts = append(opts, queue.WithQueue(i.queue))
	}
	if err := i.enqueuer.Enqueue(ctx, IPNTask{Raw: body, ReceivedAt: time.Now().UTC()}, opts...); err != nil {
		i.logger.ErrorContext(ctx, "failed to enqueue ipn", logger.Error(err))
		return errors.Join(ErrEnqueueFailed, err)
	}
	i.logger.InfoContext(ctx, "ipn enqueued")
	return nil
}
