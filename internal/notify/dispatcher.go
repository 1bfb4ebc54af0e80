package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/nazakat/storefront/internal/domain/order"
)

const sendTimeout = 15 * time.Second

// Dispatcher hands notifications to a single background worker. Enqueueing
// never blocks and never fails the caller: when the queue is full the
// message is dropped and the drop is logged and counted. Delivery errors are
// likewise observable only through logs and metrics.
type Dispatcher struct {
	mailer Mailer
	lg     *zap.Logger
	queue  chan Message
	done   chan struct{}

	sent    metric.Int64Counter
	failed  metric.Int64Counter
	dropped metric.Int64Counter
}

// NewDispatcher creates a Dispatcher and starts its worker goroutine.
// Call Close to drain the queue and stop the worker.
func NewDispatcher(mailer Mailer, lg *zap.Logger, meter metric.Meter, queueSize int) (*Dispatcher, error) {
	sent, err := meter.Int64Counter("notify.sent")
	if err != nil {
		return nil, errors.Wrap(err, "create sent counter")
	}
	failed, err := meter.Int64Counter("notify.failed")
	if err != nil {
		return nil, errors.Wrap(err, "create failed counter")
	}
	dropped, err := meter.Int64Counter("notify.dropped")
	if err != nil {
		return nil, errors.Wrap(err, "create dropped counter")
	}

	d := &Dispatcher{
		mailer:  mailer,
		lg:      lg,
		queue:   make(chan Message, queueSize),
		done:    make(chan struct{}),
		sent:    sent,
		failed:  failed,
		dropped: dropped,
	}
	go d.run()
	return d, nil
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.mailer.Send(ctx, msg)
		cancel()

		if err != nil {
			d.failed.Add(context.Background(), 1)
			d.lg.Error("Notification send failed",
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			continue
		}
		d.sent.Add(context.Background(), 1)
		d.lg.Info("Notification sent",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
	}
}

// Enqueue hands a message to the worker without blocking.
func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.dropped.Add(context.Background(), 1)
		d.lg.Warn("Notification queue full, dropping message",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
	}
}

// Close stops accepting messages, drains the queue, and waits for the
// worker to finish.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}

// OrderPlaced dispatches the cash-on-delivery order confirmation.
func (d *Dispatcher) OrderPlaced(o *order.Order) {
	if o.Customer.Email == "" {
		return
	}
	d.Enqueue(Message{
		To:      o.Customer.Email,
		Subject: "Order Confirmed - Cash on Delivery",
		Body: fmt.Sprintf(
			"Your order has been confirmed!\n\nOrder #%s\nPayment Method: Cash on Delivery\nTotal Amount: PKR %s\n\nWe'll deliver your order soon!",
			o.ID, o.Total.StringFixed(2),
		),
	})
}

// PaymentConfirmed dispatches the online payment confirmation.
func (d *Dispatcher) PaymentConfirmed(o *order.Order) {
	if o.Customer.Email == "" {
		return
	}
	d.Enqueue(Message{
		To:      o.Customer.Email,
		Subject: "Payment Confirmed - Nazakat Nails",
		Body: fmt.Sprintf(
			"Thank you for your payment!\n\nOrder #%s\nAmount: PKR %s\n\nYour order is being processed.",
			o.ID, o.Total.StringFixed(2),
		),
	})
}
