// Package eventstreamutils selects an event publisher from configuration.
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
	"github.com/papercomputeco/thoughtstream/pkg/eventstream/kafka"
	"github.com/papercomputeco/thoughtstream/pkg/eventstream/nop"
	"github.com/papercomputeco/thoughtstream/pkg/logger"
)

type NewPublisherOpts struct {
	KafkaBrokers []string
	KafkaTopic   string
	Logger       *slog.Logger
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	if len(o.KafkaBrokers) == 0 {
		log.Debug("event publishing disabled")
		return nop.NewPublisher(), nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: o.KafkaBrokers,
		Topic:   o.KafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	log.Info("publishing record events to kafka",
		"brokers", o.KafkaBrokers,
		"topic", pub.Topic(),
	)
	return pub, nil
}
