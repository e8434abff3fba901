package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/playbook/pkg/channels/gochannel"
	"github.com/dukex/playbook/pkg/channels/kafka"
	"github.com/dukex/playbook/pkg/eventbus"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewEventBus creates the bus carrying workflow lifecycle events.
func NewEventBus(provider string, logger *slog.Logger, brokers []string) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, "playbook", brokers)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}
