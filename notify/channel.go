package notify

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Channel queues events for a consumer goroutine. When the buffer is full the
// event is dropped and logged.
type Channel struct {
	events chan Event
	logger zerolog.Logger
}

func NewChannel(size int) *Channel {
	return &Channel{
		events: make(chan Event, size),
		logger: log.Logger,
	}
}

func (c *Channel) Notify(e Event) {
	select {
	case c.events <- e:
	default:
		c.logger.Warn().Object("event", e).Msg("Notification dropped, consumer is not keeping up")
	}
}

func (c *Channel) Events() <-chan Event {
	return c.events
}

// Log writes events to a zerolog logger.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Notify(e Event) {
	l.Logger.Info().Object("event", e).Msg(e.Kind.Message())
}
