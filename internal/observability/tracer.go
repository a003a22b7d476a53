package observability

import (
	"github.com/danmuck/serdesctl/serdes"
	"github.com/rs/zerolog"
)

// Tracer logs packet items and optionally records them as metrics.
type Tracer struct {
	session string
	logger  zerolog.Logger
	metrics bool
}

func NewTracer(session string, logger zerolog.Logger) *Tracer {
	return &Tracer{session: session, logger: logger}
}

// WithMetrics makes the tracer record every event through RecordItem.
func (t *Tracer) WithMetrics() *Tracer {
	t.metrics = true
	return t
}

func (t *Tracer) Observe(ev serdes.Event) {
	event := t.logger.Trace()
	if ev.Status != serdes.OK && ev.Depth == 0 {
		event = t.logger.Warn()
	}
	event.
		Str("session", t.session).
		Str("mode", ev.Mode.String()).
		Str("kind", ev.Kind.String()).
		Uint64("offset", ev.Offset).
		Uint64("bits", ev.Bits).
		Int("depth", ev.Depth).
		Str("status", ev.Status.String()).
		Msg("packet_item")
	if t.metrics {
		RecordItem(t.session, ev)
	}
}
