package observability

import (
	"bytes"
	"testing"

	"github.com/danmuck/serdesctl/serdes"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}

func TestRecordItemCountsTopLevelBitsOnce(t *testing.T) {
	session := "record-item"
	RecordItem(session, serdes.Event{Kind: serdes.KindScalar, Mode: serdes.Storing, Bits: 8, Depth: 1})
	RecordItem(session, serdes.Event{Kind: serdes.KindFormatter, Mode: serdes.Storing, Bits: 8})
	RecordItem(session, serdes.Event{Kind: serdes.KindScalar, Mode: serdes.Storing, Bits: 4, Status: serdes.Overflow})

	assert.Equal(t, 1.0, testutil.ToFloat64(packetItems.WithLabelValues(session, "STORING", "formatter")))
	assert.Equal(t, 2.0, testutil.ToFloat64(packetItems.WithLabelValues(session, "STORING", "scalar")))
	assert.Equal(t, 12.0, testutil.ToFloat64(packetBits.WithLabelValues(session, "STORING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(packetFailures.WithLabelValues(session, "STORING", "overflow")))
}

func TestTracerObservesPacket(t *testing.T) {
	var out bytes.Buffer
	logger := zerolog.New(&out).Level(zerolog.TraceLevel)
	tracer := NewTracer("tracer-test", logger).WithMetrics()

	buf := make([]byte, 1)
	a, b := uint8(1), uint8(2)
	p := serdes.NewPacket(serdes.Bytes(buf), serdes.Storing, serdes.WithObserver(tracer))
	p.Add(&a, &b)
	require.Equal(t, serdes.Overflow, p.Status())

	logs := out.String()
	assert.Contains(t, logs, `"kind":"scalar"`)
	assert.Contains(t, logs, `"level":"warn"`)
	assert.Contains(t, logs, `"status":"overflow"`)
	assert.Equal(t, 1.0, testutil.ToFloat64(packetFailures.WithLabelValues("tracer-test", "STORING", "overflow")))

	var text bytes.Buffer
	require.NoError(t, WriteMetrics(&text))
	assert.Contains(t, text.String(), "serdes_packet_items_total")
	assert.Contains(t, text.String(), `session="tracer-test"`)
}
