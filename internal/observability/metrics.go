package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/danmuck/serdesctl/serdes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	registerOnce sync.Once

	packetItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serdes",
			Subsystem: "packet",
			Name:      "items_total",
			Help:      "Items added to packets by kind.",
		},
		[]string{"session", "mode", "kind"},
	)
	packetBits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serdes",
			Subsystem: "packet",
			Name:      "bits_total",
			Help:      "Bits moved by top level packet items.",
		},
		[]string{"session", "mode"},
	)
	packetFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serdes",
			Subsystem: "packet",
			Name:      "failures_total",
			Help:      "Packets that left the ok status.",
		},
		[]string{"session", "mode", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetItems, packetBits, packetFailures)
	})
}

// RecordItem counts one observed packet item. Bits and failures are only counted
// at depth 0 so nested items are not counted twice.
func RecordItem(session string, ev serdes.Event) {
	RegisterMetrics()
	mode := ev.Mode.String()
	packetItems.WithLabelValues(session, mode, ev.Kind.String()).Inc()
	if ev.Depth != 0 {
		return
	}
	packetBits.WithLabelValues(session, mode).Add(float64(ev.Bits))
	if ev.Status != serdes.OK {
		packetFailures.WithLabelValues(session, mode, ev.Status.String()).Inc()
	}
}

// WriteMetrics renders the serdes metric families in text exposition format.
func WriteMetrics(w io.Writer) error {
	RegisterMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "serdes_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// Observer records events as metrics without logging them.
func Observer(session string) serdes.Observer {
	return serdes.ObserverFunc(func(ev serdes.Event) {
		RecordItem(session, ev)
	})
}
