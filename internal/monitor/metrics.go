package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

const namespace = "quantara"

// Collector exports bus, timer and state counters to Prometheus. Values are
// read at scrape time. Nil sources are skipped.
type Collector struct {
	bus    *event.Bus
	timers *timer.Registry
	store  *state.Store

	emitted    *prometheus.Desc
	deliveries *prometheus.Desc
	listeners  *prometheus.Desc
	names      *prometheus.Desc
	timerCount *prometheus.Desc
	history    *prometheus.Desc
}

// NewCollector creates a collector over the given components.
func NewCollector(bus *event.Bus, timers *timer.Registry, store *state.Store) *Collector {
	return &Collector{
		bus:    bus,
		timers: timers,
		store:  store,
		emitted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "events_emitted_total"),
			"Events emitted on the bus.", nil, nil),
		deliveries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "deliveries_total"),
			"Listener invocations by outcome.", []string{"outcome"}, nil),
		listeners: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "listeners"),
			"Registered listeners.", nil, nil),
		names: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "event_names"),
			"Event names and patterns with at least one listener.", nil, nil),
		timerCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "timers", "live"),
			"Live named timers.", []string{"kind"}, nil),
		history: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "state", "history_entries"),
			"Recorded state changes.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.emitted
	ch <- c.deliveries
	ch <- c.listeners
	ch <- c.names
	ch <- c.timerCount
	ch <- c.history
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.bus != nil {
		s := c.bus.Stats()
		ch <- prometheus.MustNewConstMetric(c.emitted, prometheus.CounterValue, float64(s.Emitted))
		ch <- prometheus.MustNewConstMetric(c.deliveries, prometheus.CounterValue, float64(s.Delivered), "ok")
		ch <- prometheus.MustNewConstMetric(c.deliveries, prometheus.CounterValue, float64(s.ListenerErrors), "error")
		ch <- prometheus.MustNewConstMetric(c.deliveries, prometheus.CounterValue, float64(s.ListenerPanics), "panic")
		ch <- prometheus.MustNewConstMetric(c.listeners, prometheus.GaugeValue, float64(s.Listeners))
		ch <- prometheus.MustNewConstMetric(c.names, prometheus.GaugeValue, float64(s.Events))
	}
	if c.timers != nil {
		ch <- prometheus.MustNewConstMetric(c.timerCount, prometheus.GaugeValue,
			float64(len(c.timers.Intervals())), timer.KindInterval.String())
		ch <- prometheus.MustNewConstMetric(c.timerCount, prometheus.GaugeValue,
			float64(len(c.timers.Timeouts())), timer.KindTimeout.String())
	}
	if c.store != nil {
		ch <- prometheus.MustNewConstMetric(c.history, prometheus.GaugeValue, float64(len(c.store.History())))
	}
}

// NewRegistry returns a Prometheus registry holding c and the standard Go
// runtime and process collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
