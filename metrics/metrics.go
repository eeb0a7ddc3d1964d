package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "code_chronicles"

// Collector records dispatcher activity. Each Collector owns its registry.
type Collector struct {
	registry         *prometheus.Registry
	roomsOpen        prometheus.Gauge
	playersConnected prometheus.Gauge
	matchesStarted   prometheus.Counter
	levelsFinished   *prometheus.CounterVec
	timerTicks       prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		roomsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_open",
			Help:      "Number of rooms currently open",
		}),
		playersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_connected",
			Help:      "Number of websocket clients currently connected",
		}),
		matchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_started_total",
			Help:      "Matches started from a lobby",
		}),
		levelsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "levels_finished_total",
			Help:      "Levels finished, by outcome",
		}, []string{"outcome"}),
		timerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_ticks_total",
			Help:      "Coding countdown ticks processed",
		}),
	}
	c.registry.MustRegister(c.roomsOpen, c.playersConnected, c.matchesStarted, c.levelsFinished, c.timerTicks)
	return c
}

func (c *Collector) RoomOpened() { c.roomsOpen.Inc() }
func (c *Collector) RoomClosed() { c.roomsOpen.Dec() }
func (c *Collector) PlayerConnected() { c.playersConnected.Inc() }
func (c *Collector) PlayerDisconnected() { c.playersConnected.Dec() }
func (c *Collector) MatchStarted() { c.matchesStarted.Inc() }
func (c *Collector) TimerTick() { c.timerTicks.Inc() }

func (c *Collector) LevelFinished(won bool) {
	outcome := "failed"
	if won {
		outcome = "won"
	}
	c.levelsFinished.WithLabelValues(outcome).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
