package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts outbound traffic. A nil *Metrics records nothing.
type Metrics struct {
	messagesSent    *prometheus.CounterVec
	messagesDropped *prometheus.CounterVec
}

// NewMetrics creates transport metrics and registers them on reg when reg
// is non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorbridge",
			Name:      "messages_sent_total",
			Help:      "Outbound messages posted to a host channel",
		}, []string{"event", "channel"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editorbridge",
			Name:      "messages_dropped_total",
			Help:      "Outbound messages that could not be posted",
		}, []string{"event", "reason"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.messagesSent, m.messagesDropped} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) sent(event, channel string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(event, channel).Inc()
}

func (m *Metrics) dropped(event, reason string) {
	if m == nil {
		return
	}
	m.messagesDropped.WithLabelValues(event, reason).Inc()
}
