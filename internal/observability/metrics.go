package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/TwigaDEVs/BitCred/internal/chain"
	"github.com/TwigaDEVs/BitCred/internal/lending"
)

// ChainMetrics counts operation outcomes on the devnet. It plugs into
// the chain environment as an observer.
type ChainMetrics struct {
	committed    prometheus.Counter
	reverted     prometheus.Counter
	events       *prometheus.CounterVec
	liquidations prometheus.Counter
}

func NewChainMetrics(reg prometheus.Registerer) *ChainMetrics {
	factory := promauto.With(reg)
	return &ChainMetrics{
		committed: factory.NewCounter(prometheus.CounterOpts{
			Name: "bitcred_chain_tx_committed_total",
			Help: "Operations that committed.",
		}),
		reverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bitcred_chain_tx_reverted_total",
			Help: "Operations that failed and were reverted.",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bitcred_chain_events_total",
			Help: "Contract events emitted, by event name.",
		}, []string{"event"}),
		liquidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "bitcred_pool_liquidations_total",
			Help: "Positions liquidated.",
		}),
	}
}

func (m *ChainMetrics) Committed(receipt chain.Receipt) {
	m.committed.Inc()
	for _, ev := range receipt.Events {
		m.events.WithLabelValues(ev.Name).Inc()
		if ev.Name == lending.EventLiquidated {
			m.liquidations.Inc()
		}
	}
}

func (m *ChainMetrics) Reverted(chain.Address, error) {
	m.reverted.Inc()
}
