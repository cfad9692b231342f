package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics counts cart mutations and promotion outcomes.
type CartMetrics struct {
	mutations  *prometheus.CounterVec
	promotions *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"operation"})
	promotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_promotion_applications_total",
		Help: "Promotion code applications by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(mutations, promotions)
	return &CartMetrics{
		mutations:  mutations,
		promotions: promotions,
	}
}

// IncMutation increments the counter for the named cart operation.
func (m *CartMetrics) IncMutation(operation string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncPromotion increments the promotion outcome counter.
func (m *CartMetrics) IncPromotion(outcome string) {
	if m == nil || m.promotions == nil {
		return
	}
	m.promotions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
