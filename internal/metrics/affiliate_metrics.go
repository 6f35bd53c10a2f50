package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AffiliateMetrics интерфейс для метрик партнерской программы
type AffiliateMetrics interface {
	IncReferralTracked(result string)
	ObserveCommission(amount float64)
	IncStatusPropagation(status string)
	AddCommissionsAccrued(n int)
}

// Значения label result для affiliate_referrals_tracked_total
const (
	ResultCreated        = "created"
	ResultAlreadyTracked = "already_tracked"
	ResultRejected       = "rejected"
)

type affiliateMetrics struct {
	referralsTracked   *prometheus.CounterVec
	commissionAmount   prometheus.Histogram
	statusPropagations *prometheus.CounterVec
	commissionsAccrued prometheus.Counter
}

// NewAffiliateMetrics регистрирует метрики в registry
func NewAffiliateMetrics(registry *prometheus.Registry) AffiliateMetrics {
	return &affiliateMetrics{
		referralsTracked: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_referrals_tracked_total",
				Help: "The total number of track-referral calls by result",
			},
			[]string{"result"},
		),
		commissionAmount: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "affiliate_commission_amount",
				Help:    "Commission amounts booked for new referrals",
				Buckets: prometheus.ExponentialBuckets(1, 5, 6), // 1, 5, 25, 125, 625, 3125
			},
		),
		statusPropagations: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_status_propagations_total",
				Help: "The total number of subscription status propagations",
			},
			[]string{"status"},
		),
		commissionsAccrued: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "affiliate_commissions_accrued_total",
				Help: "The total number of pending commission payments created by accrual",
			},
		),
	}
}

// IncReferralTracked увеличивает счетчик засчитанных рефералов
func (m *affiliateMetrics) IncReferralTracked(result string) {
	m.referralsTracked.WithLabelValues(result).Inc()
}

// ObserveCommission записывает сумму комиссии
func (m *affiliateMetrics) ObserveCommission(amount float64) {
	m.commissionAmount.Observe(amount)
}

// IncStatusPropagation увеличивает счетчик смен статуса
func (m *affiliateMetrics) IncStatusPropagation(status string) {
	m.statusPropagations.WithLabelValues(status).Inc()
}

// AddCommissionsAccrued добавляет созданные начисления
func (m *affiliateMetrics) AddCommissionsAccrued(n int) {
	m.commissionsAccrued.Add(float64(n))
}

// NewNopAffiliateMetrics метрики на отдельном реестре, для тестов и CLI
func NewNopAffiliateMetrics() AffiliateMetrics {
	return NewAffiliateMetrics(prometheus.NewRegistry())
}
