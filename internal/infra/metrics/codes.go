package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		codesIssuedTotal,
		codesConfirmedTotal,
		codesCancelledTotal,
		codesExpiredTotal,
		confirmRejectionsTotal,
		limiterFailOpenTotal,
	)
}

var (
	codesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemption_codes_issued_total",
			Help: "Total number of redemption codes issued.",
		},
	)

	codesConfirmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemption_codes_confirmed_total",
			Help: "Total number of redemption codes confirmed by partner terminals.",
		},
	)

	codesCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemption_codes_cancelled_total",
			Help: "Total number of live codes superseded by a newer issuance.",
		},
	)

	codesExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redemption_codes_expired_total",
			Help: "Total number of codes expired by the sweeper or lazy checks.",
		},
	)

	confirmRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemption_confirm_rejections_total",
			Help: "Confirmation rejections by reason.",
		},
		[]string{"reason"}, // 'NOT_FOUND', 'ALREADY_USED', 'EXPIRED', 'WRONG_VENUE', 'DATA_INTEGRITY', 'RATE_LIMITED'
	)

	limiterFailOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_limiter_fail_open_total",
			Help: "Times the admission limiter permitted a call because its own storage was unavailable.",
		},
	)
)

func IncCodesIssued()    { codesIssuedTotal.Inc() }
func IncCodesConfirmed() { codesConfirmedTotal.Inc() }

func AddCodesCancelled(count int) { codesCancelledTotal.Add(float64(count)) }
func IncCodesExpired(count int)   { codesExpiredTotal.Add(float64(count)) }

func IncConfirmRejection(reason string) { confirmRejectionsTotal.WithLabelValues(reason).Inc() }
func IncLimiterFailOpen()               { limiterFailOpenTotal.Inc() }
