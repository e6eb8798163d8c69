package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpDurationHistogram  *prometheus.HistogramVec
	betsSettledCounter     *prometheus.CounterVec
	stakeCounter           prometheus.Counter
	payoutCounter          prometheus.Counter
	compensationCounter    *prometheus.CounterVec
	fundsCounter           *prometheus.CounterVec
	ledgerImbalanceCounter prometheus.Counter
	idempotencyCounter     *prometheus.CounterVec
	openCasesGauge         prometheus.Gauge
	notifyFailureCounter   prometheus.Counter
	workerRunCounter       *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		betsSettledCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bets_settled_total",
			Help: "Bet settlements by result",
		}, []string{"result"})

		stakeCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bets_stake_kobo_total",
			Help: "Sum of settled stakes in kobo",
		})

		payoutCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bets_payout_kobo_total",
			Help: "Sum of paid out winnings in kobo",
		})

		compensationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_compensations_total",
			Help: "Compensating credits issued after a failed settlement stage",
		}, []string{"stage", "result"})

		fundsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funds_operations_total",
			Help: "Deposit and withdrawal outcomes",
		}, []string{"operation", "result"})

		ledgerImbalanceCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_imbalance_total",
			Help: "Accounts whose balance diverged from their transaction history",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		openCasesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reconciliation_open_cases",
			Help: "Reconciliation cases waiting for manual review",
		})

		notifyFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notify_failures_total",
			Help: "Events that could not be delivered to every observer",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			betsSettledCounter,
			stakeCounter,
			payoutCounter,
			compensationCounter,
			fundsCounter,
			ledgerImbalanceCounter,
			idempotencyCounter,
			openCasesGauge,
			notifyFailureCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveSettlement records one settled bet. result is "win" or "loss".
func ObserveSettlement(result string, stake, payout int64) {
	if betsSettledCounter == nil {
		return
	}
	betsSettledCounter.WithLabelValues(result).Inc()
	stakeCounter.Add(float64(stake))
	payoutCounter.Add(float64(payout))
}

func IncrementSettlementFailure() {
	if betsSettledCounter == nil {
		return
	}
	betsSettledCounter.WithLabelValues("failed").Inc()
}

func IncrementCompensation(stage, result string) {
	if compensationCounter == nil {
		return
	}
	compensationCounter.WithLabelValues(stage, result).Inc()
}

func IncrementFundsOperation(operation, result string) {
	if fundsCounter == nil {
		return
	}
	fundsCounter.WithLabelValues(operation, result).Inc()
}

func IncrementLedgerImbalance() {
	if ledgerImbalanceCounter == nil {
		return
	}
	ledgerImbalanceCounter.Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetOpenCases(size int) {
	if openCasesGauge == nil {
		return
	}
	openCasesGauge.Set(float64(size))
}

func IncrementNotifyFailure() {
	if notifyFailureCounter == nil {
		return
	}
	notifyFailureCounter.Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
