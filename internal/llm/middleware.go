package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Metrics are the prometheus collectors recorded by Instrument.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Tokens   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptwiz",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Completion calls by task and outcome.",
		}, []string{"task", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scriptwiz",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Completion call latency by task.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"task"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptwiz",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens reported by the provider by task and type.",
		}, []string{"task", "type"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Latency, m.Tokens)
	}
	return m
}

type instrumented struct {
	next    Invoker
	metrics *Metrics
}

// Instrument records request counts, latency and token usage for every call.
func Instrument(next Invoker, m *Metrics) Invoker {
	return &instrumented{next: next, metrics: m}
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) Invoke(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := i.next.Invoke(ctx, req)
	i.metrics.Latency.WithLabelValues(req.Task).Observe(time.Since(start).Seconds())

	if err != nil {
		i.metrics.Requests.WithLabelValues(req.Task, string(KindOf(err))).Inc()
		return nil, err
	}
	i.metrics.Requests.WithLabelValues(req.Task, "ok").Inc()
	i.metrics.Tokens.WithLabelValues(req.Task, "prompt").Add(float64(resp.Usage.PromptTokens))
	i.metrics.Tokens.WithLabelValues(req.Task, "completion").Add(float64(resp.Usage.CompletionTokens))
	return resp, nil
}

type throttled struct {
	next    Invoker
	limiter *rate.Limiter
}

// Throttle makes every call wait for the limiter first. A wait that cannot
// complete before ctx ends fails with KindRateLimit and no call is made.
func Throttle(next Invoker, limiter *rate.Limiter) Invoker {
	return &throttled{next: next, limiter: limiter}
}

func (t *throttled) Name() string {
	return t.next.Name()
}

func (t *throttled) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindRateLimit, Message: "local request limit reached", Err: err}
	}
	return t.next.Invoke(ctx, req)
}
