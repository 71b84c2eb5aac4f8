package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lingxian"

// Collector 业务指标收集器，方法均允许 nil 接收者
type Collector struct {
	ordersCreated      prometheus.Counter
	orderTransitions   *prometheus.CounterVec
	stockRejections    prometheus.Counter
	paymentCallbacks   *prometheus.CounterVec
	paymentOrphans     prometheus.Counter
	gatewayDuration    *prometheus.HistogramVec
	pointsAccrued      *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

var (
	globalOnce      sync.Once
	globalCollector *Collector
)

// NewCollector 在指定注册器上创建收集器，测试可传入独立 Registry
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ordersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders created",
		}),
		orderTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by source and target status",
		}, []string{"from", "to"}),
		stockRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reservation_rejected_total",
			Help:      "Order creations rejected for insufficient stock",
		}),
		paymentCallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Payment callbacks by outcome",
		}, []string{"gateway", "outcome"}),
		paymentOrphans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_orphaned_total",
			Help:      "Successful payments whose order could not transition to paid",
		}),
		gatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_gateway_duration_seconds",
			Help:      "Payment gateway call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gateway", "operation", "status"}),
		pointsAccrued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_changed_total",
			Help:      "Points accrued or spent by source",
		}, []string{"change_type", "source"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key prefix and result",
		}, []string{"key_prefix", "result"}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Default 返回注册在默认注册器上的全局收集器
func Default() *Collector {
	globalOnce.Do(func() {
		globalCollector = NewCollector(prometheus.DefaultRegisterer)
	})
	return globalCollector
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

func (c *Collector) OrderCreated() {
	if c == nil {
		return
	}
	c.ordersCreated.Inc()
}

func (c *Collector) OrderTransition(from, to string) {
	if c == nil {
		return
	}
	c.orderTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) StockRejected() {
	if c == nil {
		return
	}
	c.stockRejections.Inc()
}

// PaymentCallback outcome: paid / duplicate / failed / conflict / orphaned / ignored
func (c *Collector) PaymentCallback(gateway, outcome string) {
	if c == nil {
		return
	}
	c.paymentCallbacks.WithLabelValues(gateway, outcome).Inc()
}

func (c *Collector) PaymentOrphaned() {
	if c == nil {
		return
	}
	c.paymentOrphans.Inc()
}

// ObserveGateway 记录网关调用耗时
func (c *Collector) ObserveGateway(gateway, operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.gatewayDuration.WithLabelValues(gateway, operation, status).Observe(duration.Seconds())
}

func (c *Collector) PointsChanged(changeType, source string, points int) {
	if c == nil || points <= 0 {
		return
	}
	c.pointsAccrued.WithLabelValues(changeType, source).Add(float64(points))
}

func (c *Collector) CacheLookup(keyPrefix string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(keyPrefix, result).Inc()
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (c *Collector) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	c.httpRequestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
