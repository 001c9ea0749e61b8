package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_http_requests_total",
			Help: "Total number of HTTP requests processed by the channel service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channel_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "channel_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_messages_sent_total",
			Help: "Messages durably appended, by channel type.",
		},
		[]string{"channel_type"},
	)
	messagesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_messages_deleted_total",
			Help: "Messages soft-deleted.",
		},
	)
	reactionTogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_reaction_toggles_total",
			Help: "Reaction toggles by resulting action.",
		},
		[]string{"action"},
	)
	typingSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_typing_signals_total",
			Help: "Typing signals received, by outcome.",
		},
		[]string{"outcome"},
	)
	broadcastPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_broadcast_publish_total",
			Help: "Broadcast publishes by envelope kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	pageLoadSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "channel_page_load_messages",
			Help:    "Number of messages returned per history page.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		messagesSentTotal,
		messagesDeletedTotal,
		reactionTogglesTotal,
		typingSignalsTotal,
		broadcastPublishTotal,
		pageLoadSize,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncMessageSent(channelType string) {
	messagesSentTotal.WithLabelValues(channelType).Inc()
}

func IncMessageDeleted() {
	messagesDeletedTotal.Inc()
}

func IncReactionToggle(action string) {
	reactionTogglesTotal.WithLabelValues(action).Inc()
}

func IncTypingSignal(outcome string) {
	typingSignalsTotal.WithLabelValues(outcome).Inc()
}

// IncBroadcastPublish counts a broadcast attempt; outcome is "ok" or "error".
func IncBroadcastPublish(kind, outcome string) {
	broadcastPublishTotal.WithLabelValues(kind, outcome).Inc()
}

func ObservePageLoad(n int) {
	pageLoadSize.Observe(float64(n))
}
