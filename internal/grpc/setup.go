// Package grpc exposes the standard gRPC health and reflection services so that
// orchestrators can probe the translation backend next to the HTTP API.
package grpc

import (
	"sync"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Belphemur/ImageTranslate/internal/config"
)

// ServiceName is the health service key that follows the upstream circuit breaker.
const ServiceName = "imagetranslate.v1.Translator"

// BreakerWatcher notifies listeners when the upstream circuit breaker opens or closes.
type BreakerWatcher interface {
	OnBreakerChange(fn func(open bool))
}

var (
	grpcServerMetrics         *grpcprom.ServerMetrics
	registerServerMetricsOnce sync.Once
)

// NewGRPCServer creates a gRPC server with Prometheus metrics, health checking, and
// reflection. The ServiceName health status turns NOT_SERVING while the breaker is open.
func NewGRPCServer(breaker BreakerWatcher) *grpc.Server {
	// Set up Prometheus gRPC server metrics once per process
	registerServerMetricsOnce.Do(func() {
		grpcServerMetrics = grpcprom.NewServerMetrics(
			grpcprom.WithServerHandlingTimeHistogram(),
		)
		prometheus.MustRegister(grpcServerMetrics)
	})

	srvMetrics := grpcServerMetrics

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(srvMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(srvMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	if breaker != nil {
		logger := config.GetLogger()
		breaker.OnBreakerChange(func(open bool) {
			status := grpc_health_v1.HealthCheckResponse_SERVING
			if open {
				status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
			logger.Info().Str("service", ServiceName).Str("status", status.String()).Msg("Updating gRPC health status")
			healthServer.SetServingStatus(ServiceName, status)
		})
	}

	// Register reflection service for tools like grpcurl
	reflection.Register(grpcServer)

	srvMetrics.InitializeMetrics(grpcServer)

	return grpcServer
}
