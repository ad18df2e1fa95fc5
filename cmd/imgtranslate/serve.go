package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Belphemur/ImageTranslate/internal/api"
	"github.com/Belphemur/ImageTranslate/internal/config"
	grpcserver "github.com/Belphemur/ImageTranslate/internal/grpc"
	"github.com/Belphemur/ImageTranslate/internal/metrics"
	"github.com/Belphemur/ImageTranslate/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP translation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.Int("server.port", 8000, "HTTP API port")
	flags.String("server.address", "0.0.0.0", "HTTP API listen address")
	flags.String("api_key", "", "require this value in the X-API-Key header")
	flags.Int("browser.pool_size", 2, "maximum number of concurrent browser sessions")
	flags.Bool("tor.enabled", false, "route every session through Tor")
	flags.Bool("cache.enabled", false, "cache translated images")
	flags.Bool("metrics.enabled", true, "serve Prometheus metrics")
	flags.Bool("grpc.enabled", false, "serve gRPC health checks")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Str("version", version).
		Str("server_address", cfg.Server.Address).
		Int("server_port", cfg.Server.Port).
		Int("pool_size", cfg.Browser.PoolSize).
		Bool("headless", cfg.Browser.Headless).
		Bool("tor_enabled", cfg.Tor.Enabled).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Msg("Application started with configuration")

	if _, err := telemetry.Init(cfg, version); err != nil {
		logger.Warn().Err(err).Msg("Continuing without error reporting")
	}
	defer telemetry.Flush(2 * time.Second)

	translator, driver, results, err := newTranslator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := results.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close result cache")
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           api.NewRouter(cfg, api.NewHandler(cfg, translator)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info().Str("address", apiServer.Addr).Msg("Starting HTTP API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdownHTTP(apiServer)
	})

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port)
		g.Go(func() error {
			logger.Info().Str("address", metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return shutdownHTTP(metricsServer)
		})
	}

	if cfg.GRPC.Enabled {
		grpcServer := grpcserver.NewGRPCServer(driver)
		address := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.GRPC.Port)
		listener, err := net.Listen("tcp", address)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("failed to create gRPC listener on %s: %w", address, err)
		}
		g.Go(func() error {
			logger.Info().Str("address", address).Msg("Starting gRPC health server")
			return grpcServer.Serve(listener)
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	<-gctx.Done()
	logger.Info().Msg("Shutting down")
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Server stopped gracefully")
	return nil
}

func shutdownHTTP(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	return nil
}
