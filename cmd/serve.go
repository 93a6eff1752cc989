package cmd

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/cube2222/remotescan/datacenter"
	"github.com/cube2222/remotescan/datasources"
	"github.com/cube2222/remotescan/logs"
	"github.com/cube2222/remotescan/remote"
	"github.com/cube2222/remotescan/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured tables over gRPC.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (outErr error) {
		ctx := cmd.Context()

		cfg, err := readConfig()
		if err != nil {
			return err
		}
		logger, err := logs.NewConsoleLogger(cfg.Logging)
		if err != nil {
			return errors.Wrap(err, "couldn't create logger")
		}
		defer logger.Sync()

		collector := telemetry.NewCollector("remotescan")
		if err := collector.Register(prometheus.DefaultRegisterer); err != nil {
			return err
		}

		env := remote.Environment{
			PageRows:     cfg.Server.PageRows,
			PageBatches:  cfg.Server.PageBatches,
			FetchTimeout: cfg.Scan.FetchTimeout,
			Logger:       logger,
			Telemetry:    collector,
		}
		db, err := datasources.Open(ctx, cfg.Tables, env)
		if err != nil {
			return err
		}

		server := datacenter.NewServer(db, datacenter.WithServerLogger(logger), datacenter.WithServerTelemetry(collector))
		defer func() {
			if err := server.Close(); err != nil && outErr == nil {
				outErr = errors.Wrap(err, "couldn't close statements")
			}
		}()

		grpcServer := grpc.NewServer()
		datacenter.RegisterDatacenterServer(grpcServer, server)

		lis, err := net.Listen("tcp", cfg.Server.Address)
		if err != nil {
			return errors.Wrapf(err, "couldn't listen on %s", cfg.Server.Address)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:              cfg.Server.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("serving tables", zap.String("address", lis.Addr().String()), zap.Int("tables", len(cfg.Tables)))
			return errors.Wrap(grpcServer.Serve(lis), "couldn't serve gRPC")
		})
		g.Go(func() error {
			logger.Info("serving metrics", zap.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "couldn't serve metrics")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			grpcServer.GracefulStop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
