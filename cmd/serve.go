package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/logger"
	"github.com/spigell/smartintern/internal/metrics"
	"github.com/spigell/smartintern/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address, overrides server.address")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the smartintern api", zap.String("version", version))

	metrics.Register()

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.Close()

	api := server.New(svc.parser, svc.responder, svc.matcher, svc.letters, config.Server, config.Ranking.TopK, logger)
	srv := &http.Server{
		Addr:         config.Server.Address,
		Handler:      api.Handler(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting http server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}
