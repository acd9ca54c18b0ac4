package cmd

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/STTM-NSU/portfolio-dashboard/internal/server"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP and refresh it on a schedule",
	Long: `Serve rebuilds the snapshot on the configured cron schedule and exposes:

  GET /                       rendered dashboard
  GET /charts/{code}.svg      candlestick chart of a held position
  GET /api/portfolio          snapshot as JSON
  GET /api/backtest/{code}    MA crossover backtest as JSON
  GET /health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "override listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer a.close()

	if servePort != "" {
		cfg.Server.Port = servePort
	}

	refresher := server.NewRefresher(a.builder, cfg.Server.RefreshSchedule, zapLogger)
	router := server.NewRouter(refresher, a.builder, zapLogger)
	httpServer := server.NewHTTPServer(ctx, cfg.Server.Port, router, cfg.Server.ShutdownTimeout, zapLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := refresher.Run(ctx); err != nil {
			zapLogger.Errorf("%s: refresher stopped", err)
			cancel()
		}
	}()

	if err := httpServer.Run(ctx); err != nil {
		zapLogger.Errorf("%s: http server stopped", err)
		cancel()
	}
	wg.Wait()

	zapLogger.Infoln("graceful shutdown finished")
	return nil
}
