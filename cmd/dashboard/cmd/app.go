package cmd

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/dashboard"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/kis"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/md"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/naver"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/tinvest"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/yahoo"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/news"
	"github.com/STTM-NSU/portfolio-dashboard/internal/portfolio"
	"github.com/STTM-NSU/portfolio-dashboard/internal/postgres"
	"github.com/benbjohnson/clock"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
)

type app struct {
	builder *dashboard.Builder
	closers []func() error
	logger  logger.Logger
}

// newApp wires every data source. Optional sources (postgres, t-invest, naver, news)
// are skipped according to the config.
func newApp(ctx context.Context, cfg config.DashboardConfig, zapLogger *logger.ZapLogger) (*app, error) {
	a := &app{logger: zapLogger}
	clk := clock.New()

	var store md.Store
	if cfg.UsePostgres {
		pgConfig := postgres.NewConfigFromEnv().Setup()
		zapLogger.Debugf("trying to connect to db with: %s", pgConfig)
		db, err := postgres.NewDB(ctx, pgConfig)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%w: can't connect to db", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			a.close()
			return nil, fmt.Errorf("%w: can't migrate db", err)
		}
		store = md.NewDBStore(db)
	}

	var (
		tinvestHistory md.Provider
		tinvestPrices  dashboard.LastPriceSource
	)
	if cfg.TInvest.Enabled {
		investCfg, err := config.LoadInvestConfig(cfg.TInvest.ConfigFile)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%w: can't load invest cfg", err)
		}
		investClient, err := investgo.NewClient(ctx, investCfg, zapLogger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%w: can't create invest client", err)
		}
		a.closers = append(a.closers, investClient.Stop)

		svc := tinvest.NewService(investClient, clk, zapLogger.With("source", "tinvest"))
		tinvestHistory, tinvestPrices = svc, svc
	}

	yahooClient := yahoo.NewClient(zapLogger.With("source", "yahoo"))
	candles := md.NewCandlesService(yahooClient, tinvestHistory, store, clk, cfg.Cache.History, zapLogger)

	kisClient := kis.NewClient(cfg.KIS, cfg.Cache, clk, zapLogger.With("source", "kis"))
	a.closers = append(a.closers, kisClient.Close)
	if !kisClient.Enabled() {
		zapLogger.Warnf("%s and %s are not set, using last daily closes", config.KISAppKeyEnv, config.KISAppSecretEnv)
	}

	var extended dashboard.ExtendedSource
	if !cfg.Naver.Disabled {
		naverClient := naver.NewClient(cfg.Naver, cfg.Cache, clk, zapLogger.With("source", "naver"))
		a.closers = append(a.closers, naverClient.Close)
		extended = naverClient
	}

	var headlines dashboard.NewsSource
	if cfg.News.IsEnabled() {
		newsService := news.NewNewsService(cfg.News, cfg.Cache, clk, zapLogger.With("source", "news"))
		a.closers = append(a.closers, newsService.Close)
		headlines = newsService
	}

	quoter := dashboard.NewQuoter(kisClient, extended, tinvestPrices, cfg.Location(), zapLogger)
	a.builder = dashboard.NewBuilder(
		portfolio.NewPortfolio(cfg.PortfolioFile, zapLogger),
		candles, quoter, headlines, cfg, clk, zapLogger,
	)

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Errorf("%s: can't close resource", err)
		}
	}
}
