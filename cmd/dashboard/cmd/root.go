package cmd

import (
	"fmt"

	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const _configFileDefault = "./configs/dashboard.yaml"

var (
	cfgFile       string
	logLevel      string
	portfolioFile string

	cfg        config.DashboardConfig
	zapLogger  *logger.ZapLogger
	loggerSync func()
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Personal stock portfolio dashboard",
	Long: `Dashboard values the positions of a portfolio file against live and daily
market data, renders a per-stock summary with charts and headlines, and runs
a moving-average crossover backtest on any stock.

Credentials are read from the environment (or a .env file):
  KIS_APP_KEY, KIS_APP_SECRET   real-time KRX quotes
  T_INVEST_API_TOKEN            "tinvest/<TICKER>" positions
  POSTGRES_*                    candle storage when use_postgres is set`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if loggerSync != nil {
			loggerSync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", _configFileDefault, "path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&portfolioFile, "portfolio", "p", "", "override portfolio file path")
}

func setup(cmd *cobra.Command, args []string) error {
	envErr := godotenv.Load()

	var err error
	cfg, err = config.LoadDashboardConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("%w: can't load config %s", err, cfgFile)
	}
	if portfolioFile != "" {
		cfg.PortfolioFile = portfolioFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	zapLogger, loggerSync, err = logger.NewZapLogger(logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: can't init logger", err)
	}
	if envErr != nil {
		zapLogger.Debugf("can't detect .env file")
	}

	return nil
}
