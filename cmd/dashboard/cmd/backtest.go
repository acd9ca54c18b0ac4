package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var (
	btShort  int
	btLong   int
	btPeriod string
	btJSON   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest CODE [CODE...]",
	Short: "Backtest the moving-average crossover on daily closes",
	Long: `Backtest goes long while the short moving average is above the long one and
compares the compounded result against buy and hold over the same closes.

Example:
  dashboard backtest 005930 --short 20 --long 60 --period 5y`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().IntVar(&btShort, "short", 0, "short moving average window (default from config)")
	backtestCmd.Flags().IntVar(&btLong, "long", 0, "long moving average window (default from config)")
	backtestCmd.Flags().StringVar(&btPeriod, "period", "", "lookback period such as 1y or 5y (default from config)")
	backtestCmd.Flags().BoolVar(&btJSON, "json", false, "print results as JSON")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if btShort > 0 {
		cfg.Backtest.ShortWindow = btShort
	}
	if btLong > 0 {
		cfg.Backtest.LongWindow = btLong
	}
	if btPeriod != "" {
		cfg.Backtest.Period = btPeriod
	}
	if err := cfg.Backtest.ValidateAndSetup(); err != nil {
		return fmt.Errorf("%w: invalid backtest flags", err)
	}

	a, err := newApp(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer a.close()

	var failed int
	for _, code := range args {
		res, err := a.builder.Backtest(ctx, code)
		if err != nil {
			zapLogger.Errorf("%s: backtest failed", err)
			failed++
			continue
		}
		if btJSON {
			body, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("%w: can't encode result", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			continue
		}
		printResult(cmd.OutOrStdout(), res)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d backtests failed", failed, len(args))
	}
	return nil
}

func printResult(w io.Writer, res model.BacktestResult) {
	fmt.Fprintf(w, "%s  MA%d/MA%d  %s .. %s\n", res.Ticker, res.ShortWindow, res.LongWindow,
		res.From.Format("2006-01-02"), res.To.Format("2006-01-02"))
	fmt.Fprintf(w, "  buy & hold  %+8.2f%%\n", res.BuyHoldReturnPct)
	fmt.Fprintf(w, "  strategy    %+8.2f%%\n", res.StrategyReturnPct)
	fmt.Fprintf(w, "  trades      %8d  win rate %.1f%%\n", res.TradeCount, res.WinRatePct)
	for _, t := range res.Trades {
		fmt.Fprintf(w, "    %s %10.2f -> %s %10.2f  %+7.2f%%\n",
			t.EntryDate.Format("2006-01-02"), t.EntryPrice, t.ExitDate.Format("2006-01-02"), t.ExitPrice, t.ReturnPct)
	}
	if t := res.OpenTrade; t != nil {
		fmt.Fprintf(w, "    %s %10.2f -> open                %+7.2f%%\n",
			t.EntryDate.Format("2006-01-02"), t.EntryPrice, t.ReturnPct)
	}
}
