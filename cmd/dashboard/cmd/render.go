package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/STTM-NSU/portfolio-dashboard/internal/dashboard"
	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var (
	renderOut  string
	renderJSON bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Build one snapshot and write it as HTML or JSON",
	Example: `  dashboard render -o dashboard.html
  dashboard render --json -o -`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "dashboard.html", `output file, "-" for stdout`)
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "write the snapshot as JSON instead of HTML")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't build snapshot", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if renderOut != "-" {
		f, err := os.Create(renderOut)
		if err != nil {
			return fmt.Errorf("%w: can't create %s", err, renderOut)
		}
		defer f.Close()
		w = f
	}

	if renderJSON {
		body, err := sonic.ConfigStd.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: can't encode snapshot", err)
		}
		_, err = w.Write(append(body, '\n'))
		return err
	}

	if err := dashboard.Render(w, snap); err != nil {
		return err
	}
	if renderOut != "-" {
		zapLogger.Infof("snapshot %s written to %s", snap.ID, renderOut)
	}
	return nil
}
