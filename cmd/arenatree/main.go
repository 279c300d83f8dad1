// arenatree exercises arena-backed red-black trees with randomized workloads
// and reports their storage behavior.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdp "github.com/spacemeshos/go-arenatree/cmd"
	"github.com/spacemeshos/go-arenatree/codec"
	"github.com/spacemeshos/go-arenatree/filesystem"
	"github.com/spacemeshos/go-arenatree/log"
	"github.com/spacemeshos/go-arenatree/metrics"
	"github.com/spacemeshos/go-arenatree/tree"
)

var (
	version string
	commit  string
	branch  string
)

func main() {
	cmdp.Version = version
	cmdp.Commit = commit
	cmdp.Branch = branch
	if err := newRootCmd().Execute(); err != nil {
		// the error was already printed by cobra
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "arenatree",
		Short:        "arena-backed red-black tree tools",
		SilenceUsage: true,
	}
	cmdp.AddCommands(root)

	churn := &cobra.Command{
		Use:   "churn",
		Short: "run a randomized workload against a tree and its clones",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			app := cmdp.NewBaseApp()
			if err := app.Initialize(c); err != nil {
				return err
			}
			return churnCmd(cmdp.Ctx(), app)
		},
	}
	cmdp.AddChurnFlags(churn)

	root.AddCommand(churn, &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, _ []string) {
			c.Print(cmdp.Version)
			if cmdp.Commit != "" {
				c.Printf("+%s", cmdp.Commit)
			}
			c.Println()
		},
	})
	return root
}

func churnCmd(ctx context.Context, app *cmdp.BaseApp) error {
	conf := app.Config
	logger := app.Logger
	if conf.Metrics.Collect {
		srv := metrics.StartCollectingMetrics(logger, conf.Metrics.Port)
		defer srv.Close()
		logger.Info("serving metrics", zap.Int("port", conf.Metrics.Port))
	}
	if conf.Churn.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Churn.Timeout)
		defer cancel()
	}

	report, handles, err := runChurn(ctx,
		app.NewLogger("churn", conf.LOGGING.ChurnLoggerLevel),
		app.NewLogger("tree", conf.LOGGING.TreeLoggerLevel),
		*conf)
	if err != nil {
		logger.Error("churn failed", zap.Error(err))
		return err
	}
	if conf.Churn.Report != "" {
		if err := writeReport(conf.Churn.Report, report); err != nil {
			return log.ErrWriteReport(err)
		}
		logger.Info("report written", zap.String("path", conf.Churn.Report))
	}
	if conf.Churn.HandlesFile != "" {
		if err := writeHandles(conf.Churn.HandlesFile, handles); err != nil {
			return log.ErrWriteReport(err)
		}
		logger.Info("handles written", zap.String("path", conf.Churn.HandlesFile), zap.Int("count", len(handles)))
	}
	if conf.Metrics.PushURL != "" {
		grouping := map[string]string{"seed": fmt.Sprint(conf.Churn.Seed)}
		if err := metrics.PushMetrics(conf.Metrics.PushURL, conf.Metrics.PushJob, conf.Metrics.PushHeaders, grouping); err != nil {
			logger.Warn("failed to push metrics", zap.Error(err))
		}
	}
	return nil
}

func writeReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeOutput(path, data)
}

func writeHandles(path string, handles []tree.RawIndex) error {
	data, err := codec.EncodeSlice(handles)
	if err != nil {
		return err
	}
	return writeOutput(path, data)
}

func writeOutput(path string, data []byte) error {
	path, err := filesystem.PrepareOutput(path)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
