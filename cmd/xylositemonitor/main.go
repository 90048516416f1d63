package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Xylon2/xylositemonitor/internal/config"
	"github.com/Xylon2/xylositemonitor/internal/monitor"
	"github.com/Xylon2/xylositemonitor/internal/probe"
	"github.com/Xylon2/xylositemonitor/internal/report"
	"github.com/Xylon2/xylositemonitor/internal/transport"
)

var (
	sitesFile       string
	mailTo          string
	annotation      string
	emailOnlyOnFail bool
	outputFile      string
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "xylositemonitor",
	Short: "Tests websites across IPv4/IPv6, TLS/plain and hostname variants",
	Long: `xylositemonitor runs one batch of website checks: every declared test is
expanded across both address families and every declared protocol, failed
sites are re-tested once to rule out transience, and the results are printed
or mailed as an ordered report.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&sitesFile, "sites-file", "/etc/xylosites.yml", "sites definition file")
	rootCmd.Flags().StringVar(&mailTo, "mailto", "", "mail the report to this address instead of printing it")
	rootCmd.Flags().StringVar(&annotation, "annotation", "XyloSiteMonitor", "mail subject prefix")
	rootCmd.Flags().BoolVar(&emailOnlyOnFail, "email-only-on-fail", false, "suppress the mail when every test passes")
	rootCmd.Flags().StringVar(&outputFile, "output", "", "also write a JSON report to this file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.Flags().Int("concurrency", monitor.DefaultConcurrency, "probe worker count")
	rootCmd.Flags().Duration("timeout", probe.DefaultTimeout, "per-check timeout")
	rootCmd.Flags().Int("rate-limit", 0, "max requests per second per host (0=unlimited)")

	viper.SetEnvPrefix("XYLOMON")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("concurrency", rootCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("rate_limit", rootCmd.Flags().Lookup("rate-limit"))
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func run() error {
	logger := newLogger()
	defer logger.Sync()

	f, err := config.Load(sitesFile)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) && mailTo != "" {
			// Config mistakes on a cron host would otherwise go unseen.
			rep := report.Report{Failed: 1, Lines: []report.Line{{Text: err.Error()}}}
			if mailErr := report.SendMail(mailTo, annotation, rep); mailErr != nil {
				logger.Errorw("cannot mail config error", "error", mailErr)
			}
		}
		return err
	}

	timeout := viper.GetDuration("timeout")
	client := transport.NewClient(timeout, viper.GetInt("rate_limit"), 10)
	prober := probe.New(client, timeout)
	engine := monitor.NewEngine(prober, viper.GetInt("concurrency"), monitor.DefaultRetryDelay, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	runs, _, err := engine.Run(ctx, f.Sites, f.Options)
	if err != nil {
		return err
	}
	logger.Debugw("probing finished", "elapsed", time.Since(start))

	rep := report.Build(runs)

	if outputFile != "" {
		if err := report.SaveJSON(runs, rep, outputFile); err != nil {
			logger.Errorw("cannot write JSON report", "error", err)
		}
	}

	if mailTo == "" {
		report.RenderConsole(os.Stdout, rep)
		return nil
	}

	if rep.Failed == 0 && emailOnlyOnFail {
		return nil
	}
	return report.SendMail(mailTo, annotation, rep)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
