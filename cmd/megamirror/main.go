package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyper-ai-inc/megamirror/internal/config"
	"github.com/hyper-ai-inc/megamirror/internal/localfs"
	"github.com/hyper-ai-inc/megamirror/internal/logging"
	"github.com/hyper-ai-inc/megamirror/internal/megacmd"
	"github.com/hyper-ai-inc/megamirror/internal/syncer"
)

// version is stamped by the release build.
var version = "dev"

var (
	// Global flags
	cfgPath   string
	verbosity int
	logFile   string

	// Sync flags
	remoteURL  string
	localDir   string
	listMode   string
	transfers  int
	cmdTimeout time.Duration
	dryRun     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "megamirror",
	Short: "One-way mirror of a public MEGA folder into a local directory",
	Long: `megamirror drives the MEGAcmd suite to keep a local directory in step
with a public MEGA folder link. Each run lists the remote tree, diffs it
against the local copy and queues downloads for anything new or stale.
Local files that are strictly newer than their remote counterpart are
never overwritten.

MEGAcmd (mega-login, mega-ls, mega-get, ...) must be installed and on
the PATH.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("config") {
			if _, err := os.Stat(cfgPath); err != nil {
				return fmt.Errorf("config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if logFile != "" {
			cfg.LogFile = logFile
		}

		logger, err = logging.Build(verbosity, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass against the remote folder",
	Long: `Logs into the configured folder link, captures the remote listing,
compares it with the local directory and queues the downloads needed to
bring the local copy up to date. Existing local files are replaced only
when the remote copy differs in size or is at least as new.

Transfers are queued in the background by MEGAcmd; run mega-transfers
to watch their progress.`,
	RunE: runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the megamirror version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "megamirror "+version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "megamirror.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Raise console verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write the full debug log to this file")

	syncCmd.Flags().StringVarP(&remoteURL, "remote", "r", "", "Public MEGA folder link to mirror")
	syncCmd.Flags().StringVarP(&localDir, "local", "l", "", "Local directory to mirror into")
	syncCmd.Flags().StringVar(&listMode, "listing", "", `Enumeration strategy: "recursive" or "walk"`)
	syncCmd.Flags().IntVar(&transfers, "transfers", 0, "Concurrent fetch dispatches")
	syncCmd.Flags().DurationVar(&cmdTimeout, "timeout", 0, "Per-command timeout for MEGAcmd invocations")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and print the plan without transferring anything")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "megamirror: "+err.Error())
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	applyFlagOverrides(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels the run; the partial plan is a legitimate
	// terminal state and the next run resumes from local state.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("shutdown signal received; stopping after in-flight work")
			cancel()
		case <-ctx.Done():
		}
	}()

	client := megacmd.NewClient(cfg.Timeout(), logger)
	s := syncer.New(client, localfs.New(cfg.Local), syncer.Options{
		RemoteURL: cfg.Remote,
		LocalRoot: cfg.Local,
		Strategy:  syncer.Strategy(cfg.Listing),
		Transfers: cfg.Transfers,
		DryRun:    dryRun,
	}, logger)

	_, err := s.Run(ctx)
	return err
}

// applyFlagOverrides lays explicitly-set sync flags over the loaded
// config. Precedence: defaults < file < environment < flags.
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("remote") {
		cfg.Remote = remoteURL
	}
	if flags.Changed("local") {
		cfg.Local = localDir
	}
	if flags.Changed("listing") {
		cfg.Listing = listMode
	}
	if flags.Changed("transfers") {
		cfg.Transfers = transfers
	}
	if flags.Changed("timeout") {
		cfg.CommandTimeout = cmdTimeout.String()
	}
}
