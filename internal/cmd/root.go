// Package cmd wires the credsweep CLI.
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/had-nu/credsweep/internal/config"
	"github.com/had-nu/credsweep/internal/coordinator"
	"github.com/had-nu/credsweep/internal/ignore"
	"github.com/had-nu/credsweep/internal/logger"
	"github.com/had-nu/credsweep/internal/reporter"
	"github.com/had-nu/credsweep/internal/rules"
	"github.com/had-nu/credsweep/internal/scanner"
	"github.com/had-nu/credsweep/internal/walker"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

type options struct {
	dir         string
	format      string
	ignoreFile  string
	configFile  string
	concurrency int
	logLevel    string
	noSave      bool
}

// NewRootCommand creates the root cobra command for credsweep.
func NewRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "credsweep",
		Short: "Scan a directory tree for leaked credentials",
		Long: `Credsweep walks a directory tree and scans every text file for strings
that look like leaked credentials (API keys, passwords, tokens, SSH keys,
JWTs), reporting each match with its file and line.

Files matched by the ignore listing (plus a small built-in exclusion set)
are never read. Scans run concurrently in fixed-size batches so large trees
cannot exhaust the open-file limit.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.dir, "dir", "d", ".", "directory to scan")
	flags.StringVarP(&opts.format, "format", "f", "", "output format: table, json or csv")
	flags.StringVar(&opts.ignoreFile, "ignore-file", "", "ignore listing consulted under the scan root")
	flags.StringVar(&opts.configFile, "config", ".credsweep.yaml", "configuration file")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "files scanned at once per batch")
	flags.StringVar(&opts.logLevel, "log-level", "", "log verbosity: trace, debug, info, warn or error")
	flags.BoolVar(&opts.noSave, "no-save", false, "do not write report artifacts next to the scan root")

	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)

	log := logger.New(cmd.ErrOrStderr(), cfg.LogLevel)
	runID := uuid.NewString()[:8]

	ignorePath := cfg.IgnoreFile
	if !filepath.IsAbs(ignorePath) {
		ignorePath = filepath.Join(opts.dir, ignorePath)
	}
	ignoreRules, err := ignore.Load(ignorePath)
	if err != nil {
		return err
	}
	for _, p := range ignoreRules.Patterns() {
		log.Debugf("ignore rule: %s", p)
	}

	files, err := walker.Walk(opts.dir, ignoreRules)
	if err != nil {
		return err
	}

	ruleSet := rules.Default()
	extra, err := rules.FromSpecs(cfg.Rules)
	if err != nil {
		return err
	}
	ruleSet = append(ruleSet, extra...)

	coord := coordinator.New(
		scanner.New(ruleSet),
		cfg.Concurrency,
		coordinator.RetryPolicy{Attempts: 2, Backoff: cfg.RetryBackoff.Std()},
		log,
	)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	log.Infof("scan %s: %d files under %s, %d rules", runID, len(paths), opts.dir, len(ruleSet))
	start := time.Now()
	result, err := coord.ScanTree(cmd.Context(), paths)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	log.Infof("scan %s finished in %s: %d matches, %d files skipped",
		runID, time.Since(start).Round(time.Millisecond), len(result.Matches), len(result.Skipped))
	for _, sk := range result.Skipped {
		log.Debugf("skipped %s (%s)", sk.Path, sk.Kind)
	}

	if err := reporter.Report(cmd.OutOrStdout(), result.Matches, cfg.Format); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if cfg.SaveReports && len(result.Matches) > 0 {
		jsonPath, csvPath, err := reporter.SaveArtifacts(opts.dir, result.Matches)
		if err != nil {
			return err
		}
		log.Infof("results saved to %s and %s", jsonPath, csvPath)
	}

	if len(result.Matches) > 0 {
		return fmt.Errorf("found %d potential secrets", len(result.Matches))
	}
	return nil
}

// applyFlags lets explicit command-line flags override file configuration.
func applyFlags(cmd *cobra.Command, opts options, cfg *config.Config) {
	if cmd.Flags().Changed("format") {
		cfg.Format = opts.format
	}
	if cmd.Flags().Changed("ignore-file") {
		cfg.IgnoreFile = opts.ignoreFile
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if opts.noSave {
		cfg.SaveReports = false
	}
}

// Execute runs the root command with signal-aware cancellation.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
