package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/clearmodel/internal/clean"
	"github.com/GriffinCanCode/clearmodel/internal/config"
	"github.com/GriffinCanCode/clearmodel/internal/core"
	"github.com/GriffinCanCode/clearmodel/internal/framework"
	"github.com/GriffinCanCode/clearmodel/internal/ui"
)

var (
	cleanDryRun     bool
	cleanYes        bool
	cleanFrameworks bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean ML framework caches",
	Long: `Scan the configured cache roots and delete qualifying entries:
files older than the age threshold, Python bytecode caches, and
__pycache__ contents. Deletions above the confirmation threshold
require approval first.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanDryRun, "dry-run", "n", false, "Show what would be cleaned without deleting")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Skip the large-deletion confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanFrameworks, "frameworks", false, "Also run framework-specific cache commands (huggingface-cli)")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dryRun := cleanDryRun
	if !cmd.Flags().Changed("dry-run") && cfg.DefaultDryRun {
		dryRun = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := executeRun(ctx, cfg, dryRun, cleanYes)
	if errors.Is(err, clean.ErrConfirmationRequired) {
		approved, promptErr := confirmLargeDeletion(report.PendingBytes)
		if promptErr != nil {
			return promptErr
		}
		if !approved {
			fmt.Println("Aborted — nothing was deleted.")
			return nil
		}
		report, err = executeRun(ctx, cfg, dryRun, true)
	}
	if err != nil {
		return err
	}

	fmt.Print(renderReport(report, dryRun, verbose || debug))

	if cleanFrameworks {
		if err := framework.CleanHuggingFace(ctx, dryRun, log); err != nil {
			log.Warn().Err(err).Msg("framework cache cleanup failed")
		}
	}

	if min := cfg.MinFreeSpaceGB * 1 << 30; report.FreeSpaceAfter > 0 && report.FreeSpaceAfter < min {
		log.Warn().
			Str("free", core.FormatSizeU(report.FreeSpaceAfter)).
			Uint64("min_free_space_gb", cfg.MinFreeSpaceGB).
			Msg("free space still below the configured minimum")
	}

	return nil
}

// executeRun performs one engine run, with the live progress display when
// attached to a terminal.
func executeRun(ctx context.Context, cfg *config.Config, dryRun, force bool) (*clean.Report, error) {
	executor, scanner, roots, err := buildPipeline(cfg, dryRun, force)
	if err != nil {
		return nil, err
	}

	// The progress TUI owns the terminal; skip it when piped or debugging.
	if !isatty.IsTerminal(os.Stdout.Fd()) || debug {
		return executor.Run(ctx, scanner, roots)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var report *clean.Report
	var runErr error
	uiErr := ui.RunProgress(dryRun, cancel, func(onOutcome func(clean.Outcome)) error {
		executor.OnOutcome = onOutcome
		report, runErr = executor.Run(ctx, scanner, roots)
		return runErr
	})
	if runErr != nil {
		return report, runErr
	}
	return report, uiErr
}

// confirmLargeDeletion asks the user to approve a deletion batch that
// exceeds the confirmation threshold. Non-interactive sessions cannot
// approve; they must re-run with --yes.
func confirmLargeDeletion(pendingBytes int64) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, fmt.Errorf("deletion of %s exceeds the confirmation threshold; re-run with --yes to proceed",
			core.FormatSize(pendingBytes))
	}

	fmt.Printf("About to delete %s of cache data. Proceed? [y/N] ", core.FormatSize(pendingBytes))
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
