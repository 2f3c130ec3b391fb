package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/clearmodel/internal/core"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Estimate reclaimable cache space",
	Long: `Run the full scan and selection pipeline in simulation mode and
report how much space a clean would reclaim, broken down per cache root.
Nothing is deleted.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Estimation is always a dry run; the confirmation gate never fires.
	report, err := executeRun(ctx, cfg, true, false)
	if err != nil {
		return err
	}

	var s strings.Builder
	s.WriteString("\n  " + styleHeader.Render("Reclaimable cache space") + "\n\n")
	s.WriteString(renderPerRoot(report))
	s.WriteString("\n  Total: " + styleGood.Render(core.FormatSize(report.BytesReclaimed)) + "\n")
	if report.SecurityRejected > 0 {
		s.WriteString(styleWarn.Render(fmt.Sprintf("  %d paths rejected by security validation", report.SecurityRejected)) + "\n")
	}
	fmt.Print(s.String())
	return nil
}
