package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/clearmodel/internal/clean"
	"github.com/GriffinCanCode/clearmodel/internal/core"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List configured cache roots",
	Long:  "Show every configured cache root with its current size, or mark it missing.",
	RunE:  runPaths,
}

func runPaths(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var s strings.Builder
	s.WriteString("\n  " + styleHeader.Render("Configured cache roots") + "\n\n")

	for _, p := range cfg.CachePaths {
		info, statErr := os.Stat(p)
		switch {
		case statErr != nil:
			s.WriteString(styleDim.Render(fmt.Sprintf("  %12s  %s", "missing", p)) + "\n")
		case !info.IsDir():
			s.WriteString(styleWarn.Render(fmt.Sprintf("  %12s  %s", "not a dir", p)) + "\n")
		default:
			size, _ := clean.DirSize(p)
			s.WriteString(fmt.Sprintf("  %12s  %s\n", styleGood.Render(core.FormatSize(size)), p))
		}
	}

	fmt.Print(s.String())
	return nil
}
