// Package framework invokes framework-specific cache maintenance commands.
// These run outside the deletion engine: they are best-effort collaborators
// and never touch the validated traversal pipeline.
package framework

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// hubTimeout caps a single vendor CLI invocation.
const hubTimeout = 5 * time.Minute

// CleanHuggingFace clears the HuggingFace hub cache through its own CLI when
// the binary is on PATH. Absence of the CLI is not an error — most machines
// simply don't have it. In dry-run mode the command is reported, not run.
func CleanHuggingFace(ctx context.Context, dryRun bool, log zerolog.Logger) error {
	if _, err := exec.LookPath("huggingface-cli"); err != nil {
		log.Debug().Msg("huggingface-cli not available, skipping")
		return nil
	}

	if dryRun {
		log.Info().Msg("would run: huggingface-cli delete-cache --yes")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, hubTimeout)
	defer cancel()

	// --yes avoids the CLI's interactive prompt.
	cmd := exec.CommandContext(ctx, "huggingface-cli", "delete-cache", "--yes")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return handleExitError(err, output)
	}

	log.Info().Msg("cleaned HuggingFace hub cache")
	log.Debug().Str("output", strings.TrimSpace(string(output))).Msg("huggingface-cli output")
	return nil
}

// handleExitError wraps a vendor CLI failure with trimmed context.
func handleExitError(err error, output []byte) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("huggingface-cli timed out after %s", hubTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(string(output))
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		if msg != "" {
			return fmt.Errorf("huggingface-cli failed (exit code %d): %s", exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("huggingface-cli failed (exit code %d)", exitErr.ExitCode())
	}

	return fmt.Errorf("huggingface-cli error: %w", err)
}
