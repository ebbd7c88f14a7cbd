package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"specter/internal/heal"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run one healing session for a single file",
	Long: `Analyzes one source file and drives a full session for it: generate
the suite, execute, classify, heal or escalate. The exit code is zero
only when the session ends healed.`,
	Args: cobra.ExactArgs(1),
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(".", true)
	if err != nil {
		return err
	}
	defer a.Close()

	rel, err := filepath.Rel(a.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s is outside the project root %s", args[0], a.root)
	}
	rel = filepath.ToSlash(rel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seed the graph so the prompt carries the unit's neighborhood.
	if _, err := a.scanner.Scan(ctx); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		return err
	}
	unit, err := a.scanner.Refresh(ctx, rel, content)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", rel, err)
	}
	if unit.Degraded {
		return fmt.Errorf("%s does not parse, fix it first", rel)
	}

	summary := a.orch.RunSession(ctx, heal.NewSession(rel), unit, string(content))

	logger.Info("session finished",
		zap.String("unit", summary.UnitPath),
		zap.String("verdict", summary.Verdict),
		zap.Int("attempts", summary.Attempts),
		zap.Duration("elapsed", summary.Elapsed),
	)
	if summary.Verdict != heal.VerdictHealed {
		return fmt.Errorf("session for %s ended %s: %s", rel, summary.Verdict, summary.Rationale)
	}
	fmt.Printf("Healed %s in %d attempts\n", rel, summary.Attempts)
	return nil
}
