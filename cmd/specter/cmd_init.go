package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"specter/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a project for test maintenance",
	Long: `Writes a default specter.yaml if the project has none, creates the
.specter state directory, and runs the initial scan to seed the
structural model and the store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	root, err := resolveRoot(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(root, config.ConfigFileName)); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(root); err != nil {
			return fmt.Errorf("write %s: %w", config.ConfigFileName, err)
		}
		fmt.Printf("Wrote %s\n", config.ConfigFileName)
	}
	if err := os.MkdirAll(config.StateDir(root), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	a, err := newApp(root, false)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	logger.Info("project initialized",
		zap.String("root", root),
		zap.Int("units", n),
	)
	fmt.Printf("Initialized %s (%d source units)\n", root, n)
	return nil
}
