package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the configured provider",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := newApp(".", true)
	if err != nil {
		return err
	}
	defer a.Close()

	models, err := a.gateway.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("list models on %s: %w", a.gateway.Name(), err)
	}
	fmt.Printf("Provider: %s\n", a.gateway.Name())
	for _, m := range models {
		marker := "  "
		if m == a.cfg.AI.Model {
			marker = "* "
		}
		fmt.Println(marker + m)
	}
	return nil
}
