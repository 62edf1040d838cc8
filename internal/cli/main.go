// Package cli is the viralcut command line: render clips locally or drive a
// running API.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"viralcut/internal/config"
)

func Main() {
	_ = godotenv.Load()

	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "viralcut",
		Short:        "Cut short clips out of a long video",
		SilenceUsage: true,
	}
	root.SilenceErrors = true
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().String("api", config.Env("VIRALCUT_API_URL", "http://localhost:3001"), "Base URL of the clip API")

	root.AddCommand(newRenderCmd(), newSubmitCmd(), newStatusCmd())
	return root
}
