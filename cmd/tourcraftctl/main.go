// Package main provides tourcraftctl, the operator CLI of the TourCraft
// back-office.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tourcraft/tourcraft/internal/config"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "v0.1.0"

var (
	flagJSON bool

	// cfg is loaded by PersistentPreRunE for every command but version.
	cfg *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tourcraftctl",
		Short:         "Operator tooling for the TourCraft back-office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			logger.Init(os.Getenv("LOG_LEVEL"))
			logger.SetFormat("console")
			c, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRelationsCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newRelanceCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tourcraftctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tourcraftctl", Version)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
