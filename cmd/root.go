package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:     "authgate",
	Short:   "authgate - OAuth 2.0 PKCE authorization broker",
	Long:    `A single-binary OAuth broker that runs authorization-code flows (with PKCE where supported) against Twitter, Discord, and GitHub.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("authgate version {{.Version}}\n")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
