package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igposter",
	Short: "Post an image to Instagram from a request file",
	Long: `Instagram Poster publishes a single image post described by a request file.

The request file carries the account credentials, the image to post and
the caption. The image is resized and cropped to the platform's feed
constraints before upload, and the post is submitted exactly once.

Two publishing methods are available:
  - api: reuse an existing session token (sessionid cookie)
  - web: perform a browser-style password login first

Credentials can also be stored securely with "igposter auth login" using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igposter.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	rootCmd.SetVersionTemplate(`Instagram Poster {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags for the config loader
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})

	switch {
	case quiet:
		flags["log-level"] = "error"
	case verbose:
		flags["log-level"] = "debug"
	case logLevel != "":
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}

	return flags
}
