package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igposter/pkg/config"
	"igposter/pkg/errors"
	"igposter/pkg/logger"
	"igposter/pkg/poster"
)

var (
	requestFile       string
	publisherMode     string
	outputDir         string
	overwriteExisting bool
	requestsPerMinute int
)

// postCmd represents the post command
var postCmd = &cobra.Command{
	Use:   "post [request.json]",
	Short: "Publish the image post described by a request file",
	Long: `Publish a single image post.

The request file names the account, the image (a local path or an http(s)
URL) and the caption. The image is cropped and resized to the platform's
feed constraints, then uploaded and configured as a new post in one
attempt.

Exit codes:
  0  post published
  2  invalid or incomplete request file
  3  image could not be loaded or processed
  4  authentication failed
  5  submission rejected or failed`,
	Example: `  # Post using ./request.json
  igposter post

  # Post a specific request with the web login flow
  igposter post --mode web my-request.json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().StringVarP(&requestFile, "request", "r", "request.json", "path to the request file")
	postCmd.Flags().StringVarP(&publisherMode, "mode", "m", "", "publishing method: api, web or auto")
	postCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the processed image copy")
	postCmd.Flags().BoolVar(&overwriteExisting, "overwrite", false, "overwrite an existing processed image file")
	postCmd.Flags().IntVar(&requestsPerMinute, "requests-per-minute", 0, "pacing budget for platform calls")
}

func runPost(cmd *cobra.Command, args []string) {
	requestPath := requestFile
	if len(args) == 1 {
		requestPath = args[0]
	}

	flags := globalFlags()
	if publisherMode != "" {
		flags["mode"] = publisherMode
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if overwriteExisting {
		flags["overwrite"] = true
	}
	if requestsPerMinute > 0 {
		flags["requests-per-minute"] = requestsPerMinute
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitConfig)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitFailure)
	}

	log := logger.GetLogger()
	log.WithFields(map[string]interface{}{
		"version": version,
		"request": requestPath,
	}).Info("starting posting run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := poster.New(cfg, log).Run(ctx, requestPath)
	if err != nil {
		log.WithError(err).Error("posting run failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitCode(err))
	}

	fmt.Printf("Post published via %s publisher\n", outcome.Result.Publisher)
	if outcome.Result.URL != "" {
		fmt.Printf("  %s\n", outcome.Result.URL)
	}
	if outcome.OutputPath != "" {
		fmt.Printf("Processed image saved to %s\n", outcome.OutputPath)
	}
}
