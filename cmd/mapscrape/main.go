package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitNetworkError = 1
	ExitProcessError = 2
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
	ExitPartialError = 6 // some URLs failed, some succeeded
)

var (
	cfgFile           string
	outputFile        string
	outputFormat      string
	browserName       string
	browserAgent      string
	javascript        bool
	cookies           bool
	timeout           int
	maxChars          int
	concurrency       int
	separator         string
	nullSeparator     bool
	userAgent         string
	verbose           bool
	quiet             bool
	file              string
	continueOnError   bool
	noFollowRedirects bool
	validateRedirects bool
	delay             float64
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "mapscrape [urls...]",
	Short: "Extract prompt-ready text from videos, feeds and articles",
	Long: `mapscrape turns URLs into plain text for a language-model prompt.
YouTube links yield caption transcripts, RSS and Atom feeds yield their latest
items, and everything else is run through readability. Each result is printed
as JSON by default.`,
	Version:       version,
	RunE:          run,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/mapscrape/config.toml)")

	// Input/Output flags
	rootCmd.Flags().StringVarP(&file, "file", "f", "", "read URLs from file (one per line)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output to file or directory (default: stdout)")
	rootCmd.Flags().StringVar(&outputFormat, "format", "json", "output format (json|yaml|text|markdown)")
	rootCmd.Flags().StringVar(&separator, "separator", "---", "output separator for multiple URLs")
	rootCmd.Flags().BoolVar(&nullSeparator, "null-separator", false, "use null byte separator (for xargs -0)")

	// Extraction flags
	rootCmd.Flags().IntVar(&timeout, "timeout", 25, "fetch timeout in seconds")
	rootCmd.Flags().IntVar(&maxChars, "max-chars", 48000, "truncate content beyond this many characters")
	rootCmd.Flags().BoolVar(&javascript, "javascript", false, "render articles in a headless browser")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "custom user agent string")
	rootCmd.Flags().StringVar(&browserAgent, "browser-agent", "", "browser agent type (auto|chrome|firefox|safari|edge)")

	// Browser integration flags
	rootCmd.Flags().BoolVar(&cookies, "cookies", false, "send browser cookies with article requests")
	rootCmd.Flags().StringVarP(&browserName, "browser", "b", "auto", "browser for cookie extraction (auto|chrome|firefox|safari|zen)")

	// Pipeline flags
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 1, "max concurrent extractions")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "continue processing remaining URLs on error")
	rootCmd.Flags().BoolVar(&noFollowRedirects, "no-follow-redirects", false, "disable following HTTP redirects")
	rootCmd.Flags().BoolVar(&validateRedirects, "validate-redirects", false, "reject redirects to local or private addresses")
	rootCmd.Flags().Float64Var(&delay, "delay", 0, "delay in seconds between requests (rate limiting)")

	// System flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-content output")

	rootCmd.AddCommand(classifyCmd, configCmd)
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
