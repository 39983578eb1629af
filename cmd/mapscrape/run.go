package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/byteowlz/mapscrape/internal/config"
	"github.com/byteowlz/mapscrape/internal/logging"
	"github.com/byteowlz/mapscrape/internal/output"
	"github.com/byteowlz/mapscrape/pkg/extractor"
)

type urlExtractor interface {
	Extract(ctx context.Context, raw string) (*extractor.Result, error)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	applyFlags(cmd, cfg)

	closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.File, verbose, quiet)
	if err != nil {
		return exitError(ExitConfigError, "failed to set up logging: %v", err)
	}
	defer closer.Close()

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return exitError(ExitInvalidInput, "%v", err)
	}

	urls, err := collectURLs(args)
	if err != nil {
		return exitError(ExitFileIOError, "failed to collect URLs: %v", err)
	}
	if len(urls) == 0 {
		return exitError(ExitInvalidInput, "no URLs provided")
	}
	log.Debug().Int("count", len(urls)).Msg("processing URLs")

	// Set up output writer
	var out io.Writer = os.Stdout
	var outputDir string
	if outputFile != "" {
		// Directory mode when the path ends with / or is an existing directory
		info, statErr := os.Stat(outputFile)
		if (statErr == nil && info.IsDir()) || strings.HasSuffix(outputFile, "/") {
			outputDir = outputFile
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return exitError(ExitFileIOError, "failed to create output directory: %v", err)
			}
		} else {
			f, err := os.Create(outputFile)
			if err != nil {
				return exitError(ExitFileIOError, "failed to create output file %s: %v", outputFile, err)
			}
			defer f.Close()
			out = f
		}
	}

	wr := output.NewWriter(output.Options{
		Format:          format,
		LineWidth:       cfg.Output.LineWidth,
		IncludeMetadata: cfg.Output.IncludeMetadata,
	})

	ex := extractor.New(cfg)
	pause := time.Duration(delay * float64(time.Second))
	outcomes := startExtractions(cmd.Context(), ex, urls, concurrency, pause, !continueOnError)

	hadError := false
	successCount := 0
	failureCode := ExitSuccess

	for _, o := range outcomes {
		<-o.done

		if o.err != nil {
			if !continueOnError {
				// An earlier URL may only have failed because this run was cancelled.
				o = firstFailure(outcomes)
				log.Error().Err(o.err).Str("url", o.url).Msg("extraction failed")
				return exitError(exitCodeFor(o.err), "")
			}
			hadError = true
			if failureCode == ExitSuccess {
				failureCode = exitCodeFor(o.err)
			}
			log.Error().Err(o.err).Str("url", o.url).Msg("extraction failed")
			continue
		}

		if outputDir != "" {
			path := filepath.Join(outputDir, output.Filename(o.url, format))
			if err := writeFile(path, wr, o.res); err != nil {
				hadError = true
				if failureCode == ExitSuccess {
					failureCode = ExitFileIOError
				}
				log.Error().Err(err).Str("path", path).Msg("failed to write output file")
				if !continueOnError {
					return exitError(ExitFileIOError, "")
				}
				continue
			}
			log.Debug().Str("path", path).Msg("saved")
			successCount++
			continue
		}

		if successCount > 0 {
			if nullSeparator {
				io.WriteString(out, "\x00")
			} else {
				io.WriteString(out, "\n"+separator+"\n")
			}
		}
		if err := wr.Write(out, o.res); err != nil {
			return exitError(ExitFileIOError, "failed to write output: %v", err)
		}
		successCount++
	}

	if hadError && successCount > 0 {
		return &exitErr{code: ExitPartialError}
	} else if hadError {
		return &exitErr{code: failureCode}
	}
	return nil
}

// applyFlags overlays explicitly set flags on cfg, and fills unset flags
// from cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("timeout") {
		cfg.Extraction.Timeout = timeout
		cfg.Feed.Timeout = timeout
		cfg.YouTube.Timeout = timeout
	}
	if flags.Changed("max-chars") {
		cfg.Extraction.MaxChars = maxChars
	}
	if flags.Changed("javascript") && javascript {
		cfg.Extraction.EnableJS = "always"
	}
	if flags.Changed("user-agent") {
		cfg.Network.UserAgent = userAgent
	}
	if flags.Changed("browser-agent") {
		cfg.Network.BrowserAgent = browserAgent
	}
	if flags.Changed("cookies") {
		cfg.Browser.Cookies = cookies
	}
	if flags.Changed("browser") {
		cfg.Browser.Default = browserName
	}
	if flags.Changed("no-follow-redirects") {
		cfg.Network.FollowRedirects = !noFollowRedirects
	}
	if flags.Changed("validate-redirects") {
		cfg.Network.ValidateRedirects = validateRedirects
	}

	// Apply config defaults if CLI flags not explicitly set
	if !flags.Changed("format") && cfg.Output.DefaultFormat != "" {
		outputFormat = cfg.Output.DefaultFormat
	}
	if !flags.Changed("separator") && cfg.Output.Separator != "" {
		separator = cfg.Output.Separator
	}
	if !flags.Changed("null-separator") {
		nullSeparator = cfg.Output.NullSeparator
	}
	if !flags.Changed("delay") && cfg.Network.Delay > 0 {
		delay = float64(cfg.Network.Delay)
	}
	if !flags.Changed("concurrency") {
		concurrency = cfg.Parallel.MaxConcurrency
	}
	if !flags.Changed("continue-on-error") {
		continueOnError = !cfg.Parallel.FailFast
	}
}

func exitCodeFor(err error) int {
	kind, ok := extractor.KindOf(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ExitNetworkError
		}
		return ExitProcessError
	}
	switch kind {
	case extractor.InvalidInput:
		return ExitInvalidInput
	case extractor.FetchFailed:
		return ExitNetworkError
	default:
		return ExitProcessError
	}
}

func writeFile(path string, wr *output.Writer, res *extractor.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wr.Write(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// firstFailure waits for every outcome and returns the first one whose error
// is not a cancellation, falling back to the first cancelled one.
func firstFailure(outcomes []*outcome) *outcome {
	var cancelled *outcome
	for _, o := range outcomes {
		<-o.done
		if o.err == nil {
			continue
		}
		if !errors.Is(o.err, context.Canceled) {
			return o
		}
		if cancelled == nil {
			cancelled = o
		}
	}
	return cancelled
}

type outcome struct {
	url  string
	res  *extractor.Result
	err  error
	done chan struct{}
}

// startExtractions runs ex over urls with at most workers extractions in
// flight and returns immediately. Outcomes are in input order; each done
// channel closes when its extraction finishes or is skipped. With failFast
// the first error cancels everything still pending.
func startExtractions(ctx context.Context, ex urlExtractor, urls []string, workers int, delay time.Duration, failFast bool) []*outcome {
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]*outcome, len(urls))
	for i, u := range urls {
		outcomes[i] = &outcome{url: u, done: make(chan struct{})}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		for i, o := range outcomes {
			if i > 0 && delay > 0 {
				select {
				case <-time.After(delay):
				case <-gctx.Done():
				}
			}
			if err := gctx.Err(); err != nil {
				o.err = err
				close(o.done)
				continue
			}

			g.Go(func() error {
				defer close(o.done)
				if err := gctx.Err(); err != nil {
					o.err = err
					return nil
				}
				o.res, o.err = ex.Extract(gctx, o.url)
				if failFast {
					return o.err
				}
				return nil
			})
		}
		g.Wait()
	}()

	return outcomes
}
