// Command transcribe runs the transcription bridge without the desktop shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"video-transcriber/internal/config"
	"video-transcriber/internal/domain"
	"video-transcriber/internal/history"
	"video-transcriber/internal/logging"
	"video-transcriber/internal/transcribe"
)

type options struct {
	settingsPath string
	logLevel     string
	showHistory  bool
	noSave       bool
	printText    bool
	serveAddr    string
	origins      string
}

func main() {
	opts := options{}
	flag.StringVar(&opts.settingsPath, "settings", config.SettingsPath(), "settings file path")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flag.BoolVar(&opts.showHistory, "history", false, "list saved transcriptions and exit")
	flag.BoolVar(&opts.noSave, "no-save", false, "do not record the result in history")
	flag.BoolVar(&opts.printText, "text", false, "print the full transcript")
	flag.StringVar(&opts.serveAddr, "serve", "", "serve the HTTP API on this address (e.g. 127.0.0.1:8787)")
	flag.StringVar(&opts.origins, "origins", "", "comma-separated CORS origins for -serve")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <video-url>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, opts, flag.Args(), os.Stdout))
}

func run(ctx context.Context, opts options, args []string, out io.Writer) int {
	settings, err := config.NewJSONStore(opts.settingsPath).Load()
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "load settings: %v\n", err)
		return 1
	}
	level := settings.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.New(level, settings.LogFile)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "init logging: %v\n", err)
		return 1
	}
	if settings.LogFile == "" {
		logger.SetOutput(os.Stderr)
	}

	store := history.NewStore(settings.HistoryPath, logger)

	switch {
	case opts.serveAddr != "":
		return serve(ctx, opts, logger)
	case opts.showHistory:
		printHistory(out, store.Get())
		return 0
	case len(args) != 1:
		color.New(color.FgRed).Fprintln(out, "exactly one video URL is required")
		return 2
	}

	bridge := transcribe.NewBridge(settings, logger)
	color.New(color.FgCyan).Fprintln(out, "Transcribing video... This may take a moment.")
	result := transcribe.AsResult(bridge.Transcribe(ctx, args[0]))

	switch r := result.(type) {
	case *transcribe.Success:
		printSuccess(out, r, opts.printText)
		if opts.noSave {
			return 0
		}
		if _, err := store.Save(history.NewEntry(r.Title, r.FilePath, time.Now())); err != nil {
			color.New(color.FgYellow).Fprintf(out, "Warning: history not saved: %v\n", err)
		}
		return 0
	case *transcribe.Failure:
		color.New(color.FgRed).Fprintf(out, "Error: %s\n", r.Message)
		if r.Details != "" {
			fmt.Fprintln(out, strings.TrimSpace(r.Details))
		}
		return 1
	}
	return 1
}

func printSuccess(out io.Writer, r *transcribe.Success, full bool) {
	color.New(color.FgGreen, color.Bold).Fprintln(out, r.Title)
	fmt.Fprintf(out, "File saved to: %s\n", r.FilePath)
	if full {
		fmt.Fprintln(out)
		fmt.Fprintln(out, r.Transcript())
	}
}

func printHistory(out io.Writer, entries []domain.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No transcriptions yet.")
		return
	}
	title := color.New(color.Bold)
	dim := color.New(color.Faint)
	for i, e := range entries {
		title.Fprintf(out, "%2d. %s\n", i+1, e.Title)
		dim.Fprintf(out, "    %s  %s\n", e.Date, e.Path)
	}
}

func serve(ctx context.Context, opts options, logger *logrus.Logger) int {
	srv, err := newAPIServer(opts)
	if err != nil {
		logger.WithError(err).Error("build api server")
		return 1
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", opts.serveAddr).Info("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http api stopped")
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return 0
}
