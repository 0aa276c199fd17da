package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raine/reseller-assistant/config"
	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/raine/reseller-assistant/internal/render"
	"github.com/raine/reseller-assistant/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUnclear = 2
)

type output struct {
	Listing   *llm.ListingRecord `json:"listing"`
	Citations []llm.Citation     `json:"citations"`
	DraftID   string             `json:"draft_id,omitempty"`
}

// newAnalyzer is replaced in tests.
var newAnalyzer = func(cfg llm.GeminiConfig) llm.Analyzer {
	return llm.NewGeminiAnalyzer(cfg)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flags.SetOutput(stderr)
	save := flags.Bool("save", false, "store the draft in DB_PATH")
	text := flags.String("text", "", "also print the listing text for a strategy (standard or quick)")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: analyze [flags] <image-path> [location]\n")
		fmt.Fprintf(stderr, "\nFlags:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(stderr, "  API_KEY          - Gemini API key\n")
		fmt.Fprintf(stderr, "  DEFAULT_LOCATION - Used when no location is given\n")
	}
	if err := flags.Parse(args); err != nil {
		return exitFailed
	}

	if flags.NArg() < 1 {
		flags.Usage()
		return exitFailed
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return exitFailed
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: stderr})

	imageData, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read image: %v\n", err)
		return exitFailed
	}

	location := cfg.DefaultLocation
	if flags.NArg() >= 2 {
		location = strings.Join(flags.Args()[1:], " ")
	}

	mimeType := llm.DetectMIMEType("", imageData)
	if !llm.IsImage(mimeType) {
		fmt.Fprintf(stderr, "Not an image: %s\n", mimeType)
		return exitFailed
	}

	var drafts assistant.DraftStore
	if *save {
		store, err := storage.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open store: %v\n", err)
			return exitFailed
		}
		defer store.Close()
		drafts = store
	}

	analyzer := newAnalyzer(llm.GeminiConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	svc := assistant.NewService(analyzer, drafts)

	req := llm.AnalysisRequest{Image: imageData, MIMEType: mimeType, Location: location}
	snap, err := svc.Run(ctx, assistant.NewSession("cli", location), req, storage.SourceCLI,
		assistant.WithProgress(func(status string) {
			fmt.Fprintln(stderr, status)
		}))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}

	switch snap.State {
	case assistant.Failed:
		fmt.Fprintf(stderr, "Error (%s): %s\n", llm.KindOf(snap.Err), snap.ErrMessage)
		return exitFailed
	case assistant.NeedsClearerPhoto:
		fmt.Fprintf(stderr, "Unclear photo: %s\n", snap.ErrMessage)
		return exitUnclear
	}

	citations := snap.Citations
	if citations == nil {
		citations = []llm.Citation{}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{Listing: snap.Listing, Citations: citations, DraftID: snap.DraftID}); err != nil {
		fmt.Fprintf(stderr, "Failed to write result: %v\n", err)
		return exitFailed
	}

	if *text != "" {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, render.ListingText(snap.Listing, snap.Citations, render.ParseStrategy(*text), location))
	}

	return exitOK
}
