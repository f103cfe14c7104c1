package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/pagecite/internal/logger"
	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
	cfgPkg "github.com/xhad/pagecite/pkg/config"
	"github.com/xhad/pagecite/pkg/extractor"
	"github.com/xhad/pagecite/pkg/llm"
	"github.com/xhad/pagecite/pkg/pipeline"
	"github.com/xhad/pagecite/pkg/processor"
	"github.com/xhad/pagecite/pkg/prompt"
	"github.com/xhad/pagecite/pkg/store"
	"github.com/xhad/pagecite/server"
)

type options struct {
	configPath string
	pdfPath    string
	hocrSource string
	question   string
	serve      bool
	verbose    bool
}

func main() {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.StringVar(&opts.pdfPath, "pdf", "", "PDF file to ingest before answering")
	flag.StringVar(&opts.hocrSource, "hocr", "", "hOCR file or URL to ingest before answering")
	flag.StringVar(&opts.question, "ask", "", "Answer a single question and exit")
	flag.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API instead of the interactive chat")
	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()
	return opts
}

func loadConfig(opts options) (*cfgPkg.Config, error) {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env: %v", err)
	}

	cfg, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.UI.Verbose = true
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return nil, fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}
	return cfg, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger.SetVerbose(cfg.UI.Verbose)

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.Embedder.Provider,
		Model:     cfg.Embedder.Model,
		BaseURL:   cfg.Embedder.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		BatchSize: cfg.Embedder.BatchSize,
		RateLimit: cfg.Embedder.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vectors, err := openVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer vectors.Close()
	index := store.NewIndex(embedder, vectors)

	layout, err := store.NewLayoutStore(cfg.Layout.Path)
	if err != nil {
		return fmt.Errorf("failed to open layout store: %w", err)
	}
	defer layout.Close()

	if opts.pdfPath != "" || opts.hocrSource != "" {
		if err := ingest(ctx, cfg, opts, embedder, index, layout); err != nil {
			return err
		}
	}

	engine, err := pipeline.NewEngine(pipeline.EngineConfig{
		Index:     index,
		Completer: chatEngine,
		Layout:    layout,
		History:   layout,
		TopK:      cfg.Retrieval.TopK,
	})
	if err != nil {
		return err
	}

	switch {
	case opts.serve:
		srv := server.NewWithConfig(server.Config{
			Addr:           cfg.Server.Addr,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, engine)
		color.Cyan("Serving on %s", cfg.Server.Addr)
		return srv.ListenAndServe(ctx)
	case opts.question != "":
		return answer(ctx, engine, opts.question)
	default:
		return chat(ctx, engine)
	}
}

func openVectorStore(ctx context.Context, cfg *cfgPkg.Config) (types.VectorStore, error) {
	if cfg.Database.Driver == "memory" {
		logger.Info("using in-memory vector store")
		return store.NewMemoryStore(), nil
	}

	vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
		BatchSize:  cfg.Database.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return vs, nil
}

func ingest(ctx context.Context, cfg *cfgPkg.Config, opts options, embedder *llm.Embedder, index *store.Index, layout *store.LayoutStore) error {
	var bar *progressbar.ProgressBar
	ex := extractor.NewWithConfig(extractor.ExtractorConfig{
		ExcludeLabels: cfg.Extractor.ExcludeLabels,
		Timeout:       cfg.Extractor.Timeout,
		RateLimit:     cfg.Extractor.RateLimit,
		HOCRClass:     cfg.Extractor.HOCRClass,
		OnProgress: func(page, total int) {
			if bar == nil {
				bar = getProgressBar(total, "📄 Extracting pages...")
			}
			bar.Set(page)
		},
	})

	var (
		result extractor.Result
		err    error
		source = opts.pdfPath
	)
	if opts.pdfPath != "" {
		result, err = ex.PDF(ctx, opts.pdfPath)
	} else {
		source = opts.hocrSource
		result, err = ex.HOCR(ctx, opts.hocrSource)
	}
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", source, err)
	}
	color.Green("\n✓ Extracted %d pages, %d layout elements\n", len(result.Documents), len(result.Elements))

	var indexBar *progressbar.ProgressBar
	in, err := pipeline.NewIngester(pipeline.IngesterConfig{
		Processor: processor.ProcessorConfig{
			ChunkSize:    cfg.Processor.ChunkSize,
			ChunkOverlap: cfg.Processor.ChunkOverlap,
		},
		Embedder:   embedder,
		Collection: index,
		Layout:     layout,
		BatchSize:  cfg.Database.BatchSize,
		OnProgress: func(stage string, done, total int) {
			if stage != pipeline.StageIndex {
				return
			}
			if indexBar == nil {
				indexBar = getProgressBar(total, "💾 Embedding and storing chunks...")
			}
			indexBar.Set(done)
		},
	})
	if err != nil {
		return err
	}

	stats, err := in.Ingest(ctx, result.Documents, result.Elements)
	if indexBar != nil {
		indexBar.Finish()
	}
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", source, err)
	}
	color.Green("\n✓ Indexed %d chunks from %d pages\n", stats.Chunks, stats.Pages)
	return nil
}

func answer(ctx context.Context, engine *pipeline.Engine, question string) error {
	spinner := getSpinner("🤖 Generating response...")
	ans, err := engine.Ask(ctx, question)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}
	printAnswer(ans)
	return nil
}

func chat(ctx context.Context, engine *pipeline.Engine) error {
	color.Cyan("\nAsk questions about the document (type 'history' to list past answers, 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "history":
			printHistory(ctx, engine)
			continue
		}

		if err := answer(ctx, engine, query); err != nil {
			color.Red("Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

func printAnswer(ans *models.Answer) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	assistantPrompt("\nAssistant: %s\n", ans.Answer)

	if len(ans.Pages) == 0 {
		return
	}

	color.Blue("\nRelated pages:")
	for _, h := range ans.Highlights {
		fmt.Printf("  %s: %d regions\n", prompt.Marker(models.PageID(h.Page)), len(h.Polygons))
		for _, line := range h.Lines {
			fmt.Printf("    %s\n", color.HiBlackString(line))
		}
	}
}

func printHistory(ctx context.Context, engine *pipeline.Engine) {
	messages, err := engine.History(ctx)
	if err != nil {
		color.Red("Error: %v\n", err)
		return
	}
	if len(messages) == 0 {
		color.Yellow("No messages yet")
		return
	}
	for _, m := range messages {
		color.Green("[%s] You: %s", m.SentAt.Local().Format("2006-01-02 15:04"), m.UserInput)
		color.Cyan("Assistant: %s", m.AssistantMessage)
		if len(m.SourcePages) > 0 {
			fmt.Printf("  pages %v\n", m.SourcePages)
		}
	}
}
