package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/pantry-tracker/internal/consumable"
	"github.com/zombor/pantry-tracker/internal/extraction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("pantry-tracker")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		storeType     = fs.StringLong("store", "bolt", "Store type: 'bolt', 'sqlite' or 'memory'")
		dbPath        = fs.StringLong("db", "pantry-tracker.db", "Database file path (bolt and sqlite stores)")
		archivePath   = fs.StringLong("archive", "", "Bill archive directory (empty disables archiving)")
		extractorType = fs.StringLong("extractor", "documentai", "Extractor type: 'documentai' or 'gemini'")
		docaiProject  = fs.StringLong("docai-project", "", "Document AI project id (or set DOCUMENTAI_PROJECT env var)")
		docaiLocation = fs.StringLong("docai-location", "us", "Document AI processor location")
		docaiProc     = fs.StringLong("docai-processor", "", "Document AI expense processor id (or set DOCUMENTAI_PROCESSOR env var)")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PANTRY_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize the consumable store
	var db consumable.DB
	var err error
	switch *storeType {
	case "bolt":
		slog.Info("Initializing bolt store...", "path", *dbPath)
		db, err = consumable.NewBoltDB(*dbPath)
	case "sqlite":
		slog.Info("Initializing sqlite store...", "path", *dbPath)
		db, err = consumable.NewSQLiteDB(*dbPath)
	case "memory":
		slog.Info("Initializing in-memory store (contents are lost on exit)")
		db = consumable.NewMemoryDB()
	default:
		slog.Error("Invalid store type", "type", *storeType, "valid", "bolt, sqlite or memory")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize the extractor based on type
	var extractor extraction.Extractor
	switch *extractorType {
	case "documentai":
		project := *docaiProject
		if project == "" {
			project = os.Getenv("DOCUMENTAI_PROJECT")
		}
		processor := *docaiProc
		if processor == "" {
			processor = os.Getenv("DOCUMENTAI_PROCESSOR")
		}
		if project == "" || processor == "" {
			slog.Error("Document AI project and processor are required. Set --docai-project/--docai-processor flags or DOCUMENTAI_PROJECT/DOCUMENTAI_PROCESSOR environment variables")
			os.Exit(1)
		}
		slog.Info("Initializing Document AI extractor...", "project", project, "location", *docaiLocation)
		extractor, err = extraction.NewDocumentAI(project, *docaiLocation, processor)
		if err != nil {
			slog.Error("Failed to initialize Document AI", "error", err)
			os.Exit(1)
		}
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "documentai or gemini")
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize the optional bill archive
	var archive *consumable.BillArchive
	if *archivePath != "" {
		slog.Info("Initializing bill archive...", "path", *archivePath)
		archive, err = consumable.NewBillArchive(*archivePath)
		if err != nil {
			slog.Error("Failed to initialize archive", "error", err)
			os.Exit(1)
		}
	}

	// Initialize service and server
	service := consumable.NewService(db, extractor, archive)
	basicAuth := consumable.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := consumable.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
