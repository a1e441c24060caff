// Package main is the clausedraft CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/clausedraft/internal/cli"
	"github.com/hyperjump/clausedraft/internal/config"
	"github.com/hyperjump/clausedraft/internal/embedding"
	"github.com/hyperjump/clausedraft/internal/extract"
	"github.com/hyperjump/clausedraft/internal/indexer"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/internal/prompt"
	"github.com/hyperjump/clausedraft/internal/retriever"
	"github.com/hyperjump/clausedraft/internal/server"
	"github.com/hyperjump/clausedraft/internal/storage"
	"github.com/hyperjump/clausedraft/internal/watcher"
	"github.com/hyperjump/clausedraft/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/clausedraft/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists. A missing file yields the built-in defaults. Returns the config
// and the path that was actually consulted.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	config.LoadDotEnv(".env")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "retrieve":
		runRetrieve()
	case "add":
		runAdd()
	case "import":
		runImport()
	case "list":
		runList()
	case "rebuild":
		runRebuild()
	case "status":
		runStatus()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("clausedraft version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and builds the logger. It exits the process on failure.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolvedConfigPath := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("clause_dir", cfg.Clauses.Dir),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components := initializeComponents(ctx, cfg, logger)
	defer components.Close()
	status := components.Retriever.Init(ctx)
	logger.Info("retriever initialized", zap.String("state", string(status.State)), zap.String("reason", status.Reason))

	var watchSvc *watcher.Watcher
	if cfg.Clauses.Watch {
		r := components.Retriever
		watchSvc = watcher.NewWatcher(cfg.Clauses.Dir, func() {
			if err := r.Rebuild(ctx); err != nil && !errors.Is(err, retriever.ErrOffline) {
				logger.Warn("rebuild after clause change failed", zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Retriever, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// buildQuery joins all positional args with spaces so multi-word queries work the same with
// or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional arguments
// to the front so that flag.Parse sees them. The flag package stops at the first non-flag
// argument, so "clausedraft retrieve rent deposit --type rental_agreement" would otherwise
// leave --type unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = retrieve in-process)")
	docType := fs.String("type", "", "document type filter, e.g. rental_agreement")
	jurisdiction := fs.String("jurisdiction", models.DefaultJurisdiction, "jurisdiction filter (empty disables it)")
	k := fs.Int("k", 0, "number of candidates to fetch (default from config)")
	outputFormat := fs.String("output", "text", "output format: text, json or prompt")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: clausedraft retrieve [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := models.RetrieveQuery{
		Query:        buildQuery(fs.Args()),
		DocumentType: *docType,
		Jurisdiction: models.StringPtr(*jurisdiction),
		K:            *k,
	}
	if query.Query == "" {
		fs.Usage()
		os.Exit(1)
	}

	var response *models.RetrieveResponse
	if *serverURL != "" {
		response, err = retrieveViaHTTP(*serverURL, &query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieve failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components := initializeComponents(ctx, cfg, logger)
		defer components.Close()
		components.Retriever.Init(ctx)
		response = retrieveDirect(ctx, components.Retriever, cfg, query)
	}

	if err := cli.WriteRetrieveResponse(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// retrieveDirect runs query against an initialized retriever and builds the same response the
// HTTP API returns.
func retrieveDirect(ctx context.Context, r *retriever.Retriever, cfg *config.Config, query models.RetrieveQuery) *models.RetrieveResponse {
	if query.K <= 0 {
		query.K = cfg.Retrieval.DefaultK
	}
	start := time.Now()
	results := r.Retrieve(ctx, query)
	return &models.RetrieveResponse{
		Query:     strings.TrimSpace(query.Query),
		Results:   results,
		Total:     len(results),
		Formatted: prompt.FormatClauses(results),
		Status:    r.Status(),
		QueryTime: time.Since(start).Milliseconds(),
	}
}

func retrieveViaHTTP(serverURL string, query *models.RetrieveQuery) (*models.RetrieveResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/clauses/retrieve", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.RetrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// decodeClauses parses a clause file holding either one clause object or an array of them.
func decodeClauses(data []byte) ([]models.Clause, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty clause file")
	}
	if data[0] == '[' {
		var clauses []models.Clause
		if err := json.Unmarshal(data, &clauses); err != nil {
			return nil, fmt.Errorf("parse clauses: %w", err)
		}
		return clauses, nil
	}
	var clause models.Clause
	if err := json.Unmarshal(data, &clause); err != nil {
		return nil, fmt.Errorf("parse clause: %w", err)
	}
	return []models.Clause{clause}, nil
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "", "JSON file holding a clause object or an array of clauses")
	_ = fs.Parse(os.Args[2:])

	if *file == "" {
		fmt.Println("Usage: clausedraft add --file clause.json")
		os.Exit(1)
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}
	clauses, err := decodeClauses(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid clause file: %v\n", err)
		os.Exit(1)
	}

	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components := initializeComponents(ctx, cfg, logger)
	defer components.Close()
	components.Retriever.Init(ctx)

	failed := 0
	for _, c := range clauses {
		stored, ok := components.Retriever.AddClauseWithID(ctx, c)
		if !ok {
			failed++
			if stored.ID != "" {
				fmt.Fprintf(os.Stderr, "Stored clause %s but the index rebuild failed; run rebuild\n", stored.ID)
			} else {
				fmt.Fprintf(os.Stderr, "Failed to add clause %q\n", c.ClauseTitle)
			}
			continue
		}
		fmt.Printf("Added clause %s (%s)\n", stored.ID, stored.DocumentType)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	docType := fs.String("type", "", "document type for imported clauses")
	jurisdiction := fs.String("jurisdiction", "", "jurisdiction for imported clauses")
	keywords := fs.String("keywords", "", "comma-separated keywords for imported clauses")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: clausedraft import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components := initializeComponents(ctx, cfg, logger)
	defer components.Close()
	components.Store.Load(ctx)

	importer := extract.NewImporter(extract.NewExtractor(), extract.WithLogger(logger))
	defaults := extract.Defaults{
		DocumentType: *docType,
		Jurisdiction: *jurisdiction,
		Keywords:     extract.SplitKeywords(*keywords),
	}
	var clauses []models.Clause
	if info.IsDir() {
		clauses, err = importer.ImportDirectory(path, defaults)
	} else {
		clauses, err = importer.ImportFile(path, defaults)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	added := 0
	for _, c := range clauses {
		stored, err := components.Store.Add(ctx, c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipped %q: %v\n", c.ClauseTitle, err)
			continue
		}
		added++
		fmt.Printf("Imported %s: %s\n", stored.ID, stored.ClauseTitle)
	}
	fmt.Printf("%d of %d clauses imported\n", added, len(clauses))
	if added == 0 {
		return
	}
	if err := components.Retriever.Rebuild(ctx); err != nil {
		if errors.Is(err, retriever.ErrOffline) {
			fmt.Println("Index not rebuilt: no embedding model available")
			return
		}
		fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Index rebuilt")
}

// filterClauses keeps clauses matching docType and jurisdiction; an empty filter matches all.
// A "general" clause matches any jurisdiction.
func filterClauses(clauses []models.Clause, docType, jurisdiction string) []models.Clause {
	out := make([]models.Clause, 0, len(clauses))
	for _, c := range clauses {
		if docType != "" && c.DocumentType != docType {
			continue
		}
		if jurisdiction != "" && c.Jurisdiction != jurisdiction && c.Jurisdiction != models.DefaultTag {
			continue
		}
		out = append(out, c)
	}
	return out
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the clause directory)")
	docType := fs.String("type", "", "document type filter")
	jurisdiction := fs.String("jurisdiction", "", "jurisdiction filter")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var clauses []models.Clause
	if *serverURL != "" {
		clauses, err = listViaHTTP(*serverURL, *docType, *jurisdiction)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		store := storage.NewJSONStore(cfg.Clauses.Dir, storage.WithLogger(logger))
		clauses = filterClauses(store.Load(context.Background()), *docType, *jurisdiction)
	}
	if err := cli.WriteClauses(os.Stdout, clauses, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func listViaHTTP(serverURL, docType, jurisdiction string) ([]models.Clause, error) {
	params := url.Values{}
	if docType != "" {
		params.Set("document_type", docType)
	}
	if jurisdiction != "" {
		params.Set("jurisdiction", jurisdiction)
	}
	u := serverURL + "/api/v1/clauses"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Clauses []models.Clause `json:"clauses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Clauses, nil
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = rebuild in-process)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Post(*serverURL+"/api/v1/index/rebuild", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Rebuild failed: server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Println(strings.TrimSpace(string(b)))
		return
	}

	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components := initializeComponents(ctx, cfg, logger)
	defer components.Close()
	if err := components.Retriever.Rebuild(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
		os.Exit(1)
	}
	if m, ok := components.Retriever.Manifest(); ok {
		fmt.Printf("Indexed %d clauses into %d chunks with %s\n", m.Clauses, m.Chunks, m.Embedder)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = inspect in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var report *cli.StatusReport
	if *serverURL != "" {
		report, err = statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components := initializeComponents(ctx, cfg, logger)
		defer components.Close()
		components.Retriever.Init(ctx)
		report = server.Report(components.Retriever, cfg)
	}
	if err := cli.WriteStatus(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*cli.StatusReport, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s cli.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runConfig() {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file to start from")
	out := fs.String("out", "config.yaml", "file to write the effective config to")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !*force {
		if _, err := os.Stat(*out); err == nil {
			fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", *out)
			os.Exit(1)
		}
	}
	if err := config.Save(*out, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
}

// Components holds initialized application components.
type Components struct {
	Store     *storage.JSONStore
	Retriever *retriever.Retriever
}

func (c *Components) Close() {
	if c.Retriever != nil {
		_ = c.Retriever.Close()
	}
}

// initializeComponents wires the clause store, embedder, indexer and retriever. When no
// embedding model can be loaded the retriever runs offline and serves fallback clauses.
// Callers decide whether to Init the retriever.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Components {
	store := storage.NewJSONStore(cfg.Clauses.Dir, storage.WithLogger(logger))
	opts := []retriever.Option{
		retriever.WithLogger(logger),
		retriever.WithIndexPath(cfg.Index.Path),
		retriever.WithMaxK(cfg.Retrieval.MaxK),
	}

	embedder, err := embedding.New(ctx, cfg.Embedding, logger)
	if err != nil {
		logger.Warn("embedding model unavailable", zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		return &Components{Store: store, Retriever: retriever.NewOffline(store, err.Error(), opts...)}
	}

	chunker := indexer.NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	idx := indexer.NewIndexer(embedder, chunker,
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
	)
	return &Components{Store: store, Retriever: retriever.New(store, embedder, idx, opts...)}
}

func printUsage() {
	fmt.Println(`clausedraft - Legal clause retrieval for document generation

Usage:
  clausedraft server [flags]             Start the HTTP server
  clausedraft retrieve [flags] <query>   Retrieve clauses for a drafting request
  clausedraft add --file clause.json     Add clauses and rebuild the index
  clausedraft import [flags] <path>      Import clauses from documents or spreadsheets
  clausedraft list [flags]               List clauses in the corpus
  clausedraft rebuild [flags]            Rebuild the clause index from disk
  clausedraft status [flags]             Show index and corpus status
  clausedraft config [--out path]        Write the effective config as YAML
  clausedraft version                    Show version
  clausedraft help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/clausedraft/config.yaml,
                     or ./config.yaml when present)
  --server string    Server URL for retrieve, list, rebuild and status. Empty runs in-process.

Retrieve Flags:
  --type string          Document type filter, e.g. rental_agreement
  --jurisdiction string  Jurisdiction filter (default: IN; empty disables it)
  --k int                Number of candidates to fetch (default from config)
  --output string        text, json or prompt (default: text)

Import Flags:
  --type string          Document type for imported clauses
  --jurisdiction string  Jurisdiction for imported clauses
  --keywords string      Comma-separated keywords

Environment:
  CLAUSEDRAFT_CLAUSE_DIR, CLAUSEDRAFT_INDEX_PATH, CLAUSEDRAFT_EMBEDDING_PROVIDER,
  CLAUSEDRAFT_EMBEDDING_MODEL, GEMINI_API_KEY (read from .env when present)

Examples:
  clausedraft server
  clausedraft retrieve --type rental_agreement "security deposit refund"
  clausedraft retrieve --output prompt --type loan_agreement interest rate
  clausedraft import --type nda --jurisdiction IN ./contracts
  clausedraft status --output json`)
}
