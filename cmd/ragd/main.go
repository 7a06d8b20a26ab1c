// Ragd answers questions about PDF documents stored in a Google Drive
// folder. It downloads the PDFs, extracts and chunks their text, embeds
// the chunks into a persistent vector index, and serves answers over
// HTTP backed by an OpenAI-compatible language model.
//
// Configuration comes from environment variables or an optional YAML
// file. See internal/config for the full key list.
//
// Usage:
//
//	# Start the server with defaults
//	ragd serve
//
//	# Run one ingestion pass and exit
//	ragd ingest
//
//	# Configure via environment
//	SERVER_PORT=9000 DRIVE_FOLDER_ID=... ragd serve
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/helioworks/ragd/internal/config"
	"github.com/helioworks/ragd/internal/drive"
	"github.com/helioworks/ragd/internal/embeddings"
	"github.com/helioworks/ragd/internal/index"
	"github.com/helioworks/ragd/internal/ingest"
	"github.com/helioworks/ragd/internal/llm"
	"github.com/helioworks/ragd/internal/logging"
	"github.com/helioworks/ragd/internal/pdf"
	"github.com/helioworks/ragd/internal/server"
	"github.com/helioworks/ragd/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     "ragd",
	Short:   "Document question-answering service backed by Google Drive PDFs",
	Version: fmt.Sprintf("%s (%s)", version, gitCommit),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the ragd HTTP server.

Endpoints:
  POST /ingest   fetch, embed, and index the folder's PDFs
  POST /query    answer a question from the indexed documents
  POST /webhook  Google Chat integration
  GET  /metrics  Prometheus metrics`,
	RunE: runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass and exit",
	RunE:  runIngest,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
}

// app holds the wired services shared by the serve and ingest commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    vectorstore.Store
	index    *index.Index
	pipeline *ingest.Pipeline
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing vector store", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = logging.Sync(a.logger)
	}
}

// newApp loads configuration and wires the ingestion side of the
// service: Drive client, PDF extractor, embedder, vector store, and
// chunk index.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	creds, err := cfg.DriveCredentials()
	if err != nil {
		return nil, err
	}

	driveClient, err := drive.NewClient(ctx, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("creating Drive client: %w", err)
	}

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}

	store, err := vectorstore.NewStore(cfg, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	logger.Info("vector store ready",
		zap.String("provider", cfg.Store.Provider),
		zap.String("collection", cfg.Store.Collection),
	)

	idx := index.New(store, index.Config{
		ChunkSize:    cfg.Store.ChunkSize,
		ChunkOverlap: cfg.Store.ChunkOverlap,
	}, logger)

	pipeline := ingest.NewPipeline(driveClient, pdf.NewExtractor(logger), idx, ingest.Config{
		FolderID:    cfg.Drive.FolderID,
		DownloadDir: cfg.Drive.DownloadDir,
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		index:    idx,
		pipeline: pipeline,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	generator, err := llm.NewGenerator(llm.Config{
		BaseURL:     a.cfg.LLM.BaseURL,
		Model:       a.cfg.LLM.Model,
		APIKey:      a.cfg.LLM.APIKey.Value(),
		Temperature: a.cfg.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}

	srv, err := server.NewServer(a.pipeline, a.index, generator, a.logger, server.Config{
		Host:            a.cfg.Server.Host,
		Port:            a.cfg.Server.Port,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		TopK:            a.cfg.Store.TopK,
	}, prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("creating HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	a.logger.Info("server shutdown complete")
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	files, err := a.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if len(files) == 0 {
		fmt.Println("No PDFs found in Google Drive folder.")
		return nil
	}

	fmt.Printf("Ingested %d documents:\n", len(files))
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	return nil
}
