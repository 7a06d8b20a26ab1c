// Package ingest orchestrates the document ingestion pipeline: listing
// PDFs in the source folder, downloading them, extracting their text,
// and indexing the chunks.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/helioworks/ragd/internal/drive"
)

// Source lists and downloads PDF files from a remote folder.
type Source interface {
	ListPDFs(ctx context.Context, folderID string) ([]drive.File, error)
	Download(ctx context.Context, fileID, destPath string) error
}

// Extractor extracts plain text from a PDF on disk.
type Extractor interface {
	ExtractText(path string) (string, error)
}

// Indexer stores document texts as retrievable chunks.
type Indexer interface {
	Ingest(ctx context.Context, texts, names []string) error
}

// Config tunes the pipeline.
type Config struct {
	// FolderID is the source folder to ingest from.
	FolderID string

	// DownloadDir is where downloaded PDFs are cached. Files already
	// present by name are not downloaded again.
	DownloadDir string
}

// Pipeline runs the ingestion flow end to end.
type Pipeline struct {
	source    Source
	extractor Extractor
	indexer   Indexer
	config    Config
	logger    *zap.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(source Source, extractor Extractor, indexer Indexer, config Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		source:    source,
		extractor: extractor,
		indexer:   indexer,
		config:    config,
		logger:    logger,
	}
}

// Run ingests every PDF in the configured folder and returns the names
// of the documents that made it into the index. An empty folder is a
// normal outcome: Run returns an empty slice and no error.
//
// A file that fails to download or extract is logged and skipped so one
// bad document cannot block the rest of the folder.
func (p *Pipeline) Run(ctx context.Context) ([]string, error) {
	files, err := p.source.ListPDFs(ctx, p.config.FolderID)
	if err != nil {
		return nil, fmt.Errorf("listing folder %s: %w", p.config.FolderID, err)
	}
	if len(files) == 0 {
		p.logger.Info("no PDFs found in source folder", zap.String("folder_id", p.config.FolderID))
		return []string{}, nil
	}

	if err := os.MkdirAll(p.config.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download dir: %w", err)
	}

	var (
		texts []string
		names []string
	)
	for _, f := range files {
		name := filepath.Base(f.Name)
		dest := filepath.Join(p.config.DownloadDir, name)

		if _, err := os.Stat(dest); err == nil {
			p.logger.Debug("already downloaded, skipping", zap.String("file", name))
		} else {
			if err := p.source.Download(ctx, f.ID, dest); err != nil {
				p.logger.Warn("download failed, skipping file",
					zap.String("file", name),
					zap.Error(err),
				)
				continue
			}
			p.logger.Info("downloaded file", zap.String("file", name))
		}

		text, err := p.extractor.ExtractText(dest)
		if err != nil {
			p.logger.Warn("text extraction failed, skipping file",
				zap.String("file", name),
				zap.Error(err),
			)
			continue
		}

		texts = append(texts, text)
		names = append(names, name)
	}

	if len(names) == 0 {
		return []string{}, nil
	}

	if err := p.indexer.Ingest(ctx, texts, names); err != nil {
		return nil, fmt.Errorf("indexing documents: %w", err)
	}

	p.logger.Info("ingestion complete", zap.Int("documents", len(names)))
	return names, nil
}
