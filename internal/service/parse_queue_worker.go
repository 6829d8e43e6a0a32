package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"epdparser/internal/port"
)

// ParseQueueConfig holds settings for the parse queue worker.
type ParseQueueConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	Concurrency  int
	ParseTimeout time.Duration
}

// ParseQueueWorker polls for queued documents and dispatches them for parsing.
type ParseQueueWorker struct {
	docRepo    port.DocumentRepository
	docService DocumentService
	cfg        ParseQueueConfig
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewParseQueueWorker creates a new ParseQueueWorker.
func NewParseQueueWorker(docRepo port.DocumentRepository, docService DocumentService, cfg ParseQueueConfig, logger *zap.Logger) *ParseQueueWorker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = time.Minute
	}
	return &ParseQueueWorker{
		docRepo:    docRepo,
		docService: docService,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight parse goroutines have finished.
func (w *ParseQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.logger.Info("parseQueueWorker: started",
		zap.Duration("poll", w.cfg.PollInterval),
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Int("max_retries", w.cfg.MaxRetries),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("parseQueueWorker: shutting down, waiting for in-flight parses")
			w.wg.Wait()
			w.logger.Info("parseQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			w.poll(ctx, sem)
		}
	}
}

func (w *ParseQueueWorker) poll(ctx context.Context, sem chan struct{}) {
	available := w.cfg.Concurrency - len(sem)
	if available <= 0 {
		return
	}

	docs, err := w.docRepo.ClaimQueued(ctx, available)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("parseQueueWorker: ClaimQueued failed", zap.Error(err))
		}
		return
	}

	for i := range docs {
		doc := docs[i]

		sem <- struct{}{}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()

			// Fresh context so in-flight parses complete during shutdown.
			parseCtx, cancel := context.WithTimeout(context.Background(), w.cfg.ParseTimeout)
			defer cancel()

			w.logger.Debug("parseQueueWorker: dispatching document",
				zap.Stringer("document_id", doc.ID), zap.Int("attempt", doc.Attempts))
			w.docService.ParseDocument(parseCtx, &doc, w.cfg.MaxRetries)
		}()
	}
}
