package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/memloader/memloader/config"
	"github.com/memloader/memloader/pkg/export"
	"github.com/memloader/memloader/pkg/extractor"
	"github.com/memloader/memloader/pkg/loader"
	"github.com/memloader/memloader/pkg/memory"
	"github.com/memloader/memloader/pkg/processor"
	"github.com/memloader/memloader/pkg/version"
)

const sampleSize = 5

// runImport drives the full pipeline: parse the export, extract memories
// chunk by chunk, filter/dedup/merge, then upload or report.
func runImport(ctx context.Context, cfg *config.Config, exportPath string, opts *cliOptions) error {
	fmt.Println(version.String())

	conversations, err := export.NewParser().ParseFile(exportPath)
	if err != nil {
		return fmt.Errorf("parse export: %w", err)
	}
	if len(conversations) == 0 {
		return errors.New("no conversations found in export file")
	}
	fmt.Printf("Found %d conversations\n", len(conversations))

	ext, err := newExtractor(ctx, cfg)
	if err != nil {
		return err
	}

	chunker := export.NewChunker(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap)
	var chunks []extractor.Chunk
	for _, conv := range conversations {
		for _, text := range chunker.Chunks(conv) {
			chunks = append(chunks, extractor.Chunk{Text: text, Title: conv.Title})
		}
	}

	fmt.Printf("Extracting memories from %d chunks with %s (%s)...\n",
		len(chunks), cfg.ExtractionModel(), cfg.LLM.Provider)
	result := extractor.NewPool(ext, cfg.Processing.Workers).ExtractAll(ctx, chunks)
	if err := ctx.Err(); err != nil {
		return err
	}
	fmt.Printf("Extracted %d raw memories (%d/%d chunks failed)\n",
		len(result.Records), result.Failed, result.Processed)
	if len(result.Records) == 0 {
		return errors.New("no memories extracted; check the export file and model configuration")
	}

	fmt.Println("Processing memories...")
	processed, stats := processor.New(cfg.Processing.ConfidenceThreshold).Process(result.Records)
	printProcessingStats(stats)
	printConfidenceStats(processor.ConfidenceStatistics(processed))

	if opts.dryRun {
		fmt.Println("\nDry run complete. No memories uploaded.")
		printSample(processed)
		return nil
	}

	target, err := newLoader(cfg)
	if err != nil {
		return err
	}
	defer target.Close()

	if opts.clearExisting {
		if err := clearExisting(ctx, target); err != nil {
			return err
		}
	}

	fmt.Println("\nUploading memories...")
	ready := loader.PrepareForUpload(ctx, target, processed,
		cfg.Processing.Categories, cfg.Processing.ConfidenceThreshold)
	fmt.Printf("Prepared %d memories for upload\n", len(ready))
	if len(ready) == 0 {
		fmt.Println("No new memories to upload (all filtered out or duplicates).")
		return nil
	}

	uploadStats, err := target.Load(ctx, ready, cfg.Processing.BatchSize)
	if err != nil {
		return err
	}
	printUploadStats(uploadStats)
	return nil
}

// newExtractor builds the configured provider client. Ollama models are
// pulled up front so the worker pool never races the first download.
func newExtractor(ctx context.Context, cfg *config.Config) (extractor.Extractor, error) {
	retry := extractor.DefaultRetryPolicy()
	if cfg.RateLimit.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.RateLimit.RetryAttempts
	}
	if cfg.RateLimit.RetryDelay > 0 {
		retry.InitialBackoff = cfg.RateLimit.RetryDelay
	}
	if cfg.RateLimit.MaxRetryDelay > 0 {
		retry.MaxBackoff = cfg.RateLimit.MaxRetryDelay
	}

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return extractor.NewOpenAIClient(extractor.OpenAIConfig{
			BaseURL:             cfg.LLM.OpenAIBaseURL,
			APIKey:              cfg.LLM.OpenAIAPIKey,
			Model:               cfg.LLM.OpenAIModel,
			RequestsPerMinute:   cfg.RateLimit.RequestsPerMinute,
			ConfidenceThreshold: cfg.Processing.ConfidenceThreshold,
			Retry:               retry,
		})
	default:
		client := extractor.NewOllamaClient(extractor.OllamaConfig{
			BaseURL:             cfg.LLM.OllamaBaseURL,
			Model:               cfg.LLM.OllamaModel,
			Timeout:             cfg.LLM.OllamaTimeout,
			RequestsPerMinute:   cfg.RateLimit.RequestsPerMinute,
			ConfidenceThreshold: cfg.Processing.ConfidenceThreshold,
			Retry:               retry,
		})
		if err := client.EnsureModel(ctx); err != nil {
			return nil, fmt.Errorf("ensure ollama model %s: %w", cfg.LLM.OllamaModel, err)
		}
		return client, nil
	}
}

// newLoader builds the configured upload target.
func newLoader(cfg *config.Config) (loader.Loader, error) {
	switch cfg.Storage.Type {
	case "mem0":
		return loader.NewMem0Client(loader.Mem0Config{
			BaseURL: cfg.Mem0.BaseURL,
			APIKey:  cfg.Mem0.APIKey,
			UserID:  cfg.Mem0.UserID,
		})
	default:
		return loader.NewLocalStore(loader.LocalConfig{
			Path:       cfg.Storage.Local.Path,
			SyncWrites: cfg.Storage.Local.SyncWrites,
		})
	}
}

func clearExisting(ctx context.Context, target loader.Loader) error {
	existing, err := target.Existing(ctx)
	if err != nil {
		return fmt.Errorf("list existing memories: %w", err)
	}

	ids := make([]string, 0, len(existing))
	for _, mem := range existing {
		if mem.ID != "" {
			ids = append(ids, mem.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	deleted, err := target.Delete(ctx, ids)
	if err != nil {
		return fmt.Errorf("delete existing memories: %w", err)
	}
	fmt.Printf("Deleted %d existing memories\n", deleted)
	return nil
}

func printProcessingStats(stats *processor.Stats) {
	fmt.Printf(`
Processing Statistics:
  Input memories: %d
  Output memories: %d
  Duplicates removed: %d
  Low confidence filtered: %d
  Merged memories: %d
  Emptied after cleaning: %d

Category Distribution:
`, stats.TotalInput, stats.TotalOutput, stats.DuplicatesRemoved,
		stats.LowConfidenceFiltered, stats.MergedMemories, stats.EmptiedFiltered)

	categories := make([]string, 0, len(stats.Categories))
	for category := range stats.Categories {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Printf("  %s: %d\n", category, stats.Categories[category])
	}
}

func printConfidenceStats(stats processor.ConfidenceStats) {
	fmt.Printf(`
Confidence Statistics:
  Min: %.2f
  Max: %.2f
  Average: %.2f
  Median: %.2f
`, stats.Min, stats.Max, stats.Avg, stats.Median)
}

func printSample(records []memory.Record) {
	if len(records) == 0 {
		return
	}
	fmt.Println("\nSample memories:")
	for i, rec := range records {
		if i == sampleSize {
			fmt.Printf("  ... and %d more\n", len(records)-sampleSize)
			break
		}
		fmt.Printf("  %d. [%s] %s (confidence: %.2f)\n", i+1, rec.Category, rec.Content, rec.Confidence)
	}
}

func printUploadStats(stats *loader.UploadStats) {
	fmt.Printf(`
Upload Statistics:
  Total processed: %d
  Successfully uploaded: %d
  Failed: %d
  Success rate: %.1f%%
`, stats.TotalProcessed, stats.Uploaded, stats.Failed, stats.SuccessRate*100)

	if stats.SuccessRate > 0.9 {
		fmt.Println("Upload completed successfully.")
	} else {
		fmt.Println("Upload completed with failures. Check logs for details.")
	}
}
