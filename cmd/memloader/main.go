// Command memloader extracts memory statements from a ChatGPT
// conversations.json export with a local or hosted LLM, runs them through a
// dedup/merge pipeline, and uploads the survivors to mem0 or a local store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/memloader/memloader/config"
	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/version"
)

type cliOptions struct {
	configPath          string
	provider            string
	model               string
	userID              string
	mem0APIKey          string
	confidenceThreshold float64
	batchSize           int
	workers             int
	chunkSize           int
	storageType         string
	logLevel            string
	verbose             bool
	dryRun              bool
	clearExisting       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "memloader EXPORT_FILE",
		Short: "Extract memories from a ChatGPT export and load them into mem0",
		Long: `memloader parses a ChatGPT conversations.json export, extracts durable
memory statements about the user with an LLM (Ollama or OpenAI), filters,
deduplicates and merges them, and uploads the result to the mem0 platform
or a local database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if opts.configPath != "" {
				stopWatch, err := watchConfig(ctx, opts.configPath)
				if err != nil {
					logger.Warn("config hot-reload unavailable", "error", err)
				} else {
					defer stopWatch()
				}
			}
			return runImport(ctx, cfg, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to configuration file")
	flags.StringVar(&opts.provider, "provider", "", "extraction provider (ollama, openai)")
	flags.StringVar(&opts.model, "model", "", "model to use for extraction")
	flags.StringVar(&opts.userID, "user-id", "", "user ID for mem0 memories")
	flags.StringVar(&opts.mem0APIKey, "mem0-api-key", "", "mem0 API key (or set MEM0_API_KEY)")
	flags.Float64Var(&opts.confidenceThreshold, "confidence-threshold", 0, "minimum confidence for memories")
	flags.IntVar(&opts.batchSize, "batch-size", 0, "batch size for uploads")
	flags.IntVar(&opts.workers, "workers", 0, "concurrent extraction workers")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "extraction chunk size in tokens")
	flags.StringVar(&opts.storageType, "storage", "", "upload target (local, mem0)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "process but don't upload")
	flags.BoolVar(&opts.clearExisting, "clear-existing", false, "clear existing memories before upload")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}

// loadConfig layers CLI flags over file and environment configuration and
// initializes logging.
func loadConfig(cmd *cobra.Command, opts *cliOptions) (*config.Config, error) {
	overrides := map[string]interface{}{}
	set := func(flag, key string, value interface{}) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}
	set("provider", "llm.provider", opts.provider)
	set("user-id", "mem0.user_id", opts.userID)
	set("mem0-api-key", "mem0.api_key", opts.mem0APIKey)
	set("confidence-threshold", "processing.confidence_threshold", opts.confidenceThreshold)
	set("batch-size", "processing.batch_size", opts.batchSize)
	set("workers", "processing.workers", opts.workers)
	set("chunk-size", "processing.chunk_size", opts.chunkSize)
	set("storage", "storage.type", opts.storageType)
	set("log-level", "log.level", opts.logLevel)
	if opts.verbose {
		overrides["log.level"] = "debug"
	}

	cfg, err := config.Load(opts.configPath, overrides)
	if err != nil {
		return nil, err
	}

	// The model flag targets whichever provider is active.
	if cmd.Flags().Changed("model") {
		if cfg.LLM.Provider == config.ProviderOpenAI {
			cfg.LLM.OpenAIModel = opts.model
		} else {
			cfg.LLM.OllamaModel = opts.model
		}
	}

	// Bare provider env vars work like the hosted SDKs expect.
	if cfg.Mem0.APIKey == "" {
		cfg.Mem0.APIKey = os.Getenv("MEM0_API_KEY")
	}
	if cfg.LLM.OpenAIAPIKey == "" {
		cfg.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug {
		logCfg.Level = logger.DebugLevel
	}
	logger.SetGlobal(logger.New(logCfg))

	logger.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// watchConfig hot-reloads tunables from the config file during long runs.
// Only the log level takes effect mid-run; everything else needs a restart.
func watchConfig(ctx context.Context, path string) (func(), error) {
	watcher, err := config.NewWatcher(path, config.NewLoader())
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	last := config.HotReloadableConfig{}
	watcher.OnChange(func(cfg *config.Config) {
		hot := config.ExtractHotReloadable(cfg)
		mu.Lock()
		changed := last.Changed(hot)
		last = hot
		mu.Unlock()
		if !changed {
			return
		}
		logger.SetLevel(logger.ParseLevel(hot.LogLevel))
		logger.Info("configuration reloaded", "log_level", hot.LogLevel)
	})

	go func() {
		if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()
	return func() { watcher.Stop() }, nil
}
