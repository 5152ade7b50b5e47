package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/gemsearch/internal/config"
	"github.com/kalambet/gemsearch/internal/gemini"
	"github.com/kalambet/gemsearch/internal/logger"
	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/session"
	"github.com/kalambet/gemsearch/internal/storage"
)

// provider is everything the CLI needs from the Gemini client.
type provider interface {
	remote.Provider
	Models(ctx context.Context) ([]gemini.Model, error)
}

// sessionStore is a session.Store that owns a resource.
type sessionStore interface {
	session.Store
	Close() error
}

var loadConfig = config.Load

var newProvider = func(ctx context.Context, cfg config.Config) (provider, error) {
	c, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

var openStore = func(cfg config.Config) (sessionStore, error) {
	s, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var (
	appConfig config.Config
	logCloser io.Closer

	flagNoColor     bool
	flagInclude     []string
	flagConcurrency int
	flagTimeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "gemsearch [dir [question]] | [question]",
	Short: "Ask Gemini questions about a folder of documents",
	Long: `Ask Gemini questions about a folder of documents.

With a directory, gemsearch uploads every file the provider does not have yet,
waits until they are processed and answers one question about them.
With a question (or nothing), it starts an interactive chat over the files
already uploaded.

Examples:
  gemsearch ./knowledge_base "What are the main findings?"
  gemsearch "Which report mentions revenue?"
  gemsearch serve --port 3000`,
	Args:              cobra.MaximumNArgs(2),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
			logCloser = nil
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd.Context(), appConfig, args)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	pf.BoolVar(&rawOutput, "raw", false, "print answers without markdown rendering")
	pf.StringSliceVar(&flagInclude, "include", nil, "only sync files matching these globs (e.g. **/*.pdf)")
	pf.IntVar(&flagConcurrency, "concurrency", 0, "uploads and status checks in flight (default from config)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "max wait for one file to finish processing (default from config)")

	rootCmd.Version = version

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if flagNoColor {
		noColor = true
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	closer, err := logger.Init(logger.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		JSON:  cfg.Log.JSON,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logCloser = closer
	appConfig = cfg
	return nil
}

// dispatch picks directory mode when the first argument is a directory and
// interactive mode otherwise. Without arguments the configured default
// directory is used when it exists.
func dispatch(ctx context.Context, cfg config.Config, args []string) error {
	switch {
	case len(args) == 0:
		if isDir(cfg.Chat.DefaultDir) {
			return runSync(ctx, cfg, cfg.Chat.DefaultDir, "")
		}
		return runChat(ctx, cfg, "")
	case isDir(args[0]):
		question := ""
		if len(args) > 1 {
			question = args[1]
		}
		return runSync(ctx, cfg, args[0], question)
	case len(args) > 1:
		return fmt.Errorf("%s is not a directory", args[0])
	default:
		return runChat(ctx, cfg, args[0])
	}
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
