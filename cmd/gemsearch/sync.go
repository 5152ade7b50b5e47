package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kalambet/gemsearch/internal/config"
	"github.com/kalambet/gemsearch/internal/filesync"
	"github.com/kalambet/gemsearch/internal/query"
)

var syncCmd = &cobra.Command{
	Use:   "sync <dir> [question]",
	Short: "Upload a directory and answer one question about it",
	Long: `Upload every file of a directory the provider does not have yet, wait until
the uploads are processed, then answer one question using all of them.

Hidden entries and node_modules are skipped. Rules in .gemsearchignore
(gitignore syntax) at the directory root are honored.

Examples:
  gemsearch sync ./knowledge_base
  gemsearch sync ./papers "Compare the methods" --include '**/*.pdf'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := ""
		if len(args) > 1 {
			question = args[1]
		}
		return runSync(cmd.Context(), appConfig, args[0], question)
	},
}

func syncOptions(cfg config.Config) filesync.Options {
	opts := filesync.Options{
		PollInterval:    cfg.PollInterval(),
		Timeout:         cfg.ProcessingTimeout(),
		MaxAttempts:     cfg.Sync.MaxPollAttempts,
		Concurrency:     cfg.Sync.Concurrency,
		DefaultMIMEType: cfg.Sync.DefaultMIMEType,
		IgnoreFile:      cfg.Sync.IgnoreFile,
		Include:         flagInclude,
		Logger:          slog.Default(),
		Progress:        reportProgress,
	}
	if flagConcurrency > 0 {
		opts.Concurrency = flagConcurrency
	}
	if flagTimeout > 0 {
		opts.Timeout = flagTimeout
	}
	return opts
}

// runSync mirrors dir into the file store and answers a single question
// with every resulting file as context.
func runSync(ctx context.Context, cfg config.Config, dir, question string) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	if question == "" {
		question = cfg.Chat.DefaultQuestion
	}

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}

	printStep("Syncing %s", dir)
	res, err := filesync.New(p, syncOptions(cfg)).SyncDirectory(ctx, dir)
	if err != nil {
		return err
	}
	if res.ListErr != nil {
		printWarning("Could not list remote files, uploaded everything: %v", res.ListErr)
	}

	printStatus("Files", "%d (%d reused, %d uploaded)", len(res.Files), len(res.Reused), len(res.Uploaded))
	if len(res.Failures) > 0 {
		printWarning("%d file(s) failed", len(res.Failures))
	}
	for _, f := range res.Files {
		if !f.Active() {
			printWarning("%s is %s, the model may ignore it", f.DisplayName, f.State)
		}
	}
	if len(res.Files) == 0 {
		printWarning("No files available in %s, asking without context", dir)
	}

	printStep("Asking: %s", question)
	answer, err := query.New(p, slog.Default()).Query(ctx, question, res.Refs())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, renderAnswer(answer))
	return nil
}

func reportProgress(ev filesync.Event) {
	switch ev.Kind {
	case filesync.EventReused:
		printStep("%s already uploaded, skipping", ev.DisplayName)
	case filesync.EventUploading:
		printStep("Uploading %s", ev.DisplayName)
	case filesync.EventUploaded:
		printSuccess("Uploaded %s (%s)", ev.DisplayName, ev.File.URI)
	case filesync.EventUploadFailed:
		printError("Upload failed for %s: %v", ev.DisplayName, ev.Err)
	case filesync.EventWaiting:
		printStep("Waiting for %s to be processed", ev.DisplayName)
	case filesync.EventActive:
		printSuccess("%s is ready", ev.DisplayName)
	case filesync.EventFailed:
		printError("%s: %v", ev.DisplayName, ev.Err)
	}
}
