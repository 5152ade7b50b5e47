package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kalambet/gemsearch/internal/config"
	"github.com/kalambet/gemsearch/internal/query"
	"github.com/kalambet/gemsearch/internal/remote"
	"github.com/kalambet/gemsearch/internal/repl"
	"github.com/kalambet/gemsearch/internal/session"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Chat about the files already uploaded",
	Long: `Start an interactive chat using every uploaded file as context.

Files in FAILED state are skipped. Type "exit" or send end of input to quit.
Conversations are saved and can be listed with "gemsearch history".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := ""
		if len(args) > 0 {
			question = args[0]
		}
		return runChat(cmd.Context(), appConfig, question)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "continue a saved session")
}

// runChat loads the remote listing once, optionally answers question, then
// reads further questions from stdin.
func runChat(ctx context.Context, cfg config.Config, question string) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}

	printStep("Loading uploaded files")
	files, err := p.List(ctx)
	if err != nil {
		return &remote.ListError{Err: err}
	}

	refs := usableRefs(files)
	if len(refs) == 0 {
		printWarning("No files available. Upload some first with: gemsearch sync <dir>")
		return nil
	}

	store, err := openStore(cfg)
	if err != nil {
		printWarning("Conversation will not be saved: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	sess, err := loadChatSession(store, chatSessionID)
	if err != nil {
		return err
	}
	sess.ClearFiles()
	for _, ref := range refs {
		sess.AddFile(ref)
	}

	var sessions session.Store
	if store != nil {
		sessions = store
	}
	asker := conversationAsker{conv: session.NewConversation(query.New(p, slog.Default()), sessions, sess)}

	printSuccess("Ready, %d document(s) in context. Type 'exit' to quit.", len(refs))

	if question != "" {
		fmt.Fprintf(stdout, "%s%s\n", repl.DefaultPrompt, question)
		if answer, err := asker.Ask(ctx, question); err != nil {
			printError("%v", err)
		} else {
			fmt.Fprintln(stdout, renderAnswer(answer))
		}
	}

	asked, err := repl.Run(ctx, repl.Options{
		In:      stdin,
		Out:     stdout,
		Render:  renderAnswer,
		OnError: func(err error) { printError("%v", err) },
	}, asker)
	if err != nil {
		return err
	}

	if store != nil && (asked > 0 || question != "") {
		printStatus("Session", "%s", sess.ID)
	}
	return nil
}

// usableRefs drops files the provider failed to process.
func usableRefs(files []remote.File) []remote.FileRef {
	refs := make([]remote.FileRef, 0, len(files))
	for _, f := range files {
		if f.State == remote.StateFailed {
			printWarning("Skipping %s: processing failed", f.DisplayName)
			continue
		}
		refs = append(refs, f.Ref())
	}
	return refs
}

func loadChatSession(store sessionStore, id string) (*session.Session, error) {
	if store == nil {
		return session.New(""), nil
	}
	return session.LoadOrNew(store, id)
}

// conversationAsker reports a failed save without losing the answer.
type conversationAsker struct {
	conv *session.Conversation
}

func (a conversationAsker) Ask(ctx context.Context, question string) (string, error) {
	answer, err := a.conv.Ask(ctx, question)
	if err != nil && answer != "" {
		printWarning("%v", err)
		return answer, nil
	}
	return answer, err
}
