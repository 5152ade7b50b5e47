package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalambet/gemsearch/internal/config"
	"github.com/kalambet/gemsearch/internal/session"
)

// --- files ---

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files in the Gemini file store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		p, err := newProvider(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		files, err := p.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}
		if len(files) == 0 {
			printWarning("No files uploaded")
			return nil
		}

		tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tSTATE\tMIME\tCREATED\tURI")
		for _, f := range files {
			created := "-"
			if !f.CreateTime.IsZero() {
				created = f.CreateTime.Local().Format(time.DateTime)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", f.Name, f.DisplayName, f.State, f.MIMEType, created, f.URI)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		printStatus("Total", "%d", len(files))
		return nil
	},
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models that can answer questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		p, err := newProvider(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		models, err := p.Models(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing models: %w", err)
		}
		for _, m := range models {
			name := strings.TrimPrefix(m.Name, "models/")
			marker := " "
			if name == cfg.Gemini.Model {
				marker = "*"
			}
			fmt.Fprintf(stdout, "%s %s", marker, colorize(color.Bold, name))
			if m.DisplayName != "" {
				fmt.Fprintf(stdout, "  %s", m.DisplayName)
			}
			if m.InputLimit > 0 {
				fmt.Fprintf(stdout, "  (in %d / out %d tokens)", m.InputLimit, m.OutputLimit)
			}
			fmt.Fprintln(stdout)
		}
		return nil
	},
}

// --- history ---

var (
	historyLimit  int
	historyDelete bool
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List saved chat sessions or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(appConfig)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		if len(args) == 0 {
			if historyDelete {
				return fmt.Errorf("--delete needs a session id")
			}
			return listSessions(store, historyLimit)
		}

		if historyDelete {
			if err := store.DeleteSession(args[0]); err != nil {
				return err
			}
			printSuccess("Deleted session %s", args[0])
			return nil
		}
		return showSession(store, args[0])
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of sessions to list")
	historyCmd.Flags().BoolVar(&historyDelete, "delete", false, "delete the given session")
}

func listSessions(store session.Store, limit int) error {
	sums, err := store.ListSessions(limit)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		printWarning("No saved sessions")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tFILES\tTURNS\tTITLE")
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.ID, s.UpdatedAt.Local().Format(time.DateTime), s.Files, s.Turns, s.Title)
	}
	return tw.Flush()
}

func showSession(store session.Store, id string) error {
	sess, err := store.LoadSession(id)
	if err != nil {
		return err
	}
	printStatus("Session", "%s", sess.ID)
	if sess.Title != "" {
		printStatus("Title", "%s", sess.Title)
	}
	printStatus("Files", "%d", len(sess.Files))
	for _, t := range sess.Turns {
		label := "You"
		attr := color.FgCyan
		if t.Role == session.RoleModel {
			label = "Gemini"
			attr = color.FgGreen
		}
		fmt.Fprintf(stdout, "%s\n%s\n\n", colorize(attr, label+":"), t.Text)
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s\n", colorize(color.Bold, k.Key), k.Value)
		}
		key := "not set"
		if cfg.RequireAPIKey() == nil {
			key = "set"
		}
		fmt.Fprintf(stdout, "  %s = (%s)\n", colorize(color.Bold, "gemini.api_key"), key)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nKeys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Store the Gemini API key in the secrets file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetAPIKey(strings.TrimSpace(args[0])); err != nil {
			return err
		}
		printSuccess("API key saved")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
}
