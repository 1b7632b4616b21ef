package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/chefmate/internal/config"
	"github.com/kalambet/chefmate/internal/document"
	"github.com/kalambet/chefmate/internal/ingest"
	"github.com/kalambet/chefmate/internal/retrieval"
	"github.com/kalambet/chefmate/internal/storage"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the cooking assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), client, userID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

type startSessionResponse struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// runChat opens a session for userID and relays lines from in until EOF or
// "exit". Blank lines are sent too; the assistant answers them with the next
// onboarding question.
func runChat(ctx context.Context, client *apiClient, userID string, in io.Reader, out io.Writer) error {
	resp, err := client.post(ctx, "/api/start_session", map[string]string{"user_id": userID})
	if err != nil {
		return err
	}
	var start startSessionResponse
	if err := decodeJSON(resp, &start); err != nil {
		return err
	}
	printAssistant(out, start.Message)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}

		resp, err := client.post(ctx, "/api/chat", map[string]string{"user_id": userID, "message": line})
		if err != nil {
			return err
		}
		var reply chatResponse
		if err := decodeJSON(resp, &reply); err != nil {
			printError("%v", err)
			continue
		}
		printAssistant(out, reply.Response)
	}
}

func init() {
	chatCmd.Flags().String("user", "", "user ID to chat as")
	chatCmd.MarkFlagRequired("user")
}

// --- memories ---

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "List, import or reindex stored memories",
}

type memoryItem struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Memory    string    `json:"memory"`
	CreatedAt time.Time `json:"created_at"`
}

var memoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every memory of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/memories?user_id="+url.QueryEscape(userID))
		if err != nil {
			return err
		}
		var result struct {
			Count int          `json:"count"`
			Items []memoryItem `json:"items"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if result.Count == 0 {
			fmt.Fprintln(out, "No memories found.")
			return nil
		}
		for i, m := range result.Items {
			fmt.Fprintf(out, "%s %s %s\n", colorize(colorBold, fmt.Sprintf("%3d.", i+1)), m.CreatedAt.Local().Format("2006-01-02 15:04"), colorize(colorCyan, "["+m.Kind+"]"))
			fmt.Fprintf(out, "     %s\n", m.Memory)
		}
		return nil
	},
}

var memoriesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import text or a document (PDF, plain text) as memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")

		if (text == "") == (file == "") {
			return errors.New("exactly one of --text or --file is required")
		}
		if file != "" {
			extracted, err := document.ExtractText(file)
			if err != nil {
				return err
			}
			text = extracted
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/memories", map[string]string{"user_id": userID, "text": text})
		if err != nil {
			return err
		}
		var result struct {
			IDs    []string `json:"ids"`
			Status string   `json:"status"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Imported %d memories (%s)", len(result.IDs), result.Status)
		return nil
	},
}

var memoriesReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Embed every memory that has no vector yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		es, err := detectEngine(cfg)
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		retriever := retrieval.NewRetriever(
			retrieval.NewEmbedder(es.engine, es.embedModel),
			retrieval.NewSQLiteStore(store.DB()),
		)
		worker := ingest.NewWorker(store, retriever, 0)

		total := 0
		for {
			n, err := worker.Backfill(cmd.Context(), backfillBatch)
			total += n
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
		}
		printSuccess("Indexed %d memories", total)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{memoriesListCmd, memoriesImportCmd} {
		c.Flags().String("user", "", "user ID")
		c.MarkFlagRequired("user")
	}
	memoriesImportCmd.Flags().String("text", "", "text to import")
	memoriesImportCmd.Flags().String("file", "", "path of a PDF or text file to import")

	memoriesCmd.AddCommand(memoriesListCmd)
	memoriesCmd.AddCommand(memoriesImportCmd)
	memoriesCmd.AddCommand(memoriesReindexCmd)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect a user's cooking profile",
}

type profileView struct {
	UserID       string             `json:"user_id"`
	Structured   map[string]string  `json:"structured"`
	Inferred     map[string]string  `json:"inferred"`
	Confidence   map[string]float64 `json:"confidence"`
	Merged       map[string]string  `json:"merged"`
	Summary      string             `json:"summary"`
	NextField    string             `json:"next_field"`
	Complete     bool               `json:"complete"`
	MinimalReady bool               `json:"minimal_ready"`
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the merged profile and onboarding progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/profile?user_id="+url.QueryEscape(userID))
		if err != nil {
			return err
		}
		var p profileView
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		printProfile(cmd.OutOrStdout(), p)
		return nil
	},
}

func printProfile(w io.Writer, p profileView) {
	fields := make([]string, 0, len(p.Merged))
	for f := range p.Merged {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		source := "stated"
		if _, ok := p.Structured[f]; !ok {
			source = fmt.Sprintf("inferred %.1f", p.Confidence[f])
		}
		fmt.Fprintf(w, "  %s = %s %s\n", colorize(colorBold, f), p.Merged[f], colorize(colorCyan, "("+source+")"))
	}

	switch {
	case p.Complete:
		fmt.Fprintln(w, colorize(colorGreen, "Profile complete"))
	case p.MinimalReady:
		fmt.Fprintf(w, "%s, next: %s\n", colorize(colorYellow, "Ready for recipes"), p.NextField)
	default:
		fmt.Fprintf(w, "%s, next: %s\n", colorize(colorYellow, "Onboarding"), p.NextField)
	}
}

func init() {
	profileShowCmd.Flags().String("user", "", "user ID")
	profileShowCmd.MarkFlagRequired("user")
	profileCmd.AddCommand(profileShowCmd)
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
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
