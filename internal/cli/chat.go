package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/embedding"
	"github.com/rcliao/sat-tutor/internal/llm"
	"github.com/rcliao/sat-tutor/internal/memory"
	"github.com/rcliao/sat-tutor/internal/model"
	"github.com/rcliao/sat-tutor/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive tutoring session",
		Long: "Chat with the tutor. Each turn is added to short-term memory, persisted to the\n" +
			"vector store and answered with relevant context from earlier sessions.\n" +
			"Type /reset to clear the buffer or exit to quit.",
		Run: runChat,
	}

	cmd.Flags().StringP("session", "s", "", "Session id (default: new ULID)")

	RootCmd.AddCommand(cmd)
}

func newManager(s store.VectorStore, emb embedding.Embedder, session string, summarizer memory.Summarizer) (*memory.Manager, error) {
	policy, err := memory.ParsePolicy(cfg.PrunePolicy, summarizer, logger)
	if err != nil {
		return nil, err
	}
	return memory.New(s, emb, memory.Config{
		MaxTokens:    cfg.MaxTokens,
		ModelName:    cfg.Model,
		EmbedTimeout: cfg.Embedding.Timeout,
		Policy:       policy,
		SessionID:    session,
		Logger:       logger,
	})
}

func runChat(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	ctx := cmd.Context()

	emb, err := openEmbedder()
	if err != nil {
		exitErr("embedder", err)
	}
	s, err := openStore(ctx)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	provider := llm.NewProvider(cfg.LLMOptions())
	mgr, err := newManager(s, emb, session, provider)
	if err != nil {
		exitErr("memory", err)
	}
	if err := mgr.AddMessage(ctx, model.RoleSystem, mgr.SystemInstructions()); err != nil {
		exitErr("memory", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "SAT tutor ready (session %s). Type exit to quit.\n", mgr.SessionID())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return
		case "/reset":
			mgr.Reset()
			if err := mgr.AddMessage(ctx, model.RoleSystem, mgr.SystemInstructions()); err != nil {
				exitErr("memory", err)
			}
			fmt.Fprintln(out, "(short-term memory cleared)")
			continue
		}

		if err := mgr.AddMessage(ctx, model.RoleUser, line); err != nil {
			exitErr("memory", err)
		}
		maxChunks := cfg.MaxRelevantChunks
		bundle := mgr.GetContextForPrompt(ctx, memory.ContextParams{MaxRelevantChunks: &maxChunks})
		logger.Debug("context assembled",
			"retrieval", bundle.Retrieval.String(),
			"relevant", len(bundle.RelevantChunks),
			"short_term_tokens", mgr.ShortTermTokens())

		reply, err := provider.Complete(ctx, bundle)
		if err != nil {
			logger.Error("completion failed", "error", err)
			fmt.Fprintln(out, "tutor: sorry, I couldn't reach the model. Please try again.")
			continue
		}
		fmt.Fprintf(out, "tutor: %s\n", reply.Content)

		if err := mgr.AddMessage(ctx, model.RoleAssistant, reply.Content); err != nil {
			exitErr("memory", err)
		}
	}
	if err := scanner.Err(); err != nil {
		exitErr("read input", err)
	}
	fmt.Fprintln(out)
}
