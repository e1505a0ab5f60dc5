package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/memory"
	"github.com/rcliao/sat-tutor/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Show the context bundle a tutor turn would send",
		Long:  "Assemble system instructions and the most relevant long-term chunks for a query.",
		Run:   runContext,
	}

	cmd.Flags().IntP("max", "m", memory.DefaultMaxRelevantChunks, "Max relevant chunks (0 skips retrieval)")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	maxChunks, _ := cmd.Flags().GetInt("max")

	emb, err := openEmbedder()
	if err != nil {
		exitErr("embedder", err)
	}
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mgr, err := newManager(s, emb, "", nil)
	if err != nil {
		exitErr("memory", err)
	}

	params := memory.ContextParams{MaxRelevantChunks: &maxChunks}
	if len(args) > 0 {
		q := strings.Join(args, " ")
		params.Query = &q
	}
	bundle := mgr.GetContextForPrompt(cmd.Context(), params)

	printJSON(cmd, struct {
		model.ContextBundle
		Retrieval    string `json:"retrieval"`
		SystemTokens int    `json:"system_tokens"`
	}{
		ContextBundle: bundle,
		Retrieval:     bundle.Retrieval.String(),
		SystemTokens:  mgr.TokenCount(bundle.SystemInstructions),
	})
}
