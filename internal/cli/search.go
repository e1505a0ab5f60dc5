package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/embedding"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search long-term memory",
		Long:  "Rank chunks by cosine similarity to the query, or match text with --keyword.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 5, "Max results")
	cmd.Flags().Bool("keyword", false, "Substring match instead of semantic search")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	keyword, _ := cmd.Flags().GetBool("keyword")
	query := strings.Join(args, " ")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if keyword {
		chunks, err := s.SearchText(cmd.Context(), query, limit)
		if err != nil {
			exitErr("search", err)
		}
		printJSON(cmd, stripEmbeddings(chunks))
		return
	}

	emb, err := openEmbedder()
	if err != nil {
		exitErr("embedder", err)
	}
	vec, err := embedding.Embed(cmd.Context(), emb, query, cfg.Embedding.Timeout)
	if err != nil {
		exitErr("embed query", err)
	}

	results, err := s.SearchSimilar(cmd.Context(), vec, limit)
	if err != nil {
		exitErr("search", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "[]")
		return
	}
	printJSON(cmd, results)
}
