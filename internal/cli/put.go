package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/chunker"
	"github.com/rcliao/sat-tutor/internal/embedding"
	"github.com/rcliao/sat-tutor/internal/model"
	"github.com/rcliao/sat-tutor/internal/store"
	"github.com/rcliao/sat-tutor/internal/tokens"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [text]",
		Short: "Seed long-term memory with study material",
		Long: "Embed text and store it as long-term memory. Text can be a positional arg,\n" +
			"a file (--file) or piped via stdin. Long material is split into token-sized chunks.",
		Run: runPut,
	}

	cmd.Flags().String("file", "", "Read material from a file")
	cmd.Flags().StringP("session", "s", "seed", "Session id recorded on the chunks")
	cmd.Flags().Int("chunk-tokens", 200, "Target chunk size in tokens")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	session, _ := cmd.Flags().GetString("session")
	target, _ := cmd.Flags().GetInt("chunk-tokens")

	text, err := readInput(cmd, args, file)
	if err != nil {
		exitErr("put", err)
	}
	if strings.TrimSpace(text) == "" {
		exitErr("put", fmt.Errorf("text is required (positional arg, --file or stdin)"))
	}

	counter := tokens.NewCounter(cfg.Model)
	pieces := chunker.Split(text, chunker.Options{
		Target:  target,
		Max:     target + target/2,
		Measure: counter.CountTokens,
	})

	emb, err := openEmbedder()
	if err != nil {
		exitErr("embedder", err)
	}
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stored := make([]model.Chunk, 0, len(pieces))
	for _, p := range pieces {
		vec, err := embedding.Embed(cmd.Context(), emb, p.Text, cfg.Embedding.Timeout)
		if err != nil {
			exitErr("embed", err)
		}
		c, err := s.Insert(cmd.Context(), store.InsertParams{
			Text:      p.Text,
			Embedding: vec,
			SessionID: session,
		})
		if err != nil {
			exitErr("put", err)
		}
		logger.Debug("stored chunk", "chunk_id", c.ID, "lines", fmt.Sprintf("%d-%d", p.FirstLine, p.LastLine))
		stored = append(stored, *c)
	}

	printJSON(cmd, stripEmbeddings(stored))
}
