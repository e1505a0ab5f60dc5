package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve a stored chunk",
		Run:   runGet,
	}

	cmd.Flags().Int64("id", 0, "Chunk id (required)")
	cmd.Flags().Bool("embedding", false, "Include the embedding vector")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetInt64("id")
	withEmbedding, _ := cmd.Flags().GetBool("embedding")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c, err := s.GetChunk(cmd.Context(), id)
	if err != nil {
		exitErr("get", err)
	}
	if !withEmbedding {
		c.Embedding = nil
	}
	printJSON(cmd, c)
}
