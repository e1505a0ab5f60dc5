package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a stored chunk",
		Run:   runRm,
	}

	cmd.Flags().Int64("id", 0, "Chunk id (required)")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetInt64("id")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ok, err := s.DeleteChunk(cmd.Context(), id)
	if err != nil {
		exitErr("rm", err)
	}
	if !ok {
		exitErr("rm", fmt.Errorf("chunk %d: %w", id, store.ErrNotFound))
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%d}`+"\n", id)
}
