package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vector store statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := store.CollectStats(cmd.Context(), s, storePath())
	if err != nil {
		exitErr("stats", err)
	}

	printJSON(cmd, stats)
}
