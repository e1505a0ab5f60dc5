package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export long-term memory as JSON",
		Long:  "Export every chunk with its embedding, oldest first. Filter by session with -s.",
		Run:   runExport,
	}

	cmd.Flags().StringP("session", "s", "", "Filter by session")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	chunks, err := store.ExportAll(cmd.Context(), s, session)
	if err != nil {
		exitErr("export", err)
	}

	printJSON(cmd, chunks)
}
