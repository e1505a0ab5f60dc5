package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored chunks, newest first",
		Run:   runList,
	}

	cmd.Flags().StringP("session", "s", "", "Filter by session")
	cmd.Flags().IntP("limit", "l", 20, "Max results (0 for all)")
	cmd.Flags().Bool("ids-only", false, "Only output chunk ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	chunks, err := s.Recent(cmd.Context(), limit, session)
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, c := range chunks {
			fmt.Fprintln(cmd.OutOrStdout(), c.ID)
		}
		return
	}

	printJSON(cmd, stripEmbeddings(chunks))
}
