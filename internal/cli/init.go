package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the vector store",
		Long:  "Create the database and schema if missing. Safe to run repeatedly.",
		Run:   runInit,
	}

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Initialize(cmd.Context()); err != nil {
		exitErr("init", err)
	}

	printJSON(cmd, map[string]any{
		"ok":        true,
		"backend":   cfg.StoreBackend,
		"db":        storePath(),
		"dimension": s.Dimension(),
	})
}
