package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/model"
	"github.com/rcliao/sat-tutor/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import long-term memory from JSON",
		Long:  "Import chunks from JSON (stdin or --file). Expects the format produced by export.",
		Run:   runImport,
	}

	cmd.Flags().String("file", "", "Read the export from a file")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")

	data, err := readInput(cmd, nil, file)
	if err != nil {
		exitErr("import", err)
	}

	var chunks []model.Chunk
	if err := json.Unmarshal([]byte(data), &chunks); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := store.Import(cmd.Context(), s, chunks)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
