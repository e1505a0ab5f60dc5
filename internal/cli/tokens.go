package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/tokens"
)

func init() {
	cmd := &cobra.Command{
		Use:   "tokens [text]",
		Short: "Count tokens the way the short-term budget does",
		Run:   runTokens,
	}

	cmd.Flags().String("model", "", "Model whose encoding to use (default: configured model)")
	cmd.Flags().String("file", "", "Count a file instead")

	RootCmd.AddCommand(cmd)
}

func runTokens(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("model")
	file, _ := cmd.Flags().GetString("file")
	if name == "" {
		name = cfg.Model
	}

	text, err := readInput(cmd, args, file)
	if err != nil {
		exitErr("tokens", err)
	}

	counter := tokens.NewCounter(name)
	printJSON(cmd, map[string]any{
		"model":    counter.Model(),
		"encoding": counter.Encoding(),
		"tokens":   counter.CountTokens(text),
	})
}
