// Package cli implements the sat-tutor CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sat-tutor/internal/config"
	"github.com/rcliao/sat-tutor/internal/embedding"
	"github.com/rcliao/sat-tutor/internal/logging"
	"github.com/rcliao/sat-tutor/internal/model"
	"github.com/rcliao/sat-tutor/internal/store"
)

var (
	configPath  string
	dbPath      string
	dimFlag     int
	backendFlag string

	cfg    *config.Config
	logger *slog.Logger
	pool   = store.NewPool()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "sat-tutor",
	Short: "SAT vocabulary tutor with hybrid conversational memory",
	Long: "A tutor for SAT prefixes, roots and suffixes. Recent turns live in a token-bounded\n" +
		"buffer; every turn is embedded into a vector store and recalled when relevant.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SAT_TUTOR_DB or data/memory.db)")
	RootCmd.PersistentFlags().IntVar(&dimFlag, "dim", 0, "Embedding dimension (default: $SAT_TUTOR_EMBED_DIM or 1536)")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Vector store backend: sqlite or memory")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		c.DBPath = dbPath
	}
	if flags.Changed("dim") {
		c.EmbeddingDimension = dimFlag
	}
	if flags.Changed("backend") {
		c.StoreBackend = backendFlag
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	logger = logging.Init(cfg.LogLevel, cfg.Environment)
	return nil
}

// openStore returns the configured vector store. SQLite stores are shared
// through the pool; the memory backend lives only as long as the process.
func openStore(ctx context.Context) (store.VectorStore, error) {
	if cfg.StoreBackend == config.BackendMemory {
		s, err := store.NewMemStore(cfg.EmbeddingDimension)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := pool.Acquire(ctx, cfg.DBPath, cfg.EmbeddingDimension)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func storePath() string {
	if cfg.StoreBackend == config.BackendMemory {
		return ""
	}
	return cfg.DBPath
}

func openEmbedder() (embedding.Embedder, error) {
	return embedding.New(cfg.EmbeddingOptions())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// stripEmbeddings drops vectors from chunks before they are printed.
func stripEmbeddings(chunks []model.Chunk) []model.Chunk {
	out := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = nil
		out[i] = c
	}
	return out
}

// readInput returns the positional args joined, the named file, or piped
// stdin, in that order of preference.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
