package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"brandstudio/internal/chunk"
	"brandstudio/internal/index"
	"brandstudio/internal/logging"
)

// indexCmd groups index maintenance subcommands.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the guideline vector index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Chunk and embed the brand knowledge base into the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		documents, err := collectGuidelineChunks(cfg.Knowledge.Path)
		if err != nil {
			return err
		}
		if len(documents) == 0 {
			return fmt.Errorf("no guideline documents found under %s", cfg.Knowledge.Path)
		}

		engine, err := newEngine("RETRIEVAL_DOCUMENT")
		if err != nil {
			return err
		}

		ix := index.New(engine)
		fmt.Fprintf(cmd.OutOrStdout(), "Embedding %d chunks with %s...\n", len(documents), engine.Name())
		if err := ix.AddDocuments(cmd.Context(), documents); err != nil {
			return fmt.Errorf("failed to embed guideline chunks: %w", err)
		}

		if err := ix.Save(cfg.Index.VectorPath, cfg.Index.DocsPath); err != nil {
			return fmt.Errorf("failed to persist index: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks -> %s\n", ix.Len(), cfg.Index.VectorPath)
		return nil
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted index size",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine("RETRIEVAL_QUERY")
		if err != nil {
			return err
		}

		ix := index.New(engine)
		if err := ix.Load(cfg.Index.VectorPath, cfg.Index.DocsPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Index: %d documents (%s)\n", ix.Len(), cfg.Index.VectorPath)
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexStatusCmd)
}

// collectGuidelineChunks reads every markdown and plain-text document
// under the KB root and splits them into retrieval-sized chunks.
func collectGuidelineChunks(root string) ([]string, error) {
	var documents []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		chunks := chunk.Document(string(data), cfg.Index.WindowWords, cfg.Index.OverlapWords)
		logging.Index("chunked %s into %d pieces", filepath.Base(path), len(chunks))
		documents = append(documents, chunks...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk knowledge base: %w", err)
	}
	return documents, nil
}
