package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/logger"
)

var (
	queryText       string
	queryTopK       int
	queryJSON       bool
	queryTimeoutSec int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer a single question",
	Long: `Answer one question against the partitioned knowledge base.

Examples:
  poultryqa query -q "FCR at 35 days for Ross 308"
  poultryqa query -q "vaccination schedule for layers" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to answer (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 5, "number of source documents")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().IntVar(&queryTimeoutSec, "timeout", 30, "overall request deadline in seconds")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	g := buildGraph(appCfg, appLog)
	defer g.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(queryTimeoutSec)*time.Second)
	defer cancel()
	ctx = logger.ContextWithLogger(ctx, appLog)

	result, err := g.retriever.Retrieve(ctx, queryText, queryTopK)
	if err != nil {
		if errors.Is(err, domain.ErrNoAnswer) {
			fmt.Println("No answer found:", err)
			return nil
		}
		return fmt.Errorf("retrieve: %w", err)
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Println(result.Answer)
	fmt.Println()
	fmt.Printf("partition=%s label=%s confidence=%.2f method=%s tried=%v\n",
		result.Meta.Partition, result.Meta.DetectedLabel, result.Meta.Confidence,
		result.Meta.EmbeddingMethod, result.Meta.PartitionsTried)
	return nil
}
