package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/farmsense/poultryqa/internal/logger"
)

var partitionsLoad bool

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List recognized knowledge partitions",
	Long: `List the recognized partition ids. With --load, each partition is
loaded from disk and its embedding method, dimensionality and document count
are shown.`,
	RunE: runPartitions,
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
	partitionsCmd.Flags().BoolVar(&partitionsLoad, "load", false, "load each partition and show details")
}

func runPartitions(cmd *cobra.Command, args []string) error {
	g := buildGraph(appCfg, appLog)
	defer g.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()
	ctx = logger.ContextWithLogger(ctx, appLog)

	for _, id := range g.parts.IDs() {
		if !partitionsLoad {
			fmt.Println(id)
			continue
		}
		if !g.parts.EnsureLoaded(ctx, id) {
			fmt.Printf("%-12s unavailable\n", id)
			continue
		}
		p, _ := g.parts.Get(id)
		fmt.Printf("%-12s method=%-10s dims=%-5d docs=%d\n",
			id, p.Method, p.Dimensions, len(p.Documents))
	}
	return nil
}
