package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/logger"
	"github.com/farmsense/poultryqa/internal/ops"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Interactive question loop",
	Long: `Read questions from stdin and answer them until EOF or SIGTERM.
When ops.port is configured, /healthz and /metrics are served while the
loop runs.`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 5, "number of source documents")
}

func runAsk(cmd *cobra.Command, args []string) error {
	g := buildGraph(appCfg, appLog)
	defer g.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithLogger(ctx, appLog)

	var opsSrv *ops.Server
	if appCfg.Ops.Port > 0 {
		opsSrv = ops.NewServer(appCfg.Ops, g.remote.HealthCheck, appLog)
		go func() {
			if err := opsSrv.Start(); err != nil {
				appLog.Error("Ops listener failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), time.Duration(appCfg.Ops.ShutdownSec)*time.Second)
			defer cancel()
			if err := opsSrv.Shutdown(shutdownCtx); err != nil {
				appLog.Error("Error during ops shutdown", zap.Error(err))
			}
		}()
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			fmt.Print("> ")
			continue
		}

		result, err := g.retriever.Retrieve(ctx, question, askTopK)
		switch {
		case errors.Is(err, domain.ErrNoAnswer):
			fmt.Println("No answer found:", err)
		case err != nil:
			return fmt.Errorf("retrieve: %w", err)
		default:
			fmt.Println(result.Answer)
			fmt.Printf("\n(partition=%s confidence=%.2f)\n",
				result.Meta.Partition, result.Meta.Confidence)
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}
