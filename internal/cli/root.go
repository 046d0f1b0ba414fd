// Package cli wires the retrieval dependency graph behind cobra commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/answer"
	"github.com/farmsense/poultryqa/internal/classifier"
	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/encoder"
	"github.com/farmsense/poultryqa/internal/kv"
	"github.com/farmsense/poultryqa/internal/logger"
	"github.com/farmsense/poultryqa/internal/metrics"
	"github.com/farmsense/poultryqa/internal/partition"
	"github.com/farmsense/poultryqa/internal/ranker"
	"github.com/farmsense/poultryqa/internal/retrieval"
	"github.com/farmsense/poultryqa/internal/searcher"
	"github.com/farmsense/poultryqa/internal/version"
)

var (
	appCfg config.Config
	appLog *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "poultryqa",
	Short: "Poultry knowledge-base retrieval",
	Long: `poultryqa answers natural-language questions against partitioned
poultry-production knowledge bases (broilers, layers, health, incubation,
nutrition) using domain classification, vector search and re-ranking.

Example usage:
  poultryqa query -q "FCR at 35 days for Ross 308"
  poultryqa partitions --load
  poultryqa ask`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env := config.GetEnv()

		c, err := config.Load(env)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err := logger.New(env, c.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		metrics.RegisterMetrics()

		appCfg = c
		appLog = log
		log.Debug("Configuration loaded",
			zap.String("version", version.Version),
			zap.String("env", env),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			_ = appLog.Sync()
		}
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// graph is the assembled retrieval dependency graph.
type graph struct {
	retriever *retrieval.Service
	parts     *partition.Store
	remote    *encoder.Remote
	close     func()
}

// buildGraph is the composition root: encoder chain, partition store,
// searcher, ranker, synthesizer, orchestrator.
func buildGraph(c config.Config, log *zap.Logger) *graph {
	cls := classifier.New(c.Classifier)
	parts := partition.New(c.Partitions, cls.Labels(), log)

	remote := encoder.NewRemote(c.Encoder.Remote, log)
	neural := encoder.NewNeural(c.Encoder.Neural, log)
	lexical := encoder.NewLexical(c.Encoder.Lexical.Dimensions)
	hasCredential := c.Encoder.Remote.APIKey != ""

	closers := []func(){neural.Close}

	// Optional query-embedding cache in front of the expensive backends.
	var neuralChain domain.Encoder = neural
	var remoteChain domain.Encoder = remote
	if len(c.Cache.Addrs) > 0 {
		store, err := kv.NewStore(kv.Config{
			Addrs:    c.Cache.Addrs,
			Password: c.Cache.Password,
		})
		if err != nil {
			log.Warn("Embedding cache disabled, store unavailable", zap.Error(err))
		} else {
			ttl := time.Duration(c.Cache.TTLSec) * time.Second
			neuralChain = encoder.NewCached(
				neural, "neural", store, c.Cache.KeyPrefix, ttl, metrics.EmbeddingCacheTotal, log)
			remoteChain = encoder.NewCached(
				remote, "remote", store, c.Cache.KeyPrefix, ttl, metrics.EmbeddingCacheTotal, log)
			closers = append(closers, store.Close)
		}
	}

	provider := encoder.NewProvider(neuralChain, remoteChain, hasCredential, lexical, log)

	svc := retrieval.New(
		cls,
		parts,
		provider,
		searcher.New(parts),
		ranker.New(c.Ranker),
		answer.New(log),
		c.Retrieval,
	)

	return &graph{
		retriever: svc,
		parts:     parts,
		remote:    remote,
		close: func() {
			for _, fn := range closers {
				fn()
			}
		},
	}
}
