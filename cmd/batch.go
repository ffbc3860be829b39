package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fintel-ai/tribunal/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Investigate a file of transactions concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		txs, err := loadBatch(batchFile)
		if err != nil {
			return err
		}

		return processBatch(ctx, env, txs, batchLimit, cfg.Batch.MaxConcurrentInvestigations)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "JSON array of transactions (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of transactions to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// loadBatch reads a JSON array of transactions from disk.
func loadBatch(path string) ([]model.Transaction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read batch file %s", path)
	}

	var txs []model.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, eris.Wrapf(err, "parse batch file %s", path)
	}
	return txs, nil
}

// processBatch runs each transaction as an independent investigation.
// Investigations share the monitor, alert queue, and store but nothing
// else; one failure never aborts the batch.
func processBatch(ctx context.Context, env *appEnv, txs []model.Transaction, limit, concurrency int) error {
	if len(txs) == 0 {
		zap.L().Info("no transactions in batch")
		return nil
	}

	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}

	zap.L().Info("processing batch",
		zap.Int("transactions", len(txs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, tx := range txs {
		g.Go(func() error {
			log := zap.L().With(zap.String("uetr", tx.UETR))

			final, err := runInvestigation(gctx, env, tx, nil)
			if err != nil {
				failed.Add(1)
				log.Error("investigation failed", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			log.Info("investigation complete",
				zap.String("risk_level", string(final.RiskLevel)),
				zap.Float64("confidence", final.ConfidenceScore),
				zap.Int("rounds", final.RoundCount-1),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
