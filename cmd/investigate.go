package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/alerts"
	"github.com/fintel-ai/tribunal/internal/debate"
	"github.com/fintel-ai/tribunal/internal/iso"
	"github.com/fintel-ai/tribunal/internal/model"
)

var (
	investigateFile    string
	investigateRestart bool
)

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Run one transaction through the full debate",
	Long:  "Reads a pacs.008 XML message or a JSON transaction, evaluates the monitoring rules, runs the prosecutor/skeptic/judge debate to a verdict, and persists the final state with its audit trail.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		tx, err := loadTransaction(investigateFile)
		if err != nil {
			return err
		}

		// Rerunning a settled transaction is a hard reset, never a
		// resume. Require the flag so reruns are deliberate.
		if !investigateRestart {
			prior, err := env.Store.GetInvestigation(ctx, tx.UETR)
			if err != nil {
				return err
			}
			if prior != nil {
				return eris.Errorf("investigation for %s already exists (verdict %s); pass --restart to discard it and rerun", tx.UETR, prior.Verdict)
			}
		}

		final, err := runInvestigation(ctx, env, tx, nil)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	},
}

func init() {
	investigateCmd.Flags().StringVar(&investigateFile, "file", "", "pacs.008 XML or JSON transaction file (required)")
	investigateCmd.Flags().BoolVar(&investigateRestart, "restart", false, "discard any prior investigation state for this transaction")
	_ = investigateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(investigateCmd)
}

// loadTransaction reads a transaction from disk. Files ending in .xml are
// parsed as pacs.008; everything else is treated as a JSON transaction.
func loadTransaction(path string) (model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Transaction{}, eris.Wrapf(err, "open transaction file %s", path)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".xml") {
		ct, err := iso.ParsePacs008(f)
		if err != nil {
			return model.Transaction{}, err
		}
		return ct.Transaction(), nil
	}

	var tx model.Transaction
	if err := json.NewDecoder(f).Decode(&tx); err != nil {
		return model.Transaction{}, eris.Wrapf(err, "parse transaction file %s", path)
	}
	return tx, nil
}

// runInvestigation is the single entry point shared by the investigate,
// batch, and serve commands: monitoring rules first, then the debate,
// then persistence of state, audit trail, and any triggered alerts.
// A non-nil observer receives each completed round in addition to the
// standard log line.
func runInvestigation(ctx context.Context, env *appEnv, tx model.Transaction, obs debate.RoundObserver) (*model.DebateState, error) {
	if tx.UETR == "" {
		return nil, eris.New("transaction uetr is required")
	}

	env.Monitor.Observe(tx)
	analysis := env.Monitor.Evaluate(tx)

	if len(analysis.Alerts) > 0 {
		queued := make([]alerts.Alert, 0, len(analysis.Alerts))
		for _, a := range analysis.Alerts {
			queued = append(queued, env.Queue.Push(a.UETR, a.Type, a.Severity, a.Details))
		}
		if err := env.Store.SaveAlerts(ctx, queued); err != nil {
			return nil, err
		}
	}

	ctrl := env.NewController()
	ctrl.SetObserver(func(round int, state model.DebateState) {
		zap.L().Info("round complete",
			zap.String("uetr", state.UETR),
			zap.Int("round", round),
			zap.Float64("confidence", state.ConfidenceScore),
			zap.Bool("needs_more_evidence", state.NeedsMoreEvidence),
		)
		if obs != nil {
			obs(round, state)
		}
	})

	final, err := ctrl.Run(ctx, tx.UETR, tx)
	if err != nil {
		return nil, err
	}

	inv, err := env.Store.SaveInvestigation(ctx, final)
	if err != nil {
		return nil, err
	}
	if err := env.Store.AppendAuditTrail(ctx, tx.UETR, final.ToolCalls); err != nil {
		return nil, err
	}

	zap.L().Info("investigation persisted",
		zap.String("id", inv.ID),
		zap.String("uetr", inv.UETR),
		zap.String("risk_level", string(inv.RiskLevel)),
		zap.String("verdict", string(inv.Verdict)),
	)

	return final, nil
}
