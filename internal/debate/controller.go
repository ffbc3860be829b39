package debate

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/config"
	"github.com/fintel-ai/tribunal/internal/model"
)

// Stage is one debate role: it consumes the current state and hands back
// a delta; it never mutates the state it was given.
type Stage interface {
	Run(ctx context.Context, state model.DebateState) model.StateDelta
}

// RoundObserver is called with the merged state after each completed
// round (prosecutor, skeptic, judge). Observers watch; they cannot
// influence the debate.
type RoundObserver func(round int, state model.DebateState)

// Controller drives the debate state machine: prosecutor, then skeptic,
// then judge, looping back while the judge wants more evidence and the
// round and confidence bounds allow it.
type Controller struct {
	prosecutor Stage
	skeptic    Stage
	judge      Stage
	policy     config.PolicyConfig
	observer   RoundObserver
}

// NewController assembles the debate loop.
func NewController(prosecutor, skeptic, judge Stage, policy config.PolicyConfig) *Controller {
	return &Controller{
		prosecutor: prosecutor,
		skeptic:    skeptic,
		judge:      judge,
		policy:     policy,
	}
}

// SetObserver registers the per-round callback.
func (c *Controller) SetObserver(obs RoundObserver) {
	c.observer = obs
}

// shouldContinue is the loop predicate. Every default fails toward
// termination: a judge that never asked for more evidence ends the
// debate regardless of the other fields.
func (c *Controller) shouldContinue(s model.DebateState) bool {
	return s.NeedsMoreEvidence &&
		s.RoundCount <= c.policy.MaxRounds &&
		s.ConfidenceScore < c.policy.ConfidenceThreshold
}

// Run executes a full investigation and returns the final state. Stage
// failures are already folded into deltas by the roles themselves, so the
// only error Run reports is context cancellation. Each call starts from a
// fresh round-1 state under a new correlation id; rerunning a UETR is a
// restart, never a resume.
func (c *Controller) Run(ctx context.Context, uetr string, tx model.Transaction) (*model.DebateState, error) {
	correlationID := uuid.NewString()
	log := zap.L().With(
		zap.String("uetr", uetr),
		zap.String("correlation_id", correlationID),
	)
	log.Info("investigation starting")

	state := model.NewState(uetr, tx)

	for {
		round := state.RoundCount

		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "debate: investigation canceled")
		}
		state = model.Merge(state, c.prosecutor.Run(ctx, state))

		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "debate: investigation canceled")
		}
		state = model.Merge(state, c.skeptic.Run(ctx, state))

		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "debate: investigation canceled")
		}
		state = model.Merge(state, c.judge.Run(ctx, state))

		if c.observer != nil {
			c.observer(round, state)
		}

		if !c.shouldContinue(state) {
			break
		}
		log.Info("judge requested another round",
			zap.Int("next_round", state.RoundCount),
			zap.Float64("confidence", state.ConfidenceScore),
		)
	}

	log.Info("investigation complete",
		zap.Int("rounds", state.RoundCount-1),
		zap.String("risk_level", string(state.RiskLevel)),
		zap.Float64("confidence", state.ConfidenceScore),
	)
	return &state, nil
}
