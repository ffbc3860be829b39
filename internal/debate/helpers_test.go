package debate

import (
	"context"

	"github.com/fintel-ai/tribunal/internal/config"
	"github.com/fintel-ai/tribunal/internal/model"
)

// testPolicy mirrors the shipped policy defaults.
var testPolicy = config.PolicyConfig{
	GraphWeight:    0.5,
	SemanticWeight: 0.3,
	DriftWeight:    0.2,

	CriticalThreshold: 0.85,
	HighThreshold:     0.65,
	MediumThreshold:   0.40,

	FloorHiddenLink:   0.85,
	FloorFraudRing:    0.90,
	FloorLayering:     0.85,
	FloorDrift:        0.70,
	FloorRiskFlags:    0.70,
	FloorPriorHistory: 0.80,

	ReductionAlibi:        0.20,
	ReductionPaymentAuth:  0.30,
	ReductionCleanProfile: 0.10,
	ReductionPeerNorms:    0.15,
	ReductionCleanMedia:   0.10,
	PenaltyAdverseMedia:   0.10,

	MaxRounds:           3,
	ConfidenceThreshold: 0.80,
}

// stageFunc adapts a closure to the Stage interface for loop tests.
type stageFunc func(ctx context.Context, state model.DebateState) model.StateDelta

func (f stageFunc) Run(ctx context.Context, state model.DebateState) model.StateDelta {
	return f(ctx, state)
}
