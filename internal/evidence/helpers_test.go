package evidence

import "github.com/fintel-ai/tribunal/internal/config"

// defaultTestPolicy mirrors the shipped policy defaults.
var defaultTestPolicy = config.PolicyConfig{
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
