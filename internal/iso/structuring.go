package iso

import (
	"strconv"

	"github.com/fintel-ai/tribunal/internal/model"
)

// DefaultReportingThreshold is the reporting limit structuring checks
// run against when the caller does not supply one.
const DefaultReportingThreshold = 10000

// SuspiciousEntry is one statement entry that sits just under the
// reporting threshold.
type SuspiciousEntry struct {
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	Reference string  `json:"reference"`
}

// StructuringResult is the outcome of a structuring (smurfing) scan over
// statement entries.
type StructuringResult struct {
	Threshold          float64           `json:"threshold"`
	NearThresholdCount int               `json:"near_threshold_transactions"`
	TotalNearThreshold float64           `json:"total_near_threshold_amount"`
	SuspiciousEntries  []SuspiciousEntry `json:"suspicious_entries"`
	Score              float64           `json:"structuring_score"`
	Detected           bool              `json:"structuring_detected"`
	RiskLevel          model.RiskLevel   `json:"risk_level"`
}

// DetectStructuring flags entries falling in the 80-99% band below the
// reporting threshold. Three such entries mark the pattern detected,
// five saturate the score. Unparseable amounts are skipped.
func DetectStructuring(entries []StatementEntry, threshold float64) StructuringResult {
	if threshold <= 0 {
		threshold = DefaultReportingThreshold
	}

	res := StructuringResult{
		Threshold:         threshold,
		SuspiciousEntries: []SuspiciousEntry{},
	}
	for _, e := range entries {
		amount, err := strconv.ParseFloat(e.Amount.Value, 64)
		if err != nil {
			continue
		}
		if amount >= 0.8*threshold && amount < threshold {
			res.NearThresholdCount++
			res.TotalNearThreshold += amount
			res.SuspiciousEntries = append(res.SuspiciousEntries, SuspiciousEntry{
				Amount:    amount,
				Date:      e.BookingDate,
				Reference: e.Reference,
			})
		}
	}

	res.Score = min(1.0, float64(res.NearThresholdCount)/5)
	res.Detected = res.NearThresholdCount >= 3
	switch {
	case res.NearThresholdCount >= 5:
		res.RiskLevel = model.RiskHigh
	case res.NearThresholdCount >= 3:
		res.RiskLevel = model.RiskMedium
	default:
		res.RiskLevel = model.RiskLow
	}
	return res
}
