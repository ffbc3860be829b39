package alerts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/config"
	"github.com/fintel-ai/tribunal/internal/model"
)

// highRiskJurisdictions holds FATF grey and black list country codes.
var highRiskJurisdictions = map[string]string{
	"KP": "North Korea",
	"IR": "Iran",
	"SY": "Syria",
	"YE": "Yemen",
	"MM": "Myanmar",
	"AF": "Afghanistan",
	"VU": "Vanuatu",
}

// blacklisted marks the FATF black list subset.
var blacklisted = map[string]bool{"KP": true, "IR": true}

// classicStructuringAmounts are amounts commonly used to stay under
// reporting thresholds.
var classicStructuringAmounts = []float64{9900, 9500, 9000, 4999, 4900}

// suspiciousRoundAmounts are round values typical of manufactured
// transactions.
var suspiciousRoundAmounts = map[float64]bool{
	5000: true, 10000: true, 15000: true, 20000: true,
	25000: true, 50000: true, 100000: true,
}

// VelocityResult reports transaction velocity for one entity.
type VelocityResult struct {
	Entity           string          `json:"entity"`
	WindowHours      int             `json:"window_hours"`
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      float64         `json:"total_amount"`
	Exceeded         bool            `json:"velocity_exceeded"`
	RiskLevel        model.RiskLevel `json:"risk_level"`
}

// StructuringResult reports a single-amount structuring check.
type StructuringResult struct {
	Amount           float64         `json:"amount"`
	Currency         string          `json:"currency"`
	Threshold        float64         `json:"threshold"`
	Margin           float64         `json:"margin"`
	BelowThreshold   bool            `json:"is_below_threshold"`
	WithinMargin     bool            `json:"is_within_suspicious_range"`
	ClassicPattern   bool            `json:"matches_classic_pattern"`
	Detected         bool            `json:"structuring_detected"`
	RiskLevel        model.RiskLevel `json:"risk_level"`
}

// JurisdictionResult reports a FATF jurisdiction check.
type JurisdictionResult struct {
	CountryCode       string          `json:"country_code"`
	CountryName       string          `json:"country_name"`
	HighRisk          bool            `json:"is_high_risk"`
	FATFStatus        string          `json:"fatf_status"`
	RiskLevel         model.RiskLevel `json:"risk_level"`
	SanctionsPrograms []string        `json:"sanctions_programs"`
}

// RoundAmountResult reports a round-amount check.
type RoundAmountResult struct {
	Amount         float64         `json:"amount"`
	Currency       string          `json:"currency"`
	PerfectlyRound bool            `json:"is_perfectly_round"`
	MostlyRound    bool            `json:"is_mostly_round"`
	MatchesPattern bool            `json:"matches_suspicious_pattern"`
	Suspicious     bool            `json:"is_suspicious"`
	AlertTriggered bool            `json:"alert_triggered"`
	RiskLevel      model.RiskLevel `json:"risk_level"`
}

// PatternAnalysis aggregates every rule check for one transaction.
type PatternAnalysis struct {
	UETR                  string          `json:"transaction_uetr"`
	Amount                float64         `json:"amount"`
	Currency              string          `json:"currency"`
	CrossBorder           bool            `json:"is_cross_border"`
	Alerts                []Alert         `json:"alerts"`
	OverallRisk           model.RiskLevel `json:"overall_risk"`
	RequiresInvestigation bool            `json:"requires_investigation"`
}

// observedTx is one remembered transaction for velocity tracking.
type observedTx struct {
	amount float64
	at     time.Time
}

// Monitor evaluates transactions against configured rules. It keeps a
// rolling in-memory history per entity to support velocity checks.
type Monitor struct {
	cfg config.AlertsConfig
	now func() time.Time

	mu      sync.Mutex
	history map[string][]observedTx
}

// NewMonitor creates a Monitor with the given rule thresholds.
func NewMonitor(cfg config.AlertsConfig) *Monitor {
	return &Monitor{
		cfg:     cfg,
		now:     time.Now,
		history: make(map[string][]observedTx),
	}
}

// Observe records a transaction against both parties for later velocity
// checks.
func (m *Monitor) Observe(tx model.Transaction) {
	amount := parseAmount(tx.Amount.Value)
	at := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range []string{tx.Debtor.Name, tx.Creditor.Name} {
		if name == "" {
			continue
		}
		m.history[name] = append(m.history[name], observedTx{amount: amount, at: at})
	}
}

// CheckVelocity counts recorded transactions for an entity inside the
// window and flags counts or totals over the configured limits.
func (m *Monitor) CheckVelocity(entity string, windowHours int) VelocityResult {
	if windowHours <= 0 {
		windowHours = m.cfg.VelocityWindowHours
	}
	cutoff := m.now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	m.mu.Lock()
	var count int
	var total float64
	for _, tx := range m.history[entity] {
		if tx.at.After(cutoff) {
			count++
			total += tx.amount
		}
	}
	m.mu.Unlock()

	exceeded := count > m.cfg.VelocityMaxCount || total > m.cfg.VelocityMaxAmount
	level := model.RiskLow
	if exceeded {
		level = model.RiskHigh
	}
	return VelocityResult{
		Entity:           entity,
		WindowHours:      windowHours,
		TransactionCount: count,
		TotalAmount:      total,
		Exceeded:         exceeded,
		RiskLevel:        level,
	}
}

// CheckStructuring flags amounts sitting inside the margin below the
// reporting threshold or matching classic structuring values.
func (m *Monitor) CheckStructuring(amount float64, currency string) StructuringResult {
	threshold := m.cfg.StructuringThreshold
	margin := threshold * (m.cfg.StructuringMarginPct / 100)

	withinMargin := amount > threshold-margin && amount < threshold

	classic := false
	for _, pattern := range classicStructuringAmounts {
		if math.Abs(amount-pattern) < m.cfg.RoundAmountTolerance {
			classic = true
			break
		}
	}

	detected := withinMargin || classic
	level := model.RiskLow
	if detected {
		level = model.RiskHigh
	}
	return StructuringResult{
		Amount:         amount,
		Currency:       currency,
		Threshold:      threshold,
		Margin:         margin,
		BelowThreshold: amount < threshold,
		WithinMargin:   withinMargin,
		ClassicPattern: classic,
		Detected:       detected,
		RiskLevel:      level,
	}
}

// CheckJurisdiction classifies a country code against the FATF lists.
func (m *Monitor) CheckJurisdiction(countryCode string) JurisdictionResult {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	name, highRisk := highRiskJurisdictions[code]
	if !highRisk {
		name = "Unknown"
	}

	status := "compliant"
	level := model.RiskLow
	var programs []string
	if highRisk {
		status = "greylist"
		level = model.RiskHigh
		programs = []string{"OFAC", "EU", "UN"}
	}
	if blacklisted[code] {
		status = "blacklist"
		level = model.RiskCritical
	}
	return JurisdictionResult{
		CountryCode:       code,
		CountryName:       name,
		HighRisk:          highRisk,
		FATFStatus:        status,
		RiskLevel:         level,
		SanctionsPrograms: programs,
	}
}

// CheckRoundAmount flags suspiciously round values. The alert only fires
// above the high-value threshold so small round payments stay quiet.
func (m *Monitor) CheckRoundAmount(amount float64, currency string) RoundAmountResult {
	perfectlyRound := math.Mod(amount, 1000) == 0 && amount >= 1000
	mostlyRound := math.Mod(amount, 100) == 0 && amount >= 5000
	matches := suspiciousRoundAmounts[amount]
	suspicious := perfectlyRound || matches

	level := model.RiskLow
	if suspicious {
		level = model.RiskMedium
	}
	return RoundAmountResult{
		Amount:         amount,
		Currency:       currency,
		PerfectlyRound: perfectlyRound,
		MostlyRound:    mostlyRound,
		MatchesPattern: matches,
		Suspicious:     suspicious,
		AlertTriggered: suspicious && amount >= m.cfg.HighValueThreshold,
		RiskLevel:      level,
	}
}

// Evaluate runs every rule against a transaction and returns the
// aggregated analysis. Triggered rules become alerts carrying the
// transaction's UETR; the caller decides whether to queue them.
func (m *Monitor) Evaluate(tx model.Transaction) PatternAnalysis {
	amount := parseAmount(tx.Amount.Value)
	now := m.now().UTC()

	analysis := PatternAnalysis{
		UETR:        tx.UETR,
		Amount:      amount,
		Currency:    tx.Amount.Currency,
		OverallRisk: model.RiskLow,
	}
	add := func(typ AlertType, severity model.RiskLevel, details string) {
		analysis.Alerts = append(analysis.Alerts, Alert{
			UETR:      tx.UETR,
			Type:      typ,
			Severity:  severity,
			Details:   details,
			Status:    StatusOpen,
			CreatedAt: now,
		})
		analysis.OverallRisk = maxRisk(analysis.OverallRisk, severity)
	}

	if s := m.CheckStructuring(amount, tx.Amount.Currency); s.Detected {
		add(AlertStructuring, s.RiskLevel,
			fmt.Sprintf("Transaction amount %.2f %s matches structuring pattern", amount, tx.Amount.Currency))
	}

	if r := m.CheckRoundAmount(amount, tx.Amount.Currency); r.AlertTriggered {
		add(AlertRoundAmount, r.RiskLevel,
			fmt.Sprintf("Suspicious round amount detected: %.2f %s", amount, tx.Amount.Currency))
	}

	parties := []struct {
		label   string
		country string
	}{
		{"debtor", tx.Debtor.Country},
		{"creditor", tx.Creditor.Country},
	}
	for _, p := range parties {
		if p.country == "" {
			continue
		}
		if j := m.CheckJurisdiction(p.country); j.HighRisk {
			add(AlertJurisdiction, j.RiskLevel,
				fmt.Sprintf("High-risk %s jurisdiction: %s (%s)", p.label, j.CountryName, j.CountryCode))
		}
	}

	for _, entity := range []string{tx.Debtor.Name, tx.Creditor.Name} {
		if entity == "" {
			continue
		}
		if v := m.CheckVelocity(entity, m.cfg.VelocityWindowHours); v.Exceeded {
			add(AlertVelocity, v.RiskLevel,
				fmt.Sprintf("High transaction velocity for %s: %d transactions", entity, v.TransactionCount))
		}
	}

	if tx.Debtor.Country != "" && tx.Creditor.Country != "" && tx.Debtor.Country != tx.Creditor.Country {
		analysis.CrossBorder = true
		_, debtorHot := highRiskJurisdictions[strings.ToUpper(tx.Debtor.Country)]
		_, creditorHot := highRiskJurisdictions[strings.ToUpper(tx.Creditor.Country)]
		if debtorHot || creditorHot {
			add(AlertCrossBorder, model.RiskHigh,
				"Cross-border transaction involving high-risk jurisdiction")
		}
	}

	analysis.RequiresInvestigation = analysis.OverallRisk == model.RiskHigh ||
		analysis.OverallRisk == model.RiskCritical

	if len(analysis.Alerts) > 0 {
		zap.L().Info("monitoring rules triggered",
			zap.String("uetr", tx.UETR),
			zap.Int("alerts", len(analysis.Alerts)),
			zap.String("overall_risk", string(analysis.OverallRisk)),
		)
	}
	return analysis
}

var riskRank = map[model.RiskLevel]int{
	model.RiskLow:      0,
	model.RiskMedium:   1,
	model.RiskHigh:     2,
	model.RiskCritical: 3,
}

func maxRisk(current, next model.RiskLevel) model.RiskLevel {
	if riskRank[next] > riskRank[current] {
		return next
	}
	return current
}

func parseAmount(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
