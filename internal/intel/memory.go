package intel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
)

// PeerBaselineEntity is the reserved memory-bank subject holding the peer
// group reference patterns.
const PeerBaselineEntity = "peer_baselines"

// MemoryEntry is one stored observation.
type MemoryEntry struct {
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// DriftResult reports behavioral drift between baseline and recent
// observations.
type DriftResult struct {
	EntityID             string   `json:"entity_id"`
	BaselineObservations int      `json:"baseline_observations"`
	RecentObservations   int      `json:"recent_observations"`
	DriftDetected        bool     `json:"drift_detected"`
	DriftReasons         []string `json:"drift_reasons"`
	DriftScore           float64  `json:"drift_score"`
	BaselineSummary      []string `json:"baseline_summary"`
	RecentSummary        []string `json:"recent_summary"`
}

// Profile is an entity's behavioral profile. Completeness is "complete"
// when more than 5 general facts are on record, "partial" otherwise.
type Profile struct {
	EntityID            string        `json:"entity_id"`
	Facts               []MemoryEntry `json:"facts"`
	TypicalBehaviors    []MemoryEntry `json:"typical_behaviors"`
	RiskFlags           []MemoryEntry `json:"risk_flags"`
	Relationships       []MemoryEntry `json:"relationships"`
	LastUpdated         string        `json:"last_updated"`
	ProfileCompleteness string        `json:"profile_completeness"`
}

// History reports past investigation outcomes for an entity.
type History struct {
	EntityID             string   `json:"entity_id"`
	PastInvestigations   int      `json:"past_investigations"`
	PastVerdicts         []string `json:"past_verdicts"`
	ActiveRiskFlags      []string `json:"active_risk_flags"`
	InvestigationDetails []string `json:"investigation_details"`
	HasPriorIssues       bool     `json:"has_prior_issues"`
}

// PeerComparison reports how an entity sits against its peer group.
type PeerComparison struct {
	EntityID           string   `json:"entity_id"`
	PeerType           string   `json:"peer_type"`
	EntityObservations int      `json:"entity_observations"`
	PeerObservations   int      `json:"peer_observations"`
	Deviations         []string `json:"deviations"`
	WithinPeerNorms    bool     `json:"within_peer_norms"`
}

// MemoryService stores and recalls behavioral observations per entity.
type MemoryService interface {
	// CheckBehavioralDrift compares baseline observations (marked by
	// "baseline" or "typical") against recent ones on the sector and
	// amount dimensions.
	CheckBehavioralDrift(ctx context.Context, entityID string) (*DriftResult, error)
	// EntityProfile assembles the stored facts into a profile.
	EntityProfile(ctx context.Context, entityID string) (*Profile, error)
	// InvestigationHistory recalls prior verdicts and risk flags, which
	// carry [VERDICT] and [RISK_FLAG] markers.
	InvestigationHistory(ctx context.Context, entityID string) (*History, error)
	// ComparePeerGroup checks the entity against the peer baselines.
	ComparePeerGroup(ctx context.Context, entityID, peerType string) (*PeerComparison, error)
	// StoreFinding records a new observation under a marker derived from
	// findingType ("observation", "risk_flag", "exculpatory", "verdict").
	StoreFinding(ctx context.Context, entityID, finding, findingType string) error
}

// MemoryBank is the in-memory MemoryService. Profile reads go through an
// LRU cache that StoreFinding invalidates.
type MemoryBank struct {
	mu    sync.RWMutex
	facts map[string][]MemoryEntry // keyed by normalized entity id
	cache *lru.Cache[string, *Profile]
	now   func() time.Time
}

// NewMemoryBank builds a memory bank from fixture facts.
func NewMemoryBank(f *Fixture, cacheSize int) (*MemoryBank, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *Profile](cacheSize)
	if err != nil {
		return nil, eris.Wrap(err, "intel: create profile cache")
	}

	b := &MemoryBank{
		facts: make(map[string][]MemoryEntry),
		cache: cache,
		now:   time.Now,
	}
	for _, fact := range f.Facts {
		key := NormalizeName(fact.Entity)
		b.facts[key] = append(b.facts[key], MemoryEntry{
			Content:   fact.Content,
			CreatedAt: fact.CreatedAt,
		})
	}
	return b, nil
}

func (b *MemoryBank) entries(entityID string) []MemoryEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stored := b.facts[NormalizeName(entityID)]
	out := make([]MemoryEntry, len(stored))
	copy(out, stored)
	return out
}

func isBaseline(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "baseline") || strings.Contains(lower, "typical")
}

func (b *MemoryBank) CheckBehavioralDrift(_ context.Context, entityID string) (*DriftResult, error) {
	res := &DriftResult{EntityID: entityID, DriftReasons: []string{}, DriftScore: 0.2}

	var baseline, recent []MemoryEntry
	for _, e := range b.entries(entityID) {
		if isBaseline(e.Content) {
			baseline = append(baseline, e)
		} else {
			recent = append(recent, e)
		}
	}
	res.BaselineObservations = len(baseline)
	res.RecentObservations = len(recent)

	firstMatching := func(entries []MemoryEntry, keyword string) (string, bool) {
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Content), keyword) {
				return strings.ToLower(e.Content), true
			}
		}
		return "", false
	}

	if bSector, ok1 := firstMatching(baseline, "sector"); ok1 {
		if rSector, ok2 := firstMatching(recent, "sector"); ok2 && bSector != rSector {
			res.DriftDetected = true
			res.DriftReasons = append(res.DriftReasons, "Sector shift detected")
		}
	}
	if bAmount, ok1 := firstMatching(baseline, "amount"); ok1 {
		if rAmount, ok2 := firstMatching(recent, "amount"); ok2 && bAmount != rAmount {
			res.DriftDetected = true
			res.DriftReasons = append(res.DriftReasons, "Transaction amount pattern change")
		}
	}

	if res.DriftDetected {
		res.DriftScore = 0.8
	}
	for i, e := range baseline {
		if i >= 3 {
			break
		}
		res.BaselineSummary = append(res.BaselineSummary, e.Content)
	}
	for i, e := range recent {
		if i >= 3 {
			break
		}
		res.RecentSummary = append(res.RecentSummary, e.Content)
	}
	return res, nil
}

func (b *MemoryBank) EntityProfile(_ context.Context, entityID string) (*Profile, error) {
	key := NormalizeName(entityID)
	if cached, ok := b.cache.Get(key); ok {
		return cached, nil
	}

	p := &Profile{
		EntityID:         entityID,
		Facts:            []MemoryEntry{},
		TypicalBehaviors: []MemoryEntry{},
		RiskFlags:        []MemoryEntry{},
		Relationships:    []MemoryEntry{},
	}
	for _, e := range b.entries(entityID) {
		lower := strings.ToLower(e.Content)
		switch {
		case strings.Contains(lower, "typical") || strings.Contains(lower, "usually") || strings.Contains(lower, "baseline"):
			p.TypicalBehaviors = append(p.TypicalBehaviors, e)
		case strings.Contains(lower, "risk") || strings.Contains(lower, "suspicious") || strings.Contains(lower, "flag"):
			p.RiskFlags = append(p.RiskFlags, e)
		case strings.Contains(lower, "director") || strings.Contains(lower, "related") || strings.Contains(lower, "connected"):
			p.Relationships = append(p.Relationships, e)
		default:
			p.Facts = append(p.Facts, e)
		}
		if e.CreatedAt > p.LastUpdated {
			p.LastUpdated = e.CreatedAt
		}
	}

	p.ProfileCompleteness = "partial"
	if len(p.Facts) > 5 {
		p.ProfileCompleteness = "complete"
	}

	b.cache.Add(key, p)
	return p, nil
}

func (b *MemoryBank) InvestigationHistory(_ context.Context, entityID string) (*History, error) {
	h := &History{
		EntityID:             entityID,
		PastVerdicts:         []string{},
		ActiveRiskFlags:      []string{},
		InvestigationDetails: []string{},
	}
	for _, e := range b.entries(entityID) {
		switch {
		case strings.Contains(e.Content, "[VERDICT]"):
			h.PastVerdicts = append(h.PastVerdicts, e.Content)
		case strings.Contains(e.Content, "[RISK_FLAG]"):
			h.ActiveRiskFlags = append(h.ActiveRiskFlags, e.Content)
		case strings.Contains(e.Content, "[OBSERVATION]") || strings.Contains(e.Content, "[EXCULPATORY]"):
			h.InvestigationDetails = append(h.InvestigationDetails, e.Content)
		}
	}
	h.PastInvestigations = len(h.InvestigationDetails)

	h.HasPriorIssues = len(h.ActiveRiskFlags) > 0
	for _, v := range h.PastVerdicts {
		if strings.Contains(strings.ToLower(v), "high risk") {
			h.HasPriorIssues = true
		}
	}
	return h, nil
}

func (b *MemoryBank) ComparePeerGroup(_ context.Context, entityID, peerType string) (*PeerComparison, error) {
	res := &PeerComparison{
		EntityID:   entityID,
		PeerType:   peerType,
		Deviations: []string{},
	}

	entity := b.entries(entityID)
	peers := b.entries(PeerBaselineEntity)
	res.EntityObservations = len(entity)
	res.PeerObservations = len(peers)

	// A recent observation deviates when none of the peer baselines share
	// vocabulary with it.
	for _, e := range entity {
		if isBaseline(e.Content) {
			continue
		}
		matched := false
		for _, p := range peers {
			if relevance(e.Content, p.Content) >= 0.3 {
				matched = true
				break
			}
		}
		if !matched && len(peers) > 0 {
			res.Deviations = append(res.Deviations, fmt.Sprintf("Observed pattern outside %s norms: %s", peerType, e.Content))
		}
	}

	res.WithinPeerNorms = len(res.Deviations) == 0
	return res, nil
}

func (b *MemoryBank) StoreFinding(_ context.Context, entityID, finding, findingType string) error {
	if findingType == "" {
		findingType = "observation"
	}
	marked := fmt.Sprintf("[%s] %s", strings.ToUpper(findingType), finding)

	key := NormalizeName(entityID)
	b.mu.Lock()
	b.facts[key] = append(b.facts[key], MemoryEntry{
		Content:   marked,
		CreatedAt: b.now().UTC().Format(time.RFC3339),
	})
	b.mu.Unlock()

	b.cache.Remove(key)
	return nil
}
