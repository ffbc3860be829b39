package intel

import (
	"context"
	"sort"
	"strings"
)

// AlibiDocument is one exculpatory evidence hit.
type AlibiDocument struct {
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	DocumentType   string  `json:"document_type"`
	RelevanceScore float64 `json:"relevance_score"`
	Entity         string  `json:"entity"`
}

// AlibiResult reports exculpatory evidence for a query.
type AlibiResult struct {
	Query        string          `json:"query"`
	ResultsFound int             `json:"results_found"`
	Evidence     []AlibiDocument `json:"evidence"`
	HasAlibi     bool            `json:"has_alibi"`
}

// PaymentJustification is one payment authorization document hit.
type PaymentJustification struct {
	Content             string  `json:"content"`
	Source              string  `json:"source"`
	DocumentType        string  `json:"document_type"`
	RelevanceScore      float64 `json:"relevance_score"`
	ContainsPaymentGrid bool    `json:"contains_payment_grid"`
}

// JustificationResult reports documented payment authorizations.
type JustificationResult struct {
	Entity                string                 `json:"entity"`
	JustificationsFound   int                    `json:"justifications_found"`
	Justifications        []PaymentJustification `json:"justifications"`
	HasValidAuthorization bool                   `json:"has_valid_authorization"`
}

// RegulationCitation is one regulatory excerpt.
type RegulationCitation struct {
	Article        string  `json:"article"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RegulationResult reports applicable regulatory guidance.
type RegulationResult struct {
	Query              string               `json:"query"`
	RegulationType     string               `json:"regulation_type"`
	Citations          []RegulationCitation `json:"citations"`
	ApplicableArticles []string             `json:"applicable_articles"`
}

// MediaHit is one adverse media mention.
type MediaHit struct {
	Headline       string  `json:"headline"`
	Source         string  `json:"source"`
	Date           string  `json:"date"`
	Sentiment      string  `json:"sentiment"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AdverseMediaResult reports media coverage risk for an entity.
// AdverseMediaRisk is "high" when more than 2 strongly relevant negative
// hits exist, "low" when none do, "medium" otherwise.
type AdverseMediaResult struct {
	Entity           string     `json:"entity"`
	TotalHits        int        `json:"total_hits"`
	NegativeHits     int        `json:"negative_hits"`
	Media            []MediaHit `json:"media"`
	AdverseMediaRisk string     `json:"adverse_media_risk"`
}

// DocumentService answers semantic queries over the evidence corpus.
type DocumentService interface {
	// SearchAlibi looks for exculpatory business records. A hit scoring
	// above 0.7 establishes an alibi.
	SearchAlibi(ctx context.Context, query, entity string) (*AlibiResult, error)
	// SearchPaymentJustification looks for authorized payment grids and
	// contracts. Authorization requires a payment-grid keyword match AND
	// relevance above 0.7.
	SearchPaymentJustification(ctx context.Context, entity, purpose string) (*JustificationResult, error)
	// ConsultRegulation retrieves regulatory excerpts; articles scoring
	// above 0.6 are listed as applicable.
	ConsultRegulation(ctx context.Context, query, regulationType string) (*RegulationResult, error)
	// SearchAdverseMedia scans news coverage of an entity.
	SearchAdverseMedia(ctx context.Context, entity string) (*AdverseMediaResult, error)
}

// DocIndex is the in-memory DocumentService. Relevance is token overlap
// between query and document text; a stand-in for the production vector
// search that keeps scores deterministic.
type DocIndex struct {
	docs []FixtureDocument
}

// NewDocIndex builds an in-memory document index from a fixture.
func NewDocIndex(f *Fixture) *DocIndex {
	return &DocIndex{docs: f.Documents}
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

// relevance scores query-document token overlap in [0,1].
func relevance(query, doc string) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}
	docSet := map[string]bool{}
	for _, t := range tokenize(doc) {
		docSet[t] = true
	}
	matched := 0
	for _, t := range qTokens {
		if docSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(qTokens))
}

func (d *DocIndex) collection(name string, entity string) []FixtureDocument {
	var out []FixtureDocument
	entityKey := NormalizeName(entity)
	for _, doc := range d.docs {
		if doc.Collection != name {
			continue
		}
		if entity != "" && NormalizeName(doc.Entity) != entityKey {
			continue
		}
		out = append(out, doc)
	}
	return out
}

func (d *DocIndex) SearchAlibi(_ context.Context, query, entity string) (*AlibiResult, error) {
	res := &AlibiResult{Query: query, Evidence: []AlibiDocument{}}

	for _, doc := range d.collection("evidence", entity) {
		score := relevance(query, doc.Content)
		if score == 0 {
			continue
		}
		res.Evidence = append(res.Evidence, AlibiDocument{
			Content:        doc.Content,
			Source:         doc.Source,
			DocumentType:   doc.DocumentType,
			RelevanceScore: score,
			Entity:         doc.Entity,
		})
	}
	sortByScore(res.Evidence, func(a AlibiDocument) float64 { return a.RelevanceScore })
	if len(res.Evidence) > 5 {
		res.Evidence = res.Evidence[:5]
	}

	res.ResultsFound = len(res.Evidence)
	for _, e := range res.Evidence {
		if e.RelevanceScore > 0.7 {
			res.HasAlibi = true
		}
	}
	return res, nil
}

func (d *DocIndex) SearchPaymentJustification(_ context.Context, entity, purpose string) (*JustificationResult, error) {
	query := "authorized payments for " + entity
	if purpose != "" {
		query += " purpose: " + purpose
	}

	res := &JustificationResult{Entity: entity, Justifications: []PaymentJustification{}}
	for _, doc := range d.collection("evidence", entity) {
		score := relevance(query, doc.Content)
		if score == 0 {
			continue
		}
		lower := strings.ToLower(doc.Content)
		res.Justifications = append(res.Justifications, PaymentJustification{
			Content:             doc.Content,
			Source:              doc.Source,
			DocumentType:        doc.DocumentType,
			RelevanceScore:      score,
			ContainsPaymentGrid: strings.Contains(lower, "payment grid") || strings.Contains(lower, "authorized"),
		})
	}
	sortByScore(res.Justifications, func(j PaymentJustification) float64 { return j.RelevanceScore })
	if len(res.Justifications) > 5 {
		res.Justifications = res.Justifications[:5]
	}

	res.JustificationsFound = len(res.Justifications)
	for _, j := range res.Justifications {
		if j.ContainsPaymentGrid && j.RelevanceScore > 0.7 {
			res.HasValidAuthorization = true
		}
	}
	return res, nil
}

func (d *DocIndex) ConsultRegulation(_ context.Context, query, regulationType string) (*RegulationResult, error) {
	res := &RegulationResult{
		Query:          query,
		RegulationType: regulationType,
		Citations:      []RegulationCitation{},
	}

	for _, doc := range d.collection("regulations", "") {
		if regulationType != "" && doc.RegulationType != regulationType {
			continue
		}
		score := relevance(query, doc.Content+" "+doc.Title)
		if score == 0 {
			continue
		}
		res.Citations = append(res.Citations, RegulationCitation{
			Article:        doc.Article,
			Title:          doc.Title,
			Content:        doc.Content,
			RelevanceScore: score,
		})
	}
	sortByScore(res.Citations, func(c RegulationCitation) float64 { return c.RelevanceScore })
	if len(res.Citations) > 3 {
		res.Citations = res.Citations[:3]
	}

	for _, c := range res.Citations {
		if c.RelevanceScore > 0.6 {
			res.ApplicableArticles = append(res.ApplicableArticles, c.Article)
		}
	}
	return res, nil
}

func (d *DocIndex) SearchAdverseMedia(_ context.Context, entity string) (*AdverseMediaResult, error) {
	query := "fraud scandal investigation " + entity + " money laundering sanctions"

	res := &AdverseMediaResult{Entity: entity, Media: []MediaHit{}}
	for _, doc := range d.collection("news", entity) {
		score := relevance(query, doc.Headline+" "+doc.Content)
		res.Media = append(res.Media, MediaHit{
			Headline:       doc.Headline,
			Source:         doc.Source,
			Date:           doc.Date,
			Sentiment:      doc.Sentiment,
			RelevanceScore: score,
		})
	}
	sortByScore(res.Media, func(m MediaHit) float64 { return m.RelevanceScore })
	if len(res.Media) > 5 {
		res.Media = res.Media[:5]
	}

	res.TotalHits = len(res.Media)
	for _, m := range res.Media {
		if m.Sentiment == "negative" && m.RelevanceScore > 0.7 {
			res.NegativeHits++
		}
	}

	switch {
	case res.NegativeHits > 2:
		res.AdverseMediaRisk = "high"
	case res.NegativeHits == 0:
		res.AdverseMediaRisk = "low"
	default:
		res.AdverseMediaRisk = "medium"
	}
	return res, nil
}

func sortByScore[T any](items []T, score func(T) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		return score(items[i]) > score(items[j])
	})
}
