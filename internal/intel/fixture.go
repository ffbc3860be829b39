// Package intel provides the investigation evidence services: the entity
// relationship graph, the document corpus, and the behavioral memory bank.
// The interfaces are the contract the evidence gatherers depend on; the
// implementations here are in-memory and seeded from a YAML fixture, which
// keeps investigations reproducible and the test surface hermetic.
package intel

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Fixture is the seed dataset for the in-memory services.
type Fixture struct {
	Entities     []FixtureEntity      `yaml:"entities"`
	Edges        []FixtureEdge        `yaml:"edges"`
	Transactions []FixtureTransaction `yaml:"transactions"`
	Documents    []FixtureDocument    `yaml:"documents"`
	Facts        []FixtureFact        `yaml:"facts"`
}

// FixtureEntity is a graph node. Labels mark watchlist status:
// "sanctioned", "high_risk", "pep".
type FixtureEntity struct {
	Name     string   `yaml:"name"`
	Labels   []string `yaml:"labels"`
	Accounts []string `yaml:"accounts"`
}

// FixtureEdge is a directed relationship between two entities.
// Kind is one of "sent_funds", "shares_director", "shares_address".
type FixtureEdge struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Kind   string  `yaml:"kind"`
	Amount float64 `yaml:"amount"`
}

// FixtureTransaction links a UETR to its parties.
type FixtureTransaction struct {
	UETR     string `yaml:"uetr"`
	Debtor   string `yaml:"debtor"`
	Creditor string `yaml:"creditor"`
}

// FixtureDocument is a corpus entry. Collection is one of "evidence",
// "news", "regulations".
type FixtureDocument struct {
	Collection     string `yaml:"collection"`
	Entity         string `yaml:"entity"`
	Content        string `yaml:"content"`
	Source         string `yaml:"source"`
	DocumentType   string `yaml:"document_type"`
	Headline       string `yaml:"headline"`
	Date           string `yaml:"date"`
	Sentiment      string `yaml:"sentiment"`
	RegulationType string `yaml:"regulation_type"`
	Article        string `yaml:"article"`
	Title          string `yaml:"title"`
}

// FixtureFact is a memory-bank observation about an entity. The special
// entity "peer_baselines" holds the peer group reference patterns.
type FixtureFact struct {
	Entity    string `yaml:"entity"`
	Content   string `yaml:"content"`
	CreatedAt string `yaml:"created_at"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "intel: read fixture %s", path)
	}

	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "intel: parse fixture %s", path)
	}
	return &f, nil
}
