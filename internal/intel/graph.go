package intel

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
)

// LinkPath is one shortest path from the subject to a watchlisted entity.
type LinkPath struct {
	Distance   int      `json:"distance"`
	RiskEntity string   `json:"risk_entity"`
	RiskLabels []string `json:"risk_labels"`
	PathNodes  []string `json:"path_nodes"`
}

// HiddenLinkResult reports watchlist connectivity for an entity.
type HiddenLinkResult struct {
	Entity           string     `json:"entity"`
	ConnectionsFound int        `json:"connections_found"`
	Paths            []LinkPath `json:"paths"`
	HasHiddenLinks   bool       `json:"has_hidden_links"`
}

// FraudRing is one densely connected entity community.
type FraudRing struct {
	ComponentID int      `json:"component_id"`
	Members     []string `json:"members"`
	Size        int      `json:"size"`
}

// FraudRingResult reports detected communities.
type FraudRingResult struct {
	RingsDetected int         `json:"rings_detected"`
	Rings         []FraudRing `json:"rings"`
	HighRisk      bool        `json:"high_risk"`
}

// LayeringCycle is one circular money flow.
type LayeringCycle struct {
	Members   []string `json:"members"`
	Length    int      `json:"length"`
	TotalFlow float64  `json:"total_flow"`
}

// LayeringResult reports circular flows involving an entity.
type LayeringResult struct {
	Entity         string          `json:"entity"`
	CyclesDetected int             `json:"cycles_detected"`
	Cycles         []LayeringCycle `json:"cycles"`
	LayeringRisk   string          `json:"layering_risk"`
}

// TopologyResult describes the network neighborhood of a transaction.
type TopologyResult struct {
	UETR              string   `json:"uetr"`
	Debtor            string   `json:"debtor"`
	Creditor          string   `json:"creditor"`
	DebtorAccount     string   `json:"debtor_account"`
	CreditorAccount   string   `json:"creditor_account"`
	DebtorTxCount     int      `json:"debtor_transaction_count"`
	ConnectedEntities []string `json:"connected_entities"`
	NetworkComplexity string   `json:"network_complexity"`
}

// GraphService answers relationship queries over the entity graph.
type GraphService interface {
	// FindHiddenLinks searches shortest paths from the entity to any
	// sanctioned, high-risk, or PEP entity. maxHops is clamped to [1,10].
	FindHiddenLinks(ctx context.Context, entity string, maxHops int) (*HiddenLinkResult, error)
	// DetectFraudRings finds connected components with more than 2
	// members; any ring larger than 5 marks the result high risk.
	DetectFraudRings(ctx context.Context) (*FraudRingResult, error)
	// FindLayeringCycles detects circular fund flows through the entity.
	// Cycle lengths are clamped to [2,10].
	FindLayeringCycles(ctx context.Context, entity string, minLen, maxLen int) (*LayeringResult, error)
	// TransactionTopology describes the parties and neighborhood of one
	// payment by UETR.
	TransactionTopology(ctx context.Context, uetr string) (*TopologyResult, error)
}

type graphNode struct {
	name     string
	labels   []string
	accounts []string
}

type graphEdge struct {
	to     string // normalized
	kind   string
	amount float64
}

// Graph is the in-memory GraphService. Keys are normalized names.
type Graph struct {
	nodes map[string]*graphNode
	// out holds directed edges; undirected traversals also walk in.
	out map[string][]graphEdge
	in  map[string][]graphEdge
	txs map[string]FixtureTransaction
}

// NewGraph builds an in-memory graph from a fixture.
func NewGraph(f *Fixture) *Graph {
	g := &Graph{
		nodes: make(map[string]*graphNode),
		out:   make(map[string][]graphEdge),
		in:    make(map[string][]graphEdge),
		txs:   make(map[string]FixtureTransaction),
	}
	for _, e := range f.Entities {
		g.nodes[NormalizeName(e.Name)] = &graphNode{
			name:     e.Name,
			labels:   e.Labels,
			accounts: e.Accounts,
		}
	}
	for _, e := range f.Edges {
		from, to := NormalizeName(e.From), NormalizeName(e.To)
		g.out[from] = append(g.out[from], graphEdge{to: to, kind: e.Kind, amount: e.Amount})
		g.in[to] = append(g.in[to], graphEdge{to: from, kind: e.Kind, amount: e.Amount})
	}
	for _, tx := range f.Transactions {
		g.txs[tx.UETR] = tx
	}
	return g
}

func (g *Graph) watchlisted(key string) bool {
	n, ok := g.nodes[key]
	if !ok {
		return false
	}
	for _, l := range n.labels {
		switch l {
		case "sanctioned", "high_risk", "pep":
			return true
		}
	}
	return false
}

func (g *Graph) neighbors(key string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range g.out[key] {
		if !seen[e.to] {
			seen[e.to] = true
			out = append(out, e.to)
		}
	}
	for _, e := range g.in[key] {
		if !seen[e.to] {
			seen[e.to] = true
			out = append(out, e.to)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Graph) FindHiddenLinks(_ context.Context, entity string, maxHops int) (*HiddenLinkResult, error) {
	if maxHops < 1 {
		maxHops = 1
	} else if maxHops > 10 {
		maxHops = 10
	}

	start := NormalizeName(entity)
	res := &HiddenLinkResult{Entity: entity, Paths: []LinkPath{}}
	if _, ok := g.nodes[start]; !ok {
		return nil, eris.Errorf("intel: unknown entity %q", entity)
	}

	// BFS from the subject; first visit to a node is a shortest path.
	type frame struct {
		key  string
		path []string
	}
	visited := map[string]bool{start: true}
	queue := []frame{{key: start, path: []string{start}}}

	for len(queue) > 0 && len(res.Paths) < 10 {
		f := queue[0]
		queue = queue[1:]
		depth := len(f.path) - 1
		if depth >= maxHops {
			continue
		}
		for _, nb := range g.neighbors(f.key) {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			path := append(append([]string{}, f.path...), nb)
			if nb != start && g.watchlisted(nb) {
				node := g.nodes[nb]
				res.Paths = append(res.Paths, LinkPath{
					Distance:   len(path) - 1,
					RiskEntity: node.name,
					RiskLabels: node.labels,
					PathNodes:  g.displayNames(path),
				})
				if len(res.Paths) >= 10 {
					break
				}
			}
			queue = append(queue, frame{key: nb, path: path})
		}
	}

	res.ConnectionsFound = len(res.Paths)
	res.HasHiddenLinks = len(res.Paths) > 0
	return res, nil
}

func (g *Graph) displayNames(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if n, ok := g.nodes[k]; ok {
			out[i] = n.name
		} else {
			out[i] = k
		}
	}
	return out
}

func (g *Graph) DetectFraudRings(_ context.Context) (*FraudRingResult, error) {
	// Union of connected components over all relationship kinds.
	visited := map[string]bool{}
	var rings []FraudRing
	component := 0

	keys := make([]string, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, start := range keys {
		if visited[start] {
			continue
		}
		var members []string
		stack := []string{start}
		visited[start] = true
		for len(stack) > 0 {
			k := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, g.nodes[k].name)
			for _, nb := range g.neighbors(k) {
				if _, known := g.nodes[nb]; known && !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		if len(members) > 2 {
			sort.Strings(members)
			rings = append(rings, FraudRing{
				ComponentID: component,
				Members:     members,
				Size:        len(members),
			})
		}
		component++
	}

	sort.Slice(rings, func(i, j int) bool { return rings[i].Size > rings[j].Size })
	if len(rings) > 10 {
		rings = rings[:10]
	}

	res := &FraudRingResult{RingsDetected: len(rings), Rings: rings}
	for _, r := range rings {
		if r.Size > 5 {
			res.HighRisk = true
		}
	}
	return res, nil
}

func (g *Graph) FindLayeringCycles(_ context.Context, entity string, minLen, maxLen int) (*LayeringResult, error) {
	if minLen < 2 {
		minLen = 2
	} else if minLen > 10 {
		minLen = 10
	}
	if maxLen < minLen {
		maxLen = minLen
	} else if maxLen > 10 {
		maxLen = 10
	}

	start := NormalizeName(entity)
	res := &LayeringResult{Entity: entity, Cycles: []LayeringCycle{}, LayeringRisk: "low"}
	if _, ok := g.nodes[start]; !ok {
		return nil, eris.Errorf("intel: unknown entity %q", entity)
	}

	// DFS over fund-flow edges only, back to the starting entity.
	// Cycle length counts edges, matching the flow hop semantics.
	var walk func(key string, path []string, flow float64)
	walk = func(key string, path []string, flow float64) {
		if len(res.Cycles) >= 5 {
			return
		}
		for _, e := range g.out[key] {
			if e.kind != "sent_funds" {
				continue
			}
			edges := len(path) // edge count after taking e
			if e.to == start {
				if edges >= minLen && edges <= maxLen {
					cycle := append(append([]string{}, path...), start)
					res.Cycles = append(res.Cycles, LayeringCycle{
						Members:   g.displayNames(cycle),
						Length:    edges,
						TotalFlow: flow + e.amount,
					})
					if len(res.Cycles) >= 5 {
						return
					}
				}
				continue
			}
			if edges >= maxLen || contains(path, e.to) {
				continue
			}
			next := append(append(make([]string, 0, len(path)+1), path...), e.to)
			walk(e.to, next, flow+e.amount)
		}
	}
	walk(start, []string{start}, 0)

	res.CyclesDetected = len(res.Cycles)
	if res.CyclesDetected > 0 {
		res.LayeringRisk = "high"
	}
	return res, nil
}

func (g *Graph) TransactionTopology(_ context.Context, uetr string) (*TopologyResult, error) {
	tx, ok := g.txs[uetr]
	if !ok {
		return nil, eris.Errorf("intel: transaction %s not found", uetr)
	}

	debtorKey := NormalizeName(tx.Debtor)
	creditorKey := NormalizeName(tx.Creditor)

	res := &TopologyResult{
		UETR:     uetr,
		Debtor:   tx.Debtor,
		Creditor: tx.Creditor,
	}
	if n, ok := g.nodes[debtorKey]; ok && len(n.accounts) > 0 {
		res.DebtorAccount = n.accounts[0]
	}
	if n, ok := g.nodes[creditorKey]; ok && len(n.accounts) > 0 {
		res.CreditorAccount = n.accounts[0]
	}

	for _, t := range g.txs {
		if NormalizeName(t.Debtor) == debtorKey {
			res.DebtorTxCount++
		}
	}

	seen := map[string]bool{}
	for _, edges := range []([]graphEdge){g.out[debtorKey], g.in[debtorKey]} {
		for _, e := range edges {
			if e.kind != "shares_director" && e.kind != "shares_address" {
				continue
			}
			if n, ok := g.nodes[e.to]; ok && !seen[e.to] {
				seen[e.to] = true
				res.ConnectedEntities = append(res.ConnectedEntities, n.name)
			}
		}
	}
	sort.Strings(res.ConnectedEntities)

	res.NetworkComplexity = "low"
	if len(res.ConnectedEntities) > 3 {
		res.NetworkComplexity = "high"
	}
	return res, nil
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
