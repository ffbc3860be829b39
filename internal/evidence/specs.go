package evidence

import "github.com/fintel-ai/tribunal/internal/narrative"

// ProsecutorToolSpecs declares the investigation tools offered to the
// prosecutor's narrative generator.
func ProsecutorToolSpecs() []narrative.ToolSpec {
	return []narrative.ToolSpec{
		{
			Name:        KindHiddenLinks.Name(),
			Description: "Find connection paths between an entity and sanctioned, high-risk, or politically exposed parties in the relationship graph.",
			Parameters: map[string]any{
				"entity_name": map[string]any{"type": "string", "description": "Entity to investigate"},
				"max_hops":    map[string]any{"type": "integer", "description": "Maximum relationship hops to search"},
			},
		},
		{
			Name:        KindFraudRings.Name(),
			Description: "Detect densely connected entity communities that may form fraud ring structures.",
			Parameters:  map[string]any{},
		},
		{
			Name:        KindTopology.Name(),
			Description: "Analyze the network structure around the transaction under investigation.",
			Parameters: map[string]any{
				"uetr": map[string]any{"type": "string", "description": "Transaction reference"},
			},
		},
		{
			Name:        KindLayering.Name(),
			Description: "Detect circular money flows indicative of layering schemes.",
			Parameters: map[string]any{
				"entity_name":      map[string]any{"type": "string", "description": "Entity to check"},
				"min_cycle_length": map[string]any{"type": "integer"},
				"max_cycle_length": map[string]any{"type": "integer"},
			},
		},
		{
			Name:        KindBehavioralDrift.Name(),
			Description: "Check whether an entity's behavior has deviated from its historical baseline.",
			Parameters: map[string]any{
				"entity_id": map[string]any{"type": "string", "description": "Entity to check"},
			},
		},
		{
			Name:        KindEntityProfile.Name(),
			Description: "Retrieve the behavioral risk profile for an entity.",
			Parameters: map[string]any{
				"entity_id": map[string]any{"type": "string", "description": "Entity to profile"},
			},
		},
		{
			Name:        KindInvestigationHistory.Name(),
			Description: "Check for prior suspicious activity reports or investigations on record.",
			Parameters: map[string]any{
				"entity_id": map[string]any{"type": "string", "description": "Entity to check"},
			},
		},
	}
}

// SkepticToolSpecs declares the defense tools offered to the skeptic's
// narrative generator.
func SkepticToolSpecs() []narrative.ToolSpec {
	return []narrative.ToolSpec{
		{
			Name:        KindAlibi.Name(),
			Description: "Search internal documents for legitimate business explanations such as contracts and correspondence.",
			Parameters: map[string]any{
				"query":       map[string]any{"type": "string", "description": "Business explanation to look for"},
				"entity_name": map[string]any{"type": "string", "description": "Entity to search documents for"},
			},
		},
		{
			Name:        KindRegulation.Name(),
			Description: "Research regulatory guidance relevant to the transaction.",
			Parameters: map[string]any{
				"query":           map[string]any{"type": "string"},
				"regulation_type": map[string]any{"type": "string", "description": "eu_ai_act, aml, or gdpr"},
			},
		},
		{
			Name:        KindPaymentJustification.Name(),
			Description: "Find authorized payment grids, standing orders, or recurring payment schedules covering the transaction.",
			Parameters: map[string]any{
				"entity_name": map[string]any{"type": "string"},
				"purpose":     map[string]any{"type": "string"},
			},
		},
		{
			Name:        KindAdverseMedia.Name(),
			Description: "Scan media coverage of an entity; the absence of negative coverage supports clearing it.",
			Parameters: map[string]any{
				"entity_name": map[string]any{"type": "string"},
			},
		},
		{
			Name:        KindEntityProfile.Name(),
			Description: "Retrieve the entity profile showing its normal operational patterns.",
			Parameters: map[string]any{
				"entity_id": map[string]any{"type": "string"},
			},
		},
		{
			Name:        KindPeerGroup.Name(),
			Description: "Compare an entity's behavior against its industry peer group baseline.",
			Parameters: map[string]any{
				"entity_id": map[string]any{"type": "string"},
				"peer_type": map[string]any{"type": "string", "description": "similar_industry, similar_size, or similar_region"},
			},
		},
	}
}
