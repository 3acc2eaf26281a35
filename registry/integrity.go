package registry

import "fmt"

// IntegrityWarnings lists non-fatal configuration findings: crews without
// any agent record, roster entries no agent record backs, and bare tool
// names outside the built-in set. Warnings never fail validation; the
// orchestrator exposes them through its status report.
func (r *Registry) IntegrityWarnings() []string {
	var warnings []string

	for _, crewID := range r.crewIDs {
		crew := r.crews[crewID]

		recorded := make(map[string]struct{}, len(r.byCrew[crewID]))
		for _, agentID := range r.byCrew[crewID] {
			recorded[agentID] = struct{}{}
		}
		if len(recorded) == 0 {
			warnings = append(warnings,
				fmt.Sprintf("crew %q has no agent records", crewID))
		}
		for _, name := range crew.Agents {
			if _, ok := recorded[name]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("crew %q roster names %q but no agent record exists", crewID, name))
			}
		}

		warnings = append(warnings, bareToolWarnings("crew", crewID, crew.Tools)...)
	}

	for _, agentID := range r.agentIDs {
		warnings = append(warnings, bareToolWarnings("agent", agentID, r.agents[agentID].Tools)...)
	}

	return warnings
}

// bareToolWarnings flags bare (un-namespaced) tool names outside the
// built-in set. Namespaced references stay opaque at this layer.
func bareToolWarnings(holder, id string, tools []string) []string {
	var warnings []string
	for _, tool := range tools {
		ref, err := ParseToolRef(tool)
		if err != nil {
			// Malformed references are rejected at load; unreachable here.
			continue
		}
		if ref.Namespace == "" && !IsKnownBareTool(ref.Name) {
			warnings = append(warnings,
				fmt.Sprintf("%s %q uses unknown bare tool name %q", holder, id, tool))
		}
	}
	return warnings
}
