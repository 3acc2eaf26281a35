package registry

import (
	"fmt"
	"sort"

	"github.com/BaSui01/ados/types"
)

// Registry holds the loaded crew and agent records, keyed by identifier.
// It is immutable after construction: accessors return deep copies, and
// configuration changes are handled by building a whole new Registry.
// Concurrent reads therefore need no locking.
type Registry struct {
	crews  map[string]Crew
	agents map[string]Agent

	crewIDs  []string            // sorted
	agentIDs []string            // sorted
	byCrew   map[string][]string // crew id -> sorted agent ids with records
}

// New builds a Registry from already-decoded records. The configuration
// source format is immaterial; the YAML loader and programmatic callers
// both end up here. It performs structure checks (MALFORMED_CONFIG) and
// identifier uniqueness checks (DUPLICATE_IDENTIFIER); referential and
// graph checks belong to the depgraph validator.
func New(crews []Crew, agents []Agent) (*Registry, error) {
	r := &Registry{
		crews:  make(map[string]Crew, len(crews)),
		agents: make(map[string]Agent, len(agents)),
		byCrew: make(map[string][]string),
	}

	for _, c := range crews {
		if err := validateCrew(c); err != nil {
			return nil, err
		}
		if _, exists := r.crews[c.ID]; exists {
			return nil, types.NewError(types.ErrDuplicateIdentifier,
				fmt.Sprintf("crew %q declared more than once", c.ID)).WithIDs(c.ID)
		}
		r.crews[c.ID] = c.clone()
		r.crewIDs = append(r.crewIDs, c.ID)
	}

	for _, a := range agents {
		if err := validateAgent(a); err != nil {
			return nil, err
		}
		if _, exists := r.agents[a.ID]; exists {
			return nil, types.NewError(types.ErrDuplicateIdentifier,
				fmt.Sprintf("agent %q declared more than once", a.ID)).WithIDs(a.ID)
		}
		r.agents[a.ID] = a.clone()
		r.agentIDs = append(r.agentIDs, a.ID)
		r.byCrew[a.Crew] = append(r.byCrew[a.Crew], a.ID)
	}

	sort.Strings(r.crewIDs)
	sort.Strings(r.agentIDs)
	for _, ids := range r.byCrew {
		sort.Strings(ids)
	}

	return r, nil
}

// validateCrew enforces the structural shape of a crew record: required
// fields present, roster and tool/constraint lists non-empty, tool
// references well formed.
func validateCrew(c Crew) error {
	if c.ID == "" {
		return types.NewError(types.ErrMalformedConfig, "crew identifier is required")
	}
	if c.Goal == "" {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("crew %q: goal is required", c.ID)).WithIDs(c.ID)
	}
	if err := nonEmptyList("agents", c.Agents); err != nil {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("crew %q: %v", c.ID, err)).WithIDs(c.ID)
	}
	if err := nonEmptyList("constraints", c.Constraints); err != nil {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("crew %q: %v", c.ID, err)).WithIDs(c.ID)
	}
	if err := nonEmptyList("tools", c.Tools); err != nil {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("crew %q: %v", c.ID, err)).WithIDs(c.ID)
	}
	for _, tool := range c.Tools {
		if !WellFormedTool(tool) {
			return types.NewError(types.ErrMalformedConfig,
				fmt.Sprintf("crew %q: malformed tool reference %q", c.ID, tool)).WithIDs(c.ID, tool)
		}
	}
	return nil
}

// validateAgent enforces the structural shape of an agent record. Every
// agent must declare at least one tool. Workspace paths are carried as
// opaque strings and deliberately not checked here.
func validateAgent(a Agent) error {
	if a.ID == "" {
		return types.NewError(types.ErrMalformedConfig, "agent role is required")
	}
	if a.Crew == "" {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("agent %q: crew is required", a.ID)).WithIDs(a.ID)
	}
	if a.Goal == "" {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("agent %q: goal is required", a.ID)).WithIDs(a.ID)
	}
	if a.Backstory == "" {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("agent %q: backstory is required", a.ID)).WithIDs(a.ID)
	}
	if err := nonEmptyList("tools", a.Tools); err != nil {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("agent %q: %v", a.ID, err)).WithIDs(a.ID)
	}
	for _, tool := range a.Tools {
		if !WellFormedTool(tool) {
			return types.NewError(types.ErrMalformedConfig,
				fmt.Sprintf("agent %q: malformed tool reference %q", a.ID, tool)).WithIDs(a.ID, tool)
		}
	}
	if a.MaxIter <= 0 {
		return types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("agent %q: max_iter must be positive, got %d", a.ID, a.MaxIter)).WithIDs(a.ID)
	}
	return nil
}

func nonEmptyList(field string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%s must be a non-empty list of strings", field)
	}
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("%s must not contain empty strings", field)
		}
	}
	return nil
}

// Crew returns a copy of the crew record for id.
func (r *Registry) Crew(id string) (Crew, bool) {
	c, ok := r.crews[id]
	if !ok {
		return Crew{}, false
	}
	return c.clone(), true
}

// Agent returns a copy of the agent record for id.
func (r *Registry) Agent(id string) (Agent, bool) {
	a, ok := r.agents[id]
	if !ok {
		return Agent{}, false
	}
	return a.clone(), true
}

// HasCrew reports whether a crew with the given id is declared.
func (r *Registry) HasCrew(id string) bool {
	_, ok := r.crews[id]
	return ok
}

// CrewIDs returns all crew identifiers in ascending order.
func (r *Registry) CrewIDs() []string {
	return cloneStrings(r.crewIDs)
}

// AgentIDs returns all agent identifiers in ascending order.
func (r *Registry) AgentIDs() []string {
	return cloneStrings(r.agentIDs)
}

// Crews returns copies of all crew records, ordered by identifier.
func (r *Registry) Crews() []Crew {
	out := make([]Crew, 0, len(r.crewIDs))
	for _, id := range r.crewIDs {
		out = append(out, r.crews[id].clone())
	}
	return out
}

// Agents returns copies of all agent records, ordered by identifier.
func (r *Registry) Agents() []Agent {
	out := make([]Agent, 0, len(r.agentIDs))
	for _, id := range r.agentIDs {
		out = append(out, r.agents[id].clone())
	}
	return out
}

// AgentsInCrew returns copies of the agent records whose crew field names
// the given crew, ordered by identifier. Roster entries without a record
// are not included; the orchestrator surfaces those as warnings.
func (r *Registry) AgentsInCrew(crewID string) []Agent {
	ids := r.byCrew[crewID]
	out := make([]Agent, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.agents[id].clone())
	}
	return out
}

// NumCrews returns the number of declared crews.
func (r *Registry) NumCrews() int { return len(r.crews) }

// NumAgents returns the number of declared agents.
func (r *Registry) NumAgents() int { return len(r.agents) }
