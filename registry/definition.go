package registry

// Default tuning values applied when an agent omits them, matching the
// original ADOS agent schema.
const (
	DefaultLLM     = "gpt-4"
	DefaultMaxIter = 5
)

// Crew is a declarative crew record. In crews.yaml each crew is a mapping
// entry keyed by its identifier; the loader sets ID from the mapping key.
type Crew struct {
	ID string `yaml:"-" json:"id"`

	// Goal is free text describing what the crew exists to do.
	Goal string `yaml:"goal" json:"goal"`

	// Agents is the membership roster: identifiers of the agents belonging
	// to this crew. Must be non-empty.
	Agents []string `yaml:"agents" json:"agents"`

	// Constraints are advisory strings; their content is never interpreted.
	Constraints []string `yaml:"constraints" json:"constraints"`

	// Dependencies lists crews this crew depends on. The relation drives
	// both execution ordering and capability availability.
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// Tools granted to every member agent by default.
	Tools []string `yaml:"tools" json:"tools"`

	// Knowledge lists knowledge-base domain identifiers available to the
	// crew (e.g. "react_patterns"). The domain files themselves are opaque.
	Knowledge []string `yaml:"knowledge,omitempty" json:"knowledge,omitempty"`
}

// clone returns a deep copy so callers can never mutate registry state.
func (c Crew) clone() Crew {
	c.Agents = cloneStrings(c.Agents)
	c.Constraints = cloneStrings(c.Constraints)
	c.Dependencies = cloneStrings(c.Dependencies)
	c.Tools = cloneStrings(c.Tools)
	c.Knowledge = cloneStrings(c.Knowledge)
	return c
}

// Workspace describes an agent's runtime file layout. All fields are
// opaque strings: nothing here is resolved against a real filesystem.
type Workspace struct {
	RuntimeFolder         string   `yaml:"runtime_folder" json:"runtime_folder"`
	MemoryAccess          string   `yaml:"memory_access" json:"memory_access"`
	OutputFolder          string   `yaml:"output_folder" json:"output_folder"`
	CommunicationChannels []string `yaml:"communication_channels" json:"communication_channels"`
}

func (w Workspace) clone() Workspace {
	w.CommunicationChannels = cloneStrings(w.CommunicationChannels)
	return w
}

// Agent is a declarative agent record. In agents.yaml agents are listed
// under their owning crew's mapping key; the loader sets Crew from that key
// and ID from the role field.
type Agent struct {
	ID   string `yaml:"role" json:"role"`
	Crew string `yaml:"-" json:"crew"`

	Goal      string `yaml:"goal" json:"goal"`
	Backstory string `yaml:"backstory" json:"backstory"`

	// Tools declared by the agent itself. Entries with the same tool name
	// as a crew-level grant take precedence during capability resolution.
	Tools []string `yaml:"tools" json:"tools"`

	// Tuning parameters. No cross-entity invariants beyond being present.
	LLM     string `yaml:"llm" json:"llm"`
	MaxIter int    `yaml:"max_iter" json:"max_iter"`
	Verbose bool   `yaml:"verbose" json:"verbose"`

	Workspace Workspace `yaml:"workspace" json:"workspace"`
}

func (a Agent) clone() Agent {
	a.Tools = cloneStrings(a.Tools)
	a.Workspace = a.Workspace.clone()
	return a
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
