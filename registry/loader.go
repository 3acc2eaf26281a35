package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/ados/types"
)

// Default configuration file names inside a config directory.
const (
	CrewsFileName  = "crews.yaml"
	AgentsFileName = "agents.yaml"
)

// Loader loads a Registry from configuration sources.
type Loader interface {
	// LoadDir reads crews.yaml (required) and agents.yaml (optional)
	// from dir and builds a Registry.
	LoadDir(dir string) (*Registry, error)

	// LoadFiles reads the given crews and agents files. agentsPath may be
	// empty, in which case no agent records are loaded.
	LoadFiles(crewsPath, agentsPath string) (*Registry, error)

	// LoadBytes parses raw YAML. agentsData may be nil.
	LoadBytes(crewsData, agentsData []byte) (*Registry, error)
}

// YAMLLoader implements Loader for the YAML configuration layout the
// original system ships: crews.yaml maps crew id to crew body, agents.yaml
// maps crew id to a list of agent bodies.
//
// Mappings are decoded via yaml.Node so that duplicate mapping keys are
// observable and reported as DUPLICATE_IDENTIFIER instead of a generic
// parse failure.
type YAMLLoader struct{}

// NewYAMLLoader creates a new YAMLLoader.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{}
}

var _ Loader = (*YAMLLoader)(nil)

// LoadDir reads the standard file layout from dir.
func (l *YAMLLoader) LoadDir(dir string) (*Registry, error) {
	crewsPath := filepath.Join(dir, CrewsFileName)
	agentsPath := filepath.Join(dir, AgentsFileName)
	if _, err := os.Stat(agentsPath); os.IsNotExist(err) {
		// The original tolerates a missing agents file and loads an
		// agent-less registry; status reporting warns about the gap.
		agentsPath = ""
	}
	return l.LoadFiles(crewsPath, agentsPath)
}

// LoadFiles reads and parses the given files.
func (l *YAMLLoader) LoadFiles(crewsPath, agentsPath string) (*Registry, error) {
	crewsData, err := os.ReadFile(crewsPath)
	if os.IsNotExist(err) {
		return nil, types.NewError(types.ErrConfigNotFound,
			fmt.Sprintf("crews config file not found: %s", crewsPath))
	}
	if err != nil {
		return nil, fmt.Errorf("read crews config: %w", err)
	}

	var agentsData []byte
	if agentsPath != "" {
		agentsData, err = os.ReadFile(agentsPath)
		if os.IsNotExist(err) {
			agentsData = nil
		} else if err != nil {
			return nil, fmt.Errorf("read agents config: %w", err)
		}
	}

	return l.LoadBytes(crewsData, agentsData)
}

// LoadBytes parses raw YAML and builds the Registry.
func (l *YAMLLoader) LoadBytes(crewsData, agentsData []byte) (*Registry, error) {
	crews, err := decodeCrews(crewsData)
	if err != nil {
		return nil, err
	}
	agents, err := decodeAgents(agentsData)
	if err != nil {
		return nil, err
	}
	return New(crews, agents)
}

// decodeCrews walks the top-level mapping of crews.yaml. The mapping key
// becomes the crew identifier.
func decodeCrews(data []byte) ([]Crew, error) {
	mapping, err := rootMapping(data, "crews")
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, types.NewError(types.ErrMalformedConfig, "crews config is empty")
	}

	crews := make([]Crew, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, types.NewError(types.ErrMalformedConfig, "crew identifier must be a string")
		}
		var c Crew
		if err := valNode.Decode(&c); err != nil {
			return nil, types.NewError(types.ErrMalformedConfig,
				fmt.Sprintf("invalid configuration for crew %q", keyNode.Value)).
				WithIDs(keyNode.Value).WithCause(err)
		}
		c.ID = keyNode.Value
		crews = append(crews, c)
	}
	return crews, nil
}

// decodeAgents walks the top-level mapping of agents.yaml: crew id to list
// of agent bodies. The mapping key becomes each agent's owning crew, which
// the depgraph validator later resolves (OrphanAgentCrew when it cannot).
func decodeAgents(data []byte) ([]Agent, error) {
	if len(data) == 0 {
		return nil, nil
	}
	mapping, err := rootMapping(data, "agents")
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, nil
	}

	var agents []Agent
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, types.NewError(types.ErrMalformedConfig, "crew identifier must be a string")
		}
		if valNode.Kind != yaml.SequenceNode {
			return nil, types.NewError(types.ErrMalformedConfig,
				fmt.Sprintf("agents for crew %q must be a list", keyNode.Value)).
				WithIDs(keyNode.Value)
		}
		for _, item := range valNode.Content {
			// Defaults first, then decode over them: absent fields keep
			// the default, explicit values (including false) override.
			a := Agent{LLM: DefaultLLM, MaxIter: DefaultMaxIter, Verbose: true}
			if err := item.Decode(&a); err != nil {
				return nil, types.NewError(types.ErrMalformedConfig,
					fmt.Sprintf("invalid agent configuration in crew %q", keyNode.Value)).
					WithIDs(keyNode.Value).WithCause(err)
			}
			a.Crew = keyNode.Value
			agents = append(agents, a)
		}
	}
	return agents, nil
}

// rootMapping unmarshals data and returns the document's top-level mapping
// node, nil when the document is empty.
func rootMapping(data []byte, what string) (*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("parse %s config", what)).WithCause(err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, types.NewError(types.ErrMalformedConfig,
			fmt.Sprintf("%s config must be a mapping keyed by crew identifier", what))
	}
	return doc, nil
}
