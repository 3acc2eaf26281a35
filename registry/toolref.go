package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// toolRefPattern accepts identifier segments joined by at most one dot:
// "codegen.formatter" or a bare "task_decomposer".
var toolRefPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// knownBareTools are the bare (un-namespaced) tool names the original
// system ships; any other bare name is flagged as a convention warning by
// the orchestrator status report, never as an error.
var knownBareTools = map[string]struct{}{
	"task_decomposer": {},
	"memory_writer":   {},
	"prd_parser":      {},
	"system_monitor":  {},
}

// ToolRef is a parsed tool reference. The component never checks that a
// tool is implemented, only that the reference is syntactically well
// formed.
type ToolRef struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// ParseToolRef parses "namespace.name" or a bare "name".
func ParseToolRef(s string) (ToolRef, error) {
	if !toolRefPattern.MatchString(s) {
		return ToolRef{}, fmt.Errorf("malformed tool reference %q", s)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return ToolRef{Namespace: s[:i], Name: s[i+1:]}, nil
	}
	return ToolRef{Name: s}, nil
}

// String renders the reference back to its declared form.
func (r ToolRef) String() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// WellFormedTool reports whether s is a syntactically valid tool reference.
func WellFormedTool(s string) bool {
	return toolRefPattern.MatchString(s)
}

// IsKnownBareTool reports whether a bare tool name belongs to the known
// built-in set that is exempt from the namespace.name convention.
func IsKnownBareTool(name string) bool {
	_, ok := knownBareTools[name]
	return ok
}
