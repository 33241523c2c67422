package autogen

import (
	"fmt"
	"strings"
)

// NamedDefinition is a Definition projected out of its file graph so it can
// be placed in a cross-file namespace trie.
type NamedDefinition struct {
	Def       Definition
	Name      string
	NameParts []string
	// ParentName is the superclass path, resolved if possible.
	ParentName []string
	Requires   []string
	// Path is the owning file; empty means no file.
	Path string
}

// ToNamed projects def into a NamedDefinition.
func (pf *ParsedFile) ToNamed(def DefinitionRef) NamedDefinition {
	d := pf.Def(def)
	parts := pf.FullName(def)

	var parent []string
	if d.ParentRef.Exists() {
		ref := pf.Ref(d.ParentRef)
		if len(ref.Resolved) > 0 {
			parent = ref.Resolved
		} else {
			parent = ref.Name
		}
	}

	return NamedDefinition{
		Def:        *d,
		Name:       strings.Join(parts, "::"),
		NameParts:  parts,
		ParentName: parent,
		Requires:   pf.Requires,
		Path:       pf.Path,
	}
}

// NamedDefinitions projects every definition except the file root.
func (pf *ParsedFile) NamedDefinitions() []NamedDefinition {
	out := make([]NamedDefinition, 0, len(pf.Defs))
	for _, def := range pf.Defs {
		if def.ID == rootDefinition {
			continue
		}
		out = append(out, pf.ToNamed(def.ID))
	}
	return out
}

func (nd NamedDefinition) String() string {
	return fmt.Sprintf("DEF %s (%s) %s", nd.Name, nd.Def.Kind, nd.Path)
}
