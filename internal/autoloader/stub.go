package autoloader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// Preamble heads every generated stub.
const Preamble = `# frozen_string_literal: true
# DO NOT TOUCH
# This file is generated by ./scripts/bin/autogen
# Use that.
# typed: true
`

// mapPrefix is the directory the registry resolves autoload_map paths against.
const mapPrefix = "autoloader"

// Autoloads renders the stub file for this node.
func (t *DefTree) Autoloads(cfg *Config) (string, error) {
	var b strings.Builder
	b.WriteString(Preamble)
	b.WriteString("\n")

	definingFile := ""
	if len(t.NamedDefs) > 0 || (len(t.Children) == 0 && t.HasDefinition()) {
		definingFile = t.File()
	}
	if definingFile != "" {
		if err := t.writeRequires(cfg, &b); err != nil {
			return "", err
		}
	}

	registry := cfg.registry()
	fullName := "nil"
	kind, err := t.DefinitionKind()
	if err != nil {
		return "", err
	}
	if kind == autogen.Module || kind == autogen.Class {
		fullName = "Object"
		if !t.Root() {
			fullName = strings.Join(t.NameParts, "::")
			fmt.Fprintf(&b, "%s.on_autoload('%s')\n", registry, fullName)
			if err := t.predeclare(fullName, &b); err != nil {
				return "", err
			}
		}
		if len(t.Children) > 0 {
			fmt.Fprintf(&b, "\n%s.autoload_map(%s, {\n", registry, fullName)
			for _, name := range t.sortedChildren() {
				fmt.Fprintf(&b, "  %s: \"%s/%s\",\n", name, mapPrefix, t.Children[name].Path())
			}
			b.WriteString("})\n")
		}
	}

	if definingFile != "" {
		fmt.Fprintf(&b, "\n%s.for_autoload(%s, \"%s\")\n", registry, fullName, definingFile)
	}
	return b.String(), nil
}

func (t *DefTree) writeRequires(cfg *Config, b *strings.Builder) error {
	if t.Root() || !t.HasDefinition() {
		return nil
	}
	def, err := t.Definition()
	if err != nil {
		return err
	}
	var reqs []string
	for _, req := range def.Requires {
		if cfg.IncludeRequire(req) {
			reqs = append(reqs, req)
		}
	}
	slices.Sort(reqs)
	for _, req := range slices.Compact(reqs) {
		fmt.Fprintf(b, "require '%s'\n", req)
	}
	return nil
}

func (t *DefTree) predeclare(fullName string, b *strings.Builder) error {
	kind, err := t.DefinitionKind()
	if err != nil {
		return err
	}
	if t.HasDefinition() && kind == autogen.Class {
		fmt.Fprintf(b, "\nclass %s", fullName)
		def, err := t.Definition()
		if err != nil {
			return err
		}
		if len(def.ParentName) > 0 {
			fmt.Fprintf(b, " < %s", strings.Join(def.ParentName, "::"))
		}
	} else {
		fmt.Fprintf(b, "\nmodule %s", fullName)
	}
	b.WriteString("\nend\n")
	return nil
}
