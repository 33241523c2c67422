package autogen

import (
	"fmt"
	"strings"
)

// FullName returns the qualified name of def as written: the full name of
// its defining reference's scope followed by the reference's own name. The
// root has an empty name.
func (pf *ParsedFile) FullName(def DefinitionRef) []string {
	d := pf.Def(def)
	if !d.DefiningRef.Exists() {
		return nil
	}
	ref := pf.Ref(d.DefiningRef)
	name := pf.FullName(ref.Scope)
	return append(name, ref.Name...)
}

// ClassList returns the qualified names of the classes defined in the file,
// in definition order.
func (pf *ParsedFile) ClassList() []string {
	var out []string
	for _, def := range pf.Defs {
		if def.Kind != Class {
			continue
		}
		out = append(out, strings.Join(pf.FullName(def.ID), "::"))
	}
	return out
}

// String renders the graph for debugging and golden tests.
func (pf *ParsedFile) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# ParsedFile: %s\n", pf.Path)
	fmt.Fprintf(&b, "requires: [%s]\n", strings.Join(pf.Requires, ", "))
	b.WriteString("## defs:\n")
	for _, def := range pf.Defs {
		fmt.Fprintf(&b, "[def id=%d]\n type=%s\n defines_behavior=%d\n is_empty=%d\n",
			def.ID, def.Kind, btoi(def.DefinesBehavior), btoi(def.IsEmpty))
		if def.DefiningRef.Exists() {
			fmt.Fprintf(&b, " defining_ref=[%s]\n", strings.Join(pf.Ref(def.DefiningRef).Name, " "))
		}
		if def.ParentRef.Exists() {
			fmt.Fprintf(&b, " parent_ref=[%s]\n", strings.Join(pf.Ref(def.ParentRef).Name, " "))
		}
		if def.AliasedRef.Exists() {
			fmt.Fprintf(&b, " aliased_ref=[%s]\n", strings.Join(pf.Ref(def.AliasedRef).Name, " "))
		}
	}

	b.WriteString("## refs:\n")
	for _, ref := range pf.Refs {
		nesting := make([]string, 0, len(ref.Nesting))
		for _, scope := range ref.Nesting {
			nesting = append(nesting, "["+strings.Join(pf.FullName(scope), " ")+"]")
		}
		fmt.Fprintf(&b, "[ref id=%d]\n scope=[%s]\n name=[%s]\n nesting=[%s]\n resolved=[%s]\n loc=%s:%d\n is_defining_ref=%d\n",
			ref.ID,
			strings.Join(pf.FullName(ref.Scope), " "),
			strings.Join(ref.Name, " "),
			strings.Join(nesting, " "),
			strings.Join(ref.Resolved, " "),
			pf.Path, ref.Loc.BeginLine,
			btoi(ref.IsDefiningRef))
		if ref.ParentOf.Exists() {
			fmt.Fprintf(&b, " parent_of=[%s]\n", strings.Join(pf.FullName(ref.ParentOf), " "))
		}
	}
	return b.String()
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
