package query

// RenameEdit is one `(uri, range, new_text)` tuple of a rename result
// (spec §4.9 Rename).
type RenameEdit struct {
	Location
	NewText string
}

// Rename collects every reference to the symbol at offset and returns
// the workspace-edit-shaped list of replacements, or an empty, ok=false
// result when no reference is found or the symbol has no single
// resolvable definition (spec §4.9 Rename). References are matched by
// sigil and name; there is no per-reference ambiguity check.
func Rename(ctx Context, offset uint32, newName string) ([]RenameEdit, bool) {
	node := findNodeAt(ctx.Program, offset)
	if node == nil {
		return nil, false
	}

	refs := References(ctx, offset)
	if len(refs) == 0 {
		return nil, false
	}

	defs, _, ok := Definition(ctx, offset)
	if !ok || len(defs) != 1 {
		// No resolvable, unambiguous declaration backs this symbol.
		return nil, false
	}

	seen := make(map[Location]bool, len(refs)+1)
	var edits []RenameEdit
	add := func(loc Location) {
		if seen[loc] {
			return
		}
		seen[loc] = true
		edits = append(edits, RenameEdit{Location: loc, NewText: newName})
	}
	add(defs[0])
	for _, r := range refs {
		add(r)
	}
	return edits, true
}
