package diff

// Compare classifies every attribute category of a source record against a
// target record. Categories absent from both sides are omitted entirely.
// The classification is deterministic: categories appear in canonical order.
func Compare(source, target Attributes) Result {
	var result Result

	for _, category := range Categories() {
		sourceVal, inSource := source[category]
		targetVal, inTarget := target[category]

		switch {
		case inSource && !inTarget:
			result.Added = append(result.Added, category)
		case !inSource && inTarget:
			result.Removed = append(result.Removed, category)
		case inSource && inTarget && sourceVal != targetVal:
			result.Changed = append(result.Changed, category)
		case inSource && inTarget:
			result.Unchanged = append(result.Unchanged, category)
		}
	}

	return result
}
