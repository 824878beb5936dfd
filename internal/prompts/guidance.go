package prompts

// Resolution is what the orchestrator needs to act on a category: either a
// canned reply that ends the turn, or guidance appended to the system prompt,
// or neither.
type Resolution struct {
	Category Category
	Terminal string
	Guidance string
	Priority Priority
	Flagged  bool
}

func (r Resolution) IsTerminal() bool {
	return r.Category.Terminal()
}

func (m *Manager) Resolve(category Category) Resolution {
	res := Resolution{
		Category: category,
		Flagged:  category == CategoryEmergency || category == CategoryInappropriate,
	}
	item, ok := m.responses[category]
	if !ok {
		return res
	}
	res.Priority = item.Priority
	switch {
	case category.Terminal():
		res.Terminal = item.Message
	case category == CategoryConsultationNeeded || category == CategoryRoutineHealth:
		res.Guidance = item.Guidance
	}
	return res
}
