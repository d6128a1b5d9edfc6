package cache

// Item is a cached resource: it has a stable server-assigned id and answers
// free-text queries.
type Item interface {
	GetID() string
	Matches(query string) bool
}

// Command is a deterministic transition of the cached sequence. Apply never
// modifies its argument.
type Command[T Item] interface {
	Apply(items []T) []T
}

// ReplaceCommand substitutes the whole sequence, as a list or search does.
type ReplaceCommand[T Item] struct {
	Items []T
}

func (c ReplaceCommand[T]) Apply([]T) []T {
	out := make([]T, len(c.Items))
	copy(out, c.Items)
	return out
}

// CreateCommand puts a newly created item first.
type CreateCommand[T Item] struct {
	Item T
}

func (c CreateCommand[T]) Apply(items []T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, c.Item)
	return append(out, items...)
}

// UpdateCommand replaces the item with the same id, keeping its position.
// If no such item is cached the sequence is unchanged.
type UpdateCommand[T Item] struct {
	Item T
}

func (c UpdateCommand[T]) Apply(items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	id := c.Item.GetID()
	for i := range out {
		if out[i].GetID() == id {
			out[i] = c.Item
			break
		}
	}
	return out
}

// DeleteCommand removes the item with ID and no other.
type DeleteCommand[T Item] struct {
	ID string
}

func (c DeleteCommand[T]) Apply(items []T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.GetID() != c.ID {
			out = append(out, it)
		}
	}
	return out
}
