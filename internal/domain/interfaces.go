package domain

// Entity is anything a scoped store can hold: it must carry a stable identifier.
type Entity interface {
	GetID() string
}

// ListItem is an entity that can be rendered as a card row.
type ListItem interface {
	Entity

	// GetTitle returns the primary display text
	GetTitle() string
}
