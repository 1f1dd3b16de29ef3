package domain

// ViewKind tags a ViewState
type ViewKind int

const (
	ViewLoading ViewKind = iota
	ViewError
	ViewEmpty
	ViewPopulated
)

func (k ViewKind) String() string {
	switch k {
	case ViewLoading:
		return "loading"
	case ViewError:
		return "error"
	case ViewEmpty:
		return "empty"
	case ViewPopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// ViewState is the display state of one list: exactly one of
// loading, error(message), empty or populated(items).
type ViewState[T any] struct {
	Kind    ViewKind
	Message string // Set only for ViewError
	Items   []T    // Set only for ViewPopulated, server order
}

// Loading returns the loading state
func Loading[T any]() ViewState[T] { return ViewState[T]{Kind: ViewLoading} }

// Failed returns an error state with a user-presentable message
func Failed[T any](message string) ViewState[T] {
	return ViewState[T]{Kind: ViewError, Message: message}
}

// Loaded returns empty or populated depending on the collection size.
// The slice is copied so callers cannot mutate store-owned state.
func Loaded[T any](items []T) ViewState[T] {
	if len(items) == 0 {
		return ViewState[T]{Kind: ViewEmpty}
	}
	out := make([]T, len(items))
	copy(out, items)
	return ViewState[T]{Kind: ViewPopulated, Items: out}
}

// IsSettled reports whether the list holds a collection (empty or populated)
func (s ViewState[T]) IsSettled() bool {
	return s.Kind == ViewEmpty || s.Kind == ViewPopulated
}
