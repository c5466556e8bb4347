package templating

import (
	"errors"
	"fmt"
	"math"
)

// ErrLastRequiredItem is returned when removing the only element of a list
// that must keep at least one entry.
var ErrLastRequiredItem = errors.New("cannot remove the last required item")

// ErrIndexOutOfRange is returned for list operations with an invalid index.
var ErrIndexOutOfRange = errors.New("list index out of range")

// ListError describes a rejected list operation. Message is safe to show to
// the user as-is.
type ListError struct {
	List  string
	Index int
	err   error
}

func (e *ListError) Error() string {
	if errors.Is(e.err, ErrLastRequiredItem) {
		return fmt.Sprintf("You must have at least one %s", e.List)
	}
	return fmt.Sprintf("%s %d: %v", e.List, e.Index, e.err)
}

func (e *ListError) Unwrap() error { return e.err }

// appendItem returns a copy of items with v appended.
func appendItem[T any](items []T, v T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, v)
}

// replaceItem returns a copy of items with index i set to v.
func replaceItem[T any](items []T, i int, v T, label string) ([]T, error) {
	if i < 0 || i >= len(items) {
		return items, &ListError{List: label, Index: i, err: ErrIndexOutOfRange}
	}
	out := cloneItems(items)
	out[i] = v
	return out, nil
}

// removeItem returns a copy of items without index i. Required lists keep
// their last element and the input slice is returned unchanged.
func removeItem[T any](items []T, i int, label string, required bool) ([]T, error) {
	if i < 0 || i >= len(items) {
		return items, &ListError{List: label, Index: i, err: ErrIndexOutOfRange}
	}
	if required && len(items) == 1 {
		return items, &ListError{List: label, Index: i, err: ErrLastRequiredItem}
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), nil
}

func cloneItems[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func requireItems[T any](items []T, label string) error {
	if len(items) == 0 {
		return &ListError{List: label, err: ErrLastRequiredItem}
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// withAmounts copies items with every Amount recomputed, ignoring the amounts
// the caller supplied.
func withAmounts(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.WithAmount()
	}
	return out
}
