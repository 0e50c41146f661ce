// Package timeoff implements the leave entitlement and balance engine.
// It converts tenure and policy into entitlement, tracks consumption through
// an audited request lifecycle, and computes expiry dates and alerts.
package timeoff

import (
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// LEAVE CATEGORY
// =============================================================================

// Category identifies a kind of leave. The built-in set is registered on
// init; jurisdictions can register more with RegisterCategory.
type Category string

const (
	CategoryAnnual   Category = "annual" // statutory annual leave, tenure-based
	CategorySick     Category = "sick"
	CategoryPersonal Category = "personal"
	CategoryMarriage Category = "marriage"
)

var (
	categoryRegistry = make(map[Category]struct{})
	registryMu       sync.RWMutex
)

func init() {
	RegisterCategory(CategoryAnnual)
	RegisterCategory(CategorySick)
	RegisterCategory(CategoryPersonal)
	RegisterCategory(CategoryMarriage)
}

// RegisterCategory adds a category to the global registry.
// Call this from init() of packages that add leave kinds.
func RegisterCategory(c Category) {
	registryMu.Lock()
	defer registryMu.Unlock()
	categoryRegistry[c] = struct{}{}
}

// ParseCategory finds a registered category by name.
func ParseCategory(s string) (Category, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c := Category(s)
	if _, ok := categoryRegistry[c]; !ok {
		return "", fmt.Errorf("%w: %q", generic.ErrInvalidCategory, s)
	}
	return c, nil
}

// Categories returns all registered categories, sorted by name.
func Categories() []Category {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Category, 0, len(categoryRegistry))
	for c := range categoryRegistry {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// =============================================================================
// REQUEST STATUS & ACTIONS
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusCanceled Status = "canceled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusCanceled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown request status %q", s)
	}
}

// Terminal statuses accept no further workflow action except delete.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCanceled
}

// Action is a lifecycle operation on a request. Its string form is also the
// audit action tag.
type Action string

const (
	ActionCreate  Action = "create"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"
	ActionDelete  Action = "delete"
	ActionEdit    Action = "edit"
)
