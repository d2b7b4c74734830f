// Package rbac defines the permission grammar, the static role registry, and
// the permission resolver for the dealership access-control core.
//
// A permission is a string token "<department>.<action>", or the universal
// wildcard "*". Department-wide ("sales.*") and action-wide ("*.approve")
// wildcards are legal set members and expand resolution without enumeration.
package rbac

import (
	"encoding/json"
	"sort"
	"strings"
)

// Department is one of the closed set of dealership departments.
type Department string

const (
	DeptAccounting    Department = "accounting"
	DeptSales         Department = "sales"
	DeptService       Department = "service"
	DeptInventory     Department = "inventory"
	DeptHR            Department = "hr"
	DeptManagement    Department = "management"
	DeptAdmin         Department = "admin"
	DeptUsers         Department = "users"
	DeptReports       Department = "reports"
	DeptNotifications Department = "notifications"
)

// Departments lists every department in canonical enumeration order.
// The order is load-bearing: the migration engine breaks dominant-department
// ties by this order.
var Departments = []Department{
	DeptAccounting,
	DeptSales,
	DeptService,
	DeptInventory,
	DeptHR,
	DeptManagement,
	DeptAdmin,
	DeptUsers,
	DeptReports,
	DeptNotifications,
}

func (d Department) IsValid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

func (d Department) String() string { return string(d) }

// Action is one of the closed set of flow actions.
type Action string

const (
	ActionView    Action = "view"
	ActionEdit    Action = "edit"
	ActionReview  Action = "review"
	ActionApprove Action = "approve"
	ActionManage  Action = "manage"
)

// Actions lists every action in canonical enumeration order.
var Actions = []Action{ActionView, ActionEdit, ActionReview, ActionApprove, ActionManage}

func (a Action) IsValid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

func (a Action) String() string { return string(a) }

// Permission is an immutable "<department>.<action>" token or the wildcard "*".
type Permission string

// Wildcard grants everything; a set containing it belongs to a super admin.
const Wildcard Permission = "*"

const segment = "."

// Parsed is the decomposition of a permission token.
type Parsed struct {
	Department Department
	Action     Action
	Valid      bool
	SuperAdmin bool
}

// Parse splits a token on ".". The bare wildcard yields SuperAdmin; any other
// single-segment token, or a token whose halves are outside their enumerations,
// yields Valid=false. Parse never errors - invalid tokens are data, not faults,
// because legacy catalogues may still carry them.
func Parse(token Permission) Parsed {
	if token == Wildcard {
		return Parsed{Valid: true, SuperAdmin: true}
	}
	dept, action, found := strings.Cut(string(token), segment)
	if !found {
		return Parsed{}
	}
	p := Parsed{Department: Department(dept), Action: Action(action)}
	p.Valid = p.Department.IsValid() && p.Action.IsValid()
	return p
}

// Combine constructs the token for a department/action pair.
// It is the inverse of Parse for valid inputs.
func Combine(d Department, a Action) Permission {
	return Permission(string(d) + segment + string(a))
}

// DeptWildcard is the department-wide grant token, e.g. "sales.*".
func DeptWildcard(d Department) Permission {
	return Permission(string(d) + segment + string(Wildcard))
}

// ActionWildcard is the action-wide grant token, e.g. "*.approve".
func ActionWildcard(a Action) Permission {
	return Permission(string(Wildcard) + segment + string(a))
}

// Set is an unordered collection of permission tokens, duplicates collapsed.
// A nil Set behaves as the empty set everywhere; resolvers never mutate one.
type Set map[Permission]struct{}

// NewSet builds a Set from tokens.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Contains reports exact membership, without wildcard expansion.
func (s Set) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Union returns a new Set holding the members of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// Slice returns the members sorted for deterministic persistence and logging.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON persists a Set as a sorted string array. A nil Set stays null
// so an unmaterialized set remains distinguishable from an empty one after a
// round trip.
func (s Set) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.Slice())
}

// UnmarshalJSON accepts a string array, collapsing duplicates.
func (s *Set) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var perms []Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*s = NewSet(perms...)
	return nil
}
