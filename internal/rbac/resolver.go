package rbac

import "strings"

// Check answers whether a principal holding set s has permission token.
//
// Resolution order, short-circuiting:
//  1. "*" in s          -> true (super admin)
//  2. token unparsable  -> exact membership only (legacy tokens)
//  3. token verbatim in s
//  4. "<department>.*" in s
//  5. "*.<action>" in s
//
// A nil set is the empty set; Check never mutates s.
func Check(s Set, token Permission) bool {
	if s.Contains(Wildcard) {
		return true
	}
	parsed := Parse(token)
	if !parsed.Valid {
		// Non-standard or legacy token: only an exact grant can match.
		return s.Contains(token)
	}
	if parsed.SuperAdmin {
		// Bare "*" requested but not held.
		return false
	}
	if s.Contains(token) {
		return true
	}
	if s.Contains(DeptWildcard(parsed.Department)) {
		return true
	}
	return s.Contains(ActionWildcard(parsed.Action))
}

// HasDepartmentAccess reports whether any member of s grants anything in dept.
func HasDepartmentAccess(s Set, dept Department) bool {
	if s.Contains(Wildcard) {
		return true
	}
	for p := range s {
		d, _, found := strings.Cut(string(p), segment)
		if !found {
			continue
		}
		if Department(d) == dept || d == string(Wildcard) {
			return true
		}
	}
	return false
}

// HasFlowAccess reports whether any member of s grants the action in any department.
func HasFlowAccess(s Set, action Action) bool {
	if s.Contains(Wildcard) {
		return true
	}
	for p := range s {
		_, a, found := strings.Cut(string(p), segment)
		if !found {
			continue
		}
		if Action(a) == action || a == string(Wildcard) {
			return true
		}
	}
	return false
}

// AccessibleDepartments enumerates the distinct departments s grants anything
// in, in canonical order. A wildcard set short-circuits to all departments.
func AccessibleDepartments(s Set) []Department {
	if s.Contains(Wildcard) {
		return append([]Department(nil), Departments...)
	}
	seen := make(map[Department]bool)
	actionWide := false
	for p := range s {
		d, _, found := strings.Cut(string(p), segment)
		if !found {
			continue
		}
		if d == string(Wildcard) {
			actionWide = true
			continue
		}
		if dept := Department(d); dept.IsValid() {
			seen[dept] = true
		}
	}
	if actionWide {
		return append([]Department(nil), Departments...)
	}
	out := make([]Department, 0, len(seen))
	for _, dept := range Departments {
		if seen[dept] {
			out = append(out, dept)
		}
	}
	return out
}

// AccessibleActions enumerates the distinct actions s grants within dept, in
// canonical order. Wildcard and department-wide grants short-circuit to all.
func AccessibleActions(s Set, dept Department) []Action {
	if s.Contains(Wildcard) || s.Contains(DeptWildcard(dept)) {
		return append([]Action(nil), Actions...)
	}
	seen := make(map[Action]bool)
	for p := range s {
		d, a, found := strings.Cut(string(p), segment)
		if !found {
			continue
		}
		if Department(d) != dept && d != string(Wildcard) {
			continue
		}
		if action := Action(a); action.IsValid() {
			seen[action] = true
		}
	}
	out := make([]Action, 0, len(seen))
	for _, action := range Actions {
		if seen[action] {
			out = append(out, action)
		}
	}
	return out
}
