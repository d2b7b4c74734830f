// Package geo resolves geographic access scope: the province/branch subtree a
// principal may act within, and the filtering of record collections down to
// that subtree. Unknown access levels fail closed.
package geo

// ProvinceKey identifies a province in the dealership network.
type ProvinceKey string

// BranchKey identifies a branch. Keys are dealer codes; older branches still
// carry their numeric codes.
type BranchKey string

// AccessLevel is the breadth of a principal's geographic grant.
type AccessLevel string

const (
	LevelAll      AccessLevel = "all"
	LevelProvince AccessLevel = "province"
	LevelBranch   AccessLevel = "branch"
)

func (l AccessLevel) IsValid() bool {
	return l == LevelAll || l == LevelProvince || l == LevelBranch
}

// Access describes a principal's geographic grant.
//
// Invariants: at level "all" the allowed sets are ignored (universal); at level
// "province" AllowedBranches is derived from AllowedProvinces and must never
// restrict beyond the province grant; at level "branch" only AllowedBranches
// is authoritative.
type Access struct {
	Level            AccessLevel    `json:"access_level"`
	AllowedProvinces []ProvinceKey  `json:"allowed_provinces"`
	AllowedBranches  []BranchKey    `json:"allowed_branches"`
	HomeProvince     ProvinceKey    `json:"home_province"`
	HomeBranch       BranchKey      `json:"home_branch"`
}

// Context is the province/branch a caller wants to act within. Zero-value
// fields mean "not specified".
type Context struct {
	Province ProvinceKey
	Branch   BranchKey
}

func (a Access) allowsProvince(p ProvinceKey) bool {
	for _, allowed := range a.AllowedProvinces {
		if allowed == p {
			return true
		}
	}
	return false
}

func (a Access) allowsBranch(b BranchKey) bool {
	for _, allowed := range a.AllowedBranches {
		if allowed == b {
			return true
		}
	}
	return false
}

// Check answers whether the grant covers the requested context. An empty
// context requests no restriction and is always allowed; an unrecognized
// access level denies everything.
func Check(a Access, ctx Context) bool {
	switch a.Level {
	case LevelAll:
		return true
	case LevelProvince:
		if ctx.Branch != "" {
			province, ok := ProvinceOfBranch(ctx.Branch)
			return ok && a.allowsProvince(province)
		}
		if ctx.Province != "" {
			return a.allowsProvince(ctx.Province)
		}
		return true
	case LevelBranch:
		if ctx.Branch != "" {
			return a.allowsBranch(ctx.Branch)
		}
		if ctx.Province != "" {
			for _, b := range a.AllowedBranches {
				if province, ok := ProvinceOfBranch(b); ok && province == ctx.Province {
					return true
				}
			}
			return false
		}
		return true
	default:
		// Fail closed on unknown levels, never open.
		return false
	}
}

// Tag is the geographic labeling of one record.
type Tag struct {
	Province ProvinceKey
	Branch   BranchKey
}

// Filter keeps the subset of records the grant may see. The result is always a
// subset of the input, and equals it at level "all".
//
// At branch level, records carrying only a province tag are resolved through
// the province->branches directory: the record survives if any allowed branch
// sits in that province. That fallback is best-effort - callers must not rely
// on it for records that lack any branch affiliation, which are dropped.
func Filter[T any](records []T, a Access, tag func(T) Tag) []T {
	if a.Level == LevelAll {
		return records
	}
	var out []T
	for _, rec := range records {
		t := tag(rec)
		switch a.Level {
		case LevelProvince:
			if t.Province != "" && a.allowsProvince(t.Province) {
				out = append(out, rec)
				continue
			}
			if t.Branch != "" {
				if province, ok := ProvinceOfBranch(t.Branch); ok && a.allowsProvince(province) {
					out = append(out, rec)
				}
			}
		case LevelBranch:
			if t.Branch != "" {
				if a.allowsBranch(t.Branch) {
					out = append(out, rec)
				}
				continue
			}
			if t.Province != "" {
				for _, b := range a.AllowedBranches {
					if province, ok := ProvinceOfBranch(b); ok && province == t.Province {
						out = append(out, rec)
						break
					}
				}
			}
		}
	}
	return out
}
