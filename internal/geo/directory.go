package geo

// Province keys for the two operating provinces.
const (
	ProvinceNakhonSawan ProvinceKey = "nakhon-sawan"
	ProvincePhitsanulok ProvinceKey = "phitsanulok"
)

// provinceBranches is the complete province -> branches directory. The older
// Phitsanulok sites predate the lettered dealer codes and keep their numeric
// ones.
var provinceBranches = map[ProvinceKey][]BranchKey{
	ProvinceNakhonSawan: {"NSN001", "NSN002", "NSN003"},
	ProvincePhitsanulok: {"PLK001", "0450", "0451"},
}

// branchProvince is the reverse index, built once at init.
var branchProvince = func() map[BranchKey]ProvinceKey {
	idx := make(map[BranchKey]ProvinceKey)
	for province, branches := range provinceBranches {
		for _, b := range branches {
			idx[b] = province
		}
	}
	return idx
}()

// AllProvinces returns every known province key.
func AllProvinces() []ProvinceKey {
	return []ProvinceKey{ProvinceNakhonSawan, ProvincePhitsanulok}
}

// AllBranches returns every known branch key, grouped by province order.
func AllBranches() []BranchKey {
	var out []BranchKey
	for _, province := range AllProvinces() {
		out = append(out, provinceBranches[province]...)
	}
	return out
}

// BranchesOfProvince returns the branches of a province, or nil when the
// province is unknown.
func BranchesOfProvince(p ProvinceKey) []BranchKey {
	branches := provinceBranches[p]
	if branches == nil {
		return nil
	}
	return append([]BranchKey(nil), branches...)
}

// ProvinceOfBranch resolves the province a branch belongs to.
func ProvinceOfBranch(b BranchKey) (ProvinceKey, bool) {
	province, ok := branchProvince[b]
	return province, ok
}

// KnownProvince reports whether p is in the directory.
func KnownProvince(p ProvinceKey) bool {
	_, ok := provinceBranches[p]
	return ok
}

// KnownBranch reports whether b is in the directory.
func KnownBranch(b BranchKey) bool {
	_, ok := branchProvince[b]
	return ok
}
