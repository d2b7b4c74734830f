// Package migration upgrades principals still carrying the legacy flat
// boolean-permission map into materialized role profiles. The upgrade is a
// ratchet: once a profile exists in the new shape it is never re-derived.
package migration

import (
	"strings"
	"time"

	"torque/internal/geo"
	"torque/internal/identity/models"
	"torque/internal/rbac"
	dErrors "torque/pkg/domain-errors"
)

// NeedsMigration reports whether the principal still requires the one-time
// upgrade. False as soon as the profile carries a role or a materialized
// permission set, even an empty one. True only when the principal is flagged
// developer or has at least one truthy legacy key.
func NeedsMigration(p *models.Principal, prof *models.RoleProfile) bool {
	if prof != nil && (prof.HasRole() || prof.Permissions != nil) {
		return false
	}
	if p.IsDeveloper {
		return true
	}
	for _, granted := range p.LegacyPermissions {
		if granted {
			return true
		}
	}
	return false
}

// MigrateLegacyPermissions expands every truthy legacy key through the grant
// table and unions the results. The developer flag short-circuits to the
// universal wildcard.
func MigrateLegacyPermissions(p *models.Principal) rbac.Set {
	if p.IsDeveloper {
		return rbac.NewSet(rbac.Wildcard)
	}
	set := rbac.NewSet()
	for key, granted := range p.LegacyPermissions {
		if !granted {
			continue
		}
		for _, perm := range legacyGrants[key] {
			set[perm] = struct{}{}
		}
	}
	return set
}

// DetermineRole infers the role a migrated permission set implies.
//
// Rule order (first match wins):
//  1. wildcard or developer flag -> super admin, refined to the executive
//     variant when the principal is explicitly flagged executive
//  2. admin.edit or admin.approve -> province manager
//  3. approve/review grants spanning two or more departments -> branch manager
//  4. otherwise the staff role of the dominant department (most grants, ties
//     broken by enumeration order), defaulting to sales staff
func DetermineRole(set rbac.Set, p *models.Principal) rbac.RoleKey {
	if set.Contains(rbac.Wildcard) || p.IsDeveloper {
		if p.IsExecutive {
			return rbac.RoleExecutive
		}
		return rbac.RoleSuperAdmin
	}

	if set.Contains(rbac.Combine(rbac.DeptAdmin, rbac.ActionEdit)) ||
		set.Contains(rbac.Combine(rbac.DeptAdmin, rbac.ActionApprove)) {
		return rbac.RoleProvinceManager
	}

	reviewDepts := make(map[rbac.Department]bool)
	for perm := range set {
		parsed := rbac.Parse(perm)
		if !parsed.Valid {
			continue
		}
		if parsed.Action == rbac.ActionApprove || parsed.Action == rbac.ActionReview {
			reviewDepts[parsed.Department] = true
		}
	}
	if len(reviewDepts) >= 2 {
		return rbac.RoleBranchManager
	}

	counts := make(map[rbac.Department]int)
	for perm := range set {
		d, _, found := strings.Cut(string(perm), ".")
		if !found {
			continue
		}
		if dept := rbac.Department(d); dept.IsValid() {
			counts[dept]++
		}
	}
	var dominant rbac.Department
	best := 0
	for _, dept := range rbac.Departments {
		if counts[dept] > best {
			best = counts[dept]
			dominant = dept
		}
	}
	if best == 0 {
		return rbac.RoleSalesStaff
	}
	return rbac.StaffRoleForDepartment(dominant)
}

// SynthesizeGeographicAccess builds the geographic descriptor a migrated role
// implies. Super admins see everything; a province manager is scoped to the
// province of the principal's home branch; everyone else gets exactly the
// home branch. A principal whose home branch is not in the directory cannot
// be scoped and surfaces a validation error - never a silent default.
func SynthesizeGeographicAccess(p *models.Principal, role rbac.RoleKey) (*geo.Access, error) {
	if role == rbac.RoleSuperAdmin || role == rbac.RoleExecutive {
		access := &geo.Access{
			Level:            geo.LevelAll,
			AllowedProvinces: geo.AllProvinces(),
			AllowedBranches:  geo.AllBranches(),
		}
		if province, ok := geo.ProvinceOfBranch(p.HomeBranch); ok {
			access.HomeProvince = province
			access.HomeBranch = p.HomeBranch
		}
		return access, nil
	}

	province, ok := geo.ProvinceOfBranch(p.HomeBranch)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "home branch is not in the branch directory")
	}

	if role == rbac.RoleProvinceManager {
		return &geo.Access{
			Level:            geo.LevelProvince,
			AllowedProvinces: []geo.ProvinceKey{province},
			AllowedBranches:  geo.BranchesOfProvince(province),
			HomeProvince:     province,
			HomeBranch:       p.HomeBranch,
		}, nil
	}

	return &geo.Access{
		Level:            geo.LevelBranch,
		AllowedProvinces: []geo.ProvinceKey{province},
		AllowedBranches:  []geo.BranchKey{p.HomeBranch},
		HomeProvince:     province,
		HomeBranch:       p.HomeBranch,
	}, nil
}

// ValidateProfile is the structural post-condition gate consulted before a
// migrated profile is persisted. A failing validation blocks the write.
func ValidateProfile(prof *models.RoleProfile) bool {
	if prof == nil || prof.PrincipalID.IsNil() {
		return false
	}
	if prof.Permissions == nil {
		return false
	}
	if !prof.HasRole() {
		return false
	}
	g := prof.Geographic
	if g == nil || !g.Level.IsValid() {
		return false
	}
	return g.AllowedProvinces != nil && g.AllowedBranches != nil
}

// FallbackProfile materializes the narrowest default profile for a principal
// with no legacy permissions at all, so nobody is left with an undefined
// profile.
func FallbackProfile(p *models.Principal, now time.Time) (*models.RoleProfile, error) {
	access, err := SynthesizeGeographicAccess(p, rbac.RoleSalesStaff)
	if err != nil {
		return nil, err
	}
	perms := rbac.RolePermissions[rbac.RoleSalesStaff]
	return &models.RoleProfile{
		PrincipalID:    p.ID,
		Permissions:    perms.Union(nil),
		Role:           rbac.RoleSalesStaff,
		Geographic:     access,
		IsApproved:     true,
		IsActive:       true,
		ApprovalStatus: models.ApprovalStatusApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
