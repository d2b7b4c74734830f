package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"torque/internal/geo"
	"torque/internal/identity/models"
	"torque/internal/rbac"
	id "torque/pkg/domain"
)

type RulesSuite struct {
	suite.Suite
}

func TestRulesSuite(t *testing.T) {
	suite.Run(t, new(RulesSuite))
}

func principalWith(legacy map[string]bool) *models.Principal {
	return &models.Principal{
		ID:                id.NewPrincipalID(),
		Email:             "test@torque.example",
		HomeBranch:        "NSN001",
		LegacyPermissions: legacy,
	}
}

func (s *RulesSuite) TestNeedsMigration() {
	s.Run("legacy keys trigger migration", func() {
		p := principalWith(map[string]bool{"permission201": true})
		s.True(NeedsMigration(p, nil))
	})

	s.Run("falsy keys alone do not", func() {
		p := principalWith(map[string]bool{"permission201": false})
		s.False(NeedsMigration(p, nil))
	})

	s.Run("developer flag triggers migration", func() {
		p := principalWith(nil)
		p.IsDeveloper = true
		s.True(NeedsMigration(p, nil))
	})

	s.Run("ratchet: materialized profile blocks re-derivation", func() {
		p := principalWith(map[string]bool{"permission201": true})
		prof := &models.RoleProfile{Role: rbac.RoleSalesStaff}
		s.False(NeedsMigration(p, prof))

		// Even an empty permission set counts as materialized.
		prof = &models.RoleProfile{Permissions: rbac.NewSet()}
		s.False(NeedsMigration(p, prof))
	})
}

func (s *RulesSuite) TestMigrateLegacyPermissions() {
	s.Run("expands and unions grant families", func() {
		p := principalWith(map[string]bool{
			"permission201": true,
			"permission202": true,
			"permission701": true,
		})
		set := MigrateLegacyPermissions(p)

		s.True(set.Contains(rbac.Combine(rbac.DeptSales, rbac.ActionView)))
		s.True(set.Contains(rbac.Combine(rbac.DeptSales, rbac.ActionEdit)))
		s.True(set.Contains(rbac.Combine(rbac.DeptSales, rbac.ActionReview)))
		s.True(set.Contains(rbac.Combine(rbac.DeptSales, rbac.ActionApprove)))
		s.True(set.Contains(rbac.Combine(rbac.DeptReports, rbac.ActionView)))
		s.Len(set, 5)
	})

	s.Run("unknown keys contribute nothing", func() {
		p := principalWith(map[string]bool{"permission999": true})
		s.Empty(MigrateLegacyPermissions(p))
	})

	s.Run("developer short-circuits to wildcard", func() {
		p := principalWith(map[string]bool{"permission201": true})
		p.IsDeveloper = true
		set := MigrateLegacyPermissions(p)
		s.True(set.Contains(rbac.Wildcard))
		s.Len(set, 1)
	})
}

func (s *RulesSuite) TestDetermineRole() {
	s.Run("wildcard yields super admin", func() {
		p := principalWith(nil)
		s.Equal(rbac.RoleSuperAdmin, DetermineRole(rbac.NewSet(rbac.Wildcard), p))
	})

	s.Run("executive flag refines the wildcard", func() {
		p := principalWith(nil)
		p.IsExecutive = true
		s.Equal(rbac.RoleExecutive, DetermineRole(rbac.NewSet(rbac.Wildcard), p))
	})

	s.Run("admin triple yields province manager", func() {
		p := principalWith(map[string]bool{"permission601": true})
		set := MigrateLegacyPermissions(p)
		s.Equal(rbac.RoleProvinceManager, DetermineRole(set, p))
	})

	s.Run("approve grants across two departments yield branch manager", func() {
		p := principalWith(map[string]bool{
			"permission202": true,
			"permission302": true,
		})
		set := MigrateLegacyPermissions(p)
		s.Equal(rbac.RoleBranchManager, DetermineRole(set, p))
	})

	s.Run("single-department approve stays staff", func() {
		p := principalWith(map[string]bool{
			"permission201": true,
			"permission202": true,
		})
		set := MigrateLegacyPermissions(p)
		s.Equal(rbac.RoleSalesStaff, DetermineRole(set, p))
	})

	s.Run("dominant department picks the staff role", func() {
		p := principalWith(map[string]bool{
			"permission501": true,
			"permission701": true,
		})
		set := MigrateLegacyPermissions(p)
		s.Equal(rbac.RoleHRStaff, DetermineRole(set, p))
	})

	s.Run("empty set defaults to sales staff", func() {
		p := principalWith(nil)
		s.Equal(rbac.RoleSalesStaff, DetermineRole(rbac.NewSet(), p))
	})
}

func (s *RulesSuite) TestSynthesizeGeographicAccess() {
	s.Run("super admin sees everything", func() {
		p := principalWith(nil)
		access, err := SynthesizeGeographicAccess(p, rbac.RoleSuperAdmin)
		s.Require().NoError(err)
		s.Equal(geo.LevelAll, access.Level)
		s.Equal(geo.AllProvinces(), access.AllowedProvinces)
	})

	s.Run("province manager is scoped to the home province", func() {
		p := principalWith(nil)
		p.HomeBranch = "0450"
		access, err := SynthesizeGeographicAccess(p, rbac.RoleProvinceManager)
		s.Require().NoError(err)
		s.Equal(geo.LevelProvince, access.Level)
		s.Equal([]geo.ProvinceKey{geo.ProvincePhitsanulok}, access.AllowedProvinces)
		s.Equal(geo.BranchesOfProvince(geo.ProvincePhitsanulok), access.AllowedBranches)
	})

	s.Run("staff are scoped to exactly the home branch", func() {
		p := principalWith(nil)
		access, err := SynthesizeGeographicAccess(p, rbac.RoleSalesStaff)
		s.Require().NoError(err)
		s.Equal(geo.LevelBranch, access.Level)
		s.Equal([]geo.BranchKey{geo.BranchKey("NSN001")}, access.AllowedBranches)
	})

	s.Run("unknown home branch is a validation error, never a default", func() {
		p := principalWith(nil)
		p.HomeBranch = "XXX999"
		_, err := SynthesizeGeographicAccess(p, rbac.RoleSalesStaff)
		s.Require().Error(err)
	})
}

func (s *RulesSuite) TestValidateProfile() {
	p := principalWith(nil)
	valid, err := FallbackProfile(p, time.Now())
	s.Require().NoError(err)
	s.True(ValidateProfile(valid))

	s.Run("missing role fails", func() {
		broken := *valid
		broken.Role = ""
		s.False(ValidateProfile(&broken))
	})

	s.Run("missing geographic descriptor fails", func() {
		broken := *valid
		broken.Geographic = nil
		s.False(ValidateProfile(&broken))
	})

	s.Run("nil permission set fails", func() {
		broken := *valid
		broken.Permissions = nil
		s.False(ValidateProfile(&broken))
	})
}
