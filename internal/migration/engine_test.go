package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"torque/internal/docstore"
	"torque/internal/identity/models"
	"torque/internal/identity/store/principal"
	"torque/internal/identity/store/profile"
	"torque/internal/rbac"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

type EngineSuite struct {
	suite.Suite
	ctx        context.Context
	principals *principal.InMemoryStore
	profiles   *profile.DocStore
	engine     *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.principals = principal.New()
	s.profiles = profile.New(docstore.NewMemory())
	s.engine = NewEngine(s.principals, s.profiles)
}

func (s *EngineSuite) savePrincipal(legacy map[string]bool) *models.Principal {
	p := principalWith(legacy)
	s.Require().NoError(s.principals.Save(s.ctx, p))
	return p
}

func (s *EngineSuite) TestMigratesLegacyAdmin() {
	p := s.savePrincipal(map[string]bool{"permission601": true})

	prof, err := s.engine.MigrateIfNeeded(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(rbac.RoleProvinceManager, prof.Role)
	s.True(prof.Permissions.Contains(rbac.Combine(rbac.DeptAdmin, rbac.ActionApprove)))
	s.NotNil(prof.Geographic)
	s.True(prof.IsApproved)
	s.True(prof.IsActive)

	persisted, err := s.profiles.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(rbac.RoleProvinceManager, persisted.Role)
}

func (s *EngineSuite) TestIdempotent() {
	p := s.savePrincipal(map[string]bool{"permission201": true})

	first, err := s.engine.MigrateIfNeeded(s.ctx, p.ID)
	s.Require().NoError(err)

	// A second call must not re-derive, even if the legacy map changes.
	p.LegacyPermissions["permission601"] = true
	s.Require().NoError(s.principals.Save(s.ctx, p))

	second, err := s.engine.MigrateIfNeeded(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(first.Role, second.Role)
	s.Equal(first.Permissions, second.Permissions)
}

func (s *EngineSuite) TestFallbackForEmptyLegacyMap() {
	p := s.savePrincipal(nil)

	prof, err := s.engine.MigrateIfNeeded(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(rbac.RoleSalesStaff, prof.Role)
	s.True(prof.Permissions.Contains(rbac.Combine(rbac.DeptSales, rbac.ActionView)))
}

func (s *EngineSuite) TestPreservesApprovalFlagsOnExistingProfile() {
	p := s.savePrincipal(map[string]bool{"permission201": true})

	// Profile exists in the old shape: lifecycle flags set, no role, no set.
	existing := &models.RoleProfile{
		PrincipalID:    p.ID,
		IsApproved:     false,
		IsActive:       false,
		ApprovalStatus: models.ApprovalStatusPending,
	}
	s.Require().NoError(s.profiles.Create(s.ctx, existing))

	prof, err := s.engine.MigrateIfNeeded(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(rbac.RoleSalesStaff, prof.Role)
	s.False(prof.IsApproved)
	s.Equal(models.ApprovalStatusPending, prof.ApprovalStatus)
}

func (s *EngineSuite) TestValidationGateBlocksPersistence() {
	p := principalWith(map[string]bool{"permission201": true})
	p.HomeBranch = "XXX999"
	s.Require().NoError(s.principals.Save(s.ctx, p))

	_, err := s.engine.MigrateIfNeeded(s.ctx, p.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.profiles.Get(s.ctx, p.ID)
	s.Require().Error(err, "nothing may be persisted when scoping fails")
}

func (s *EngineSuite) TestUnknownPrincipal() {
	_, err := s.engine.MigrateIfNeeded(s.ctx, id.NewPrincipalID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
