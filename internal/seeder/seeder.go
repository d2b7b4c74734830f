// Package seeder populates the in-memory stores with demo data: a management
// chain with materialized profiles, plus legacy-era employees whose flat
// permission maps are still awaiting migration.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"torque/internal/geo"
	"torque/internal/identity/models"
	"torque/internal/rbac"
	id "torque/pkg/domain"
	"torque/pkg/secrets"
)

// PrincipalStore defines methods for seeding principals.
type PrincipalStore interface {
	Save(ctx context.Context, p *models.Principal) error
}

// ProfileStore defines methods for seeding role profiles.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.RoleProfile) error
}

// Seeder populates in-memory stores with demo data.
type Seeder struct {
	principals PrincipalStore
	profiles   ProfileStore
	logger     *slog.Logger
}

// New creates a new seeder.
func New(principals PrincipalStore, profiles ProfileStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		principals: principals,
		profiles:   profiles,
		logger:     logger,
	}
}

// DemoSecret is the password every seeded principal logs in with.
const DemoSecret = "torque-demo"

// SeedAll populates the stores with the demo roster.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	count, err := s.seedRoster(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed roster: %w", err)
	}

	s.logger.Info("demo data seeded successfully",
		"principals", count,
	)
	return nil
}

type demoPrincipal struct {
	email     string
	firstName string
	lastName  string

	homeBranch geo.BranchKey
	resigned   bool
	developer  bool
	executive  bool

	// legacy is the flat pre-migration permission map; profiled principals
	// leave it empty and get a materialized profile instead.
	legacy map[string]bool

	role rbac.RoleKey
	geo  *geo.Access
}

func (s *Seeder) seedRoster(ctx context.Context) (int, error) {
	roster := []demoPrincipal{
		{
			email: "root@torque.example", firstName: "Siriporn", lastName: "Rattanakul",
			homeBranch: "NSN001", role: rbac.RoleSuperAdmin,
			geo: &geo.Access{Level: geo.LevelAll},
		},
		{
			email: "director@torque.example", firstName: "Anan", lastName: "Wongsawat",
			homeBranch: "NSN001", executive: true, role: rbac.RoleExecutive,
			geo: &geo.Access{Level: geo.LevelAll},
		},
		{
			email: "nsn.manager@torque.example", firstName: "Kanda", lastName: "Srisuwan",
			homeBranch: "NSN001", role: rbac.RoleProvinceManager,
			geo: &geo.Access{
				Level:            geo.LevelProvince,
				AllowedProvinces: []geo.ProvinceKey{geo.ProvinceNakhonSawan},
				HomeProvince:     geo.ProvinceNakhonSawan,
				HomeBranch:       "NSN001",
			},
		},
		{
			email: "plk.manager@torque.example", firstName: "Prasert", lastName: "Chaiyasit",
			homeBranch: "PLK001", role: rbac.RoleProvinceManager,
			geo: &geo.Access{
				Level:            geo.LevelProvince,
				AllowedProvinces: []geo.ProvinceKey{geo.ProvincePhitsanulok},
				HomeProvince:     geo.ProvincePhitsanulok,
				HomeBranch:       "PLK001",
			},
		},
		{
			email: "nsn002.manager@torque.example", firstName: "Malee", lastName: "Thongchai",
			homeBranch: "NSN002", role: rbac.RoleBranchManager,
			geo: &geo.Access{
				Level:           geo.LevelBranch,
				AllowedBranches: []geo.BranchKey{"NSN002"},
				HomeProvince:    geo.ProvinceNakhonSawan,
				HomeBranch:      "NSN002",
			},
		},
		// Legacy-era staff: flat permission maps, no profile yet.
		{
			email: "sales.somchai@torque.example", firstName: "Somchai", lastName: "Phongpanich",
			homeBranch: "NSN002",
			legacy:     map[string]bool{"permission201": true, "permission202": true},
		},
		{
			email: "books.nok@torque.example", firstName: "Nok", lastName: "Suwannarat",
			homeBranch: "PLK001",
			legacy:     map[string]bool{"permission101": true, "permission102": true, "permission701": true},
		},
		{
			email: "admin.lek@torque.example", firstName: "Lek", lastName: "Jaturapat",
			homeBranch: "0450",
			legacy:     map[string]bool{"permission601": true},
		},
		{
			email: "former.wichai@torque.example", firstName: "Wichai", lastName: "Boonmee",
			homeBranch: "NSN003", resigned: true,
		},
	}

	hash, err := secrets.Hash(DemoSecret)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, d := range roster {
		p := &models.Principal{
			ID:                 id.NewPrincipalID(),
			Email:              d.email,
			SecretHash:         hash,
			FirstName:          d.firstName,
			LastName:           d.lastName,
			IsDeveloper:        d.developer,
			IsExecutive:        d.executive,
			IsResignedEmployee: d.resigned,
			HomeBranch:         d.homeBranch,
			LegacyPermissions:  d.legacy,
			CreatedAt:          now,
		}
		if err := s.principals.Save(ctx, p); err != nil {
			return 0, err
		}

		if d.role == "" {
			continue
		}
		perms, ok := rbac.RolePermissions[d.role]
		if !ok {
			return 0, fmt.Errorf("no permission catalogue entry for role %q", d.role)
		}
		prof := &models.RoleProfile{
			PrincipalID:    p.ID,
			Permissions:    perms,
			Role:           d.role,
			Geographic:     d.geo,
			IsApproved:     true,
			IsActive:       true,
			ApprovalStatus: models.ApprovalStatusApproved,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.profiles.Create(ctx, prof); err != nil {
			return 0, err
		}
	}
	return len(roster), nil
}
