package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"torque/internal/approval/models"
	"torque/internal/approval/service/mocks"
	"torque/internal/approval/store/request"
	"torque/internal/docstore"
	"torque/internal/geo"
	imodels "torque/internal/identity/models"
	"torque/internal/identity/store/principal"
	"torque/internal/identity/store/profile"
	"torque/internal/notify"
	"torque/internal/rbac"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

// NotificationSuite pins down the collaborator contract around the workflow:
// who gets told what, and that delivery failures never fail a transition.
type NotificationSuite struct {
	suite.Suite
	ctx  context.Context
	ctrl *gomock.Controller

	principals *principal.InMemoryStore
	profiles   *profile.DocStore
	requests   *request.DocStore

	notifier *mocks.MockNotifier
	revoker  *mocks.MockSessionRevoker
	auditor  *mocks.MockAuditPublisher
	service  *Service

	applicant *imodels.Principal
	approver  id.PrincipalID
}

func TestNotificationSuite(t *testing.T) {
	suite.Run(t, new(NotificationSuite))
}

func (s *NotificationSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())

	docs := docstore.NewMemory()
	s.principals = principal.New()
	s.profiles = profile.New(docs)
	s.requests = request.New(docs)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.revoker = mocks.NewMockSessionRevoker(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)

	s.service = New(s.requests, s.profiles, s.principals,
		WithNotifier(s.notifier),
		WithSessionRevoker(s.revoker),
		WithAuditPublisher(s.auditor),
	)

	s.applicant = &imodels.Principal{
		ID:         id.NewPrincipalID(),
		Email:      "applicant@torque.example",
		HomeBranch: "NSN002",
	}
	s.Require().NoError(s.principals.Save(s.ctx, s.applicant))

	s.approver = id.NewPrincipalID()
	s.Require().NoError(s.principals.Save(s.ctx, &imodels.Principal{
		ID:         s.approver,
		Email:      "manager@torque.example",
		HomeBranch: "NSN001",
	}))
	now := time.Now()
	s.Require().NoError(s.profiles.Create(s.ctx, &imodels.RoleProfile{
		PrincipalID: s.approver,
		Permissions: rbac.RolePermissions[rbac.RoleProvinceManager],
		Role:        rbac.RoleProvinceManager,
		Geographic: &geo.Access{
			Level:            geo.LevelProvince,
			AllowedProvinces: []geo.ProvinceKey{geo.ProvinceNakhonSawan},
			AllowedBranches:  geo.BranchesOfProvince(geo.ProvinceNakhonSawan),
			HomeProvince:     geo.ProvinceNakhonSawan,
			HomeBranch:       "NSN001",
		},
		IsApproved:     true,
		IsActive:       true,
		ApprovalStatus: imodels.ApprovalStatusApproved,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))
}

func (s *NotificationSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *NotificationSuite) TestSubmitFansOutToBothProvinceTierAudiences() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	var audiences []notify.Audience
	s.notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, audience notify.Audience, payload notify.Payload) error {
			s.Equal("approval_request", payload.Kind)
			audiences = append(audiences, audience)
			return nil
		}).
		Times(2)

	_, err := s.service.Submit(s.ctx, SubmitRequest{
		PrincipalID:  s.applicant.ID,
		RequestType:  models.RequestTypeNewEmployee,
		TargetBranch: "NSN002",
	})
	s.Require().NoError(err)

	var branchScoped, provinceWide bool
	for _, a := range audiences {
		s.Equal(geo.ProvinceNakhonSawan, a.Province)
		if a.Branch == "NSN002" {
			branchScoped = true
		}
		if a.Branch == "" {
			provinceWide = true
		}
	}
	s.True(branchScoped)
	s.True(provinceWide)
}

func (s *NotificationSuite) TestSubmitBranchTierNotifiesSingleAudience() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		Times(1)

	_, err := s.service.Submit(s.ctx, SubmitRequest{
		PrincipalID:  s.applicant.ID,
		RequestType:  models.RequestTypeExistingEmployee,
		TargetBranch: "NSN002",
	})
	s.Require().NoError(err)
}

func (s *NotificationSuite) TestNotificationFailureDoesNotFailSubmission() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeUnavailable, "push gateway down")).
		AnyTimes()

	req, err := s.service.Submit(s.ctx, SubmitRequest{
		PrincipalID:  s.applicant.ID,
		RequestType:  models.RequestTypeNewEmployee,
		TargetBranch: "NSN002",
	})
	s.Require().NoError(err)
	s.Equal(models.RequestStatusPending, req.Status)
}

func (s *NotificationSuite) TestDecisionNotifiesApplicant() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	req, err := s.service.Submit(s.ctx, SubmitRequest{
		PrincipalID:  s.applicant.ID,
		RequestType:  models.RequestTypeNewEmployee,
		TargetBranch: "NSN002",
	})
	s.Require().NoError(err)

	s.notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ notify.Audience, payload notify.Payload) error {
			s.Equal("approval_decision", payload.Kind)
			s.Equal(s.applicant.ID.String(), payload.PrincipalID)
			return nil
		}).
		Times(1)

	s.Require().NoError(s.service.Approve(s.ctx, s.approver, req.ID))
}

func (s *NotificationSuite) TestSuspendSurvivesRevokerFailure() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	req, err := s.service.Submit(s.ctx, SubmitRequest{
		PrincipalID:  s.applicant.ID,
		RequestType:  models.RequestTypeNewEmployee,
		TargetBranch: "NSN002",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.service.Approve(s.ctx, s.approver, req.ID))

	s.revoker.EXPECT().
		RevokeSessions(gomock.Any(), s.applicant.ID).
		Return(0, dErrors.New(dErrors.CodeUnavailable, "session store down"))

	s.Require().NoError(s.service.Suspend(s.ctx, s.approver, s.applicant.ID, "policy violation"))

	prof, err := s.profiles.Get(s.ctx, s.applicant.ID)
	s.Require().NoError(err)
	s.Equal(imodels.ApprovalStatusSuspended, prof.ApprovalStatus)
}
