package migration

import "torque/internal/rbac"

// legacyGrants is the finite legacy-key -> permission-list table. Migration
// consults it by exact lookup only; keys missing from the table contribute
// nothing. The numeric families follow the old scheme: x01 view/edit in a
// department, x02 review/approve on top of it.
var legacyGrants = map[string][]rbac.Permission{
	"permission101": {
		rbac.Combine(rbac.DeptAccounting, rbac.ActionView),
		rbac.Combine(rbac.DeptAccounting, rbac.ActionEdit),
	},
	"permission102": {
		rbac.Combine(rbac.DeptAccounting, rbac.ActionReview),
		rbac.Combine(rbac.DeptAccounting, rbac.ActionApprove),
	},
	"permission201": {
		rbac.Combine(rbac.DeptSales, rbac.ActionView),
		rbac.Combine(rbac.DeptSales, rbac.ActionEdit),
	},
	"permission202": {
		rbac.Combine(rbac.DeptSales, rbac.ActionReview),
		rbac.Combine(rbac.DeptSales, rbac.ActionApprove),
	},
	"permission301": {
		rbac.Combine(rbac.DeptService, rbac.ActionView),
		rbac.Combine(rbac.DeptService, rbac.ActionEdit),
	},
	"permission302": {
		rbac.Combine(rbac.DeptService, rbac.ActionReview),
		rbac.Combine(rbac.DeptService, rbac.ActionApprove),
	},
	"permission401": {
		rbac.Combine(rbac.DeptInventory, rbac.ActionView),
		rbac.Combine(rbac.DeptInventory, rbac.ActionEdit),
	},
	"permission402": {
		rbac.Combine(rbac.DeptInventory, rbac.ActionReview),
		rbac.Combine(rbac.DeptInventory, rbac.ActionApprove),
	},
	"permission501": {
		rbac.Combine(rbac.DeptHR, rbac.ActionView),
		rbac.Combine(rbac.DeptHR, rbac.ActionEdit),
	},
	"permission502": {
		rbac.Combine(rbac.DeptHR, rbac.ActionReview),
		rbac.Combine(rbac.DeptHR, rbac.ActionApprove),
	},
	// 6xx was the old administration block; 601 alone carried the full
	// admin triple.
	"permission601": {
		rbac.Combine(rbac.DeptAdmin, rbac.ActionView),
		rbac.Combine(rbac.DeptAdmin, rbac.ActionEdit),
		rbac.Combine(rbac.DeptAdmin, rbac.ActionApprove),
	},
	"permission602": {
		rbac.Combine(rbac.DeptUsers, rbac.ActionView),
		rbac.Combine(rbac.DeptUsers, rbac.ActionEdit),
		rbac.Combine(rbac.DeptUsers, rbac.ActionApprove),
		rbac.Combine(rbac.DeptUsers, rbac.ActionManage),
	},
	"permission701": {
		rbac.Combine(rbac.DeptReports, rbac.ActionView),
	},
	"permission801": {
		rbac.Combine(rbac.DeptNotifications, rbac.ActionView),
		rbac.Combine(rbac.DeptNotifications, rbac.ActionEdit),
	},
}
