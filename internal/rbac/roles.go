package rbac

// RoleKey names a predefined role in the static registry.
type RoleKey string

const (
	RoleSuperAdmin      RoleKey = "super_admin"
	RoleExecutive       RoleKey = "executive"
	RoleProvinceManager RoleKey = "province_manager"
	RoleBranchManager   RoleKey = "branch_manager"
	RoleAccountingStaff RoleKey = "accounting_staff"
	RoleSalesStaff      RoleKey = "sales_staff"
	RoleServiceStaff    RoleKey = "service_staff"
	RoleInventoryStaff  RoleKey = "inventory_staff"
	RoleHRStaff         RoleKey = "hr_staff"
)

// Roles lists every predefined role key.
var Roles = []RoleKey{
	RoleSuperAdmin,
	RoleExecutive,
	RoleProvinceManager,
	RoleBranchManager,
	RoleAccountingStaff,
	RoleSalesStaff,
	RoleServiceStaff,
	RoleInventoryStaff,
	RoleHRStaff,
}

func (r RoleKey) IsValid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r RoleKey) String() string { return string(r) }

// IsManagerial reports whether the role carries approval authority over other
// principals' applications.
func (r RoleKey) IsManagerial() bool {
	switch r {
	case RoleSuperAdmin, RoleExecutive, RoleProvinceManager, RoleBranchManager:
		return true
	default:
		return false
	}
}

// RolePermissions is the canonical role -> permission-set catalogue.
// Staff roles get view/edit in their own department plus read-only reports;
// branch managers add review/approve over the operating departments; province
// managers additionally carry admin and user management grants.
var RolePermissions = map[RoleKey]Set{
	RoleSuperAdmin: NewSet(Wildcard),
	RoleExecutive:  NewSet(Wildcard),
	RoleProvinceManager: NewSet(
		Combine(DeptAccounting, ActionView), Combine(DeptAccounting, ActionEdit),
		Combine(DeptAccounting, ActionReview), Combine(DeptAccounting, ActionApprove),
		Combine(DeptSales, ActionView), Combine(DeptSales, ActionEdit),
		Combine(DeptSales, ActionReview), Combine(DeptSales, ActionApprove),
		Combine(DeptService, ActionView), Combine(DeptService, ActionEdit),
		Combine(DeptService, ActionReview), Combine(DeptService, ActionApprove),
		Combine(DeptInventory, ActionView), Combine(DeptInventory, ActionEdit),
		Combine(DeptInventory, ActionReview), Combine(DeptInventory, ActionApprove),
		Combine(DeptHR, ActionView), Combine(DeptHR, ActionEdit),
		Combine(DeptHR, ActionReview), Combine(DeptHR, ActionApprove),
		Combine(DeptManagement, ActionView), Combine(DeptManagement, ActionEdit),
		Combine(DeptAdmin, ActionView), Combine(DeptAdmin, ActionEdit),
		Combine(DeptAdmin, ActionApprove),
		Combine(DeptUsers, ActionView), Combine(DeptUsers, ActionEdit),
		Combine(DeptUsers, ActionApprove), Combine(DeptUsers, ActionManage),
		Combine(DeptReports, ActionView),
		Combine(DeptNotifications, ActionView), Combine(DeptNotifications, ActionEdit),
	),
	RoleBranchManager: NewSet(
		Combine(DeptAccounting, ActionView), Combine(DeptAccounting, ActionReview),
		Combine(DeptSales, ActionView), Combine(DeptSales, ActionEdit),
		Combine(DeptSales, ActionReview), Combine(DeptSales, ActionApprove),
		Combine(DeptService, ActionView), Combine(DeptService, ActionEdit),
		Combine(DeptService, ActionReview), Combine(DeptService, ActionApprove),
		Combine(DeptInventory, ActionView), Combine(DeptInventory, ActionReview),
		Combine(DeptUsers, ActionView), Combine(DeptUsers, ActionApprove),
		Combine(DeptReports, ActionView),
		Combine(DeptNotifications, ActionView),
	),
	RoleAccountingStaff: NewSet(
		Combine(DeptAccounting, ActionView), Combine(DeptAccounting, ActionEdit),
		Combine(DeptReports, ActionView),
	),
	RoleSalesStaff: NewSet(
		Combine(DeptSales, ActionView), Combine(DeptSales, ActionEdit),
		Combine(DeptReports, ActionView),
	),
	RoleServiceStaff: NewSet(
		Combine(DeptService, ActionView), Combine(DeptService, ActionEdit),
		Combine(DeptReports, ActionView),
	),
	RoleInventoryStaff: NewSet(
		Combine(DeptInventory, ActionView), Combine(DeptInventory, ActionEdit),
		Combine(DeptReports, ActionView),
	),
	RoleHRStaff: NewSet(
		Combine(DeptHR, ActionView), Combine(DeptHR, ActionEdit),
		Combine(DeptReports, ActionView),
	),
}

// StaffRoleForDepartment maps an operating department to its staff role.
// Departments without a dedicated staff role fall back to sales staff, the
// narrowest generally-applicable default.
func StaffRoleForDepartment(d Department) RoleKey {
	switch d {
	case DeptAccounting:
		return RoleAccountingStaff
	case DeptSales:
		return RoleSalesStaff
	case DeptService:
		return RoleServiceStaff
	case DeptInventory:
		return RoleInventoryStaff
	case DeptHR:
		return RoleHRStaff
	default:
		return RoleSalesStaff
	}
}
