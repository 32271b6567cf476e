package shared

// Role ids match the user_roles reference table.
const (
	RoleAdmin            int64 = 1
	RoleForeman          int64 = 2
	RoleSiteManager      int64 = 3
	RolePurchasingAgent  int64 = 4
	RolePlanningEngineer int64 = 5
	RoleMainEngineer     int64 = 6
	RoleWarehouseKeeper  int64 = 7
)

// ApprovalRoles lists the five roles whose sign-off fully approves a
// material request.
var ApprovalRoles = []int64{
	RoleForeman,
	RoleSiteManager,
	RolePurchasingAgent,
	RolePlanningEngineer,
	RoleMainEngineer,
}
