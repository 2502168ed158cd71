package tenant

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Identity is the caller of a request: the agency (tenant) and the member acting in it.
type Identity struct {
	TenantId int
	UserId   int
	Role     Role
}

// CanLogTime reports whether the member may append time ledger entries.
func (r Role) CanLogTime() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// CanContribute reports whether the member may create or move work items. Viewers only read.
func (r Role) CanContribute() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// CanManageEngagements reports whether the member may onboard clients, change their terms or manage members.
func (r Role) CanManageEngagements() bool {
	return r == RoleOwner || r == RoleAdmin
}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}
