package auth

import "errors"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleClerk   Role = "clerk"
)

type Permission string

const (
	PermStockReserve Permission = "stock:reserve"
	PermStockManage  Permission = "stock:manage" // release
	PermStockExtend  Permission = "stock:extend"
	PermStockSweep   Permission = "stock:sweep"
	PermCreditPay    Permission = "credit:pay"
	PermCreditClose  Permission = "credit:close"
)

var ErrForbidden = errors.New("forbidden")

// Actor is the caller identity, taken from the verified token and passed
// explicitly into every operation instead of being read from ambient state.
type Actor struct {
	UserID   string
	Role     Role
	BranchID string
}

type Authorizer interface {
	Can(a Actor, p Permission) bool
}

// RoleAuthorizer grants permissions by role. Extension of holds is admin
// only; release and credit closure need at least manager.
type RoleAuthorizer struct{}

var rolePerms = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermStockReserve: true,
		PermStockManage:  true,
		PermStockExtend:  true,
		PermStockSweep:   true,
		PermCreditPay:    true,
		PermCreditClose:  true,
	},
	RoleManager: {
		PermStockReserve: true,
		PermStockManage:  true,
		PermCreditPay:    true,
		PermCreditClose:  true,
	},
	RoleClerk: {
		PermStockReserve: true,
		PermCreditPay:    true,
	},
}

func (RoleAuthorizer) Can(a Actor, p Permission) bool {
	return rolePerms[a.Role][p]
}
