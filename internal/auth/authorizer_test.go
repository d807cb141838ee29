package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warungtech/stockhold/internal/auth"
)

func TestRoleAuthorizer(t *testing.T) {
	az := auth.RoleAuthorizer{}

	tests := []struct {
		role    auth.Role
		perm    auth.Permission
		allowed bool
	}{
		{auth.RoleAdmin, auth.PermStockReserve, true},
		{auth.RoleAdmin, auth.PermStockManage, true},
		{auth.RoleAdmin, auth.PermStockExtend, true},
		{auth.RoleAdmin, auth.PermStockSweep, true},
		{auth.RoleAdmin, auth.PermCreditClose, true},

		{auth.RoleManager, auth.PermStockReserve, true},
		{auth.RoleManager, auth.PermStockManage, true},
		{auth.RoleManager, auth.PermStockExtend, false}, // extension is admin only
		{auth.RoleManager, auth.PermStockSweep, false},
		{auth.RoleManager, auth.PermCreditClose, true},
		{auth.RoleManager, auth.PermCreditPay, true},

		{auth.RoleClerk, auth.PermStockReserve, true},
		{auth.RoleClerk, auth.PermStockManage, false},
		{auth.RoleClerk, auth.PermStockExtend, false},
		{auth.RoleClerk, auth.PermCreditPay, true},
		{auth.RoleClerk, auth.PermCreditClose, false},

		{"", auth.PermStockReserve, false}, // unknown role gets nothing
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			actor := auth.Actor{UserID: "u1", Role: tt.role}
			assert.Equal(t, tt.allowed, az.Can(actor, tt.perm))
		})
	}
}
