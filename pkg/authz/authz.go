// Package authz answers "may these roles perform this action on that tenant's
// data" from a single declarative table.
package authz

import (
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/pkg/enums"
)

// Action names a capability on a resource, formatted "<resource>:<verb>".
type Action string

const (
	QuotasView   Action = "quotas:view"
	QuotasManage Action = "quotas:manage"
	QuotasSync   Action = "quotas:sync"
	QuotasStats  Action = "quotas:stats"
)

// Rule lists the roles allowed to perform an action. CrossTenant roles may act
// on any tenant; the others only on their own.
type Rule struct {
	Roles       []enums.Role
	CrossTenant []enums.Role
}

var table = map[Action]Rule{
	QuotasView: {
		Roles:       []enums.Role{enums.RoleAdmin, enums.RoleManager, enums.RoleDispatcher},
		CrossTenant: []enums.Role{enums.RoleSuperAdmin},
	},
	QuotasManage: {
		Roles:       []enums.Role{enums.RoleAdmin},
		CrossTenant: []enums.Role{enums.RoleSuperAdmin},
	},
	QuotasSync: {
		Roles:       []enums.Role{enums.RoleAdmin, enums.RoleManager},
		CrossTenant: []enums.Role{enums.RoleSuperAdmin},
	},
	// system-wide numbers span every tenant
	QuotasStats: {
		CrossTenant: []enums.Role{enums.RoleSuperAdmin},
	},
}

// Can reports whether an actor holding roles within actorTenant may perform
// action on data owned by resourceTenant. A nil resourceTenant means the
// resource is not tenant scoped, which only cross-tenant roles may touch.
func Can(roles []enums.Role, actorTenant uuid.UUID, resourceTenant *uuid.UUID, action Action) bool {
	rule, ok := table[action]
	if !ok {
		return false
	}
	if hasAny(roles, rule.CrossTenant) {
		return true
	}
	if resourceTenant == nil || actorTenant == uuid.Nil || *resourceTenant != actorTenant {
		return false
	}
	return hasAny(roles, rule.Roles)
}

// CanAny reports whether roles could perform action on at least their own tenant.
func CanAny(roles []enums.Role, action Action) bool {
	rule, ok := table[action]
	if !ok {
		return false
	}
	return hasAny(roles, rule.CrossTenant) || hasAny(roles, rule.Roles)
}

// IsCrossTenant reports whether roles may act on every tenant for action.
func IsCrossTenant(roles []enums.Role, action Action) bool {
	rule, ok := table[action]
	return ok && hasAny(roles, rule.CrossTenant)
}

// Actions lists every action in the table, sorted.
func Actions() []Action {
	out := make([]Action, 0, len(table))
	for action := range table {
		out = append(out, action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasAny(have, want []enums.Role) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
