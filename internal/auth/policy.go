package auth

import (
	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/models"
)

// Operation names a guarded action.
type Operation string

const (
	OpRegisterStaff    Operation = "account.register_staff"
	OpListAccounts     Operation = "account.list"
	OpSetRole          Operation = "account.set_role"
	OpCreateComplaint  Operation = "complaint.create"
	OpListComplaints   Operation = "complaint.list"
	OpGetComplaint     Operation = "complaint.get"
	OpUpdateStatus     Operation = "complaint.update_status"
	OpAssignComplaint  Operation = "complaint.assign"
	OpListMessages     Operation = "complaint.list_messages"
	OpJoinRoom         Operation = "room.join"
	OpSendMessage      Operation = "room.send_message"
	OpListTransactions Operation = "audit.list"
)

// Rule says which roles may perform an operation. When OwnerScoped is set,
// roles that are not staff additionally have to own the target complaint.
type Rule struct {
	Roles       []models.Role
	OwnerScoped bool
}

var everyone = []models.Role{models.RoleUser, models.RoleAgent, models.RoleAdmin}

// Policy is the single authorization table for the HTTP and realtime surfaces.
var Policy = map[Operation]Rule{
	OpRegisterStaff:    {Roles: []models.Role{models.RoleAdmin}},
	OpListAccounts:     {Roles: []models.Role{models.RoleAdmin}},
	OpSetRole:          {Roles: []models.Role{models.RoleAdmin}},
	OpCreateComplaint:  {Roles: everyone},
	OpListComplaints:   {Roles: everyone, OwnerScoped: true},
	OpGetComplaint:     {Roles: everyone, OwnerScoped: true},
	OpUpdateStatus:     {Roles: []models.Role{models.RoleAgent, models.RoleAdmin}},
	OpAssignComplaint:  {Roles: []models.Role{models.RoleAdmin}},
	OpListMessages:     {Roles: everyone, OwnerScoped: true},
	OpJoinRoom:         {Roles: everyone, OwnerScoped: true},
	OpSendMessage:      {Roles: everyone, OwnerScoped: true},
	OpListTransactions: {Roles: []models.Role{models.RoleAdmin}},
}

// Allows reports whether role passes the role part of op's rule.
func Allows(op Operation, role models.Role) bool {
	rule, ok := Policy[op]
	if !ok {
		return false
	}
	for _, r := range rule.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize checks the role part of op's rule.
func Authorize(op Operation, caller Identity) error {
	if !Allows(op, caller.Role) {
		return apperr.Forbidden("insufficient role")
	}
	return nil
}

// AuthorizeOwned checks op's full rule against a resource owned by ownerID.
func AuthorizeOwned(op Operation, caller Identity, ownerID string) error {
	if err := Authorize(op, caller); err != nil {
		return err
	}
	if Policy[op].OwnerScoped && !caller.Role.IsStaff() && caller.AccountID != ownerID {
		return apperr.Forbidden("complaint belongs to another account")
	}
	return nil
}

// ScopedToOwner reports whether listings for caller under op must be
// restricted to resources the caller owns.
func ScopedToOwner(op Operation, caller Identity) bool {
	return Policy[op].OwnerScoped && !caller.Role.IsStaff()
}
