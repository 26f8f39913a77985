package auth

import "hrleave/internal/domain/errs"

type Action string

const (
	ActionLeaveSubmit    Action = "leave.submit"
	ActionLeaveSubmitFor Action = "leave.submit_for"
	ActionLeaveView      Action = "leave.view"
	ActionLeaveApprove   Action = "leave.approve"
	ActionLeaveReject    Action = "leave.reject"
	ActionLeaveCancel    Action = "leave.cancel"
	ActionLeaveUpdate    Action = "leave.update"
	ActionLeaveDelete    Action = "leave.delete"
	ActionLeaveComment   Action = "leave.comment"
	ActionReportAll      Action = "reports.all"
	ActionEmployeeView   Action = "employees.view"
	ActionEmployeeManage Action = "employees.manage"
	ActionSettingsEdit   Action = "employees.settings"
	ActionBalanceReset   Action = "employees.balance_reset"
)

type rule int

const (
	ruleAnyCaller rule = iota
	rulePrivileged
	ruleOwner
	ruleOwnerOrPrivileged
)

var actionRules = map[Action]rule{
	ActionLeaveSubmit:    ruleAnyCaller,
	ActionLeaveSubmitFor: rulePrivileged,
	ActionLeaveView:      ruleOwnerOrPrivileged,
	ActionLeaveApprove:   rulePrivileged,
	ActionLeaveReject:    rulePrivileged,
	ActionLeaveCancel:    ruleOwner,
	ActionLeaveUpdate:    ruleOwner,
	ActionLeaveDelete:    ruleOwnerOrPrivileged,
	ActionLeaveComment:   ruleOwnerOrPrivileged,
	ActionReportAll:      rulePrivileged,
	ActionEmployeeView:   ruleOwnerOrPrivileged,
	ActionEmployeeManage: rulePrivileged,
	ActionSettingsEdit:   ruleOwner,
	ActionBalanceReset:   rulePrivileged,
}

// Resource describes the record an action targets. OwnerID is the employee
// the record belongs to; empty for collection-level actions.
type Resource struct {
	OwnerID string
}

// Can is the single authorization decision shared by every service.
func Can(caller Caller, action Action, res Resource) bool {
	if caller.ID == "" || !caller.Role.Valid() {
		return false
	}
	r, ok := actionRules[action]
	if !ok {
		return false
	}
	isOwner := res.OwnerID != "" && res.OwnerID == caller.ID
	switch r {
	case ruleAnyCaller:
		return true
	case rulePrivileged:
		return caller.Role.Privileged()
	case ruleOwner:
		return isOwner
	case ruleOwnerOrPrivileged:
		return isOwner || caller.Role.Privileged()
	}
	return false
}

func Authorize(caller Caller, action Action, res Resource) error {
	if !Can(caller, action, res) {
		return errs.Forbidden("%s not allowed for role %s", action, caller.Role)
	}
	return nil
}
