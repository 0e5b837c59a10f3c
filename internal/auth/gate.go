package auth

// Gate is a role requirement checked after a principal is resolved.
type Gate int

const (
	// GateElevated admits admin and super_admin.
	GateElevated Gate = iota + 1
	// GateTopElevated admits super_admin only.
	GateTopElevated
)

func (g Gate) String() string {
	switch g {
	case GateElevated:
		return "elevated"
	case GateTopElevated:
		return "top_elevated"
	default:
		return "unknown"
	}
}

// Allows checks p against the gate. A principal without a role always fails
// with NoRoleAssigned before any tier comparison.
func (g Gate) Allows(p Principal) error {
	if p.Role == "" {
		return newError(KindNoRoleAssigned, p.ID, nil)
	}
	switch g {
	case GateElevated:
		if p.Role.IsElevated() {
			return nil
		}
	case GateTopElevated:
		if p.Role == RoleSuperAdmin {
			return nil
		}
	}
	return newError(KindInsufficientRole, p.ID, nil)
}
