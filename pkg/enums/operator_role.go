package enums

import "fmt"

// OperatorRole is the permission tier of a back-office operator.
type OperatorRole string

const (
	OperatorRoleOperator   OperatorRole = "operator"
	OperatorRoleSupervisor OperatorRole = "supervisor"
	OperatorRoleAdmin      OperatorRole = "admin"
)

var validOperatorRoles = []OperatorRole{
	OperatorRoleOperator,
	OperatorRoleSupervisor,
	OperatorRoleAdmin,
}

// String implements fmt.Stringer.
func (o OperatorRole) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OperatorRole.
func (o OperatorRole) IsValid() bool {
	for _, candidate := range validOperatorRoles {
		if candidate == o {
			return true
		}
	}
	return false
}

// CanApproveRefunds reports whether the role may approve parked refunds.
func (o OperatorRole) CanApproveRefunds() bool {
	return o == OperatorRoleSupervisor || o == OperatorRoleAdmin
}

// ParseOperatorRole converts raw input into an OperatorRole.
func ParseOperatorRole(value string) (OperatorRole, error) {
	for _, candidate := range validOperatorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operator role %q", value)
}
