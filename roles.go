package eduauth

// UserRole is the user's role. The role string is the sole authority for
// authorization decisions; any boolean admin flag is derived from it and
// never independently stored.
type UserRole string

const (
	// RoleStudent enrolls in courses and joins live classes
	RoleStudent UserRole = "student"
	// RoleTeacher hosts live classes and chats with enrolled students
	RoleTeacher UserRole = "teacher"
	// RoleAdmin manages the catalog and every account
	RoleAdmin UserRole = "admin"
)

// roleLevels orders roles for IsAtLeast comparisons
var roleLevels = map[UserRole]int{
	RoleStudent: 1,
	RoleTeacher: 2,
	RoleAdmin:   3,
}

// ParseRole validates and converts a string to a UserRole
func ParseRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return UserRole(s), true
	default:
		return "", false
	}
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// IsAtLeast checks if this role ranks at or above the minimum required role
func (r UserRole) IsAtLeast(min UserRole) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	required, ok := roleLevels[min]
	if !ok {
		return false
	}
	return level >= required
}
