package eduauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Enrollment links a user to a course. The PaymentID is the
// enrollment-validity invariant: an enrollment without a payment grants
// no content access.
type Enrollment struct {
	CourseID  string `json:"courseId"`
	PaymentID string `json:"paymentId,omitempty"`
}

// Paid reports whether the enrollment carries a completed payment.
func (e Enrollment) Paid() bool {
	return e.PaymentID != ""
}

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole     `bun:"user_role,notnull" json:"role,omitempty"`
	Name           string       `bun:"name" json:"name,omitempty"`
	Mobile         string       `bun:"mobile,notnull,unique" json:"mobile,omitempty"`
	PasswordHash   string       `bun:"password_hash" json:"-"`
	Enrollments    []Enrollment `bun:"enrollments" json:"enrolledCourses,omitempty"`
	LoginAttempts  int          `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time   `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time   `bun:"loggedin_at" json:"-"`
	CreatedAt      *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// IsAdminUser reports whether the user holds the admin role. This is the
// only admin check: there is no independently stored boolean flag.
func (u *User) IsAdminUser() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsTeacherUser reports whether the user holds the teacher role.
func (u *User) IsTeacherUser() bool {
	return u != nil && u.Role == RoleTeacher
}

// HasCourseAccess reports whether the user may open course content: the
// enrollment must exist and carry a payment id.
func (u *User) HasCourseAccess(courseID string) bool {
	if u == nil {
		return false
	}
	for _, e := range u.Enrollments {
		if e.CourseID == courseID {
			return e.Paid()
		}
	}
	return false
}

// Enroll appends an enrollment, replacing any prior record for the same
// course.
func (u *User) Enroll(courseID, paymentID string) *User {
	for i, e := range u.Enrollments {
		if e.CourseID == courseID {
			u.Enrollments[i].PaymentID = paymentID
			return u
		}
	}
	u.Enrollments = append(u.Enrollments, Enrollment{CourseID: courseID, PaymentID: paymentID})
	return u
}

// LoginCooldownElapsed reports whether the last failed login attempt is
// older than the period, meaning the attempt counter can be reset. A
// user with no recorded attempt is always past the cooldown.
func (u *User) LoginCooldownElapsed(period string) (bool, error) {
	if u == nil || u.LoginAttemptAt == nil {
		return true, nil
	}

	duration, err := time.ParseDuration(period)
	if err != nil {
		return false, err
	}

	return time.Since(*u.LoginAttemptAt) > duration, nil
}

// EnsureRole defaults the role to student when unset.
func (u *User) EnsureRole() {
	if u.Role == "" {
		u.Role = RoleStudent
	}
}
