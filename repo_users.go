package eduauth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the persistence surface the auth endpoints need. Mobile is
// the login identifier; unknown mobiles entering the OTP flow are
// registered as students on first contact.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByMobile(ctx context.Context, mobile string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetOrRegister(ctx context.Context, mobile string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "mobile"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByMobile(ctx context.Context, mobile string) (*User, error) {
	return a.getByMobileTx(ctx, a.db, mobile)
}

func (a *users) getByMobileTx(ctx context.Context, tx bun.IDB, mobile string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.mobile = ?", mobile).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"mobile": mobile})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

// GetOrRegister resolves a mobile to its account, creating a student
// record on first contact.
func (a *users) GetOrRegister(ctx context.Context, mobile string) (*User, error) {
	user, err := a.getByMobileTx(ctx, a.db, mobile)
	if err == nil {
		return user, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.Register(ctx, &User{Mobile: mobile})
}

func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*User, error) {
	user, err := a.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}

	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(id.String()),
	}

	return a.Repository.Update(ctx, user, criteria...)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	// NOTE: updating through the ORM won't reset login_attempt_at and
	// login_attempts together, use raw SQL
	loggedInAt := time.Now()
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.Update(ctx, record, criteria...)

	return err
}

// prepareUserDefaults derives the record id from the mobile number so
// repeated registrations of the same mobile collapse onto one identity,
// and fills role and password placeholders.
func prepareUserDefaults(user *User) {
	if user == nil {
		return
	}

	user.EnsureRole()

	if user.ID == uuid.Nil && user.Mobile != "" {
		if id, err := hashid.NewUUID(user.Mobile); err == nil {
			user.ID = id
		}
	}

	if user.PasswordHash == "" {
		user.PasswordHash = RandomPasswordHash()
	}
}
