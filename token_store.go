package eduauth

import "encoding/json"

// Storage keys used by the token store. The admin token lives in its own
// slot so a browser can hold a student and an admin credential at the
// same time without overwrite collisions.
const (
	StorageKeyToken      = "auth_token"
	StorageKeyAdminToken = "admin_token"
	StorageKeyUser       = "auth_user"
)

// TokenStore persists bearer tokens and the cached user object across
// reloads. It is mutated only as a side effect of auth actions, never by
// the view layer directly.
type TokenStore struct {
	storage Storage
	logger  Logger
}

func NewTokenStore(storage Storage) *TokenStore {
	return &TokenStore{storage: storage, logger: defLogger{}}
}

func (t *TokenStore) WithLogger(logger Logger) *TokenStore {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// Token returns the general-user bearer token.
func (t *TokenStore) Token() (string, bool) {
	return t.read(StorageKeyToken)
}

func (t *TokenStore) SetToken(token string) {
	t.storage.Set(StorageKeyToken, token)
}

// AdminToken returns the admin bearer token. Admin-only route checks must
// resolve this slot even when a general token is also present.
func (t *TokenStore) AdminToken() (string, bool) {
	return t.read(StorageKeyAdminToken)
}

func (t *TokenStore) SetAdminToken(token string) {
	t.storage.Set(StorageKeyAdminToken, token)
}

func (t *TokenStore) RemoveAdminToken() {
	t.storage.Remove(StorageKeyAdminToken)
}

// CachedUser returns the last persisted user object. An unparseable
// cache reads as absent.
func (t *TokenStore) CachedUser() (*User, bool) {
	raw, ok := t.storage.Get(StorageKeyUser)
	if !ok || raw == "" {
		return nil, false
	}

	user := &User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		t.logger.Warn("cached user unreadable, treating as absent", "error", err)
		return nil, false
	}
	return user, true
}

func (t *TokenStore) CacheUser(user *User) {
	if user == nil {
		t.storage.Remove(StorageKeyUser)
		return
	}

	raw, err := json.Marshal(user)
	if err != nil {
		t.logger.Error("failed to cache user", "error", err)
		return
	}
	t.storage.Set(StorageKeyUser, string(raw))
}

// Clear removes both token slots and the cached user. Idempotent.
func (t *TokenStore) Clear() {
	t.storage.Remove(StorageKeyToken)
	t.storage.Remove(StorageKeyAdminToken)
	t.storage.Remove(StorageKeyUser)
}

func (t *TokenStore) read(key string) (string, bool) {
	v, ok := t.storage.Get(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
