package eduauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"
)

// Storage keys used by the session registry.
const (
	StorageKeyActiveSession = "active_session"
	StorageKeySessionID     = "current_session_id"
)

// SessionRecord is the client-local bookkeeping for the single active
// session in a storage scope.
type SessionRecord struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

// SessionRegistry enforces at most one logical active session per storage
// scope and resolves the conflict when a second, different user signs in.
// This is a UX guard, not a security boundary: it never revokes the
// earlier session's server-side token.
type SessionRegistry struct {
	storage Storage
	logger  Logger
	now     func() time.Time
}

func NewSessionRegistry(storage Storage) *SessionRegistry {
	return &SessionRegistry{
		storage: storage,
		logger:  defLogger{},
		now:     time.Now,
	}
}

func (r *SessionRegistry) WithLogger(logger Logger) *SessionRegistry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithClock injects a custom clock (useful for tests).
func (r *SessionRegistry) WithClock(clock func() time.Time) *SessionRegistry {
	if clock != nil {
		r.now = clock
	}
	return r
}

// GenerateSessionID produces an id unique with overwhelming probability
// within a storage scope: base-36 millisecond timestamp plus a random hex
// suffix. No global uniqueness is claimed.
func (r *SessionRegistry) GenerateSessionID() string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// time alone still satisfies the local-uniqueness bar
		return strconv.FormatInt(r.now().UnixNano(), 36)
	}
	return strconv.FormatInt(r.now().UnixMilli(), 36) + "-" + hex.EncodeToString(suffix)
}

// SetActiveSession records the given user as the active session and
// returns the new session id.
func (r *SessionRegistry) SetActiveSession(userID string) string {
	record := SessionRecord{
		UserID:    userID,
		SessionID: r.GenerateSessionID(),
		Timestamp: r.now().UnixMilli(),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		r.logger.Error("failed to persist session record", "error", err)
		return record.SessionID
	}

	r.storage.Set(StorageKeyActiveSession, string(raw))
	r.storage.Set(StorageKeySessionID, record.SessionID)
	return record.SessionID
}

// HandleSessionConflict prepares the registry for a login by newUserID.
// It reports true when it is safe to proceed: no prior session, the same
// user's session, or a different user's session that has been cleared.
func (r *SessionRegistry) HandleSessionConflict(newUserID string) bool {
	record, ok := r.ActiveSession()
	if !ok {
		return true
	}

	if record.UserID != newUserID {
		r.logger.Info("session conflict resolved, replacing prior user", "prior", record.UserID)
		r.ClearSession()
	}
	return true
}

// IsSessionActive is true only if the stored record matches both fields
// exactly.
func (r *SessionRegistry) IsSessionActive(userID, sessionID string) bool {
	record, ok := r.ActiveSession()
	if !ok {
		return false
	}
	return record.UserID == userID && record.SessionID == sessionID
}

// ActiveSession returns the stored session record. Any parse failure is
// treated as "no session", never surfaced as an error.
func (r *SessionRegistry) ActiveSession() (*SessionRecord, bool) {
	raw, ok := r.storage.Get(StorageKeyActiveSession)
	if !ok || raw == "" {
		return nil, false
	}

	record := &SessionRecord{}
	if err := json.Unmarshal([]byte(raw), record); err != nil {
		r.logger.Warn("session record unreadable, treating as no session", "error", err)
		return nil, false
	}
	return record, true
}

// ClearSession removes all session bookkeeping. Idempotent.
func (r *SessionRegistry) ClearSession() {
	r.storage.Remove(StorageKeyActiveSession)
	r.storage.Remove(StorageKeySessionID)
}
