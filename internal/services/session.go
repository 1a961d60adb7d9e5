package services

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Step is the position of a correspondent in the quotation questionnaire
type Step string

const (
	StepInitial          Step = "initial"
	StepMainMenu         Step = "main_menu"
	StepServiceDetails   Step = "service_details"
	StepQuoteName        Step = "quote_name"
	StepQuoteCompany     Step = "quote_company"
	StepQuoteEmail       Step = "quote_email"
	StepQuotePhone       Step = "quote_phone"
	StepQuoteDescription Step = "quote_description"
	StepQuoteSummary     Step = "quote_summary"
	StepQuoteSent        Step = "quote_sent"
)

// IsValid reports whether s is one of the questionnaire steps
func (s Step) IsValid() bool {
	switch s {
	case StepInitial, StepMainMenu, StepServiceDetails,
		StepQuoteName, StepQuoteCompany, StepQuoteEmail, StepQuotePhone, StepQuoteDescription,
		StepQuoteSummary, StepQuoteSent:
		return true
	}
	return false
}

// Keys of Session.Data
const (
	FieldName        = "name"
	FieldCompany     = "company"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldDescription = "description"
)

// Session is the conversation state of one correspondent
type Session struct {
	Identity        string            `json:"identity"`
	Step            Step              `json:"step"`
	SelectedService int               `json:"selected_service,omitempty"` // 0 until a service is chosen
	Data            map[string]string `json:"data"`
	CreatedAt       time.Time         `json:"created_at"`
	LastActivity    time.Time         `json:"last_activity"`
}

func (s *Session) clone() Session {
	out := *s
	out.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}

// SessionUpdate is a partial update. Nil fields are left alone; Data is merged key by key.
type SessionUpdate struct {
	Step            *Step
	SelectedService *int
	Data            map[string]string
}

// StepUpdate moves a session to step
func StepUpdate(step Step) SessionUpdate {
	return SessionUpdate{Step: &step}
}

// WithService also sets the selected service
func (u SessionUpdate) WithService(id int) SessionUpdate {
	u.SelectedService = &id
	return u
}

// WithField also merges one data field
func (u SessionUpdate) WithField(key, value string) SessionUpdate {
	data := make(map[string]string, len(u.Data)+1)
	for k, v := range u.Data {
		data[k] = v
	}
	data[key] = value
	u.Data = data
	return u
}

// SessionSummary is the admin view of a session
type SessionSummary struct {
	Step            Step          `json:"step"`
	HasData         bool          `json:"has_data"`
	SelectedService int           `json:"selected_service,omitempty"`
	LastActivity    time.Time     `json:"last_activity"`
	CreatedAt       time.Time     `json:"created_at"`
	Age             time.Duration `json:"age"`
}

// SessionInfo adds detail for a single session
type SessionInfo struct {
	SessionSummary
	Identity    string        `json:"identity"`
	DataKeys    []string      `json:"data_keys"`
	InactiveFor time.Duration `json:"inactive_for"`
}

// SessionStats provides session statistics
type SessionStats struct {
	TotalSessions       int           `json:"total_sessions"`
	StepCounts          map[Step]int  `json:"step_counts"`
	WithData            int           `json:"with_data"`
	WithSelectedService int           `json:"with_selected_service"`
	AverageAge          time.Duration `json:"average_age"`
	OldestSession       string        `json:"oldest_session,omitempty"`
	NewestSession       string        `json:"newest_session,omitempty"`
}

// SweepResult counts what one cleanup sweep did
type SweepResult struct {
	Removed  int `json:"removed"`
	Repaired int `json:"repaired"`
}

// SessionManager holds one Session per correspondent identity.
// All methods are safe for concurrent use; returned sessions are copies.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewSessionManager creates an empty session manager
func NewSessionManager() *SessionManager {
	return NewSessionManagerWithClock(time.Now)
}

// NewSessionManagerWithClock creates a session manager that reads time from now
func NewSessionManagerWithClock(now func() time.Time) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

// getOrCreateLocked must be called with mu held for writing
func (sm *SessionManager) getOrCreateLocked(identity string) *Session {
	if session, exists := sm.sessions[identity]; exists {
		return session
	}

	now := sm.now()
	session := &Session{
		Identity:     identity,
		Step:         StepInitial,
		Data:         make(map[string]string),
		CreatedAt:    now,
		LastActivity: now,
	}
	sm.sessions[identity] = session
	log.Printf("🆕 Session created for %s", identity)

	return session
}

// GetOrCreate returns the session for identity, creating it on first access
func (sm *SessionManager) GetOrCreate(identity string) Session {
	sm.mu.RLock()
	if session, exists := sm.sessions[identity]; exists {
		out := session.clone()
		sm.mu.RUnlock()
		return out
	}
	sm.mu.RUnlock()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.getOrCreateLocked(identity).clone()
}

// Update applies a partial update and refreshes LastActivity
func (sm *SessionManager) Update(identity string, update SessionUpdate) Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session := sm.getOrCreateLocked(identity)

	for k, v := range update.Data {
		session.Data[k] = v
	}
	if update.Step != nil {
		session.Step = *update.Step
	}
	if update.SelectedService != nil {
		session.SelectedService = *update.SelectedService
	}
	session.LastActivity = sm.now()

	return session.clone()
}

// Touch refreshes LastActivity. It reports false for an empty identity.
func (sm *SessionManager) Touch(identity string) bool {
	if identity == "" {
		log.Printf("⚠️ Session activity not updated: empty identity")
		return false
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.getOrCreateLocked(identity).LastActivity = sm.now()
	return true
}

// Reset clears collected data and the selected service, keeping the step
func (sm *SessionManager) Reset(identity string) Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session := sm.getOrCreateLocked(identity)
	session.Data = make(map[string]string)
	session.SelectedService = 0
	session.LastActivity = sm.now()

	log.Printf("🔄 Session data reset for %s", identity)
	return session.clone()
}

// Remove deletes the session and reports whether it existed
func (sm *SessionManager) Remove(identity string) bool {
	sm.mu.Lock()
	_, existed := sm.sessions[identity]
	delete(sm.sessions, identity)
	sm.mu.Unlock()

	if existed {
		log.Printf("🗑️ Session removed for %s", identity)
	}
	return existed
}

// Has reports whether a session exists without creating one
func (sm *SessionManager) Has(identity string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, exists := sm.sessions[identity]
	return exists
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.sessions)
}

// Info returns details for one session without creating it
func (sm *SessionManager) Info(identity string) (SessionInfo, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[identity]
	if !exists {
		return SessionInfo{}, false
	}
	return sm.infoLocked(session, sm.now()), true
}

// ByStep lists the sessions currently in step
func (sm *SessionManager) ByStep(step Step) []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := sm.now()
	var result []SessionInfo
	for _, session := range sm.sessions {
		if session.Step == step {
			result = append(result, sm.infoLocked(session, now))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identity < result[j].Identity })
	return result
}

// ListAll returns a summary of every session keyed by identity
func (sm *SessionManager) ListAll() map[string]SessionSummary {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := sm.now()
	sessions := make(map[string]SessionSummary, len(sm.sessions))
	for identity, session := range sm.sessions {
		sessions[identity] = summarize(session, now)
	}
	return sessions
}

// Stats returns aggregate counts over all sessions
func (sm *SessionManager) Stats() SessionStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := sm.now()
	stats := SessionStats{
		TotalSessions: len(sm.sessions),
		StepCounts:    make(map[Step]int),
	}

	var totalAge time.Duration
	var oldest, newest time.Time

	for identity, session := range sm.sessions {
		stats.StepCounts[session.Step]++

		if len(session.Data) > 0 {
			stats.WithData++
		}
		if session.SelectedService != 0 {
			stats.WithSelectedService++
		}

		if session.CreatedAt.IsZero() {
			continue
		}
		totalAge += now.Sub(session.CreatedAt)
		if oldest.IsZero() || session.CreatedAt.Before(oldest) {
			oldest = session.CreatedAt
			stats.OldestSession = identity
		}
		if session.CreatedAt.After(newest) {
			newest = session.CreatedAt
			stats.NewestSession = identity
		}
	}

	if stats.TotalSessions > 0 {
		stats.AverageAge = totalAge / time.Duration(stats.TotalSessions)
	}

	return stats
}

// sweepAfterScan runs between the read-locked scan and the write-locked
// removal of Sweep. Nil outside tests.
var sweepAfterScan func()

// Sweep removes sessions inactive for longer than maxAge and stamps sessions
// that have no LastActivity. A session whose LastActivity changed after the
// scan (touched or recreated) is kept.
func (sm *SessionManager) Sweep(maxAge time.Duration) (SweepResult, error) {
	if maxAge <= 0 {
		return SweepResult{}, fmt.Errorf("session max age must be positive, got %s", maxAge)
	}

	type candidate struct {
		identity     string
		lastActivity time.Time
	}

	now := sm.now()
	var expired []candidate
	var unstamped []string

	sm.mu.RLock()
	for identity, session := range sm.sessions {
		if session.LastActivity.IsZero() {
			unstamped = append(unstamped, identity)
			continue
		}
		if now.Sub(session.LastActivity) > maxAge {
			expired = append(expired, candidate{identity: identity, lastActivity: session.LastActivity})
		}
	}
	sm.mu.RUnlock()

	if sweepAfterScan != nil {
		sweepAfterScan()
	}

	var result SweepResult
	if len(expired) == 0 && len(unstamped) == 0 {
		return result, nil
	}

	sm.mu.Lock()
	for _, identity := range unstamped {
		session, exists := sm.sessions[identity]
		if !exists || !session.LastActivity.IsZero() {
			continue
		}
		session.LastActivity = now
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		result.Repaired++
	}
	for _, c := range expired {
		session, exists := sm.sessions[c.identity]
		if !exists || !session.LastActivity.Equal(c.lastActivity) {
			continue
		}
		delete(sm.sessions, c.identity)
		result.Removed++
	}
	sm.mu.Unlock()

	if result.Removed+result.Repaired > 0 {
		log.Printf("🧹 Session cleanup: %d removed, %d repaired", result.Removed, result.Repaired)
	}

	return result, nil
}

func summarize(session *Session, now time.Time) SessionSummary {
	summary := SessionSummary{
		Step:            session.Step,
		HasData:         len(session.Data) > 0,
		SelectedService: session.SelectedService,
		LastActivity:    session.LastActivity,
		CreatedAt:       session.CreatedAt,
	}
	if !session.CreatedAt.IsZero() {
		summary.Age = now.Sub(session.CreatedAt)
	}
	return summary
}

func (sm *SessionManager) infoLocked(session *Session, now time.Time) SessionInfo {
	info := SessionInfo{
		SessionSummary: summarize(session, now),
		Identity:       session.Identity,
		DataKeys:       make([]string, 0, len(session.Data)),
	}
	for k := range session.Data {
		info.DataKeys = append(info.DataKeys, k)
	}
	sort.Strings(info.DataKeys)
	if !session.LastActivity.IsZero() {
		info.InactiveFor = now.Sub(session.LastActivity)
	}
	return info
}
