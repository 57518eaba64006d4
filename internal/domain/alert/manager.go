package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/risk"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/internal/domain/strategy"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
)

// Manager owns alert history and dismissal state. It is safe for
// concurrent use.
type Manager struct {
	mu         sync.RWMutex
	clock      timeutil.Clock
	ids        shared.IDGenerator
	historyCap int
	autoExec   AutoExecutePolicy

	// userID -> alerts, oldest first
	history   map[string][]PredictiveAlert
	owners    map[string]string
	dismissed map[string]map[string]struct{}

	// dismissals that arrived before their alert, by alert id
	tombstones map[string]tombstone
}

type tombstone struct {
	userID string
	at     time.Time
}

// TombstoneTTL bounds how long a dismissal waits for its alert to arrive.
// It outlives the longest alert lifetime.
const TombstoneTTL = 7 * 24 * time.Hour

// NewManager creates a Manager. A non-positive historyCap uses DefaultHistoryCap.
func NewManager(clock timeutil.Clock, ids shared.IDGenerator, historyCap int) *Manager {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if ids == nil {
		ids = shared.SequentialIDs("alert")
	}
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Manager{
		clock:      clock,
		ids:        ids,
		historyCap: historyCap,
		history:    make(map[string][]PredictiveAlert),
		owners:     make(map[string]string),
		dismissed:  make(map[string]map[string]struct{}),
		tombstones: make(map[string]tombstone),
	}
}

// AutoExecutePolicy further restricts AutoExecutable per learner. It can only
// turn auto-execution off, never on for a critical risk.
type AutoExecutePolicy func(userID string) bool

// WithAutoExecutePolicy installs p. Call before the manager is shared.
func (m *Manager) WithAutoExecutePolicy(p AutoExecutePolicy) *Manager {
	m.autoExec = p
	return m
}

// Build creates the alert for one pair without recording it.
func (m *Manager) Build(userID string, p Pair, now time.Time) PredictiveAlert {
	r := p.Risk
	critical := r.Severity == risk.SeverityCritical

	alertType := TypeWarning
	if critical {
		alertType = TypeCritical
	}

	return PredictiveAlert{
		ID:                    m.ids(),
		UserID:                userID,
		AlertType:             alertType,
		Title:                 title(r),
		Message:               message(r, p.Strategies),
		Risk:                  r,
		RecommendedStrategies: append([]strategy.InterventionStrategy(nil), p.Strategies...),
		Urgency:               r.Probability * severityMultiplier(r.Severity),
		AutoExecutable:        !critical && (m.autoExec == nil || m.autoExec(userID)),
		UserActionRequired:    critical || len(p.Strategies) == 0,
		CreatedAt:             now,
		ExpiresAt:             now.Add(r.TimeToImpact()),
	}
}

// Create builds one alert per pair, appends them to the learner's history
// and returns them sorted by descending urgency.
func (m *Manager) Create(userID string, pairs []Pair) []PredictiveAlert {
	if len(pairs) == 0 {
		return nil
	}
	now := m.clock.Now()

	out := make([]PredictiveAlert, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, m.Build(userID, p, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Urgency > out[j].Urgency
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range out {
		m.appendLocked(a)
	}
	return out
}

// Restore puts previously created alerts back into history, e.g. after a
// restart. Expired alerts are ignored; alerts listed in dismissed come back
// already dismissed.
func (m *Manager) Restore(alerts []PredictiveAlert, dismissed []string) int {
	now := m.clock.Now()
	gone := make(map[string]struct{}, len(dismissed))
	for _, id := range dismissed {
		gone[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range alerts {
		if a.Expired(now) {
			continue
		}
		if _, ok := m.owners[a.ID]; ok {
			continue
		}
		m.appendLocked(a)
		if _, ok := gone[a.ID]; ok {
			m.dismissLocked(a.UserID, a.ID)
		}
		n++
	}
	return n
}

func (m *Manager) appendLocked(a PredictiveAlert) {
	h := append(m.history[a.UserID], a)
	m.owners[a.ID] = a.UserID
	if ts, ok := m.tombstones[a.ID]; ok {
		delete(m.tombstones, a.ID)
		if ts.userID == a.UserID {
			m.dismissLocked(a.UserID, a.ID)
		}
	}
	if over := len(h) - m.historyCap; over > 0 {
		for _, old := range h[:over] {
			m.forgetLocked(old)
		}
		h = append([]PredictiveAlert(nil), h[over:]...)
	}
	m.history[a.UserID] = h
}

func (m *Manager) forgetLocked(a PredictiveAlert) {
	delete(m.owners, a.ID)
	if d := m.dismissed[a.UserID]; d != nil {
		delete(d, a.ID)
		if len(d) == 0 {
			delete(m.dismissed, a.UserID)
		}
	}
}

// Dismiss hides an alert from Visible for good. Dismissing twice is a no-op.
func (m *Manager) Dismiss(userID, alertID string) (PredictiveAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.findLocked(userID, alertID)
	if !ok {
		return PredictiveAlert{}, shared.ErrAlertNotFound
	}
	m.dismissLocked(userID, alertID)
	return a, nil
}

// ApplyDismissal records a dismissal made elsewhere. Unlike Dismiss it
// accepts an alert this manager has not seen yet: the alert is then
// dismissed on arrival. It reports whether the alert was already known.
func (m *Manager) ApplyDismissal(userID, alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.findLocked(userID, alertID); ok {
		m.dismissLocked(userID, alertID)
		return true
	}
	m.tombstones[alertID] = tombstone{userID: userID, at: m.clock.Now()}
	return false
}

func (m *Manager) dismissLocked(userID, alertID string) {
	d := m.dismissed[userID]
	if d == nil {
		d = make(map[string]struct{})
		m.dismissed[userID] = d
	}
	d[alertID] = struct{}{}
}

// IsDismissed reports whether the learner dismissed alertID.
func (m *Manager) IsDismissed(userID, alertID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.dismissed[userID][alertID]
	return ok
}

// Visible returns the learner's alerts that are neither dismissed nor
// expired, sorted by descending urgency.
func (m *Manager) Visible(userID string) []PredictiveAlert {
	now := m.clock.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PredictiveAlert
	for _, a := range m.history[userID] {
		if a.Expired(now) {
			continue
		}
		if _, gone := m.dismissed[userID][a.ID]; gone {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Urgency > out[j].Urgency
	})
	return out
}

// HasVisible reports whether the learner has a visible alert for t.
func (m *Manager) HasVisible(userID string, t risk.RiskType) bool {
	for _, a := range m.Visible(userID) {
		if a.Risk.Type == t {
			return true
		}
	}
	return false
}

// ClearExpired removes every alert whose expiry has passed and returns
// the removed alerts.
func (m *Manager) ClearExpired() []PredictiveAlert {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []PredictiveAlert
	for userID, h := range m.history {
		kept := h[:0]
		for _, a := range h {
			if a.Expired(now) {
				removed = append(removed, a)
				m.forgetLocked(a)
				continue
			}
			kept = append(kept, a)
		}
		if len(kept) == 0 {
			delete(m.history, userID)
			continue
		}
		m.history[userID] = kept
	}
	for id, ts := range m.tombstones {
		if now.Sub(ts.at) >= TombstoneTTL {
			delete(m.tombstones, id)
		}
	}
	return removed
}

// Get returns an alert from history by id.
func (m *Manager) Get(alertID string) (PredictiveAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.owners[alertID]
	if !ok {
		return PredictiveAlert{}, shared.ErrAlertNotFound
	}
	a, _ := m.findLocked(userID, alertID)
	return a, nil
}

// History returns a copy of the learner's history, oldest first,
// including dismissed alerts.
func (m *Manager) History(userID string) []PredictiveAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PredictiveAlert(nil), m.history[userID]...)
}

// FindStrategy looks up a recommended strategy across the learner's history.
func (m *Manager) FindStrategy(userID, strategyID string) (strategy.InterventionStrategy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := m.history[userID]
	for i := len(h) - 1; i >= 0; i-- {
		for _, s := range h[i].RecommendedStrategies {
			if s.ID == strategyID {
				return s, true
			}
		}
	}
	return strategy.InterventionStrategy{}, false
}

func (m *Manager) findLocked(userID, alertID string) (PredictiveAlert, bool) {
	if m.owners[alertID] != userID {
		return PredictiveAlert{}, false
	}
	for _, a := range m.history[userID] {
		if a.ID == alertID {
			return a, true
		}
	}
	return PredictiveAlert{}, false
}
