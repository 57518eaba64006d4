// Package intervention tracks the execution of intervention strategies.
//
// The executor only records that a strategy is being carried out. The
// actions themselves (feature toggles, schedule changes, notifications) are
// applied by other systems, which report progress and metric updates back.
package intervention

import (
	"strings"
	"time"

	"github.com/alem-hub/learnpulse/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of an execution.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var transitions = map[Status][]Status{
	StatusPlanned: {StatusActive, StatusCancelled},
	StatusActive:  {StatusCompleted, StatusCancelled, StatusFailed},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// CanTransitionTo reports whether s -> next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus validates a wire name. An empty string is returned as is and
// means "any status" to list queries.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if s == "" || s.IsValid() {
		return s, nil
	}
	return "", shared.NewDomainError("intervention", "ParseStatus", shared.ErrInvalidInput, "unknown status "+v)
}

// ══════════════════════════════════════════════════════════════════════════════
// VALUE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Progress counts completed strategy actions.
type Progress struct {
	CompletedActions int    `json:"completedActions"`
	TotalActions     int    `json:"totalActions"`
	CurrentPhase     string `json:"currentPhase"`
	NextMilestone    string `json:"nextMilestone"`
}

// Ratio returns completed/total, or 0 when the total is unknown.
func (p Progress) Ratio() float64 {
	if p.TotalActions <= 0 {
		return 0
	}
	return float64(p.CompletedActions) / float64(p.TotalActions)
}

// MonitoredMetric tracks one success metric from its baseline.
type MonitoredMetric struct {
	Metric      string  `json:"metric"`
	Baseline    float64 `json:"baseline"`
	Current     float64 `json:"current"`
	Target      float64 `json:"target"`
	Improvement float64 `json:"improvement"`
}

// Reached reports whether Current has met Target. A target below the
// baseline means the metric should go down.
func (m MonitoredMetric) Reached() bool {
	if m.Target >= m.Baseline {
		return m.Current >= m.Target
	}
	return m.Current <= m.Target
}

// Feedback is the learner's single post-completion rating.
type Feedback struct {
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Results is the terminal payload of a completed or failed execution.
type Results struct {
	Summary       string            `json:"summary,omitempty"`
	Metrics       []MonitoredMetric `json:"metrics"`
	TargetsMet    int               `json:"targetsMet"`
	TargetsTotal  int               `json:"targetsTotal"`
	ActionsRatio  float64           `json:"actionsRatio"`
	FailureReason string            `json:"failureReason,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// Execution is the tracked record of a strategy being carried out.
type Execution struct {
	ID           string            `json:"id"`
	StrategyID   string            `json:"strategyId"`
	UserID       string            `json:"userId"`
	Status       Status            `json:"status"`
	StartedAt    time.Time         `json:"startedAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Progress     Progress          `json:"progress"`
	Monitoring   []MonitoredMetric `json:"monitoring"`

	// PlannedActions is the strategy's action count. Progress.TotalActions
	// takes it on the first progress report.
	PlannedActions int `json:"plannedActions"`

	UserFeedback *Feedback         `json:"userFeedback,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	Results      *Results          `json:"results,omitempty"`
}

// Clone returns a deep copy.
func (e *Execution) Clone() *Execution {
	c := *e
	c.Monitoring = append([]MonitoredMetric(nil), e.Monitoring...)
	if e.UserFeedback != nil {
		fb := *e.UserFeedback
		c.UserFeedback = &fb
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	if e.Results != nil {
		r := *e.Results
		r.Metrics = append([]MonitoredMetric(nil), e.Results.Metrics...)
		c.Results = &r
	}
	return &c
}

func (e *Execution) transition(op string, next Status, now time.Time) error {
	if !e.Status.CanTransitionTo(next) {
		return shared.WrapError("intervention", op, shared.ErrStateTransition,
			string(e.Status)+" -> "+string(next), shared.ErrInvalidExecutionTransition)
	}
	e.Status = next
	e.UpdatedAt = now
	if next.IsTerminal() {
		t := now
		e.CompletedAt = &t
	}
	return nil
}

// Start activates a planned execution.
func (e *Execution) Start(now time.Time) error {
	if err := e.transition("Start", StatusActive, now); err != nil {
		return err
	}
	e.StartedAt = now
	return nil
}

// ReportProgress records completed actions on an active execution.
func (e *Execution) ReportProgress(completed int, phase, milestone string, now time.Time) error {
	if e.Status != StatusActive {
		return shared.WrapError("intervention", "ReportProgress", shared.ErrInvalidState,
			"execution is "+string(e.Status), shared.ErrInvalidExecutionTransition)
	}
	total := e.Progress.TotalActions
	if total == 0 {
		total = e.PlannedActions
	}
	if completed < 0 || (total > 0 && completed > total) {
		return shared.ErrInvalidProgress
	}
	e.Progress.TotalActions = total
	e.Progress.CompletedActions = completed
	if phase != "" {
		e.Progress.CurrentPhase = phase
	}
	e.Progress.NextMilestone = milestone
	e.UpdatedAt = now
	return nil
}

// RecordMetric upserts a monitored metric. The first baseline recorded for
// a metric is kept; improvement is always current minus baseline.
func (e *Execution) RecordMetric(m MonitoredMetric, now time.Time) error {
	if e.Status != StatusActive {
		return shared.WrapError("intervention", "RecordMetric", shared.ErrInvalidState,
			"execution is "+string(e.Status), shared.ErrInvalidExecutionTransition)
	}
	if strings.TrimSpace(m.Metric) == "" {
		return shared.ErrInvalidMetricName
	}
	for i := range e.Monitoring {
		cur := &e.Monitoring[i]
		if cur.Metric != m.Metric {
			continue
		}
		cur.Current = m.Current
		if m.Target != 0 {
			cur.Target = m.Target
		}
		cur.Improvement = cur.Current - cur.Baseline
		e.UpdatedAt = now
		return nil
	}
	m.Improvement = m.Current - m.Baseline
	e.Monitoring = append(e.Monitoring, m)
	e.UpdatedAt = now
	return nil
}

func (e *Execution) results(summary, reason string) *Results {
	r := &Results{
		Summary:       summary,
		Metrics:       append([]MonitoredMetric(nil), e.Monitoring...),
		TargetsTotal:  len(e.Monitoring),
		ActionsRatio:  e.Progress.Ratio(),
		FailureReason: reason,
	}
	for _, m := range e.Monitoring {
		if m.Reached() {
			r.TargetsMet++
		}
	}
	return r
}

// Complete finishes an active execution successfully.
func (e *Execution) Complete(summary string, now time.Time) error {
	if err := e.transition("Complete", StatusCompleted, now); err != nil {
		return err
	}
	e.Results = e.results(summary, "")
	return nil
}

// Fail finishes an active execution unsuccessfully.
func (e *Execution) Fail(reason string, now time.Time) error {
	if err := e.transition("Fail", StatusFailed, now); err != nil {
		return err
	}
	e.Results = e.results("", reason)
	return nil
}

// Cancel stops a planned or active execution. It sets no results.
func (e *Execution) Cancel(now time.Time) error {
	return e.transition("Cancel", StatusCancelled, now)
}

// SubmitFeedback stores the learner's rating once, after completion.
func (e *Execution) SubmitFeedback(rating int, comment string, now time.Time) error {
	if e.Status != StatusCompleted {
		return shared.ErrFeedbackNotAllowed
	}
	if e.UserFeedback != nil {
		return shared.ErrFeedbackAlreadySet
	}
	if rating < 1 || rating > 5 {
		return shared.NewDomainError("intervention", "SubmitFeedback", shared.ErrValueOutOfRange, "rating must be between 1 and 5")
	}
	e.UserFeedback = &Feedback{Rating: rating, Comment: comment, SubmittedAt: now}
	e.UpdatedAt = now
	return nil
}
