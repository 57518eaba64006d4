package strategy

import (
	"encoding/json"
	"fmt"
)

// ActionType selects the parameter record an action carries.
type ActionType string

const (
	ActionFeatureToggle         ActionType = "feature_toggle"
	ActionScheduleAdjustment    ActionType = "schedule_adjustment"
	ActionNotification          ActionType = "notification"
	ActionDifficultyAdjust      ActionType = "difficulty_adjustment"
	ActionReviewSession         ActionType = "review_session"
	ActionContentRecommendation ActionType = "content_recommendation"
)

// Params is implemented by every typed action parameter record.
type Params interface {
	ActionType() ActionType
}

// FeatureToggleParams switches an assistance feature on or off.
type FeatureToggleParams struct {
	Feature       string `json:"feature"`
	Enabled       bool   `json:"enabled"`
	DurationHours int    `json:"durationHours"`
}

// ScheduleParams reshapes the practice schedule.
type ScheduleParams struct {
	SessionMinutes int `json:"sessionMinutes"`
	SessionsPerDay int `json:"sessionsPerDay"`
	BreakMinutes   int `json:"breakMinutes"`
}

// NotificationParams sends a message to the learner.
type NotificationParams struct {
	Channel      string `json:"channel"`
	Template     string `json:"template"`
	DelayMinutes int    `json:"delayMinutes"`
}

// DifficultyParams moves content difficulty by Steps levels.
type DifficultyParams struct {
	Steps       int     `json:"steps"`
	MinAccuracy float64 `json:"minAccuracy"`
}

// ReviewParams schedules a spaced-repetition review session.
type ReviewParams struct {
	CardLimit        int  `json:"cardLimit"`
	PrioritizeLapsed bool `json:"prioritizeLapsed"`
}

// ContentParams recommends content of a given kind.
type ContentParams struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

func (FeatureToggleParams) ActionType() ActionType { return ActionFeatureToggle }
func (ScheduleParams) ActionType() ActionType      { return ActionScheduleAdjustment }
func (NotificationParams) ActionType() ActionType  { return ActionNotification }
func (DifficultyParams) ActionType() ActionType    { return ActionDifficultyAdjust }
func (ReviewParams) ActionType() ActionType        { return ActionReviewSession }
func (ContentParams) ActionType() ActionType       { return ActionContentRecommendation }

// Action is one concrete step of a strategy. Its type is derived from Params.
type Action struct {
	Description       string  `json:"description"`
	Params            Params  `json:"parameters"`
	ExpectedImpact    string  `json:"expectedImpact"`
	TimeToEffectHours float64 `json:"timeToEffect"`
}

// Type returns the action type of the parameters.
func (a Action) Type() ActionType {
	if a.Params == nil {
		return ""
	}
	return a.Params.ActionType()
}

type actionWire struct {
	ActionType        ActionType      `json:"actionType"`
	Description       string          `json:"description"`
	Params            json.RawMessage `json:"parameters"`
	ExpectedImpact    string          `json:"expectedImpact"`
	TimeToEffectHours float64         `json:"timeToEffect"`
}

// MarshalJSON adds the actionType discriminator.
func (a Action) MarshalJSON() ([]byte, error) {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionWire{
		ActionType:        a.Type(),
		Description:       a.Description,
		Params:            params,
		ExpectedImpact:    a.ExpectedImpact,
		TimeToEffectHours: a.TimeToEffectHours,
	})
}

// UnmarshalJSON decodes Params into the record named by actionType.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var p Params
	switch w.ActionType {
	case ActionFeatureToggle:
		p = &FeatureToggleParams{}
	case ActionScheduleAdjustment:
		p = &ScheduleParams{}
	case ActionNotification:
		p = &NotificationParams{}
	case ActionDifficultyAdjust:
		p = &DifficultyParams{}
	case ActionReviewSession:
		p = &ReviewParams{}
	case ActionContentRecommendation:
		p = &ContentParams{}
	default:
		return fmt.Errorf("strategy: unknown action type %q", w.ActionType)
	}
	if len(w.Params) > 0 && string(w.Params) != "null" {
		if err := json.Unmarshal(w.Params, p); err != nil {
			return fmt.Errorf("strategy: decode %s parameters: %w", w.ActionType, err)
		}
	}

	*a = Action{
		Description:       w.Description,
		Params:            deref(p),
		ExpectedImpact:    w.ExpectedImpact,
		TimeToEffectHours: w.TimeToEffectHours,
	}
	return nil
}

// deref stores parameter records by value so decoded actions compare equal
// to the templates they came from.
func deref(p Params) Params {
	switch v := p.(type) {
	case *FeatureToggleParams:
		return *v
	case *ScheduleParams:
		return *v
	case *NotificationParams:
		return *v
	case *DifficultyParams:
		return *v
	case *ReviewParams:
		return *v
	case *ContentParams:
		return *v
	default:
		return p
	}
}
