package command

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/tracing"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYZE PROFILE COMMAND
// Rebuilds a learner profile from the current snapshot and stores it as the
// learner's latest profile.
// ══════════════════════════════════════════════════════════════════════════════

// AnalyzeProfileHandler rebuilds learner profiles.
type AnalyzeProfileHandler struct {
	snapshots *SnapshotSource
	builder   profile.Builder
	store     profile.Store
	publisher shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewAnalyzeProfileHandler creates a handler. store may be nil.
func NewAnalyzeProfileHandler(snapshots *SnapshotSource, store profile.Store, publisher shared.EventPublisher, clock timeutil.Clock, log *logger.Logger) *AnalyzeProfileHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalyzeProfileHandler{
		snapshots: snapshots,
		store:     store,
		publisher: publisher,
		clock:     clock,
		log:       log.With(logger.Component("analyze_profile")),
	}
}

// Handle rebuilds the profile. A store failure is logged and the fresh
// profile is still returned.
func (h *AnalyzeProfileHandler) Handle(ctx context.Context, userID string) (profile.LearningProfile, error) {
	p, _, err := h.Rebuild(ctx, userID)
	return p, err
}

// Rebuild is Handle reporting whether the profile reflects live statistics.
// While the provider is down nothing is stored: the latest stored profile is
// served, else one built from the last known snapshot. A learner with
// neither gets ErrStatsUnavailable.
func (h *AnalyzeProfileHandler) Rebuild(ctx context.Context, userID string) (p profile.LearningProfile, fresh bool, err error) {
	if userID == "" {
		return profile.LearningProfile{}, false, shared.ErrEmptyUserID
	}
	ctx, span := tracing.Start(ctx, "command.AnalyzeProfile", attribute.String("user_id", userID))
	defer func() { tracing.End(span, err) }()

	snap, degraded, err := h.snapshots.Get(ctx, userID)
	if degraded {
		if h.store != nil {
			stored, gerr := h.store.Get(ctx, userID)
			if gerr == nil {
				h.log.Debug("serving stored profile", logger.UserID(userID))
				return stored, false, nil
			}
			if !shared.IsNotFound(gerr) {
				h.log.Warn("failed to load stored profile", logger.UserID(userID), logger.Err(gerr))
			}
		}
		if err != nil {
			return profile.LearningProfile{}, false, err
		}
		return h.builder.Build(userID, snap, h.clock.Now()), false, nil
	}

	now := h.clock.Now()
	p = h.builder.Build(userID, snap, now)

	if h.store != nil {
		if serr := h.store.Save(ctx, p); serr != nil {
			h.log.Warn("failed to store profile", logger.UserID(userID), logger.Err(serr))
		}
	}
	if perr := h.publisher.Publish(shared.NewProfileRebuiltEvent(userID, string(p.LearningStyle), now)); perr != nil {
		h.log.Warn("failed to publish profile.rebuilt", logger.UserID(userID), logger.Err(perr))
	}

	h.log.Debug("profile rebuilt",
		logger.UserID(userID),
		logger.String("style", string(p.LearningStyle)),
	)
	return p, true, nil
}

// Latest returns the stored profile without rebuilding it.
func (h *AnalyzeProfileHandler) Latest(ctx context.Context, userID string) (profile.LearningProfile, error) {
	if userID == "" {
		return profile.LearningProfile{}, shared.ErrEmptyUserID
	}
	if h.store == nil {
		return profile.LearningProfile{}, shared.ErrProfileNotFound
	}
	return h.store.Get(ctx, userID)
}
