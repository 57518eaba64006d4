package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/internal/domain/path"
	"github.com/alem-hub/learnpulse/internal/domain/profile"
	"github.com/alem-hub/learnpulse/internal/domain/shared"
	"github.com/alem-hub/learnpulse/pkg/logger"
	"github.com/alem-hub/learnpulse/pkg/timeutil"
	"github.com/alem-hub/learnpulse/pkg/tracing"
	"github.com/alem-hub/learnpulse/pkg/ttlcache"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET OPTIMIZED PATH QUERY
// Returns the learner's cached path while it is valid; otherwise rebuilds
// the profile, optimizes a fresh path and caches it until ValidUntil. A path
// built while statistics are unavailable is served but never cached.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileSource rebuilds a learner profile. fresh is false when the profile
// was served from fallback data.
type ProfileSource interface {
	Rebuild(ctx context.Context, userID string) (p profile.LearningProfile, fresh bool, err error)
}

// PathCacheObserver records cache outcomes.
type PathCacheObserver interface {
	PathCache(hit bool)
}

// PathResult is a path and whether it came from the cache.
type PathResult struct {
	Path   path.OptimizedLearningPath `json:"path"`
	Cached bool                       `json:"cached"`
}

// GetOptimizedPathHandler serves optimized learning paths.
type GetOptimizedPathHandler struct {
	cache       *ttlcache.Cache[path.OptimizedLearningPath]
	profiles    ProfileSource
	optimizer   *path.Optimizer
	plain       *path.Optimizer
	adjustments FeatureGate
	publisher   shared.EventPublisher
	observer    PathCacheObserver
	clock       timeutil.Clock
	log         *logger.Logger
}

// NewGetOptimizedPathHandler creates a handler. adjustments gates adaptive
// adjustments per learner; observer may be nil.
func NewGetOptimizedPathHandler(
	cache *ttlcache.Cache[path.OptimizedLearningPath],
	profiles ProfileSource,
	optimizer *path.Optimizer,
	adjustments FeatureGate,
	publisher shared.EventPublisher,
	observer PathCacheObserver,
	clock timeutil.Clock,
	log *logger.Logger,
) *GetOptimizedPathHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &GetOptimizedPathHandler{
		cache:       cache,
		profiles:    profiles,
		optimizer:   optimizer,
		plain:       optimizer.WithoutAdjustments(),
		adjustments: adjustments,
		publisher:   publisher,
		observer:    observer,
		clock:       clock,
		log:         log.With(logger.Component("path")),
	}
}

// Handle returns the learner's path.
func (h *GetOptimizedPathHandler) Handle(ctx context.Context, userID string) (res *PathResult, err error) {
	if userID == "" {
		return nil, shared.ErrEmptyUserID
	}
	ctx, span := tracing.Start(ctx, "query.GetOptimizedPath", attribute.String("user_id", userID))
	defer func() { tracing.End(span, err) }()

	p, hit, err := h.cache.GetOrCompute(ctx, userID, func(ctx context.Context) (path.OptimizedLearningPath, error) {
		return h.compute(ctx, userID)
	})
	if err != nil && p.ID == "" {
		return nil, err
	}
	if err != nil {
		h.log.Warn("path computed but not cached", logger.UserID(userID), logger.Err(err))
	}

	if h.observer != nil {
		h.observer.PathCache(hit)
	}
	span.SetAttributes(attribute.Bool("cache_hit", hit))
	return &PathResult{Path: p, Cached: hit}, nil
}

// Invalidate drops the learner's cached path.
func (h *GetOptimizedPathHandler) Invalidate(ctx context.Context, userID string) error {
	return h.cache.Invalidate(ctx, userID)
}

func (h *GetOptimizedPathHandler) compute(ctx context.Context, userID string) (path.OptimizedLearningPath, error) {
	prof, fresh, err := h.profiles.Rebuild(ctx, userID)
	if err != nil {
		return path.OptimizedLearningPath{}, err
	}

	optimizer := h.optimizer
	if !h.adjustments.enabled(userID) {
		optimizer = h.plain
	}
	p := optimizer.Optimize(prof, h.clock.Now())

	event := shared.NewPathGeneratedEvent(p.ID, userID, string(p.CurrentPhase), p.ValidUntil, p.GeneratedAt)
	if err := h.publisher.Publish(event); err != nil {
		h.log.Warn("failed to publish path.generated", logger.UserID(userID), logger.Err(err))
	}
	h.log.Info("path generated",
		logger.UserID(userID),
		logger.String("phase", string(p.CurrentPhase)),
		logger.Time("valid_until", p.ValidUntil),
		logger.Bool("fresh", fresh),
	)
	if !fresh {
		return p, ttlcache.ErrNoStore
	}
	return p, nil
}
