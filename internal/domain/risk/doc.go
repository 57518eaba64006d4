// Package risk turns a learner's statistics snapshot into typed learning risks.
//
// The package defines:
//
//   - RiskType, the closed set of risks the engine knows about
//   - Registry, one model per risk type with its indicators, weights and trigger
//   - Analyzer, which evaluates every registered model against a snapshot
//
// # Models
//
// Two model shapes exist and are intentionally kept distinct per type.
//
// Weighted models (attention_decline, motivation_drop) evaluate each indicator
// as a binary threshold exceedance and sum the weights of the indicators that
// fired. The risk is emitted only when that sum strictly exceeds the model's
// trigger. Probability is the weighted score itself.
//
// Rule models (skill_plateau, memory_decay, pronunciation_regression) are
// boolean conditions over raw metrics. They report a score of 1 or 0 against
// a trigger of 0.5 and a fixed probability.
//
// Zero counters are valid input: all ratios use max(1, denominator), so a
// learner with no history can still raise attention and motivation flags.
//
// # Usage
//
//	registry := risk.NewRegistry(risk.DefaultConfig())
//	analyzer := risk.NewAnalyzer(registry, clock, ids)
//	risks := analyzer.Analyze(userID, snapshot, risk.Evidence{StableTrendRatio: 0.8, HasTrends: true})
package risk
