package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// BatchInvalidate invalidates multiple patterns in batch
func BatchInvalidate(ctx context.Context, helper *CacheHelper, patterns []string) error {
	var lastErr error
	for _, pattern := range patterns {
		if err := helper.InvalidatePattern(ctx, pattern); err != nil {
			lastErr = err
			slog.ErrorContext(ctx, "Failed to invalidate pattern in batch",
				"error", err,
				"pattern", pattern)
		}
	}
	return lastErr
}

// InvalidateEvaluationCache invalidates all evaluation-related caches.
// Evaluation caches key off both the evaluation ID and the nominating coach,
// and the member pending flag must drop with every transition.
func InvalidateEvaluationCache(ctx context.Context, cm *CacheManager, evaluationID uint, memberID uint, coachID string) {
	SafeDelete(ctx, cm.Evaluation,
		fmt.Sprintf("id:%d", evaluationID),
		fmt.Sprintf("details:%d", evaluationID))

	SafeDelete(ctx, cm.Exists, fmt.Sprintf("pending:%d", memberID))

	SafeInvalidatePattern(ctx, cm.Evaluation, fmt.Sprintf("coach:%s:*", coachID))
	SafeInvalidatePattern(ctx, cm.Evaluation, fmt.Sprintf("member:%d:*", memberID))
	SafeInvalidatePattern(ctx, cm.Evaluation, "list:*")
	SafeInvalidatePattern(ctx, cm.Evaluation, "lookup:*")
	SafeInvalidatePattern(ctx, cm.Stats, "evaluation:*")
}

// InvalidateQuizCache invalidates quiz definition caches
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint) {
	SafeDelete(ctx, cm.Quiz,
		fmt.Sprintf("id:%d", quizID),
		fmt.Sprintf("questions:%d", quizID))
	SafeInvalidatePattern(ctx, cm.Quiz, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("quiz:%d:*", quizID))
}
