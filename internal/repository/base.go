// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"threads/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, pgUniqueViolation)
}

// loadSummaries fetches the public projection of each user in ids, keyed by id.
func loadSummaries(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]models.UserSummary, error) {
	out := make(map[uint]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var summaries []models.UserSummary
	if err := db.WithContext(ctx).
		Model(&models.User{}).
		Select("id, username, full_name, avatar").
		Where("id IN ?", uniqueIDs(ids)).
		Find(&summaries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	for _, s := range summaries {
		out[s.ID] = s
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func summaryPtr(m map[uint]models.UserSummary, id uint) *models.UserSummary {
	s, ok := m[id]
	if !ok {
		return nil
	}
	return &s
}
