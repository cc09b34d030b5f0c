package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/trainforge-backend/internal/domain/training"
)

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, title string) *types.TrainingModule {
	tb.Helper()
	m := types.NewModule(ownerID, title)
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedScene(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, sceneType types.SceneType, index int) *types.TrainingScene {
	tb.Helper()
	s := types.NewScene(moduleID, sceneType, "scene")
	s.OrderIndex = index
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if err := tx.WithContext(ctx).Create(&s).Error; err != nil {
		tb.Fatalf("seed scene: %v", err)
	}
	return &s
}

func PtrFloat(v float64) *float64 { return &v }
