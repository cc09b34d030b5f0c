package authoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/ordering"
)

const cloneSuffix = " (Copy)"

// CloneModule deep-copies a loaded module graph. The module and every scene get fresh
// identities, scenes point at the new module, required-scene references follow their
// scenes and the copy always starts as a draft. An empty newTitle keeps the source
// title with a " (Copy)" suffix. A nil ownerID keeps the source owner.
func CloneModule(src *training.TrainingModule, newTitle string, ownerID uuid.UUID) *training.TrainingModule {
	if src == nil {
		return nil
	}
	out := src.Clone()
	out.ID = uuid.New()
	if ownerID != uuid.Nil {
		out.OwnerID = ownerID
	}
	if t := strings.TrimSpace(newTitle); t != "" {
		out.Title = t
	} else {
		out.Title = strings.TrimSpace(src.Title) + cloneSuffix
	}
	out.Status = training.ModuleStatusDraft
	out.CreatedAt = time.Time{}
	out.UpdatedAt = time.Time{}

	remap := make(map[uuid.UUID]uuid.UUID, len(out.Scenes))
	for i := range out.Scenes {
		fresh := uuid.New()
		remap[out.Scenes[i].ID] = fresh
		out.Scenes[i].ID = fresh
		out.Scenes[i].ModuleID = out.ID
		out.Scenes[i].CreatedAt = time.Time{}
		out.Scenes[i].UpdatedAt = time.Time{}
	}
	out.Scenes = ordering.SortByOrder(out.Scenes)

	if c := out.Metadata.CompletionCriteria; c != nil {
		ids := make([]uuid.UUID, 0, len(c.RequiredSceneIDs))
		for _, id := range c.RequiredSceneIDs {
			if fresh, ok := remap[id]; ok {
				ids = append(ids, fresh)
			}
		}
		c.RequiredSceneIDs = ids
	}
	return out
}

// Clone loads sourceID from store, copies it with CloneModule and persists the copy.
// Timestamps come from opts.Now.
func Clone(ctx context.Context, store Store, sourceID uuid.UUID, newTitle string, ownerID uuid.UUID, opts Options) (*training.TrainingModule, error) {
	src, err := store.LoadModule(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load clone source: %w", err)
	}
	if src == nil {
		return nil, training.ErrModuleNotFound
	}
	out := CloneModule(src, newTitle, ownerID)
	now := opts.clock()().UTC()
	out.CreatedAt = now
	out.UpdatedAt = now
	for i := range out.Scenes {
		out.Scenes[i].CreatedAt = now
		out.Scenes[i].UpdatedAt = now
	}
	if err := store.SaveModule(ctx, out); err != nil {
		return nil, fmt.Errorf("save clone: %w", err)
	}
	return out, nil
}
