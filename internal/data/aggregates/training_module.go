package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/data/repos"
	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/ordering"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
)

const moduleTable = "training_module"

type TrainingModuleAggregateDeps struct {
	Base BaseDeps

	Modules  repos.ModuleRepo
	Scenes   repos.SceneRepo
	Attempts repos.ScormAttemptRepo
	Progress repos.SceneProgressRepo
}

type trainingModuleAggregate struct {
	deps TrainingModuleAggregateDeps
}

func NewTrainingModuleAggregate(deps TrainingModuleAggregateDeps) domainagg.TrainingModuleAggregate {
	deps.Base = deps.Base.withDefaults()
	return &trainingModuleAggregate{deps: deps}
}

func (a *trainingModuleAggregate) Contract() domainagg.Contract {
	return domainagg.TrainingModuleAggregateContract
}

func (a *trainingModuleAggregate) LoadModule(ctx context.Context, id uuid.UUID) (*training.TrainingModule, error) {
	const op = "training.module.load"
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "module id is required", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	m, err := a.deps.Modules.GetByID(dbc, id)
	if err != nil {
		return nil, TrainingError(op, MapError(op, err))
	}
	if m == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "module not found", training.ErrModuleNotFound)
	}
	scenes, err := a.deps.Scenes.ListByModule(dbc, id)
	if err != nil {
		return nil, TrainingError(op, MapError(op, err))
	}
	m.Scenes = make([]training.TrainingScene, 0, len(scenes))
	for _, s := range scenes {
		if s != nil {
			m.Scenes = append(m.Scenes, *s)
		}
	}
	m.Scenes = ordering.SortByOrder(m.Scenes)
	return m, nil
}

func (a *trainingModuleAggregate) SaveModule(ctx context.Context, m *training.TrainingModule) error {
	const op = "training.module.save"
	if m == nil || m.ID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "module with id is required", nil)
	}
	if m.OwnerID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "owner_id is required", nil)
	}
	keep := make([]uuid.UUID, 0, len(m.Scenes))
	rows := make([]*training.TrainingScene, 0, len(m.Scenes))
	for i := range m.Scenes {
		if m.Scenes[i].ModuleID != m.ID {
			return domainagg.NewError(domainagg.CodeInvariantViolation, op,
				fmt.Sprintf("scene %s belongs to module %s", m.Scenes[i].ID, m.Scenes[i].ModuleID), nil)
		}
		keep = append(keep, m.Scenes[i].ID)
		s := m.Scenes[i]
		rows = append(rows, &s)
	}
	if err := ordering.CheckOrder(m.Scenes); err != nil {
		return domainagg.NewError(domainagg.CodeInvariantViolation, op, err.Error(), err)
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	if m.Status == "" {
		m.Status = training.ModuleStatusDraft
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row := *m
		row.Scenes = nil
		if err := a.deps.Modules.Upsert(dbc, &row); err != nil {
			return err
		}
		existing, err := a.deps.Scenes.ListByModule(dbc, m.ID)
		if err != nil {
			return err
		}
		kept := make(map[uuid.UUID]bool, len(keep))
		for _, id := range keep {
			kept[id] = true
		}
		var removed []uuid.UUID
		for _, s := range existing {
			if s != nil && !kept[s.ID] {
				removed = append(removed, s.ID)
			}
		}
		if len(removed) > 0 {
			if err := a.deps.Attempts.FullDeleteByScenes(dbc, removed); err != nil {
				return err
			}
			if err := a.deps.Progress.FullDeleteByScenes(dbc, removed); err != nil {
				return err
			}
		}
		if _, err := a.deps.Scenes.DeleteByModuleExcept(dbc, m.ID, keep); err != nil {
			return err
		}
		return a.deps.Scenes.Upsert(dbc, rows)
	})
	return TrainingError(op, err)
}

func (a *trainingModuleAggregate) TransitionStatus(ctx context.Context, id uuid.UUID, from []training.ModuleStatus, to training.ModuleStatus) (bool, error) {
	const op = "training.module.transition_status"
	if id == uuid.Nil || to == "" || len(from) == 0 {
		return false, domainagg.NewError(domainagg.CodeValidation, op, "id, from and to are required", nil)
	}
	var ok bool
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		ok, err = casModuleStatus(dbc, id, from, to, time.Now().UTC())
		if err != nil || ok {
			return err
		}
		m, err := a.deps.Modules.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "module not found", training.ErrModuleNotFound)
		}
		return nil
	})
	if err != nil {
		return false, TrainingError(op, err)
	}
	return ok, nil
}

func (a *trainingModuleAggregate) DeleteModule(ctx context.Context, id uuid.UUID) error {
	const op = "training.module.delete"
	if id == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "module id is required", nil)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		m, err := a.deps.Modules.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "module not found", training.ErrModuleNotFound)
		}
		if err := a.deps.Attempts.FullDeleteByModule(dbc, id); err != nil {
			return err
		}
		if err := a.deps.Progress.FullDeleteByModule(dbc, id); err != nil {
			return err
		}
		if err := a.deps.Scenes.FullDeleteByModule(dbc, id); err != nil {
			return err
		}
		return a.deps.Modules.FullDeleteByID(dbc, id)
	})
	return TrainingError(op, err)
}
