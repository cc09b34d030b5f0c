package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/trainforge-backend/internal/data/repos"
	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/modules/training/accessibility"
	"github.com/yungbote/trainforge-backend/internal/modules/training/authoring"
	"github.com/yungbote/trainforge-backend/internal/modules/training/content"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
	"github.com/yungbote/trainforge-backend/internal/platform/gcp"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type TrainingService interface {
	CreateModule(ctx context.Context, actor Actor, in CreateModuleInput) (*ModuleView, error)
	GetModule(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleView, error)
	ListModules(ctx context.Context, actor Actor) ([]*training.TrainingModule, error)
	UpdateModule(ctx context.Context, actor Actor, moduleID uuid.UUID, in ModulePatch) (*ModuleView, error)
	DeleteModule(ctx context.Context, actor Actor, moduleID uuid.UUID) error

	AddScene(ctx context.Context, actor Actor, moduleID uuid.UUID, in SceneInput) (*training.TrainingScene, error)
	UpdateScene(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, in ScenePatch) (*training.TrainingScene, error)
	RemoveScene(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID) error
	DuplicateScene(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID) (*training.TrainingScene, error)
	ReorderScenes(ctx context.Context, actor Actor, moduleID uuid.UUID, in ReorderInput) (*ModuleView, error)

	SetCompletionCriteria(ctx context.Context, actor Actor, moduleID uuid.UUID, c *training.CompletionCriteria) (*ModuleView, error)
	SetAccessibility(ctx context.Context, actor Actor, moduleID uuid.UUID, s training.AccessibilitySettings) (*accessibility.Report, error)
	AccessibilityReport(ctx context.Context, actor Actor, moduleID uuid.UUID) (*accessibility.Report, error)
	SetScormConfig(ctx context.Context, actor Actor, moduleID uuid.UUID, c *training.ScormConfig) (*ModuleView, error)

	SaveState(ctx context.Context, actor Actor, moduleID uuid.UUID) (*SaveStatus, error)
	Save(ctx context.Context, actor Actor, moduleID uuid.UUID) (*SaveStatus, error)
	Publish(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleView, error)
	Unpublish(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleView, error)
	Clone(ctx context.Context, actor Actor, moduleID uuid.UUID, newTitle string) (*ModuleView, error)

	// Editor returns the live editor for a module the actor may edit.
	Editor(ctx context.Context, actor Actor, moduleID uuid.UUID) (*authoring.Editor, error)
	// PublishedModule loads a module a learner may play.
	PublishedModule(ctx context.Context, actor Actor, moduleID uuid.UUID) (*training.TrainingModule, error)
}

type ModuleView struct {
	Module    *training.TrainingModule `json:"module"`
	SaveState training.SaveState       `json:"save_state"`
	Revision  uint64                   `json:"revision"`
}

type SaveStatus struct {
	ModuleID  uuid.UUID          `json:"module_id"`
	SaveState training.SaveState `json:"save_state"`
	Revision  uint64             `json:"revision"`
	Issues    []training.Issue   `json:"issues,omitempty"`
}

type CreateModuleInput struct {
	Title                    string                   `json:"title"`
	Description              string                   `json:"description"`
	Category                 string                   `json:"category"`
	Tags                     []string                 `json:"tags"`
	Language                 string                   `json:"language"`
	Industry                 string                   `json:"industry"`
	TargetRoles              []string                 `json:"target_roles"`
	DifficultyLevel          training.DifficultyLevel `json:"difficulty_level"`
	EstimatedDurationMinutes int                      `json:"estimated_duration_minutes"`
	// Save persists the new module immediately instead of leaving it unsaved.
	Save bool `json:"save"`
}

type ModulePatch struct {
	Title                    *string                   `json:"title"`
	Description              *string                   `json:"description"`
	Category                 *string                   `json:"category"`
	Tags                     *[]string                 `json:"tags"`
	Language                 *string                   `json:"language"`
	Industry                 *string                   `json:"industry"`
	TargetRoles              *[]string                 `json:"target_roles"`
	DifficultyLevel          *training.DifficultyLevel `json:"difficulty_level"`
	EstimatedDurationMinutes *int                      `json:"estimated_duration_minutes"`
	LearningObjectives       *[]string                 `json:"learning_objectives"`
	Prerequisites            *[]string                 `json:"prerequisites"`
	CertificateTemplateID    *string                   `json:"certificate_template_id"`
}

type SceneInput struct {
	SceneType                string                  `json:"scene_type"`
	Title                    string                  `json:"title"`
	Description              string                  `json:"description"`
	DocumentContent          string                  `json:"document_content"`
	EstimatedDurationMinutes int                     `json:"estimated_duration_minutes"`
	IsRequired               bool                    `json:"is_required"`
	AutoAdvance              bool                    `json:"auto_advance"`
	Metadata                 *training.SceneMetadata `json:"metadata"`
	AtIndex                  *int                    `json:"at_index"`
}

type ScenePatch struct {
	Title                    *string                 `json:"title"`
	Description              *string                 `json:"description"`
	DocumentContent          *string                 `json:"document_content"`
	EstimatedDurationMinutes *int                    `json:"estimated_duration_minutes"`
	IsRequired               *bool                   `json:"is_required"`
	AutoAdvance              *bool                   `json:"auto_advance"`
	Metadata                 *training.SceneMetadata `json:"metadata"`
}

// ReorderInput moves either by position (From/To) or by scene id (SceneID/To).
type ReorderInput struct {
	From    *int       `json:"from"`
	To      int        `json:"to"`
	SceneID *uuid.UUID `json:"scene_id"`
}

// AttemptInvalidator drops cached runtime state for a deleted module.
type AttemptInvalidator interface {
	InvalidateModule(ctx context.Context, moduleID uuid.UUID)
}

type trainingService struct {
	log      *logger.Logger
	modules  repos.ModuleRepo
	store    domainagg.TrainingModuleAggregate
	editors  *authoring.EditorRegistry
	registry *content.Registry
	cache    AttemptInvalidator
	assets   gcp.BucketService
	metrics  *observability.Metrics
}

type TrainingServiceDeps struct {
	Modules  repos.ModuleRepo
	Store    domainagg.TrainingModuleAggregate
	Editors  *authoring.EditorRegistry
	Registry *content.Registry
	// Cache and Assets are optional.
	Cache   AttemptInvalidator
	Assets  gcp.BucketService
	Metrics *observability.Metrics
}

func NewTrainingService(baseLog *logger.Logger, deps TrainingServiceDeps) TrainingService {
	return &trainingService{
		log:      baseLog.With("service", "TrainingService"),
		modules:  deps.Modules,
		store:    deps.Store,
		editors:  deps.Editors,
		registry: deps.Registry,
		cache:    deps.Cache,
		assets:   deps.Assets,
		metrics:  deps.Metrics,
	}
}

func viewOf(e *authoring.Editor) *ModuleView {
	return &ModuleView{Module: e.Module(), SaveState: e.State(), Revision: e.Revision()}
}

// =====================================
// Modules
// =====================================

func (s *trainingService) CreateModule(ctx context.Context, actor Actor, in CreateModuleInput) (*ModuleView, error) {
	if !actor.CanAuthor() {
		return nil, ErrForbidden
	}
	m := training.NewModule(actor.UserID, in.Title)
	m.Description = strings.TrimSpace(in.Description)
	m.Category = strings.TrimSpace(in.Category)
	m.Tags = datatypes.JSONSlice[string](in.Tags)
	m.Language = strings.TrimSpace(in.Language)
	m.Industry = strings.TrimSpace(in.Industry)
	m.TargetRoles = datatypes.JSONSlice[string](in.TargetRoles)
	if in.DifficultyLevel != "" {
		m.DifficultyLevel = in.DifficultyLevel
	}
	m.EstimatedDurationMinutes = in.EstimatedDurationMinutes
	if err := m.Validate(); err != nil {
		return nil, err
	}

	e := s.editors.Create(m)
	s.log.Info("CreateModule", "module_id", m.ID, "owner_id", actor.UserID)
	if in.Save {
		if err := s.save(ctx, e); err != nil {
			return nil, err
		}
	}
	return viewOf(e), nil
}

func (s *trainingService) GetModule(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleView, error) {
	if e, ok := s.editors.Get(moduleID); ok {
		m := e.Module()
		if !actor.canView(m) {
			return nil, ErrForbidden
		}
		if !actor.canEdit(m) {
			// learners never see unsaved edits
			return s.loadView(ctx, actor, moduleID)
		}
		return viewOf(e), nil
	}
	return s.loadView(ctx, actor, moduleID)
}

func (s *trainingService) loadView(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleView, error) {
	m, err := s.store.LoadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !actor.canView(m) {
		return nil, ErrForbidden
	}
	return &ModuleView{Module: m, SaveState: training.SaveStateSaved}, nil
}

func (s *trainingService) ListModules(ctx context.Context, actor Actor) ([]*training.TrainingModule, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if actor.CanAuthor() && !actor.IsAdmin() {
		return s.modules.ListByOwner(dbc, actor.UserID)
	}
	if actor.IsAdmin() {
		return s.modules.ListByStatus(dbc, []training.ModuleStatus{
			training.ModuleStatusDraft, training.ModuleStatusPublished, training.ModuleStatusArchived,
		})
	}
	return s.modules.ListByStatus(dbc, []training.ModuleStatus{training.ModuleStatusPublished})
}

func (s *trainingService) UpdateModule(ctx context.Context, actor Actor, moduleID uuid.UUID, in ModulePatch) (*ModuleView, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	err = e.UpdateModule(func(m *training.TrainingModule) {
		if in.Title != nil {
			m.Title = *in.Title
		}
		if in.Description != nil {
			m.Description = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			m.Category = strings.TrimSpace(*in.Category)
		}
		if in.Tags != nil {
			m.Tags = datatypes.JSONSlice[string](*in.Tags)
		}
		if in.Language != nil {
			m.Language = strings.TrimSpace(*in.Language)
		}
		if in.Industry != nil {
			m.Industry = strings.TrimSpace(*in.Industry)
		}
		if in.TargetRoles != nil {
			m.TargetRoles = datatypes.JSONSlice[string](*in.TargetRoles)
		}
		if in.DifficultyLevel != nil {
			m.DifficultyLevel = *in.DifficultyLevel
		}
		if in.EstimatedDurationMinutes != nil {
			m.EstimatedDurationMinutes = *in.EstimatedDurationMinutes
		}
		if in.LearningObjectives != nil {
			m.Metadata.LearningObjectives = *in.LearningObjectives
		}
		if in.Prerequisites != nil {
			m.Metadata.Prerequisites = *in.Prerequisites
		}
		if in.CertificateTemplateID != nil {
			m.Metadata.CertificateTemplateID = strings.TrimSpace(*in.CertificateTemplateID)
		}
	})
	if err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

func (s *trainingService) DeleteModule(ctx context.Context, actor Actor, moduleID uuid.UUID) error {
	m, err := s.current(ctx, moduleID)
	if err != nil {
		return err
	}
	if !actor.canEdit(m) {
		return ErrForbidden
	}
	if err := s.store.DeleteModule(ctx, moduleID); err != nil {
		// an editor for a module that was never saved has nothing to delete
		if !errors.Is(err, training.ErrModuleNotFound) {
			return err
		}
		if _, ok := s.editors.Get(moduleID); !ok {
			return err
		}
	}
	s.editors.Close(moduleID)
	if s.cache != nil {
		s.cache.InvalidateModule(ctx, moduleID)
	}
	if s.assets != nil {
		prefix := assetPrefix(moduleID)
		for _, cat := range []gcp.BucketCategory{gcp.BucketCategoryMedia, gcp.BucketCategoryScorm} {
			n, err := s.assets.DeletePrefix(ctx, cat, prefix)
			if err != nil {
				s.log.Warn("DeleteModule asset cleanup failed", "module_id", moduleID, "category", cat, "error", err)
				continue
			}
			s.log.Debug("DeleteModule assets removed", "module_id", moduleID, "category", cat, "objects", n)
		}
	}
	s.log.Info("DeleteModule", "module_id", moduleID)
	return nil
}

// current returns the live editor view when open, else the stored module.
func (s *trainingService) current(ctx context.Context, moduleID uuid.UUID) (*training.TrainingModule, error) {
	if e, ok := s.editors.Get(moduleID); ok {
		return e.Module(), nil
	}
	return s.store.LoadModule(ctx, moduleID)
}

func (s *trainingService) Editor(ctx context.Context, actor Actor, moduleID uuid.UUID) (*authoring.Editor, error) {
	if !actor.CanAuthor() {
		return nil, ErrForbidden
	}
	e, err := s.editors.Open(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !actor.canEdit(e.Module()) {
		return nil, ErrForbidden
	}
	return e, nil
}

func (s *trainingService) PublishedModule(ctx context.Context, actor Actor, moduleID uuid.UUID) (*training.TrainingModule, error) {
	m, err := s.store.LoadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !actor.canView(m) {
		return nil, ErrForbidden
	}
	return m, nil
}

// =====================================
// Scenes
// =====================================

func (s *trainingService) AddScene(ctx context.Context, actor Actor, moduleID uuid.UUID, in SceneInput) (*training.TrainingScene, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	st, err := training.ParseSceneType(in.SceneType)
	if err != nil {
		return nil, err
	}
	scene := training.NewScene(moduleID, st, in.Title)
	scene.Description = strings.TrimSpace(in.Description)
	scene.DocumentContent = in.DocumentContent
	if in.EstimatedDurationMinutes > 0 {
		scene.EstimatedDurationMinutes = in.EstimatedDurationMinutes
	}
	scene.IsRequired = in.IsRequired
	scene.AutoAdvance = in.AutoAdvance
	if in.Metadata != nil {
		scene.Metadata = *in.Metadata
	}
	out, err := e.InsertScene(scene, in.AtIndex)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *trainingService) UpdateScene(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID, in ScenePatch) (*training.TrainingScene, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	out, err := e.UpdateScene(sceneID, func(sc *training.TrainingScene) {
		if in.Title != nil {
			sc.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			sc.Description = strings.TrimSpace(*in.Description)
		}
		if in.DocumentContent != nil {
			sc.DocumentContent = *in.DocumentContent
		}
		if in.EstimatedDurationMinutes != nil {
			sc.EstimatedDurationMinutes = *in.EstimatedDurationMinutes
		}
		if in.IsRequired != nil {
			sc.IsRequired = *in.IsRequired
		}
		if in.AutoAdvance != nil {
			sc.AutoAdvance = *in.AutoAdvance
		}
		if in.Metadata != nil {
			sc.Metadata = *in.Metadata
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *trainingService) RemoveScene(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID) error {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return err
	}
	return e.RemoveScene(sceneID)
}

func (s *trainingService) DuplicateScene(ctx context.Context, actor Actor, moduleID, sceneID uuid.UUID) (*training.TrainingScene, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	out, err := e.DuplicateScene(sceneID)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *trainingService) ReorderScenes(ctx context.Context, actor Actor, moduleID uuid.UUID, in ReorderInput) (*ModuleView, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	switch {
	case in.SceneID != nil:
		err = e.MoveScene(*in.SceneID, in.To)
	case in.From != nil:
		err = e.ReorderScenes(*in.From, in.To)
	default:
		err = training.NewValidationError(training.Issue{
			Code: training.IssueInvalidField, Field: "from", Message: "from or scene_id is required",
		})
	}
	if err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

// =====================================
// Settings
// =====================================

func (s *trainingService) SetCompletionCriteria(ctx context.Context, actor Actor, moduleID uuid.UUID, c *training.CompletionCriteria) (*ModuleView, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	if err := e.SetCompletionCriteria(c); err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

// SetAccessibility stores the settings. The module counts as compliant once the score
// reaches the acceptable band.
func (s *trainingService) SetAccessibility(ctx context.Context, actor Actor, moduleID uuid.UUID, settings training.AccessibilitySettings) (*accessibility.Report, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	report := accessibility.BuildReport(&settings)
	if err := e.SetAccessibility(settings, report.Class != accessibility.ClassNeedsImprovement); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *trainingService) AccessibilityReport(ctx context.Context, actor Actor, moduleID uuid.UUID) (*accessibility.Report, error) {
	v, err := s.GetModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	report := accessibility.BuildReport(v.Module.Metadata.Accessibility)
	return &report, nil
}

func (s *trainingService) SetScormConfig(ctx context.Context, actor Actor, moduleID uuid.UUID, c *training.ScormConfig) (*ModuleView, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	if err := e.SetScormConfig(c); err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

// =====================================
// Save / publish / clone
// =====================================

func (s *trainingService) SaveState(ctx context.Context, actor Actor, moduleID uuid.UUID) (*SaveStatus, error) {
	if e, ok := s.editors.Get(moduleID); ok {
		if !actor.canEdit(e.Module()) {
			return nil, ErrForbidden
		}
		return &SaveStatus{ModuleID: moduleID, SaveState: e.State(), Revision: e.Revision(), Issues: e.Issues()}, nil
	}
	m, err := s.store.LoadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !actor.canEdit(m) {
		return nil, ErrForbidden
	}
	return &SaveStatus{ModuleID: moduleID, SaveState: training.SaveStateSaved, Issues: s.registry.CheckPublishable(m)}, nil
}

func (s *trainingService) Save(ctx context.Context, actor Actor, moduleID uuid.UUID) (*SaveStatus, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, e); err != nil {
		return nil, err
	}
	return &SaveStatus{ModuleID: moduleID, SaveState: e.State(), Revision: e.Revision()}, nil
}

func (s *trainingService) save(ctx context.Context, e *authoring.Editor) error {
	err := e.Save(ctx)
	s.metrics.IncModuleSave(saveOutcome(err))
	if err != nil {
		s.log.Warn("Save failed", "module_id", e.ModuleID(), "error", err)
	}
	return err
}

func saveOutcome(err error) string {
	switch {
	case err == nil:
		return "saved"
	case errors.Is(err, authoring.ErrSaveInProgress):
		return "rejected"
	case authoring.IsValidation(err):
		return "invalid"
	default:
		return "failed"
	}
}

func (s *trainingService) Publish(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleView, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	err = e.Publish(ctx)
	s.metrics.IncModuleSave("publish_" + saveOutcome(err))
	if err != nil {
		return nil, err
	}
	s.log.Info("Publish", "module_id", moduleID)
	return viewOf(e), nil
}

func (s *trainingService) Unpublish(ctx context.Context, actor Actor, moduleID uuid.UUID) (*ModuleView, error) {
	e, err := s.Editor(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	if err := e.Unpublish(ctx); err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

// Clone copies the stored version of the module. Unsaved edits in an open editor are
// not part of the copy.
func (s *trainingService) Clone(ctx context.Context, actor Actor, moduleID uuid.UUID, newTitle string) (*ModuleView, error) {
	if !actor.CanAuthor() {
		return nil, ErrForbidden
	}
	src, err := s.store.LoadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !actor.canView(src) {
		return nil, ErrForbidden
	}
	out, err := authoring.Clone(ctx, s.store, moduleID, newTitle, actor.UserID, s.editors.Options())
	if err != nil {
		return nil, fmt.Errorf("clone module %s: %w", moduleID, err)
	}
	s.log.Info("Clone", "source_id", moduleID, "module_id", out.ID)
	return &ModuleView{Module: out, SaveState: training.SaveStateSaved}, nil
}

func assetPrefix(moduleID uuid.UUID) string {
	return "modules/" + moduleID.String() + "/"
}
