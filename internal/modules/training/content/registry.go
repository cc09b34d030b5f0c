package content

import (
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceFallback = "fallback"
)

// Registry maps every scene type to its adapter. It is read-only after construction.
type Registry struct {
	adapters map[training.SceneType]Adapter
	source   string
}

// NewRegistry loads the adapter table from specPath when set, else the embedded table.
// A table that fails to load or validate is replaced by the compiled-in fallback.
func NewRegistry(log *logger.Logger, specPath string) *Registry {
	source := SourceEmbedded
	var (
		data []byte
		err  error
	)
	if p := strings.TrimSpace(specPath); p != "" {
		source = SourceFile
		data, err = os.ReadFile(p)
	} else {
		data, err = adapterSpecFS.ReadFile("adapters.yaml")
	}
	var rs []rules
	if err == nil {
		rs, err = parseRules(data)
	}
	if err != nil {
		if log != nil {
			log.Warn("content registry: adapter spec load failed; using fallback", "source", source, "error", err)
		}
		return newRegistry(fallbackRules, SourceFallback)
	}
	return newRegistry(rs, source)
}

// NewRegistryFromYAML builds a registry from raw YAML and fails instead of falling back.
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	rs, err := parseRules(data)
	if err != nil {
		return nil, err
	}
	return newRegistry(rs, SourceFile), nil
}

func newRegistry(rs []rules, source string) *Registry {
	r := &Registry{adapters: make(map[training.SceneType]Adapter, len(rs)), source: source}
	for _, rule := range rs {
		r.adapters[rule.sceneType] = ruleAdapter{rules: rule, complete: completenessFor(rule.sceneType)}
	}
	return r
}

func (r *Registry) Source() string { return r.source }

func (r *Registry) Adapter(st training.SceneType) (Adapter, error) {
	a, ok := r.adapters[st]
	if !ok {
		return nil, fmt.Errorf("no content adapter for scene type %q", st)
	}
	return a, nil
}

// CheckUpload validates a file against the scene's adapter and returns the field it will populate.
func (r *Registry) CheckUpload(scene training.TrainingScene, filename, mimeType string, size int64) (UploadTarget, error) {
	a, err := r.Adapter(scene.SceneType)
	if err != nil {
		return "", &training.UploadError{Reason: training.UploadNotAccepted, Filename: filename, Cause: err}
	}
	if err := a.CheckUpload(filename, mimeType, size); err != nil {
		return "", err
	}
	return a.UploadTarget(), nil
}

// UploadLimit is the smallest positive cap among the scene type's adapter limit and global.
func (r *Registry) UploadLimit(st training.SceneType, global int64) int64 {
	a, err := r.Adapter(st)
	if err != nil {
		return global
	}
	limit := a.MaxUploadBytes()
	if limit <= 0 || (global > 0 && global < limit) {
		return global
	}
	return limit
}

// CheckScene runs the adapter completeness predicate for one scene.
func (r *Registry) CheckScene(scene training.TrainingScene) []training.Issue {
	a, err := r.Adapter(scene.SceneType)
	if err != nil {
		id := scene.ID
		return []training.Issue{{Code: training.IssueSceneIncomplete, SceneID: &id, Message: err.Error()}}
	}
	return a.CheckComplete(scene)
}

// CheckPublishable lists every reason the module cannot be published yet.
func (r *Registry) CheckPublishable(m *training.TrainingModule) []training.Issue {
	if m == nil {
		return []training.Issue{{Code: training.IssueNoScenes, Message: "no scenes"}}
	}
	var issues []training.Issue
	if strings.TrimSpace(m.Title) == "" {
		issues = append(issues, training.Issue{Code: training.IssueMissingTitle, Field: "title", Message: "missing title"})
	}
	if len(m.Scenes) == 0 {
		issues = append(issues, training.Issue{Code: training.IssueNoScenes, Message: "no scenes"})
	}
	for _, s := range m.Scenes {
		issues = append(issues, r.CheckScene(s)...)
	}
	return issues
}

// Weight returns the scoring weight for a scene type and whether that type is scored.
func (r *Registry) Weight(st training.SceneType) (float64, bool) {
	a, err := r.Adapter(st)
	if err != nil || !a.Scored() {
		return 0, false
	}
	return a.ScoreWeight(), true
}
