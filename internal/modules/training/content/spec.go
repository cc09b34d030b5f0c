package content

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

//go:embed adapters.yaml
var adapterSpecFS embed.FS

type yamlRegistrySpec struct {
	Registry string            `yaml:"registry"`
	Version  int               `yaml:"version"`
	Adapters []yamlAdapterSpec `yaml:"adapters"`
}

type yamlAdapterSpec struct {
	Type           string   `yaml:"type"`
	UploadTarget   string   `yaml:"upload_target"`
	Extensions     []string `yaml:"extensions"`
	MimeFamilies   []string `yaml:"mime_families"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	Scored         bool     `yaml:"scored"`
	ScoreWeight    float64  `yaml:"score_weight"`
}

// rules is the parsed, validated form of one adapter entry.
type rules struct {
	sceneType      training.SceneType
	target         UploadTarget
	extensions     []string
	mimeFamilies   []string
	maxUploadBytes int64
	scored         bool
	weight         float64
}

// fallback table used when the YAML is missing or invalid
var fallbackRules = []rules{
	{sceneType: training.SceneTypeVideo, target: TargetContentURL, extensions: []string{".mp4", ".m4v", ".webm", ".mov"}, mimeFamilies: []string{"video/"}, maxUploadBytes: 2 << 30},
	{sceneType: training.SceneTypeImage, target: TargetContentURL, extensions: []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}, mimeFamilies: []string{"image/"}, maxUploadBytes: 25 << 20},
	{sceneType: training.SceneTypeQuiz, target: TargetInline, scored: true, weight: 1},
	{sceneType: training.SceneTypeDocument, target: TargetContentURL, extensions: []string{".pdf", ".docx", ".pptx", ".txt"}, mimeFamilies: []string{"application/pdf", "application/vnd.openxmlformats-officedocument.", "text/plain"}, maxUploadBytes: 100 << 20},
	{sceneType: training.SceneTypeScorm, target: TargetScormPackageURL, extensions: []string{".zip"}, mimeFamilies: []string{"application/zip", "application/x-zip-compressed", "application/octet-stream"}, maxUploadBytes: 1 << 30, scored: true, weight: 1},
	{sceneType: training.SceneTypeDocumentBuilder, target: TargetInline},
}

func parseRules(data []byte) ([]rules, error) {
	var spec yamlRegistrySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Registry) != "training_content" {
		return nil, fmt.Errorf("unexpected registry: %q", spec.Registry)
	}
	if len(spec.Adapters) == 0 {
		return nil, errors.New("no adapters defined")
	}

	seen := map[training.SceneType]bool{}
	out := make([]rules, 0, len(spec.Adapters))
	for _, a := range spec.Adapters {
		st, err := training.ParseSceneType(a.Type)
		if err != nil {
			return nil, err
		}
		if seen[st] {
			return nil, fmt.Errorf("duplicate adapter: %s", st)
		}
		seen[st] = true

		target := UploadTarget(strings.TrimSpace(a.UploadTarget))
		if !target.valid() {
			return nil, fmt.Errorf("adapter %s: unknown upload_target %q", st, a.UploadTarget)
		}
		if target != TargetInline && len(a.Extensions) == 0 {
			return nil, fmt.Errorf("adapter %s: uploadable type needs extensions", st)
		}
		if a.ScoreWeight < 0 {
			return nil, fmt.Errorf("adapter %s: negative score_weight", st)
		}
		out = append(out, rules{
			sceneType:      st,
			target:         target,
			extensions:     lowerAll(a.Extensions),
			mimeFamilies:   lowerAll(a.MimeFamilies),
			maxUploadBytes: a.MaxUploadBytes,
			scored:         a.Scored,
			weight:         a.ScoreWeight,
		})
	}
	for _, st := range training.SceneTypes {
		if !seen[st] {
			return nil, fmt.Errorf("missing adapter: %s", st)
		}
	}
	return out, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
