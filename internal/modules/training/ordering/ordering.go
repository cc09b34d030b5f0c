// Package ordering keeps a module's scene list in a contiguous zero-based order.
//
// Every function returns a new module value. The input module and its scenes are
// never mutated, so a failed call leaves the caller's state untouched.
package ordering

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

const copySuffix = " (Copy)"

var (
	ErrIndexOutOfRange = errors.New("scene index out of range")
	ErrSceneNotFound   = training.ErrSceneNotFound
	ErrDuplicateID     = errors.New("duplicate scene id")
)

// InsertScene inserts scene at atIndex, or appends when atIndex is nil.
// atIndex may equal len(scenes).
func InsertScene(m *training.TrainingModule, scene training.TrainingScene, atIndex *int) (*training.TrainingModule, error) {
	if m == nil {
		return nil, training.ErrModuleNotFound
	}
	if scene.ID == uuid.Nil {
		scene.ID = uuid.New()
	}
	if m.SceneIndex(scene.ID) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, scene.ID)
	}
	n := len(m.Scenes)
	at := n
	if atIndex != nil {
		at = *atIndex
	}
	if at < 0 || at > n {
		return nil, fmt.Errorf("%w: insert at %d (len %d)", ErrIndexOutOfRange, at, n)
	}

	out := shallow(m)
	scene.ModuleID = m.ID
	scenes := make([]training.TrainingScene, 0, n+1)
	scenes = append(scenes, m.Scenes[:at]...)
	scenes = append(scenes, scene)
	scenes = append(scenes, m.Scenes[at:]...)
	out.Scenes = Renumber(scenes)
	return out, nil
}

// RemoveScene drops the scene with sceneID and closes the gap.
func RemoveScene(m *training.TrainingModule, sceneID uuid.UUID) (*training.TrainingModule, error) {
	if m == nil {
		return nil, training.ErrModuleNotFound
	}
	idx := m.SceneIndex(sceneID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	out := shallow(m)
	scenes := make([]training.TrainingScene, 0, len(m.Scenes)-1)
	scenes = append(scenes, m.Scenes[:idx]...)
	scenes = append(scenes, m.Scenes[idx+1:]...)
	out.Scenes = Renumber(scenes)
	return out, nil
}

// Reorder moves the scene at from so that it ends up at to (remove, then insert).
// Reorder(m, i, i) returns an identical copy.
func Reorder(m *training.TrainingModule, from, to int) (*training.TrainingModule, error) {
	if m == nil {
		return nil, training.ErrModuleNotFound
	}
	n := len(m.Scenes)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: move %d -> %d (len %d)", ErrIndexOutOfRange, from, to, n)
	}
	out := shallow(m)
	scenes := make([]training.TrainingScene, n)
	copy(scenes, m.Scenes)
	if from != to {
		moved := scenes[from]
		if from < to {
			copy(scenes[from:to], scenes[from+1:to+1])
		} else {
			copy(scenes[to+1:from+1], scenes[to:from])
		}
		scenes[to] = moved
	}
	out.Scenes = Renumber(scenes)
	return out, nil
}

// MoveSceneByID moves the scene with sceneID to position to.
func MoveSceneByID(m *training.TrainingModule, sceneID uuid.UUID, to int) (*training.TrainingModule, error) {
	if m == nil {
		return nil, training.ErrModuleNotFound
	}
	from := m.SceneIndex(sceneID)
	if from < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	return Reorder(m, from, to)
}

// DuplicateScene appends a deep copy of sceneID under newID with a " (Copy)" title suffix.
// The copy goes to the end of the order, not next to the original.
func DuplicateScene(m *training.TrainingModule, sceneID, newID uuid.UUID) (*training.TrainingModule, error) {
	if m == nil {
		return nil, training.ErrModuleNotFound
	}
	idx := m.SceneIndex(sceneID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	if newID == uuid.Nil {
		newID = uuid.New()
	}
	dup := m.Scenes[idx].Clone()
	dup.ID = newID
	dup.Title = strings.TrimSpace(dup.Title) + copySuffix
	return InsertScene(m, dup, nil)
}

// Renumber assigns OrderIndex = position and returns the same slice.
// Identities are never touched.
func Renumber(scenes []training.TrainingScene) []training.TrainingScene {
	for i := range scenes {
		scenes[i].OrderIndex = i
	}
	return scenes
}

// CheckOrder verifies that the scene order indices form a permutation of [0, len).
func CheckOrder(scenes []training.TrainingScene) error {
	seen := make([]bool, len(scenes))
	for _, s := range scenes {
		if s.OrderIndex < 0 || s.OrderIndex >= len(scenes) {
			return fmt.Errorf("scene %s: order index %d outside [0,%d)", s.ID, s.OrderIndex, len(scenes))
		}
		if seen[s.OrderIndex] {
			return fmt.Errorf("scene %s: order index %d used twice", s.ID, s.OrderIndex)
		}
		seen[s.OrderIndex] = true
	}
	return nil
}

// SortByOrder returns scenes sorted by OrderIndex, then renumbered. Used when loading rows
// whose indices may have gaps.
func SortByOrder(scenes []training.TrainingScene) []training.TrainingScene {
	out := make([]training.TrainingScene, len(scenes))
	copy(out, scenes)
	// insertion sort keeps equal indices in load order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].OrderIndex < out[j-1].OrderIndex; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return Renumber(out)
}

// shallow copies the module header; callers replace Scenes with a fresh slice.
func shallow(m *training.TrainingModule) *training.TrainingModule {
	out := *m
	out.Scenes = nil
	return &out
}
