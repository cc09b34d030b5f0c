// Package accessibility scores a module's accessibility settings for author guidance.
// Scores never block publishing.
package accessibility

import (
	"math"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

type Class string

const (
	ClassNeedsImprovement Class = "needs_improvement"
	ClassAcceptable       Class = "acceptable"
	ClassExcellent        Class = "excellent"
)

// Flag names one boolean capability of AccessibilitySettings.
type Flag string

const (
	FlagKeyboardNavigation   Flag = "keyboard_navigation"
	FlagScreenReaderSupport  Flag = "screen_reader_support"
	FlagCaptions             Flag = "captions"
	FlagAudioDescriptions    Flag = "audio_descriptions"
	FlagTranscripts          Flag = "transcripts"
	FlagAltText              Flag = "alt_text"
	FlagHighContrastMode     Flag = "high_contrast_mode"
	FlagResizableText        Flag = "resizable_text"
	FlagFocusIndicators      Flag = "focus_indicators"
	FlagSkipLinks            Flag = "skip_links"
	FlagReducedMotion        Flag = "reduced_motion"
	FlagSignLanguage         Flag = "sign_language"
	FlagColorBlindFriendly   Flag = "color_blind_friendly"
	FlagClearLanguage        Flag = "clear_language"
	FlagExtendedTimeLimits   Flag = "extended_time_limits"
	FlagConsistentNavigation Flag = "consistent_navigation"
)

type flagDef struct {
	flag Flag
	get  func(*training.AccessibilitySettings) *bool
	// level is the lowest WCAG level that expects this capability
	level training.WCAGLevel
}

var flags = []flagDef{
	{FlagKeyboardNavigation, func(s *training.AccessibilitySettings) *bool { return &s.KeyboardNavigation }, training.WCAGLevelA},
	{FlagScreenReaderSupport, func(s *training.AccessibilitySettings) *bool { return &s.ScreenReaderSupport }, training.WCAGLevelA},
	{FlagCaptions, func(s *training.AccessibilitySettings) *bool { return &s.Captions }, training.WCAGLevelA},
	{FlagAudioDescriptions, func(s *training.AccessibilitySettings) *bool { return &s.AudioDescriptions }, training.WCAGLevelAA},
	{FlagTranscripts, func(s *training.AccessibilitySettings) *bool { return &s.Transcripts }, training.WCAGLevelA},
	{FlagAltText, func(s *training.AccessibilitySettings) *bool { return &s.AltText }, training.WCAGLevelA},
	{FlagHighContrastMode, func(s *training.AccessibilitySettings) *bool { return &s.HighContrastMode }, training.WCAGLevelAAA},
	{FlagResizableText, func(s *training.AccessibilitySettings) *bool { return &s.ResizableText }, training.WCAGLevelAA},
	{FlagFocusIndicators, func(s *training.AccessibilitySettings) *bool { return &s.FocusIndicators }, training.WCAGLevelAA},
	{FlagSkipLinks, func(s *training.AccessibilitySettings) *bool { return &s.SkipLinks }, training.WCAGLevelA},
	{FlagReducedMotion, func(s *training.AccessibilitySettings) *bool { return &s.ReducedMotion }, training.WCAGLevelAAA},
	{FlagSignLanguage, func(s *training.AccessibilitySettings) *bool { return &s.SignLanguage }, training.WCAGLevelAAA},
	{FlagColorBlindFriendly, func(s *training.AccessibilitySettings) *bool { return &s.ColorBlindFriendly }, training.WCAGLevelA},
	{FlagClearLanguage, func(s *training.AccessibilitySettings) *bool { return &s.ClearLanguage }, training.WCAGLevelAAA},
	{FlagExtendedTimeLimits, func(s *training.AccessibilitySettings) *bool { return &s.ExtendedTimeLimits }, training.WCAGLevelAAA},
	{FlagConsistentNavigation, func(s *training.AccessibilitySettings) *bool { return &s.ConsistentNavigation }, training.WCAGLevelAA},
}

// FlagCount is the denominator of Score. The WCAG level and contrast ratio are not flags.
var FlagCount = len(flags)

// minimum contrast ratio per level for normal text
var minContrast = map[training.WCAGLevel]float64{
	training.WCAGLevelA:   3,
	training.WCAGLevelAA:  4.5,
	training.WCAGLevelAAA: 7,
}

// Score is round(100 * enabled flags / FlagCount). Every flag counts the same.
func Score(s *training.AccessibilitySettings) int {
	if s == nil {
		return 0
	}
	on := 0
	for _, f := range flags {
		if *f.get(s) {
			on++
		}
	}
	return int(math.Round(100 * float64(on) / float64(FlagCount)))
}

func Classify(score int) Class {
	switch {
	case score >= 90:
		return ClassExcellent
	case score >= 70:
		return ClassAcceptable
	default:
		return ClassNeedsImprovement
	}
}

// DefaultsForLevel returns settings with every flag the level expects switched on.
func DefaultsForLevel(level training.WCAGLevel) training.AccessibilitySettings {
	if !level.Valid() {
		level = training.WCAGLevelAA
	}
	out := training.AccessibilitySettings{WCAGLevel: level, ContrastRatio: minContrast[level]}
	for _, f := range flags {
		if levelRank(f.level) <= levelRank(level) {
			*f.get(&out) = true
		}
	}
	return out
}

// Set toggles one flag by name and reports whether the name was known.
func Set(s *training.AccessibilitySettings, name Flag, on bool) bool {
	for _, f := range flags {
		if f.flag == name {
			*f.get(s) = on
			return true
		}
	}
	return false
}

// Gaps lists flags the target level expects that are switched off, plus a contrast note when
// the ratio is below the level's minimum.
func Gaps(s *training.AccessibilitySettings) []string {
	if s == nil {
		return nil
	}
	level := s.WCAGLevel
	if !level.Valid() {
		level = training.WCAGLevelAA
	}
	var out []string
	for _, f := range flags {
		if levelRank(f.level) <= levelRank(level) && !*f.get(s) {
			out = append(out, string(f.flag))
		}
	}
	if s.ContrastRatio < minContrast[level] {
		out = append(out, "contrast_ratio")
	}
	return out
}

type Report struct {
	Level training.WCAGLevel `json:"wcag_level"`
	Score int                `json:"score"`
	Class Class              `json:"class"`
	Gaps  []string           `json:"gaps,omitempty"`
}

func BuildReport(s *training.AccessibilitySettings) Report {
	score := Score(s)
	r := Report{Score: score, Class: Classify(score), Gaps: Gaps(s)}
	if s != nil {
		r.Level = s.WCAGLevel
	}
	return r
}

func levelRank(l training.WCAGLevel) int {
	switch l {
	case training.WCAGLevelA:
		return 1
	case training.WCAGLevelAA:
		return 2
	case training.WCAGLevelAAA:
		return 3
	default:
		return 0
	}
}
