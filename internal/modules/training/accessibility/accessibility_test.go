package accessibility

import (
	"testing"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

func TestScore_Proportion(t *testing.T) {
	var s training.AccessibilitySettings
	if got := Score(&s); got != 0 {
		t.Fatalf("all off: want=0 got=%d", got)
	}
	s = DefaultsForLevel(training.WCAGLevelAAA)
	if got := Score(&s); got != 100 {
		t.Fatalf("all on: want=100 got=%d", got)
	}
	var half training.AccessibilitySettings
	for i, f := range flags {
		if i%2 == 0 {
			*f.get(&half) = true
		}
	}
	if got := Score(&half); got != 50 {
		t.Fatalf("half: want=50 got=%d", got)
	}
	// 1/16 = 6.25 rounds to 6, 3/16 = 18.75 rounds to 19
	one := training.AccessibilitySettings{Captions: true}
	if got := Score(&one); got != 6 {
		t.Fatalf("one flag: want=6 got=%d", got)
	}
	three := training.AccessibilitySettings{Captions: true, AltText: true, SkipLinks: true}
	if got := Score(&three); got != 19 {
		t.Fatalf("three flags: want=19 got=%d", got)
	}
}

func TestScore_IgnoresLevelAndContrast(t *testing.T) {
	a := training.AccessibilitySettings{WCAGLevel: training.WCAGLevelA, ContrastRatio: 1}
	b := training.AccessibilitySettings{WCAGLevel: training.WCAGLevelAAA, ContrastRatio: 21}
	if Score(&a) != Score(&b) {
		t.Fatalf("level and contrast must not change the score")
	}
}

func TestScore_MonotonicPerFlag(t *testing.T) {
	// walk every subset reachable by flipping flags one at a time in each order
	for start := range flags {
		var s training.AccessibilitySettings
		prev := Score(&s)
		for k := 0; k < len(flags); k++ {
			f := flags[(start+k)%len(flags)]
			*f.get(&s) = true
			cur := Score(&s)
			if cur < prev {
				t.Fatalf("flipping %s decreased score %d -> %d", f.flag, prev, cur)
			}
			prev = cur
		}
	}
}

func TestClassify(t *testing.T) {
	cases := map[int]Class{
		0: ClassNeedsImprovement, 69: ClassNeedsImprovement,
		70: ClassAcceptable, 89: ClassAcceptable,
		90: ClassExcellent, 100: ClassExcellent,
	}
	for score, want := range cases {
		if got := Classify(score); got != want {
			t.Fatalf("Classify(%d): want=%s got=%s", score, want, got)
		}
	}
}

func TestDefaultsForLevel(t *testing.T) {
	a := DefaultsForLevel(training.WCAGLevelA)
	aa := DefaultsForLevel(training.WCAGLevelAA)
	aaa := DefaultsForLevel(training.WCAGLevelAAA)
	if !(Score(&a) < Score(&aa) && Score(&aa) < Score(&aaa)) {
		t.Fatalf("defaults should grow with level: A=%d AA=%d AAA=%d", Score(&a), Score(&aa), Score(&aaa))
	}
	if a.HighContrastMode || !aaa.HighContrastMode {
		t.Fatalf("high contrast belongs to AAA only")
	}
	for _, s := range []training.AccessibilitySettings{a, aa, aaa} {
		if gaps := Gaps(&s); len(gaps) != 0 {
			t.Fatalf("defaults for %s should have no gaps, got=%v", s.WCAGLevel, gaps)
		}
	}
}

func TestGapsAndReport(t *testing.T) {
	s := DefaultsForLevel(training.WCAGLevelAA)
	s.Captions = false
	s.ContrastRatio = 3
	gaps := Gaps(&s)
	if len(gaps) != 2 || gaps[0] != string(FlagCaptions) || gaps[1] != "contrast_ratio" {
		t.Fatalf("gaps: got=%v", gaps)
	}
	r := BuildReport(&s)
	if r.Score != Score(&s) || r.Class != Classify(r.Score) || r.Level != training.WCAGLevelAA {
		t.Fatalf("report mismatch: %+v", r)
	}
}

func TestSet(t *testing.T) {
	var s training.AccessibilitySettings
	if !Set(&s, FlagSignLanguage, true) || !s.SignLanguage {
		t.Fatalf("Set sign_language failed")
	}
	if Set(&s, Flag("telepathy"), true) {
		t.Fatalf("unknown flag should report false")
	}
}
