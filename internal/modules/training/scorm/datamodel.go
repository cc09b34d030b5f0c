package scorm

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

type access uint8

const (
	accessRead access = 1 << iota
	accessWrite

	accessRW = accessRead | accessWrite
)

type valueKind uint8

const (
	kindString valueKind = iota
	kindIdentifier
	kindVocab
	kindDecimal
	kindInteger
	kindTimespan12
	kindTime12
	kindDuration
	kindTimestamp
	kindResult
)

type element struct {
	access access
	kind   valueKind
	vocab  []string
	maxLen int
	lo, hi *float64
}

func (e element) readable() bool { return e.access&accessRead != 0 }
func (e element) writable() bool { return e.access&accessWrite != 0 }

// dataModel is the static element table for one SCORM version. Keys use "n" for array indices.
type dataModel struct {
	version  training.ScormVersion
	elements map[string]element
	children map[string]string
	arrays   map[string]bool
	// idFirst lists arrays whose new entries must be created by setting id.
	idFirst map[string]bool
}

func bound(v float64) *float64 { return &v }

func rw(kind valueKind) element { return element{access: accessRW, kind: kind} }
func ro(kind valueKind) element { return element{access: accessRead, kind: kind} }
func wo(kind valueKind) element { return element{access: accessWrite, kind: kind} }

func (e element) limit(n int) element       { e.maxLen = n; return e }
func (e element) oneOf(v ...string) element { e.kind = kindVocab; e.vocab = v; return e }
func (e element) between(lo, hi float64) element {
	e.lo, e.hi = bound(lo), bound(hi)
	return e
}
func (e element) atLeast(lo float64) element { e.lo = bound(lo); return e }

var (
	status12 = []string{"passed", "completed", "failed", "incomplete", "browsed", "not attempted"}
	result12 = []string{"correct", "wrong", "unanticipated", "neutral"}
	result04 = []string{"correct", "incorrect", "unanticipated", "neutral"}
)

var model12 = &dataModel{
	version: training.ScormVersion12,
	elements: map[string]element{
		"cmi.core.student_id":                            ro(kindIdentifier).limit(255),
		"cmi.core.student_name":                          ro(kindString).limit(255),
		"cmi.core.lesson_location":                       rw(kindString).limit(255),
		"cmi.core.credit":                                ro(kindVocab).oneOf("credit", "no-credit"),
		"cmi.core.lesson_status":                         rw(kindVocab).oneOf(status12[:5]...),
		"cmi.core.entry":                                 ro(kindVocab).oneOf("ab-initio", "resume", ""),
		"cmi.core.score.raw":                             rw(kindDecimal).between(0, 100),
		"cmi.core.score.min":                             rw(kindDecimal).between(0, 100),
		"cmi.core.score.max":                             rw(kindDecimal).between(0, 100),
		"cmi.core.total_time":                            ro(kindTimespan12),
		"cmi.core.lesson_mode":                           ro(kindVocab).oneOf("browse", "normal", "review"),
		"cmi.core.exit":                                  wo(kindVocab).oneOf("time-out", "suspend", "logout", ""),
		"cmi.core.session_time":                          wo(kindTimespan12),
		"cmi.suspend_data":                               rw(kindString).limit(4096),
		"cmi.launch_data":                                ro(kindString).limit(4096),
		"cmi.comments":                                   rw(kindString).limit(4096),
		"cmi.comments_from_lms":                          ro(kindString).limit(4096),
		"cmi.objectives.n.id":                            rw(kindIdentifier).limit(255),
		"cmi.objectives.n.score.raw":                     rw(kindDecimal).between(0, 100),
		"cmi.objectives.n.score.min":                     rw(kindDecimal).between(0, 100),
		"cmi.objectives.n.score.max":                     rw(kindDecimal).between(0, 100),
		"cmi.objectives.n.status":                        rw(kindVocab).oneOf(status12...),
		"cmi.student_data.mastery_score":                 ro(kindDecimal),
		"cmi.student_data.max_time_allowed":              ro(kindTimespan12),
		"cmi.student_data.time_limit_action":             ro(kindVocab).oneOf("exit,message", "exit,no message", "continue,message", "continue,no message"),
		"cmi.student_preference.audio":                   rw(kindInteger).between(-1, 100),
		"cmi.student_preference.language":                rw(kindString).limit(255),
		"cmi.student_preference.speed":                   rw(kindInteger).between(-100, 100),
		"cmi.student_preference.text":                    rw(kindInteger).between(-1, 1),
		"cmi.interactions.n.id":                          wo(kindIdentifier).limit(255),
		"cmi.interactions.n.objectives.n.id":             wo(kindIdentifier).limit(255),
		"cmi.interactions.n.time":                        wo(kindTime12),
		"cmi.interactions.n.type":                        wo(kindVocab).oneOf("true-false", "choice", "fill-in", "matching", "performance", "sequencing", "likert", "numeric"),
		"cmi.interactions.n.correct_responses.n.pattern": wo(kindString).limit(255),
		"cmi.interactions.n.weighting":                   wo(kindDecimal),
		"cmi.interactions.n.student_response":            wo(kindString).limit(255),
		"cmi.interactions.n.result":                      element{access: accessWrite, kind: kindResult, vocab: result12},
		"cmi.interactions.n.latency":                     wo(kindTimespan12),
	},
	children: map[string]string{
		"cmi.core":               "student_id,student_name,lesson_location,credit,lesson_status,entry,score,total_time,lesson_mode,exit,session_time",
		"cmi.core.score":         "raw,min,max",
		"cmi.objectives":         "id,score,status",
		"cmi.objectives.n.score": "raw,min,max",
		"cmi.student_data":       "mastery_score,max_time_allowed,time_limit_action",
		"cmi.student_preference": "audio,language,speed,text",
		"cmi.interactions":       "id,objectives,time,type,correct_responses,weighting,student_response,result,latency",
	},
	arrays: map[string]bool{
		"cmi.objectives":                       true,
		"cmi.interactions":                     true,
		"cmi.interactions.n.objectives":        true,
		"cmi.interactions.n.correct_responses": true,
	},
}

var model2004 = &dataModel{
	version: training.ScormVersion2004,
	elements: map[string]element{
		"cmi._version":                                   ro(kindString),
		"cmi.comments_from_learner.n.comment":            rw(kindString).limit(4000),
		"cmi.comments_from_learner.n.location":           rw(kindString).limit(250),
		"cmi.comments_from_learner.n.timestamp":          rw(kindTimestamp),
		"cmi.comments_from_lms.n.comment":                ro(kindString).limit(4000),
		"cmi.comments_from_lms.n.location":               ro(kindString).limit(250),
		"cmi.comments_from_lms.n.timestamp":              ro(kindTimestamp),
		"cmi.completion_status":                          rw(kindVocab).oneOf("completed", "incomplete", "not attempted", "unknown"),
		"cmi.completion_threshold":                       ro(kindDecimal),
		"cmi.credit":                                     ro(kindVocab).oneOf("credit", "no-credit"),
		"cmi.entry":                                      ro(kindVocab).oneOf("ab-initio", "resume", ""),
		"cmi.exit":                                       wo(kindVocab).oneOf("time-out", "suspend", "logout", "normal", ""),
		"cmi.interactions.n.id":                          rw(kindIdentifier).limit(4000),
		"cmi.interactions.n.type":                        rw(kindVocab).oneOf("true-false", "choice", "fill-in", "long-fill-in", "matching", "performance", "sequencing", "likert", "numeric", "other"),
		"cmi.interactions.n.objectives.n.id":             rw(kindIdentifier).limit(4000),
		"cmi.interactions.n.timestamp":                   rw(kindTimestamp),
		"cmi.interactions.n.correct_responses.n.pattern": rw(kindString).limit(4000),
		"cmi.interactions.n.weighting":                   rw(kindDecimal),
		"cmi.interactions.n.learner_response":            rw(kindString).limit(4000),
		"cmi.interactions.n.result":                      element{access: accessRW, kind: kindResult, vocab: result04},
		"cmi.interactions.n.latency":                     rw(kindDuration),
		"cmi.interactions.n.description":                 rw(kindString).limit(250),
		"cmi.launch_data":                                ro(kindString).limit(4000),
		"cmi.learner_id":                                 ro(kindIdentifier).limit(4000),
		"cmi.learner_name":                               ro(kindString).limit(250),
		"cmi.learner_preference.audio_level":             rw(kindDecimal).atLeast(0),
		"cmi.learner_preference.language":                rw(kindString).limit(250),
		"cmi.learner_preference.delivery_speed":          rw(kindDecimal).atLeast(0),
		"cmi.learner_preference.audio_captioning":        rw(kindInteger).between(-1, 1),
		"cmi.location":                                   rw(kindString).limit(1000),
		"cmi.max_time_allowed":                           ro(kindDuration),
		"cmi.mode":                                       ro(kindVocab).oneOf("browse", "normal", "review"),
		"cmi.objectives.n.id":                            rw(kindIdentifier).limit(4000),
		"cmi.objectives.n.score.scaled":                  rw(kindDecimal).between(-1, 1),
		"cmi.objectives.n.score.raw":                     rw(kindDecimal),
		"cmi.objectives.n.score.min":                     rw(kindDecimal),
		"cmi.objectives.n.score.max":                     rw(kindDecimal),
		"cmi.objectives.n.success_status":                rw(kindVocab).oneOf("passed", "failed", "unknown"),
		"cmi.objectives.n.completion_status":             rw(kindVocab).oneOf("completed", "incomplete", "not attempted", "unknown"),
		"cmi.objectives.n.progress_measure":              rw(kindDecimal).between(0, 1),
		"cmi.objectives.n.description":                   rw(kindString).limit(250),
		"cmi.progress_measure":                           rw(kindDecimal).between(0, 1),
		"cmi.scaled_passing_score":                       ro(kindDecimal),
		"cmi.score.scaled":                               rw(kindDecimal).between(-1, 1),
		"cmi.score.raw":                                  rw(kindDecimal),
		"cmi.score.min":                                  rw(kindDecimal),
		"cmi.score.max":                                  rw(kindDecimal),
		"cmi.session_time":                               wo(kindDuration),
		"cmi.success_status":                             rw(kindVocab).oneOf("passed", "failed", "unknown"),
		"cmi.suspend_data":                               rw(kindString).limit(64000),
		"cmi.time_limit_action":                          ro(kindVocab).oneOf("exit,message", "exit,no message", "continue,message", "continue,no message"),
		"cmi.total_time":                                 ro(kindDuration),
	},
	children: map[string]string{
		"cmi.comments_from_learner": "comment,location,timestamp",
		"cmi.comments_from_lms":     "comment,location,timestamp",
		"cmi.interactions":          "id,type,objectives,timestamp,correct_responses,weighting,learner_response,result,latency,description",
		"cmi.learner_preference":    "audio_level,language,delivery_speed,audio_captioning",
		"cmi.objectives":            "id,score,success_status,completion_status,progress_measure,description",
		"cmi.objectives.n.score":    "scaled,raw,min,max",
		"cmi.score":                 "scaled,raw,min,max",
	},
	arrays: map[string]bool{
		"cmi.comments_from_learner":            true,
		"cmi.comments_from_lms":                true,
		"cmi.objectives":                       true,
		"cmi.interactions":                     true,
		"cmi.interactions.n.objectives":        true,
		"cmi.interactions.n.correct_responses": true,
	},
	idFirst: map[string]bool{
		"cmi.objectives":   true,
		"cmi.interactions": true,
	},
}

func modelFor(v training.ScormVersion) *dataModel {
	if v == training.ScormVersion2004 {
		return model2004
	}
	return model12
}

// parsedKey is a concrete data-model key split into its normalized form and array indices.
type parsedKey struct {
	raw        string
	normalized string
	parts      []string
	indices    []int
	// indexAt holds the position in parts of each index.
	indexAt []int
}

func parseKey(raw string) (parsedKey, bool) {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return parsedKey{}, false
	}
	parts := strings.Split(raw, ".")
	pk := parsedKey{parts: make([]string, len(parts))}
	norm := make([]string, len(parts))
	for i, p := range parts {
		if p == "" {
			return parsedKey{}, false
		}
		if isDigits(p) {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return parsedKey{}, false
			}
			pk.indices = append(pk.indices, n)
			pk.indexAt = append(pk.indexAt, i)
			pk.parts[i] = strconv.Itoa(n)
			norm[i] = "n"
			continue
		}
		pk.parts[i] = p
		norm[i] = p
	}
	pk.raw = strings.Join(pk.parts, ".")
	pk.normalized = strings.Join(norm, ".")
	return pk, true
}

// arrayPath returns the concrete path of the array holding the i-th index.
func (k parsedKey) arrayPath(i int) string {
	return strings.Join(k.parts[:k.indexAt[i]], ".")
}

// normalizedArray returns the normalized path of the array holding the i-th index.
func (k parsedKey) normalizedArray(i int) string {
	norm := strings.Split(k.normalized, ".")
	return strings.Join(norm[:k.indexAt[i]], ".")
}

// fieldAfter returns the remaining key after the i-th index.
func (k parsedKey) fieldAfter(i int) string {
	return strings.Join(k.parts[k.indexAt[i]+1:], ".")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// known reports whether normalized names an element, a container or an array of this model.
func (m *dataModel) known(normalized string) bool {
	if _, ok := m.elements[normalized]; ok {
		return true
	}
	if _, ok := m.children[normalized]; ok {
		return true
	}
	return m.arrays[normalized]
}

// check validates value against e. It returns 0 when the value is acceptable.
func (e element) check(value string, limitOverride int) fault {
	switch e.kind {
	case kindString:
		limit := e.maxLen
		if limitOverride > 0 {
			limit = limitOverride
		}
		if limit > 0 && utf8.RuneCountInString(value) > limit {
			return faultRange
		}
	case kindIdentifier:
		if e.maxLen > 0 && utf8.RuneCountInString(value) > e.maxLen {
			return faultRange
		}
		if !reIdent12.MatchString(value) {
			return faultType
		}
	case kindVocab:
		for _, v := range e.vocab {
			if v == value {
				return 0
			}
		}
		return faultType
	case kindDecimal:
		f, ok := parseDecimal(value)
		if !ok {
			return faultType
		}
		if (e.lo != nil && f < *e.lo) || (e.hi != nil && f > *e.hi) {
			return faultRange
		}
	case kindInteger:
		n, ok := parseInteger(value)
		if !ok {
			return faultType
		}
		f := float64(n)
		if (e.lo != nil && f < *e.lo) || (e.hi != nil && f > *e.hi) {
			return faultRange
		}
	case kindTimespan12:
		if _, err := ParseTimespan12(value); err != nil {
			return faultType
		}
	case kindTime12:
		if !reTime12.MatchString(value) {
			return faultType
		}
	case kindDuration:
		if _, err := ParseDuration(value); err != nil {
			return faultType
		}
	case kindTimestamp:
		if !reTimestamp.MatchString(value) {
			return faultType
		}
	case kindResult:
		for _, v := range e.vocab {
			if v == value {
				return 0
			}
		}
		if _, ok := parseDecimal(value); !ok {
			return faultType
		}
	}
	return 0
}
