// Package normalize turns stored question records of any historical shape into
// the canonical domain.Question.
//
// Two option shapes exist in stored data: a legacy array of strings with a
// separate "correctAnswer" field, and an array of {text, isCorrect} objects.
// Normalization never fails; malformed fields fall back to defaults.
package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"bilgi-quiz-service/internal/domain"
	"github.com/tidwall/gjson"
)

// Shape describes how the options of a raw record were stored.
type Shape int

const (
	ShapeNone       Shape = iota // options absent, not an array, or empty
	ShapeLegacy                  // every element is a string
	ShapeStructured              // every element is an object
	ShapeMixed                   // anything else
)

func (s Shape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeStructured:
		return "structured"
	case ShapeMixed:
		return "mixed"
	default:
		return "none"
	}
}

// Repair names the correction applied to the correct-answer flags.
type Repair int

const (
	RepairNone Repair = iota
	// RepairNoCorrect marks the first option correct when none was.
	RepairNoCorrect
	// RepairMultipleCorrect keeps only the first of several correct options.
	RepairMultipleCorrect
)

func (r Repair) String() string {
	switch r {
	case RepairNoCorrect:
		return "no_correct"
	case RepairMultipleCorrect:
		return "multiple_correct"
	default:
		return "none"
	}
}

// Report tells the caller what Inspect found and fixed.
type Report struct {
	Shape  Shape
	Repair Repair
}

// Normalize returns the canonical form of raw.
func Normalize(raw domain.RawQuestion) domain.Question {
	q, _ := Inspect(raw)
	return q
}

// NormalizeAll normalizes every record, preserving order.
func NormalizeAll(raws []domain.RawQuestion) []domain.Question {
	out := make([]domain.Question, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// Inspect normalizes raw and reports the detected option shape and repair.
func Inspect(raw domain.RawQuestion) (domain.Question, Report) {
	doc := gjson.Result{}
	if gjson.ValidBytes(raw.Data) {
		doc = gjson.ParseBytes(raw.Data)
	}
	if !doc.IsObject() {
		doc = gjson.Result{}
	}

	q := domain.Question{
		ID:          raw.ID,
		Category:    stringField(doc, "category"),
		Text:        stringField(doc, "question", "text"),
		Difficulty:  difficulty(doc.Get("difficulty")),
		Explanation: stringField(doc, "explanation"),
		CreatedAt:   timeField(doc, "createdAt", "created_at"),
		UpdatedAt:   timeField(doc, "updatedAt", "updated_at"),
	}
	if q.ID == "" {
		q.ID = stringField(doc, "id")
	}

	var report Report
	q.Options, report.Shape = options(doc.Get("options"), doc.Get("correctAnswer"))
	report.Repair = repairCorrect(q.Options)
	return q, report
}

func options(list, correctAnswer gjson.Result) ([]domain.Option, Shape) {
	opts := []domain.Option{}
	if !list.IsArray() {
		return opts, ShapeNone
	}

	legacyAnswer, hasAnswer := "", correctAnswer.Type == gjson.String
	if hasAnswer {
		legacyAnswer = correctAnswer.Str
	}

	var strs, objs, others int
	list.ForEach(func(_, el gjson.Result) bool {
		switch {
		case el.Type == gjson.String:
			strs++
			opts = append(opts, domain.Option{
				Text:      el.Str,
				IsCorrect: hasAnswer && el.Str == legacyAnswer,
			})
		case el.IsObject():
			objs++
			opts = append(opts, domain.Option{
				Text:      scalarString(el.Get("text")),
				// strings follow strconv.ParseBool, numbers are correct when nonzero
				IsCorrect: el.Get("isCorrect").Bool(),
			})
		default:
			others++
			opts = append(opts, domain.Option{Text: scalarString(el)})
		}
		return true
	})

	switch {
	case len(opts) == 0:
		return opts, ShapeNone
	case strs == len(opts):
		return opts, ShapeLegacy
	case objs == len(opts):
		return opts, ShapeStructured
	default:
		return opts, ShapeMixed
	}
}

// repairCorrect enforces exactly one correct option in place.
func repairCorrect(opts []domain.Option) Repair {
	if len(opts) == 0 {
		return RepairNone
	}
	first := -1
	count := 0
	for i := range opts {
		if !opts[i].IsCorrect {
			continue
		}
		count++
		if first < 0 {
			first = i
		}
	}
	switch {
	case count == 0:
		opts[0].IsCorrect = true
		return RepairNoCorrect
	case count > 1:
		for i := range opts {
			opts[i].IsCorrect = i == first
		}
		return RepairMultipleCorrect
	default:
		return RepairNone
	}
}

func difficulty(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		if label := strings.TrimSpace(r.Str); label != "" {
			return label
		}
	case gjson.Number:
		// legacy records stored a 1..3 level
		switch n := r.Int(); {
		case n >= 3:
			return domain.DifficultyHard
		case n == 2:
			return domain.DifficultyMedium
		}
	}
	return domain.DifficultyEasy
}

func stringField(doc gjson.Result, keys ...string) string {
	for _, key := range keys {
		if s := scalarString(doc.Get(key)); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number, gjson.True, gjson.False:
		return r.String()
	default:
		return ""
	}
}

func timeField(doc gjson.Result, keys ...string) time.Time {
	for _, key := range keys {
		r := doc.Get(key)
		if r.Type != gjson.String {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, r.Str)
		if err != nil || t.IsZero() {
			continue
		}
		return t.UTC()
	}
	return time.Time{}
}

type storedOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type storedQuestion struct {
	Category    string         `json:"category"`
	Question    string         `json:"question"`
	Options     []storedOption `json:"options"`
	Difficulty  string         `json:"difficulty"`
	Explanation string         `json:"explanation"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	UpdatedAt   string         `json:"updatedAt,omitempty"`
}

// Encode renders q in the structured stored shape. The record body does not
// carry the ID; it travels in RawQuestion.ID as the store key.
func Encode(q domain.Question) domain.RawQuestion {
	rec := storedQuestion{
		Category:    q.Category,
		Question:    q.Text,
		Options:     make([]storedOption, 0, len(q.Options)),
		Difficulty:  q.Difficulty,
		Explanation: q.Explanation,
	}
	for _, opt := range q.Options {
		rec.Options = append(rec.Options, storedOption{Text: opt.Text, IsCorrect: opt.IsCorrect})
	}
	if !q.CreatedAt.IsZero() {
		rec.CreatedAt = q.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !q.UpdatedAt.IsZero() {
		rec.UpdatedAt = q.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	// storedQuestion holds only strings, bools and slices; Marshal cannot fail.
	data, _ := json.Marshal(rec)
	return domain.RawQuestion{ID: q.ID, Data: data}
}

type legacyQuestion struct {
	Category      string   `json:"category"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Difficulty    string   `json:"difficulty"`
	Explanation   string   `json:"explanation"`
}

// FromInput converts an authoring payload, which uses the legacy
// string-options shape, into a canonical question without ID or timestamps.
func FromInput(in domain.QuestionInput) domain.Question {
	data, _ := json.Marshal(legacyQuestion{
		Category:      strings.TrimSpace(in.Category),
		Question:      strings.TrimSpace(in.Question),
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Difficulty:    in.Difficulty,
		Explanation:   strings.TrimSpace(in.Explanation),
	})
	return Normalize(domain.RawQuestion{Data: data})
}
