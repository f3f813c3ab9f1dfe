package scorer

import "errors"

// ErrNoApplicableFields is returned when every field of a pair is
// indeterminate, so no combined score exists.
var ErrNoApplicableFields = errors.New("no applicable fields")

// Field is a named field score. Display-only fields are reported alongside
// the others but never contribute to the combined score.
type Field struct {
	Name        string     `json:"name"`
	Score       FieldScore `json:"score"`
	DisplayOnly bool       `json:"display_only,omitempty"`
}

// NewField returns a field that contributes to the combined score.
func NewField(name string, score FieldScore) Field {
	return Field{Name: name, Score: score}
}

// DisplayField returns a field that is reported but not averaged.
func DisplayField(name string, score FieldScore) Field {
	return Field{Name: name, Score: score, DisplayOnly: true}
}

// MatchScore is the ordered set of field scores for one pair plus their
// combined score.
type MatchScore struct {
	Fields   []Field `json:"fields"`
	Combined float64 `json:"combined"`
}

// Field returns the score recorded under name.
func (m MatchScore) Field(name string) (FieldScore, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f.Score, true
		}
	}
	return Indeterminate, false
}

// Combine averages the applicable, non display-only fields and rounds the
// mean to two decimals.
func Combine(fields ...Field) (MatchScore, error) {
	var sum float64
	var n int
	for _, f := range fields {
		if f.DisplayOnly || !f.Score.Applicable {
			continue
		}
		sum += f.Score.Value
		n++
	}
	if n == 0 {
		return MatchScore{Fields: fields}, ErrNoApplicableFields
	}
	return MatchScore{Fields: fields, Combined: round2(sum / float64(n))}, nil
}
