package answers

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pKa1/eg2/internal/models"
)

// BlankMarker is the substring in a fill-in-blank question text that stands
// for one blank. The number and order of markers define the blanks array.
const BlankMarker = "_____"

// Raw is the unnormalized per-question UI state, as delivered by the
// surrounding UI. Shapes are loose on purpose: values may be strings,
// numbers, arrays or index-keyed maps depending on the input widget.
type Raw map[string]any

// Normalize maps raw UI state for one question into its canonical payload.
// It never fails on malformed values — unparsable input degrades to the
// type's empty shape (null, empty string, empty collection) per policy.
func Normalize(q *models.Question, raw Raw) (Payload, error) {
	if raw == nil {
		raw = Raw{}
	}

	switch q.Type {
	case models.SingleChoice:
		return normalizeSingleChoice(raw), nil
	case models.MultipleChoice:
		return normalizeMultipleChoice(raw), nil
	case models.TrueFalse:
		return normalizeTrueFalse(raw), nil
	case models.ShortAnswer, models.Essay:
		return Text{Text: toString(raw["text"])}, nil
	case models.Numeric:
		return normalizeNumeric(raw), nil
	case models.Matching:
		return Matching{Matches: normalizeIDPairs(raw["matches"])}, nil
	case models.FillInBlank:
		return normalizeBlanks(q.Text, raw), nil
	case models.Ordering:
		return normalizeOrdering(raw), nil
	case models.Code:
		return CodeAnswer{Code: toString(raw["code"])}, nil
	case models.FileUpload:
		return normalizeFile(raw), nil
	default:
		return nil, fmt.Errorf("unsupported question type %q", q.Type)
	}
}

func normalizeSingleChoice(raw Raw) SingleChoice {
	if n, ok := toNumber(raw["selected_option_id"]); ok {
		id := int64(n)
		return SingleChoice{SelectedOptionID: &id}
	}
	return SingleChoice{}
}

// normalizeMultipleChoice accepts list- or map-shaped input and applies set
// semantics: duplicates are dropped, first occurrence wins the position.
func normalizeMultipleChoice(raw Raw) MultipleChoice {
	var values []any
	switch v := raw["selected_option_ids"].(type) {
	case []any:
		values = v
	case map[string]any:
		values = sortedMapValues(v)
	}

	ids := make([]int64, 0, len(values))
	seen := make(map[int64]struct{}, len(values))
	for _, value := range values {
		n, ok := toNumber(value)
		if !ok {
			continue
		}
		id := int64(n)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return MultipleChoice{SelectedOptionIDs: ids}
}

func normalizeTrueFalse(raw Raw) TrueFalse {
	if s, ok := raw["value"].(string); ok && (s == "True" || s == "False") {
		return TrueFalse{Value: &s}
	}
	return TrueFalse{}
}

func normalizeNumeric(raw Raw) Numeric {
	if n, ok := toNumber(raw["number_value"]); ok {
		return Numeric{NumberValue: &n}
	}
	return Numeric{}
}

// normalizeIDPairs keeps only pairs where both sides parse as numbers.
func normalizeIDPairs(v any) map[int64]int64 {
	source, _ := v.(map[string]any)
	pairs := make(map[int64]int64, len(source))
	for key, value := range source {
		left, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		right, ok := toNumber(value)
		if !ok {
			continue
		}
		pairs[left] = int64(right)
	}
	return pairs
}

// normalizeBlanks derives the blanks array from the marker positions in the
// question text: the result always has one trimmed entry per marker, in
// left-to-right text order, regardless of input completion order.
func normalizeBlanks(questionText string, raw Raw) FillInBlank {
	count := strings.Count(questionText, BlankMarker)
	blanks := make([]string, count)

	switch source := raw["blanks"].(type) {
	case []any:
		for i := 0; i < count && i < len(source); i++ {
			blanks[i] = strings.TrimSpace(toString(source[i]))
		}
	case map[string]any:
		for key, value := range source {
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= count {
				continue
			}
			blanks[idx] = strings.TrimSpace(toString(value))
		}
	}
	return FillInBlank{Blanks: blanks}
}

func normalizeOrdering(raw Raw) Ordering {
	source, _ := raw["order"].(map[string]any)
	order := make(map[int64]int, len(source))
	for key, value := range source {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		pos, ok := toNumber(value)
		if !ok {
			continue
		}
		order[id] = int(pos)
	}
	return Ordering{Order: order}
}

func normalizeFile(raw Raw) FileUpload {
	size, _ := toNumber(raw["file_size"])
	return FileUpload{
		FileName:    toString(raw["file_name"]),
		FileType:    toString(raw["file_type"]),
		FileSize:    int64(size),
		FileContent: toString(raw["file_content"]),
	}
}

// FileSize reports the effective byte size of a raw file-upload answer: the
// larger of the declared file_size and the actual content length, so an
// under-declared size cannot carry an oversized payload past the ceiling.
func FileSize(raw Raw) int64 {
	var size int64
	if declared, ok := toNumber(raw["file_size"]); ok {
		size = int64(declared)
	}
	if content := toString(raw["file_content"]); int64(len(content)) > size {
		size = int64(len(content))
	}
	return size
}

// toNumber coerces string- and number-shaped input to a finite float64.
// Empty strings and non-finite values report false.
func toNumber(v any) (float64, bool) {
	var n float64
	switch value := v.(type) {
	case float64:
		n = value
	case float32:
		n = float64(value)
	case int:
		n = float64(value)
	case int64:
		n = float64(value)
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// sortedMapValues flattens an index-keyed map into a slice ordered by the
// numeric key, matching how checkbox widgets report positional state.
func sortedMapValues(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	values := make([]any, 0, len(keys))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}
