package answers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pKa1/eg2/internal/models"
)

func question(qt models.QuestionType, text string) *models.Question {
	return &models.Question{ID: 1, Text: text, Type: qt}
}

func TestNormalizeSingleChoice(t *testing.T) {
	q := question(models.SingleChoice, "pick one")

	tests := []struct {
		name string
		raw  Raw
		want *int64
	}{
		{"numeric id", Raw{"selected_option_id": float64(42)}, ptr(int64(42))},
		{"string id", Raw{"selected_option_id": "7"}, ptr(int64(7))},
		{"absent", Raw{}, nil},
		{"nil raw", nil, nil},
		{"unparsable", Raw{"selected_option_id": "abc"}, nil},
		{"empty string", Raw{"selected_option_id": ""}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Normalize(q, tt.raw)
			require.NoError(t, err)
			got := p.(SingleChoice)
			if tt.want == nil {
				assert.Nil(t, got.SelectedOptionID)
			} else {
				require.NotNil(t, got.SelectedOptionID)
				assert.Equal(t, *tt.want, *got.SelectedOptionID)
			}
		})
	}
}

func TestNormalizeMultipleChoice(t *testing.T) {
	q := question(models.MultipleChoice, "pick many")

	t.Run("drops duplicates keeping first occurrence", func(t *testing.T) {
		p, err := Normalize(q, Raw{"selected_option_ids": []any{"3", float64(5), "3", float64(5)}})
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 5}, p.(MultipleChoice).SelectedOptionIDs)
	})

	t.Run("map shaped input ordered by index key", func(t *testing.T) {
		raw := Raw{"selected_option_ids": map[string]any{"2": "9", "0": "4", "1": "6"}}
		p, err := Normalize(q, raw)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 6, 9}, p.(MultipleChoice).SelectedOptionIDs)
	})

	t.Run("skips unparsable entries", func(t *testing.T) {
		p, err := Normalize(q, Raw{"selected_option_ids": []any{"x", true, float64(2)}})
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, p.(MultipleChoice).SelectedOptionIDs)
	})

	t.Run("absent yields empty list", func(t *testing.T) {
		p, err := Normalize(q, Raw{})
		require.NoError(t, err)
		assert.Empty(t, p.(MultipleChoice).SelectedOptionIDs)
	})
}

func TestNormalizeTrueFalse(t *testing.T) {
	q := question(models.TrueFalse, "t or f")

	p, err := Normalize(q, Raw{"value": "True"})
	require.NoError(t, err)
	require.NotNil(t, p.(TrueFalse).Value)
	assert.Equal(t, "True", *p.(TrueFalse).Value)

	p, err = Normalize(q, Raw{"value": "maybe"})
	require.NoError(t, err)
	assert.Nil(t, p.(TrueFalse).Value)

	p, err = Normalize(q, Raw{})
	require.NoError(t, err)
	assert.Nil(t, p.(TrueFalse).Value)
}

func TestNormalizeText(t *testing.T) {
	for _, qt := range []models.QuestionType{models.ShortAnswer, models.Essay} {
		q := question(qt, "write")

		p, err := Normalize(q, Raw{"text": "answer"})
		require.NoError(t, err)
		assert.Equal(t, "answer", p.(Text).Text)

		// Missing maps to empty string, never null.
		p, err = Normalize(q, Raw{})
		require.NoError(t, err)
		assert.Equal(t, "", p.(Text).Text)
	}
}

func TestNormalizeNumeric(t *testing.T) {
	q := question(models.Numeric, "how many")

	tests := []struct {
		name string
		raw  Raw
		want *float64
	}{
		{"float", Raw{"number_value": 3.14}, ptr(3.14)},
		{"string number", Raw{"number_value": "2.5"}, ptr(2.5)},
		{"empty string", Raw{"number_value": ""}, nil},
		{"absent", Raw{}, nil},
		{"not a number", Raw{"number_value": "NaN.."}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Normalize(q, tt.raw)
			require.NoError(t, err)
			got := p.(Numeric)
			if tt.want == nil {
				assert.Nil(t, got.NumberValue)
			} else {
				require.NotNil(t, got.NumberValue)
				assert.InDelta(t, *tt.want, *got.NumberValue, 1e-9)
			}
		})
	}
}

func TestNormalizeMatching(t *testing.T) {
	q := question(models.Matching, "match")

	raw := Raw{"matches": map[string]any{
		"10":  "21",
		"11":  float64(22),
		"bad": "23",
		"12":  "nope",
	}}
	p, err := Normalize(q, raw)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{10: 21, 11: 22}, p.(Matching).Matches)
}

func TestNormalizeBlanks(t *testing.T) {
	q := question(models.FillInBlank, "a _____ b _____ c _____ d")

	t.Run("length always matches marker count", func(t *testing.T) {
		p, err := Normalize(q, Raw{"blanks": map[string]any{"1": " two "}})
		require.NoError(t, err)
		assert.Equal(t, []string{"", "two", ""}, p.(FillInBlank).Blanks)
	})

	t.Run("order follows text not completion order", func(t *testing.T) {
		p, err := Normalize(q, Raw{"blanks": map[string]any{"2": "z", "0": "x", "1": "y"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, p.(FillInBlank).Blanks)
	})

	t.Run("list input is trimmed and truncated to marker count", func(t *testing.T) {
		p, err := Normalize(q, Raw{"blanks": []any{" a ", "b", "c", "extra"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, p.(FillInBlank).Blanks)
	})

	t.Run("out of range indexes dropped", func(t *testing.T) {
		p, err := Normalize(q, Raw{"blanks": map[string]any{"9": "x", "-1": "y"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"", "", ""}, p.(FillInBlank).Blanks)
	})
}

func TestNormalizeOrdering(t *testing.T) {
	q := question(models.Ordering, "order")

	raw := Raw{"order": map[string]any{
		"100": "1",
		"101": float64(3),
		"102": "2",
		"103": "junk",
		"x":   "4",
	}}
	p, err := Normalize(q, raw)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{100: 1, 101: 3, 102: 2}, p.(Ordering).Order)
}

func TestNormalizeCode(t *testing.T) {
	q := question(models.Code, "write code")

	p, err := Normalize(q, Raw{"code": "print(1)"})
	require.NoError(t, err)
	assert.Equal(t, "print(1)", p.(CodeAnswer).Code)

	p, err = Normalize(q, Raw{})
	require.NoError(t, err)
	assert.Equal(t, "", p.(CodeAnswer).Code)
}

func TestNormalizeFileUpload(t *testing.T) {
	q := question(models.FileUpload, "attach")

	p, err := Normalize(q, Raw{
		"file_name":    "report.pdf",
		"file_type":    "application/pdf",
		"file_size":    float64(2048),
		"file_content": "aGVsbG8=",
	})
	require.NoError(t, err)
	file := p.(FileUpload)
	assert.Equal(t, "report.pdf", file.FileName)
	assert.Equal(t, int64(2048), file.FileSize)
	assert.False(t, file.Empty())

	p, err = Normalize(q, Raw{})
	require.NoError(t, err)
	assert.True(t, p.(FileUpload).Empty())
}

func TestFileSize(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
		want int64
	}{
		{"declared size only", Raw{"file_size": float64(2048)}, 2048},
		{"declared larger than content", Raw{"file_size": float64(4096), "file_content": "abcd"}, 4096},
		{"content larger than declared", Raw{"file_size": float64(1), "file_content": "aGVsbG8gd29ybGQ="}, 16},
		{"no size, content only", Raw{"file_content": "abcd"}, 4},
		{"empty", Raw{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileSize(tt.raw))
		})
	}
}

func TestAnswerWireFormat(t *testing.T) {
	id := int64(5)
	data, err := json.Marshal(Answer{QuestionID: 9, Payload: SingleChoice{SelectedOptionID: &id}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"question_id":9,"answer_data":{"selected_option_id":5}}`, string(data))

	// null is emitted, not omitted, for absent selections
	data, err = json.Marshal(Answer{QuestionID: 9, Payload: SingleChoice{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"question_id":9,"answer_data":{"selected_option_id":null}}`, string(data))

	// matching payloads key by stable option id as JSON object keys
	data, err = json.Marshal(Answer{QuestionID: 3, Payload: Matching{Matches: map[int64]int64{10: 21}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"question_id":3,"answer_data":{"matches":{"10":21}}}`, string(data))
}

func ptr[T any](v T) *T { return &v }
