package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pKa1/eg2/internal/errors"
	"github.com/pKa1/eg2/internal/models"
)

func publishedTest() *models.TestDefinition {
	return &models.TestDefinition{
		ID:     1,
		Title:  "Algebra basics",
		Status: models.StatusPublished,
		Questions: []models.Question{
			{ID: 1, Text: "2+2?", Type: models.SingleChoice},
		},
	}
}

func TestCheckTakeable(t *testing.T) {
	v := New()

	t.Run("published with questions passes", func(t *testing.T) {
		require.NoError(t, v.CheckTakeable(publishedTest()))
	})

	t.Run("draft is refused", func(t *testing.T) {
		def := publishedTest()
		def.Status = models.StatusDraft
		assert.ErrorIs(t, v.CheckTakeable(def), ErrNotPublished)
	})

	t.Run("archived is refused", func(t *testing.T) {
		def := publishedTest()
		def.Status = models.StatusArchived
		assert.ErrorIs(t, v.CheckTakeable(def), ErrNotPublished)
	})

	t.Run("zero questions is refused", func(t *testing.T) {
		def := publishedTest()
		def.Questions = nil
		assert.ErrorIs(t, v.CheckTakeable(def), ErrNoQuestions)
	})

	t.Run("invalid question type reported by json name", func(t *testing.T) {
		def := publishedTest()
		def.Questions[0].Type = "teleport"
		err := v.CheckTakeable(def)
		require.Error(t, err)

		var ve apperrors.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "question_type", ve[0].Field)
	})
}
