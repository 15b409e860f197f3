package models

// TestStatus is the lifecycle status of a test definition.
type TestStatus string

const (
	StatusDraft     TestStatus = "draft"
	StatusPublished TestStatus = "published"
	StatusArchived  TestStatus = "archived"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	Matching       QuestionType = "matching"
	FillInBlank    QuestionType = "fill_in_blank"
	Ordering       QuestionType = "ordering"
	Numeric        QuestionType = "numeric"
	FileUpload     QuestionType = "file_upload"
	Code           QuestionType = "code"
)

// AllQuestionTypes lists every valid question type, used by the validator.
var AllQuestionTypes = []QuestionType{
	SingleChoice, MultipleChoice, TrueFalse, ShortAnswer, Essay,
	Matching, FillInBlank, Ordering, Numeric, FileUpload, Code,
}

// QuestionOption is a single selectable option of a question.
// MatchingPair carries the left-hand label for matching questions.
type QuestionOption struct {
	ID           int64  `json:"id"`
	Text         string `json:"option_text"`
	Order        int    `json:"order"`
	MatchingPair string `json:"matching_pair,omitempty"`
}

type Question struct {
	ID      int64            `json:"id"`
	Text    string           `json:"question_text" validate:"required"`
	Type    QuestionType     `json:"question_type" validate:"required,question_type"`
	Points  int              `json:"points"`
	Order   int              `json:"order"`
	Options []QuestionOption `json:"options"`
}

// TestDefinition is the immutable test loaded for a session.
type TestDefinition struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title" validate:"required"`
	Description     string     `json:"description,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Status          TestStatus `json:"status" validate:"required,test_status"`
	Questions       []Question `json:"questions"`
}

// Timed reports whether the test has a countdown duration configured.
func (t *TestDefinition) Timed() bool {
	return t.DurationMinutes != nil && *t.DurationMinutes > 0
}

// QuestionByID returns the question with the given id, or nil.
func (t *TestDefinition) QuestionByID(id int64) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i]
		}
	}
	return nil
}
