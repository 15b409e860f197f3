package answers

import "encoding/json"

// Payload is the canonical, type-tagged answer shape for one question.
// Exactly one concrete type exists per question type; the wire form is the
// bare JSON object stored as answer_data.
type Payload interface {
	isPayload()
}

type SingleChoice struct {
	SelectedOptionID *int64 `json:"selected_option_id"`
}

type MultipleChoice struct {
	SelectedOptionIDs []int64 `json:"selected_option_ids"`
}

// TrueFalse holds "True", "False" or null.
type TrueFalse struct {
	Value *string `json:"value"`
}

// Text covers short-answer and essay questions. Missing input normalizes to
// an empty string, never null.
type Text struct {
	Text string `json:"text"`
}

type Numeric struct {
	NumberValue *float64 `json:"number_value"`
}

// Matching keys by the stable left-hand option id, never by display position.
type Matching struct {
	Matches map[int64]int64 `json:"matches"`
}

type FillInBlank struct {
	Blanks []string `json:"blanks"`
}

// Ordering maps option id to its 1-based position.
type Ordering struct {
	Order map[int64]int `json:"order"`
}

type CodeAnswer struct {
	Code string `json:"code"`
}

type FileUpload struct {
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	FileContent string `json:"file_content"`
}

func (SingleChoice) isPayload()   {}
func (MultipleChoice) isPayload() {}
func (TrueFalse) isPayload()      {}
func (Text) isPayload()           {}
func (Numeric) isPayload()        {}
func (Matching) isPayload()       {}
func (FillInBlank) isPayload()    {}
func (Ordering) isPayload()       {}
func (CodeAnswer) isPayload()     {}
func (FileUpload) isPayload()     {}

// Empty reports whether no file was attached.
func (f FileUpload) Empty() bool {
	return f.FileName == "" || f.FileContent == ""
}

// Answer pairs a question id with its canonical payload.
type Answer struct {
	QuestionID int64   `json:"question_id"`
	Payload    Payload `json:"answer_data"`
}

// MarshalJSON keeps the wire field name answer_data while the payload itself
// marshals as its concrete struct.
func (a Answer) MarshalJSON() ([]byte, error) {
	type wire struct {
		QuestionID int64   `json:"question_id"`
		AnswerData Payload `json:"answer_data"`
	}
	return json.Marshal(wire{QuestionID: a.QuestionID, AnswerData: a.Payload})
}
