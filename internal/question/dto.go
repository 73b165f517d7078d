// AngelaMos | 2026
// dto.go

package question

const (
	DefaultNumQuestions = 5
	MaxNumQuestions     = 50
)

type GenerateRequest struct {
	PdfID         string   `json:"pdf_id"         validate:"required,uuid"`
	NumQuestions  int      `json:"num_questions"  validate:"min=1,max=50"`
	QuestionTypes []string `json:"question_types" validate:"omitempty,dive,oneof=multiple_choice descriptive"`
}

// Normalize fills defaults and drops repeated types, keeping first-seen order.
func (r *GenerateRequest) Normalize() {
	if r.NumQuestions == 0 {
		r.NumQuestions = DefaultNumQuestions
	}
	if len(r.QuestionTypes) == 0 {
		r.QuestionTypes = []string{TypeMultipleChoice, TypeDescriptive}
		return
	}

	seen := make(map[string]bool, len(r.QuestionTypes))
	types := r.QuestionTypes[:0]
	for _, t := range r.QuestionTypes {
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	r.QuestionTypes = types
}

type Question struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	QuestionType string   `json:"question_type"`
	Options      []string `json:"options"`
}

type GenerateResponse struct {
	Questions []Question `json:"questions"`
}
