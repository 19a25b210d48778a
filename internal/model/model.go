package model

import "time"

// QuestionType classifies the modality of a question's content.
type QuestionType string

const (
	// QuestionImage means the question content is a path to an image file.
	QuestionImage QuestionType = "Image"
	// QuestionText means the question content is the problem text itself.
	QuestionText QuestionType = "Text"
)

// QuestionRecord is one input item from the dataset file.
type QuestionRecord struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Subject  string `json:"subject,omitempty"`
}

// RubricScores maps rubric category keys ("1".."5") to integer scores in [0,5].
type RubricScores map[string]int

// Total returns the sum of all category scores, 0 for a nil map.
func (s RubricScores) Total() int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}

// ResultEntry is the per-question outcome written to the output file.
// CategoryScores and ErrorMessage serialize as null when absent.
type ResultEntry struct {
	QuestionID         string       `json:"question_id"`
	Subject            string       `json:"subject"`
	QuestionRaw        string       `json:"question_raw"`
	QuestionType       QuestionType `json:"question_type"`
	QuestionPathOrText string       `json:"question_path_or_text"`
	AnswerImagePaths   []string     `json:"answer_image_paths"`
	NumAnswerImages    int          `json:"num_answer_images"`
	CategoryScores     RubricScores `json:"category_scores"`
	TotalScore         int          `json:"total_score"`
	ErrorMessage       *string      `json:"error_message"`
}

// SetError records a per-question failure on the entry.
func (e *ResultEntry) SetError(msg string) {
	e.ErrorMessage = &msg
}

// SetScores records parsed scores and the derived total on the entry.
func (e *ResultEntry) SetScores(scores RubricScores) {
	e.CategoryScores = scores
	e.TotalScore = scores.Total()
}

// RunConfig holds runtime evaluation parameters set via CLI flags.
type RunConfig struct {
	QuestionsFile string        // dataset JSON path
	AnswersDir    string        // root of per-question answer image folders
	OutputFile    string        // destination for the results JSON
	Delay         time.Duration // flat pause between model requests
}

// Run describes one stored evaluation run.
type Run struct {
	ID            int64     `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	QuestionsFile string    `json:"questions_file"`
	AnswersDir    string    `json:"answers_dir"`
	Model         string    `json:"model"`
}

// RunExport combines a stored run with its result entries.
type RunExport struct {
	Run     Run           `json:"run"`
	Results []ResultEntry `json:"results"`
}
