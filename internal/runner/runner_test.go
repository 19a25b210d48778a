package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkraev/rubriceval/internal/llm"
	"github.com/mkraev/rubriceval/internal/model"
)

// stubEvaluator returns fixed scores (or a fixed error) and records every
// input it sees.
type stubEvaluator struct {
	scores model.RubricScores
	err    error
	inputs []llm.EvalInput
}

func (s *stubEvaluator) Evaluate(_ context.Context, in llm.EvalInput) (model.RubricScores, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

// newFixture lays out a dataset file and per-question answer folders in a
// temp directory and returns a ready Runner config.
func newFixture(t *testing.T, dataset string, answers map[string][]string) model.RunConfig {
	t.Helper()
	dir := t.TempDir()

	questionsFile := filepath.Join(dir, "data.json")
	if err := os.WriteFile(questionsFile, []byte(dataset), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	answersDir := filepath.Join(dir, "data")
	for id, files := range answers {
		qDir := filepath.Join(answersDir, id)
		if err := os.MkdirAll(qDir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", qDir, err)
		}
		for _, f := range files {
			if err := os.WriteFile(filepath.Join(qDir, f), []byte("img"), 0o644); err != nil {
				t.Fatalf("write answer image: %v", err)
			}
		}
	}

	return model.RunConfig{
		QuestionsFile: questionsFile,
		AnswersDir:    answersDir,
		OutputFile:    filepath.Join(dir, "evaluation.json"),
	}
}

func TestRunTextQuestionSingleAnswer(t *testing.T) {
	cfg := newFixture(t,
		`[{"id":"q1","question":"What is 7×8?"}]`,
		map[string][]string{"q1": {"a.png"}},
	)
	eval := &stubEvaluator{scores: model.RubricScores{"1": 3, "2": 4, "3": 2, "4": 5, "5": 1}}

	results, err := New(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	e := results[0]
	if e.QuestionType != model.QuestionText {
		t.Errorf("question_type = %q, want Text", e.QuestionType)
	}
	if e.QuestionPathOrText != "What is 7×8?" {
		t.Errorf("question_path_or_text = %q, want the question text", e.QuestionPathOrText)
	}
	if e.Subject != "N/A" {
		t.Errorf("subject = %q, want N/A default", e.Subject)
	}
	if e.NumAnswerImages != 1 {
		t.Errorf("num_answer_images = %d, want 1", e.NumAnswerImages)
	}
	if e.TotalScore != 15 {
		t.Errorf("total_score = %d, want 15", e.TotalScore)
	}
	if e.ErrorMessage != nil {
		t.Errorf("error_message = %q, want nil", *e.ErrorMessage)
	}

	if len(eval.inputs) != 1 {
		t.Fatalf("evaluator called %d times, want 1", len(eval.inputs))
	}
	in := eval.inputs[0]
	if in.QuestionType != model.QuestionText || in.QuestionText != "What is 7×8?" {
		t.Errorf("unexpected evaluator input: %+v", in)
	}
	if len(in.AnswerPaths) != 1 {
		t.Errorf("evaluator got %d answer paths, want 1", len(in.AnswerPaths))
	}
}

func TestRunImageQuestion(t *testing.T) {
	cfg := newFixture(t,
		`[{"id":"q1","question":"fig.png","subject":"geometry"}]`,
		map[string][]string{"q1": {"a.png", "b.png"}},
	)
	// The question image lives next to the dataset file.
	figPath := filepath.Join(filepath.Dir(cfg.QuestionsFile), "fig.png")
	if err := os.WriteFile(figPath, []byte("img"), 0o644); err != nil {
		t.Fatalf("write question image: %v", err)
	}
	eval := &stubEvaluator{scores: model.RubricScores{"1": 1}}

	results, err := New(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	e := results[0]
	if e.QuestionType != model.QuestionImage {
		t.Errorf("question_type = %q, want Image", e.QuestionType)
	}
	if e.QuestionPathOrText != figPath {
		t.Errorf("question_path_or_text = %q, want %q", e.QuestionPathOrText, figPath)
	}
	if e.Subject != "geometry" {
		t.Errorf("subject = %q, want geometry", e.Subject)
	}
	if e.NumAnswerImages != 2 {
		t.Errorf("num_answer_images = %d, want 2", e.NumAnswerImages)
	}

	in := eval.inputs[0]
	if in.QuestionType != model.QuestionImage || in.QuestionPath != figPath {
		t.Errorf("unexpected evaluator input: %+v", in)
	}
}

func TestRunMissingQuestionImage(t *testing.T) {
	cfg := newFixture(t,
		`[{"id":"q2","question":"fig.png"}]`,
		map[string][]string{"q2": {"a.png", "b.png"}},
	)
	eval := &stubEvaluator{scores: model.RubricScores{"1": 1}}

	results, err := New(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	e := results[0]
	if e.ErrorMessage == nil || *e.ErrorMessage != "Question image file not found." {
		t.Fatalf("error_message = %v, want question-image-not-found", e.ErrorMessage)
	}
	if e.CategoryScores != nil {
		t.Error("category_scores should be nil")
	}
	if e.TotalScore != 0 {
		t.Errorf("total_score = %d, want 0", e.TotalScore)
	}
	// A path that looks like an image but has no file behind it is Text.
	if e.QuestionType != model.QuestionText {
		t.Errorf("question_type = %q, want Text", e.QuestionType)
	}
	if len(eval.inputs) != 0 {
		t.Error("evaluator should not be called")
	}
}

func TestRunMissingAndEmptyAnswerFolders(t *testing.T) {
	cfg := newFixture(t,
		`[{"id":"q1","question":"What is 2+3?"},{"id":"q2","question":"Also text"},{"id":"q3","question":"And more"}]`,
		map[string][]string{
			"q2": {},         // exists but holds no images
			"q3": {"ok.png"}, // healthy record after the failures
		},
	)
	eval := &stubEvaluator{scores: model.RubricScores{"1": 2}}

	results, err := New(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	if results[0].ErrorMessage == nil || *results[0].ErrorMessage != "Answer folder not found." {
		t.Errorf("q1 error = %v, want answer-folder-not-found", results[0].ErrorMessage)
	}
	if results[1].ErrorMessage == nil || *results[1].ErrorMessage != "No answer images found." {
		t.Errorf("q2 error = %v, want no-answer-images", results[1].ErrorMessage)
	}
	if results[2].ErrorMessage != nil {
		t.Errorf("q3 error = %v, want nil", results[2].ErrorMessage)
	}
	if results[2].TotalScore != 2 {
		t.Errorf("q3 total = %d, want 2", results[2].TotalScore)
	}
	if len(eval.inputs) != 1 {
		t.Errorf("evaluator called %d times, want 1", len(eval.inputs))
	}
}

func TestRunSkipsRecordsWithMissingFields(t *testing.T) {
	cfg := newFixture(t,
		`[{"id":"","question":"no id"},{"id":"q2"},{"id":"q3","question":"valid"}]`,
		map[string][]string{"q3": {"a.png"}},
	)
	eval := &stubEvaluator{scores: model.RubricScores{"1": 1}}

	results, err := New(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (skipped records are not recorded)", len(results))
	}
	if results[0].QuestionID != "q3" {
		t.Errorf("question_id = %q, want q3", results[0].QuestionID)
	}
}

func TestRunEvaluationErrorContinues(t *testing.T) {
	cfg := newFixture(t,
		`[{"id":"q1","question":"first"},{"id":"q2","question":"second"}]`,
		map[string][]string{"q1": {"a.png"}, "q2": {"a.png"}},
	)
	eval := &stubEvaluator{err: errors.New("model API call: boom")}

	results, err := New(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, e := range results {
		if e.ErrorMessage == nil || !strings.Contains(*e.ErrorMessage, "boom") {
			t.Errorf("result %d error = %v, want the evaluator error", i, e.ErrorMessage)
		}
		if e.CategoryScores != nil {
			t.Errorf("result %d should have nil scores", i)
		}
	}
}

func TestRunDatasetLoadFailureIsFatal(t *testing.T) {
	cfg := model.RunConfig{
		QuestionsFile: filepath.Join(t.TempDir(), "absent.json"),
		AnswersDir:    t.TempDir(),
	}
	if _, err := New(cfg, &stubEvaluator{}).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing dataset file")
	}
}

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evaluation.json")

	errMsg := "Answer folder not found."
	results := []model.ResultEntry{
		{
			QuestionID:         "q1",
			Subject:            "N/A",
			QuestionRaw:        "Вопрос: 7×8?",
			QuestionType:       model.QuestionText,
			QuestionPathOrText: "Вопрос: 7×8?",
			AnswerImagePaths:   []string{"data/q1/a.png"},
			NumAnswerImages:    1,
			CategoryScores:     model.RubricScores{"1": 3},
			TotalScore:         3,
		},
		{
			QuestionID:       "q2",
			Subject:          "N/A",
			QuestionRaw:      "skipped",
			QuestionType:     model.QuestionText,
			AnswerImagePaths: []string{},
			ErrorMessage:     &errMsg,
		},
	}

	if err := WriteResults(path, results); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	// Non-ASCII must be preserved literally, not escaped.
	if !strings.Contains(string(data), "Вопрос: 7×8?") {
		t.Error("non-ASCII characters should not be escaped")
	}
	if !strings.Contains(string(data), `"category_scores": null`) {
		t.Error("absent scores should serialize as null")
	}
	if !strings.Contains(string(data), `"error_message": null`) {
		t.Error("absent error should serialize as null")
	}

	var decoded []model.ResultEntry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d entries, want 2", len(decoded))
	}
	if decoded[0].TotalScore != 3 || decoded[1].ErrorMessage == nil {
		t.Error("round-tripped entries lost data")
	}
}
