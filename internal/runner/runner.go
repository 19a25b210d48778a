// Package runner drives one evaluation run: it iterates the question
// dataset, resolves answer images, dispatches each question to the model
// and accumulates result entries.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mkraev/rubriceval/internal/dataset"
	"github.com/mkraev/rubriceval/internal/llm"
	"github.com/mkraev/rubriceval/internal/model"
)

// Evaluator scores one question against its answer images.
type Evaluator interface {
	Evaluate(ctx context.Context, in llm.EvalInput) (model.RubricScores, error)
}

// Runner processes a dataset strictly sequentially, one question at a time.
type Runner struct {
	cfg  model.RunConfig
	eval Evaluator
	// baseDir anchors question image paths, which are relative to the
	// dataset file.
	baseDir string
}

// New creates a Runner for the given configuration and evaluator.
func New(cfg model.RunConfig, eval Evaluator) *Runner {
	return &Runner{
		cfg:     cfg,
		eval:    eval,
		baseDir: filepath.Dir(cfg.QuestionsFile),
	}
}

// Run loads the dataset and evaluates every question in order. Per-question
// failures are recorded on the entry and the loop continues; only a dataset
// load failure is returned as an error. The returned entries are in dataset
// order, one per question with a usable id and question.
func (r *Runner) Run(ctx context.Context) ([]model.ResultEntry, error) {
	questions, err := dataset.Load(r.cfg.QuestionsFile)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	results := make([]model.ResultEntry, 0, len(questions))

	for _, q := range questions {
		if q.ID == "" || q.Question == "" {
			slog.Warn("skipping record with missing id or question",
				"id", q.ID, "question", q.Question)
			continue
		}

		slog.Info("processing question", "id", q.ID)
		entry, requested := r.evaluateQuestion(ctx, q)
		results = append(results, entry)

		// Flat courtesy delay toward the endpoint, only after a request
		// was actually sent.
		if requested && r.cfg.Delay > 0 {
			time.Sleep(r.cfg.Delay)
		}
	}

	return results, nil
}

// evaluateQuestion produces the ResultEntry for a single question and
// reports whether a model request was sent. All failures past this point are
// recorded on the entry, never raised.
func (r *Runner) evaluateQuestion(ctx context.Context, q model.QuestionRecord) (model.ResultEntry, bool) {
	subject := q.Subject
	if subject == "" {
		subject = "N/A"
	}

	entry := model.ResultEntry{
		QuestionID:       q.ID,
		Subject:          subject,
		QuestionRaw:      q.Question,
		AnswerImagePaths: []string{},
	}

	// Classify modality up front so question_type is always set. A question
	// is an image question only when its text names an image file that
	// actually exists on disk.
	questionImagePath := ""
	questionImageMissing := false
	if dataset.IsImageQuestion(q.Question) {
		questionImagePath = filepath.Join(r.baseDir, q.Question)
		entry.QuestionPathOrText = questionImagePath
		if fileExists(questionImagePath) {
			entry.QuestionType = model.QuestionImage
		} else {
			entry.QuestionType = model.QuestionText
			questionImageMissing = true
		}
	} else {
		entry.QuestionType = model.QuestionText
		entry.QuestionPathOrText = q.Question
	}

	answerDir := filepath.Join(r.cfg.AnswersDir, q.ID)
	if info, err := os.Stat(answerDir); err != nil || !info.IsDir() {
		slog.Error("answer folder not found", "id", q.ID, "dir", answerDir)
		entry.SetError("Answer folder not found.")
		return entry, false
	}

	images, err := dataset.AnswerImages(answerDir)
	if err != nil {
		slog.Error("listing answer images failed", "id", q.ID, "error", err)
		entry.SetError(err.Error())
		return entry, false
	}
	entry.NumAnswerImages = len(images)
	if len(images) == 0 {
		slog.Error("no answer images found", "id", q.ID, "dir", answerDir)
		entry.SetError("No answer images found.")
		return entry, false
	}
	entry.AnswerImagePaths = images

	if questionImageMissing {
		slog.Error("question image not found", "id", q.ID, "path", questionImagePath)
		entry.SetError("Question image file not found.")
		return entry, false
	}

	slog.Info("evaluating",
		"id", q.ID,
		"question_type", entry.QuestionType,
		"num_answer_images", len(images),
	)

	scores, err := r.eval.Evaluate(ctx, llm.EvalInput{
		QuestionType: entry.QuestionType,
		QuestionText: q.Question,
		QuestionPath: questionImagePath,
		AnswerPaths:  images,
	})
	if err != nil {
		slog.Error("evaluation failed", "id", q.ID, "error", err)
		entry.SetError(err.Error())
		return entry, true
	}

	entry.SetScores(scores)
	slog.Info("scored", "id", q.ID, "scores", scores, "total", entry.TotalScore)
	return entry, true
}

// WriteResults serializes entries as indented JSON with HTML and non-ASCII
// characters preserved literally.
func WriteResults(path string, results []model.ResultEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
