package enrichment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/core"
	"github.com/poiesic/nbharvest/notebook"
	"golang.org/x/sync/errgroup"
)

// Defaults substituted when a classification prompt fails.
const (
	DefaultLanguage         = "unknown"
	DefaultContext          = "general programming"
	DefaultSequencePosition = core.SequenceMiddle
	DefaultCSConcepts       = ""
)

// Field names reported by ClassifyError.
const (
	FieldLanguage         = "language"
	FieldContext          = "context"
	FieldSequencePosition = "sequence_position"
	FieldCSConcepts       = "cs_concepts"
)

// Classification holds the model-derived fields of one notebook.
type Classification struct {
	Language         string
	Context          string
	SequencePosition core.SequencePosition
	CSConcepts       string
}

// Classifier asks the model four independent questions about a notebook.
type Classifier struct {
	completer ai.Completer
	logger    *slog.Logger
}

// NewClassifier creates a classifier backed by completer.
func NewClassifier(completer ai.Completer) *Classifier {
	return &Classifier{
		completer: completer,
		logger:    slog.Default().With("component", "classifier"),
	}
}

// Classify runs the language, context, sequence and concept prompts concurrently
// over the first notebook.ClassifyLimit characters of text.
//
// A failed prompt never affects the others. Its field is set to the default and
// a *ClassifyError for it is included in the joined error, so the returned
// Classification is always complete.
func (c *Classifier) Classify(ctx context.Context, text string) (Classification, error) {
	text = notebook.Truncate(text, notebook.ClassifyLimit)

	result := Classification{
		Language:         DefaultLanguage,
		Context:          DefaultContext,
		SequencePosition: DefaultSequencePosition,
		CSConcepts:       DefaultCSConcepts,
	}
	var errs [4]error

	// Plain Group: one failure must not cancel the sibling prompts.
	var g errgroup.Group
	g.Go(func() error {
		answer, err := c.ask(ctx, FieldLanguage, languagePrompt, text)
		if err != nil {
			errs[0] = err
			return nil
		}
		result.Language = answer
		return nil
	})
	g.Go(func() error {
		answer, err := c.ask(ctx, FieldContext, contextPrompt, text)
		if err != nil {
			errs[1] = err
			return nil
		}
		result.Context = answer
		return nil
	})
	g.Go(func() error {
		answer, err := c.ask(ctx, FieldSequencePosition, sequencePrompt, text)
		if err != nil {
			errs[2] = err
			return nil
		}
		result.SequencePosition = NormalizeSequencePosition(answer)
		return nil
	})
	g.Go(func() error {
		answer, err := c.ask(ctx, FieldCSConcepts, conceptsPrompt, text)
		if err != nil {
			errs[3] = err
			return nil
		}
		result.CSConcepts = answer
		return nil
	})
	_ = g.Wait()

	return result, errors.Join(errs[:]...)
}

func (c *Classifier) ask(ctx context.Context, field, template, text string) (string, error) {
	answer, err := c.completer.Complete(ctx, buildPrompt(template, text))
	if err == nil && answer == "" {
		err = ai.ErrEmptyCompletion
	}
	if err != nil {
		c.logger.Warn("classification failed, using default", "field", field, "err", err)
		return "", &ClassifyError{Field: field, Err: err}
	}
	return answer, nil
}
