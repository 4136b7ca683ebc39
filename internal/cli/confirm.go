package cli

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// SurveyConfirmer prompts on the terminal. It defaults to "no".
type SurveyConfirmer struct {
	opts []survey.AskOpt
}

// NewSurveyConfirmer creates a terminal Confirmer.
func NewSurveyConfirmer(opts ...survey.AskOpt) *SurveyConfirmer {
	return &SurveyConfirmer{opts: opts}
}

func (c *SurveyConfirmer) Confirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok, c.opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}
