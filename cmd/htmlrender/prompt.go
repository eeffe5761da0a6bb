package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"

	"github.com/goliatone/go-htmlrender/pkg/render"
)

var errNoTemplate = errors.New("--template is required when stdin is not a terminal")

func promptTemplate(ctx context.Context, renderer *render.Adapter) (string, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errNoTemplate
	}

	engine, err := renderer.NativeDriver()
	if err != nil {
		return "", err
	}

	var name string
	prompt := &survey.Input{
		Message: "Template to render:",
		Help:    "Name resolved through the configured loaders, e.g. pages/index.html",
	}
	validator := func(ans any) error {
		value, _ := ans.(string)
		if value == "" {
			return errors.New("template name is required")
		}
		if !engine.HasTemplate(value) {
			return fmt.Errorf("template %q not found", value)
		}
		return nil
	}

	if err := survey.AskOne(prompt, &name, survey.WithValidator(validator)); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", context.Canceled
		}
		return "", err
	}
	return name, nil
}
