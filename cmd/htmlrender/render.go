package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	htmlrender "github.com/goliatone/go-htmlrender"
	"github.com/goliatone/go-htmlrender/pkg/render"
)

func newRenderCommand(env envConfig, logger zerolog.Logger) *cobra.Command {
	var (
		configPath   string
		templateName string
		dataPath     string
		output       string
		sets         []string
		sprig        bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one template to stdout or a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := openRenderer(configPath, logger, sprig)
			if err != nil {
				return err
			}

			data, err := loadData(dataPath, sets)
			if err != nil {
				return err
			}

			if templateName == "" {
				templateName, err = promptTemplate(cmd.Context(), renderer)
				if err != nil {
					return err
				}
			}

			html, err := renderer.Render(templateName, data)
			if err != nil {
				return fmt.Errorf("render %s: %w", templateName, err)
			}

			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), html)
				return err
			}
			if err := os.WriteFile(output, []byte(html), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info().Str("template", templateName).Str("output", output).Int("bytes", len(html)).Msg("template rendered")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", env.ConfigPath, "Renderer configuration file (YAML or JSON)")
	cmd.Flags().StringVar(&templateName, "template", "", "Template name; prompted for when empty on a terminal")
	cmd.Flags().StringVar(&dataPath, "data", "", "YAML or JSON file with template data")
	cmd.Flags().StringVar(&output, "output", "", "Output file (stdout if empty)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Template data as key=value, repeatable")
	cmd.Flags().BoolVar(&sprig, "sprig", false, "Register sprig functions")
	return cmd
}

func openRenderer(path string, logger zerolog.Logger, sprig bool) (*render.Adapter, error) {
	options := []htmlrender.Option{render.WithLogger(logger)}
	if sprig {
		options = append(options, render.WithSprigFunctions())
	}
	renderer, err := htmlrender.FromFile(path, options...)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("renderer", renderer.Name()).Str("config", path).Msg("renderer configured")
	return renderer, nil
}

func loadData(path string, sets []string) (map[string]any, error) {
	data := map[string]any{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse data %s: %w", path, err)
		}
	}
	for _, pair := range sets {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		data[key] = value
	}
	return data, nil
}

func newFunctionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions every renderer registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range htmlrender.PredefinedFunctions() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
