package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// envConfig holds process settings read from the environment.
type envConfig struct {
	ConfigPath string `env:"HTMLRENDER_CONFIG,default=htmlrender.yaml"`
	LogLevel   string `env:"HTMLRENDER_LOG_LEVEL,default=info"`
	Addr       string `env:"HTMLRENDER_ADDR,default=:8080"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	var env envConfig
	if err := envconfig.Process(ctx, &env); err != nil {
		fmt.Fprintf(os.Stderr, "error: load environment: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(env.LogLevel)

	if err := newRootCommand(env, logger).ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("htmlrender failed")
		os.Exit(1)
	}
}

func newRootCommand(env envConfig, logger zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "htmlrender",
		Short:         "Render pongo2 templates configured from YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRenderCommand(env, logger))
	cmd.AddCommand(newServeCommand(env, logger))
	cmd.AddCommand(newFunctionsCommand())
	return cmd
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(parsed).
		With().
		Timestamp().
		Logger()
}
