package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	htmlrender "github.com/goliatone/go-htmlrender"
	"github.com/goliatone/go-htmlrender/pkg/render/echoview"
)

func newServeCommand(env envConfig, logger zerolog.Logger) *cobra.Command {
	var (
		configPaths []string
		addr        string
		sprig       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GET /render/<template> over HTTP",
		Long:  "Serve templates over HTTP. Query parameters become template data; ?renderer=<name> selects a renderer other than the first configured one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(configPaths) == 0 {
				configPaths = []string{env.ConfigPath}
			}

			renderers := make([]htmlrender.Renderer, 0, len(configPaths))
			for _, path := range configPaths {
				r, err := openRenderer(path, logger, sprig)
				if err != nil {
					return err
				}
				renderers = append(renderers, r)
			}

			registry, err := htmlrender.NewRegistry(renderers...)
			if err != nil {
				return err
			}
			view, err := echoview.New(registry, renderers[0].Name())
			if err != nil {
				return err
			}

			e := newServer(view, logger)
			return run(cmd.Context(), e, addr, logger)
		},
	}

	cmd.Flags().StringArrayVar(&configPaths, "config", nil, "Renderer configuration file, repeatable; the first is the default")
	cmd.Flags().StringVar(&addr, "addr", env.Addr, "Listen address")
	cmd.Flags().BoolVar(&sprig, "sprig", false, "Register sprig functions")
	return cmd
}

func newServer(view *echoview.View, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = view

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Warn().Err(v.Error)
			}
			event.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))

	e.GET("/render/*", view.Handler())
	return e
}

func run(ctx context.Context, e *echo.Echo, addr string, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
		return err
	}
	return nil
}
