package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/headliner/internal/api"
	"github.com/samcharles93/headliner/internal/logger"
	"github.com/samcharles93/headliner/internal/titlegen"
	"github.com/samcharles93/headliner/internal/version"
)

type serveOptions struct {
	addr          string
	readTimeout   time.Duration
	maxTitles     int64
	maxConcurrent int64
	rateLimit     float64
	burst         int64
}

func serveCmd() *cli.Command {
	var opts serveOptions

	flags := append(engineFlags(), decodeFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &opts.addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read header timeout",
			Value:       30 * time.Second,
			Destination: &opts.readTimeout,
		},
		&cli.Int64Flag{
			Name:        "max-titles",
			Usage:       "largest 'sentences' value a request may ask for",
			Value:       16,
			Destination: &opts.maxTitles,
		},
		&cli.Int64Flag{
			Name:        "max-concurrent",
			Usage:       "generations in flight before requests are refused with 503 (0 = unbounded)",
			Value:       4,
			Destination: &opts.maxConcurrent,
		},
		&cli.FloatFlag{
			Name:        "rate-limit",
			Usage:       "admitted requests per second before 429 (0 = unlimited)",
			Destination: &opts.rateLimit,
		},
		&cli.Int64Flag{
			Name:        "burst",
			Usage:       "rate limiter burst (0 = rate-limit rounded down)",
			Destination: &opts.burst,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the title REST API",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileConfig, &opts)

			metrics := titlegen.NewMetrics(prometheus.DefaultRegisterer)
			gen, err := buildGenerator(ctx, cmd, titlegen.WithMetrics(metrics))
			if err != nil {
				return err
			}

			server := api.NewServer(gen, api.ServerConfig{
				MaxTitles:     int(opts.maxTitles),
				MaxConcurrent: opts.maxConcurrent,
				RateLimit:     opts.rateLimit,
				Burst:         int(opts.burst),
				Version:       version.String(),
				Metrics:       promhttp.Handler(),
				Logger:        log.With("component", "api"),
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", opts.addr, "scorer", scorerKind, "max_concurrent", opts.maxConcurrent)
			sc := echo.StartConfig{
				Address: opts.addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = opts.readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
