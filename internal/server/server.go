// Package server wires the HTTP and websocket surface of the agent backend.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atlasagent/atlas/config"
	"github.com/atlasagent/atlas/internal/agent"
	"github.com/atlasagent/atlas/internal/artifacts"
	"github.com/atlasagent/atlas/internal/session/inmemory"
	"github.com/atlasagent/atlas/internal/telemetry"
	openaiprovider "github.com/atlasagent/atlas/provider/openai"
	"github.com/atlasagent/atlas/tools"
	"github.com/atlasagent/atlas/tools/dataframe"
	"github.com/atlasagent/atlas/tools/document"
	"github.com/atlasagent/atlas/tools/webfetch"
	"github.com/atlasagent/atlas/tools/websearch"
)

// Run assembles the full backend and serves until the listener fails.
// An empty addr falls back to the configured server address.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New(prometheus.DefaultRegisterer)
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	llm, err := openaiprovider.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	ag := agent.New(agent.Options{
		Name:          cfg.Agent.Name,
		Description:   cfg.Agent.Description,
		MaxIterations: cfg.Agent.MaxIterations,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
	}, llm, registry, metrics)

	sessions := inmemory.New(cfg.Sessions.MaxSessions)
	store := artifacts.NewStore(cfg.Artifacts.Dir)

	e.GET("/health", func(c echo.Context) error {
		names := make([]string, 0, len(ag.Toolkits()))
		for _, tk := range ag.Toolkits() {
			names = append(names, tk.Name())
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":         "healthy",
			"agent":          ag.Name(),
			"model":          cfg.LLM.Model,
			"max_iterations": cfg.Agent.MaxIterations,
			"tools":          names,
		})
	})

	NewAPI(ag, sessions, store).Register(e.Group("/api"))
	NewWSHandler(ag, sessions, store, metrics).Register(e)

	if addr == "" {
		addr = cfg.Server.Address
	}
	baseLogger.Printf("listening on %s", addr)
	return e.Start(addr)
}

// buildRegistry assembles the toolkits exposed to the model. Web search is
// registered only when an API key for the configured provider is present; the
// agent still runs without it.
func buildRegistry(cfg *config.Config) (*tools.Registry, error) {
	var toolkits []tools.Toolkit

	p := websearch.Provider(cfg.Tools.Search.Provider)
	key := cfg.Tools.Search.SerperAPIKey
	if p == websearch.BraveProvider {
		key = cfg.Tools.Search.BraveAPIKey
	}
	if key != "" {
		s, err := websearch.NewSearcher(p, key, cfg.Tools.Search.Timeout)
		if err != nil {
			return nil, fmt.Errorf("web search: %w", err)
		}
		toolkits = append(toolkits, websearch.NewToolkit(s))
	}

	toolkits = append(toolkits,
		webfetch.NewToolkit(webfetch.NewFetcher(cfg.Tools.Fetch.TimeoutMS, cfg.Tools.Fetch.MaxChars)),
		dataframe.NewToolkit(),
		document.NewToolkit(),
	)
	return tools.NewRegistry(toolkits...), nil
}
