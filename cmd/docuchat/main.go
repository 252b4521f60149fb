// DocuChat server: a document-aware conversational agent over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tobhei/docuchat"
	"github.com/tobhei/docuchat/agent"
	"github.com/tobhei/docuchat/artifact"
	"github.com/tobhei/docuchat/config"
	"github.com/tobhei/docuchat/httpapi"
	"github.com/tobhei/docuchat/logging"
	"github.com/tobhei/docuchat/model"
	"github.com/tobhei/docuchat/model/anthropic"
	"github.com/tobhei/docuchat/model/ollama"
	"github.com/tobhei/docuchat/model/openai"
	"github.com/tobhei/docuchat/retrieve"
	"github.com/tobhei/docuchat/structured"
	"github.com/tobhei/docuchat/tool"
	"github.com/tobhei/docuchat/visualize"

	sqlitestore "github.com/tobhei/docuchat/session/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	logger.Info("Starting server",
		"addr", cfg.Addr,
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
	)

	store, err := sqlitestore.New(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open conversation store", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("Failed to close conversation store", "error", closeErr.Error())
		}
	}()

	if err := store.Ping(context.Background()); err != nil {
		logger.Error("Conversation store health check failed", "error", err.Error())
		os.Exit(1)
	}

	m, err := buildModel(cfg.Model)
	if err != nil {
		logger.Error("Failed to configure model", "error", err.Error())
		os.Exit(1)
	}

	artifacts, err := artifact.NewDirStore(cfg.ArtifactDir, cfg.ArtifactURL)
	if err != nil {
		logger.Error("Failed to open artifact store", "error", err.Error())
		os.Exit(1)
	}

	index := retrieve.NewMemoryIndex()
	if cfg.DocsDir != "" {
		n, err := loadDocuments(index, cfg.DocsDir)
		if err != nil {
			logger.Error("Failed to load documents", "dir", cfg.DocsDir, "error", err.Error())
			os.Exit(1)
		}
		logger.Info("Documents indexed", "dir", cfg.DocsDir, "chunks", n)
	}

	app := docuchat.New(m, func(o *docuchat.Options) {
		o.Store = store
		o.Logger = logger
		o.AgentOptions = []func(ao *agent.Options){func(ao *agent.Options) {
			ao.MaxIterations = cfg.Agent.MaxIterations
			ao.StepTimeout = cfg.Agent.StepTimeout
		}}
		o.Tools = func(userID string) *tool.Registry {
			repairer := structured.NewRepairer(m)
			renderer := visualize.NewRenderer(artifacts)
			return tool.NewRegistry(
				tool.NewRetrieverTool(index),
				tool.NewSummarizerTool(m, index),
				tool.NewAnalyzerTool(m, index, repairer, renderer, userID, logger),
				tool.NewQuestionTool(m, index, repairer, logger),
				tool.NewWeatherTool(func(wo *tool.WeatherToolOptions) {
					wo.BaseURL = cfg.WeatherBaseURL
				}),
				tool.NewWeatherAnalyzerTool(m, repairer),
			)
		}
	})

	r := httpapi.NewHandler(app, logger).Router()
	r.Handle(cfg.ArtifactURL+"/*", http.StripPrefix(cfg.ArtifactURL+"/",
		http.FileServer(http.Dir(cfg.ArtifactDir))))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err.Error())
		}
	}
}

func buildModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		client := openaisdk.NewClient(option.WithAPIKey(cfg.APIKey))
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			o.Model = cfg.Name
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(cfg.Name)
			o.APIKey = cfg.APIKey
		}), nil
	case "ollama":
		return ollama.NewModel(func(o *ollama.Options) {
			o.BaseURL = cfg.BaseURL
			o.Model = cfg.Name
		}), nil
	default:
		return nil, errors.New("unknown model provider " + cfg.Provider)
	}
}

// loadDocuments indexes every .txt and .md file under dir, split into
// paragraph chunks.
func loadDocuments(index *retrieve.MemoryIndex, dir string) (int, error) {
	total := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, chunk := range strings.Split(string(data), "\n\n") {
			chunk = strings.TrimSpace(chunk)
			if chunk == "" {
				continue
			}
			index.Add(chunk)
			total++
		}
		return nil
	})
	return total, err
}
