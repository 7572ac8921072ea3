package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"

	server "github.com/kazz187/notevault/internal"
	"github.com/kazz187/notevault/internal/agent"
	"github.com/kazz187/notevault/internal/config"
	"github.com/kazz187/notevault/internal/event"
	"github.com/kazz187/notevault/internal/eventbus"
	"github.com/kazz187/notevault/internal/llm"
	"github.com/kazz187/notevault/internal/note"
	"github.com/kazz187/notevault/internal/record"
	"github.com/kazz187/notevault/internal/record/repositoryimpl"
	"github.com/kazz187/notevault/internal/seed"
	"github.com/kazz187/notevault/internal/task"
	"github.com/kazz187/notevault/internal/tool"
	"github.com/kazz187/notevault/pkg/clog"
	"github.com/kazz187/notevault/pkg/docstore"
	"github.com/kazz187/notevault/pkg/docstore/blobstore"
	"github.com/kazz187/notevault/pkg/docstore/boltstore"
	"github.com/kazz187/notevault/pkg/docstore/chroma"
	"github.com/kazz187/notevault/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, env); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, env *config.Env) error {
	bus := eventbus.New()
	defer bus.Close()

	repo, closeRepo, err := openRepository(ctx, config.StorageEnvFromEnv(env), record.NewNotifier(bus))
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	if env.Seed {
		fixture, err := seed.DefaultFixture()
		if err != nil {
			return err
		}
		if _, err := seed.Run(ctx, repo, fixture, time.Now()); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}

	registry, err := tool.NewRecordRegistry(repo)
	if err != nil {
		return err
	}

	agentEnv := config.AgentEnvFromEnv(env)
	model := llm.NewOpenAI(llm.Config{
		BaseURL:     agentEnv.BaseURL,
		APIKey:      agentEnv.APIKey,
		Model:       agentEnv.Model,
		Temperature: agentEnv.Temperature,
	})
	var prompt agent.PromptSource = agent.StaticPrompt(agent.DefaultSystemPrompt)
	var filePrompt *agent.FilePrompt
	switch {
	case agentEnv.SystemPromptFile != "":
		if filePrompt, err = agent.NewFilePrompt(agentEnv.SystemPromptFile); err != nil {
			return err
		}
		prompt = filePrompt
	case agentEnv.SystemPrompt != "":
		prompt = agent.StaticPrompt(agentEnv.SystemPrompt)
	}
	ag := agent.New(model, registry,
		agent.WithPrompt(prompt),
		agent.WithMaxRounds(agentEnv.MaxRounds),
		agent.WithModelTimeout(agentEnv.ModelTimeout),
		agent.WithIncludeSystem(agentEnv.IncludeSystem),
	)

	srv := server.NewServer(
		config.BaseEnvFromEnv(env),
		task.NewServer(repo),
		note.NewServer(repo),
		agent.NewServer(ag),
		event.NewServer(bus),
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if filePrompt != nil {
		p.Go(filePrompt.Watch)
	}
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		slog.Info("shutting down server")
		// Give active connections time to finish after stream contexts are cancelled.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return p.Wait()
}

// openRepository builds the record repository for the configured backend.
// The returned func releases the underlying store.
func openRepository(ctx context.Context, env *config.StorageEnv, notifier record.Notifier) (record.Repository, func() error, error) {
	opts := []repositoryimpl.Option{repositoryimpl.WithNotifier(notifier)}

	switch env.Backend {
	case "sqlite":
		index, err := openBlobStore(ctx, env)
		if err != nil {
			return nil, nil, err
		}
		repo, err := repositoryimpl.NewSQLiteRepository(ctx, env.SQLitePath, index, opts...)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using sqlite store", "path", env.SQLitePath)
		return repo, repo.Close, nil
	}

	var store docstore.Store
	switch env.Backend {
	case "bolt":
		s, err := boltstore.Open(env.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		slog.Info("using bolt store", "path", env.BoltPath)
		store = s
	case "chroma":
		s, err := chroma.New(chroma.Config{BaseURL: env.ChromaURL, Tenant: env.ChromaTenant, Database: env.ChromaDatabase})
		if err != nil {
			return nil, nil, err
		}
		if err := s.Heartbeat(ctx); err != nil {
			return nil, nil, fmt.Errorf("chroma is not reachable at %s: %w", env.ChromaURL, err)
		}
		slog.Info("using chroma store", "url", env.ChromaURL)
		store = s
	default:
		s, err := openBlobStore(ctx, env)
		if err != nil {
			return nil, nil, err
		}
		store = s
	}

	repo, err := repositoryimpl.NewDocstoreRepository(ctx, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return repo, store.Close, nil
}

func openBlobStore(ctx context.Context, env *config.StorageEnv) (docstore.Store, error) {
	var (
		s   storage.Storage
		err error
	)
	switch env.Type {
	case "s3":
		s, err = storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		slog.Info("using S3 blob storage", "bucket", env.S3Bucket, "prefix", env.S3Prefix)
	default:
		s, err = storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		slog.Info("using local blob storage", "dir", env.BaseDir)
	}
	return blobstore.New(s), nil
}
