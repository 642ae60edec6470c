// Package bootstrap owns the service lifecycle: configuration, logging,
// storage drivers, the validation domain and the HTTP server, plus graceful
// shutdown.
package bootstrap

import (
	"context"
	goerrors "errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	domainauth "stayonboard-server-go/internal/domain/auth"
	"stayonboard-server-go/internal/domain/history"
	domainimage "stayonboard-server-go/internal/domain/image"
	"stayonboard-server-go/internal/domain/imagestore"
	"stayonboard-server-go/internal/domain/validation"
	"stayonboard-server-go/internal/domain/validation/cache"
	"stayonboard-server-go/internal/domain/validation/repository"
	platformconfig "stayonboard-server-go/internal/platform/config"
	platformerrors "stayonboard-server-go/internal/platform/errors"
	platformlogging "stayonboard-server-go/internal/platform/logging"
	httptransport "stayonboard-server-go/internal/transport/http"
	httpsystem "stayonboard-server-go/internal/transport/http/system"
	httpvalidate "stayonboard-server-go/internal/transport/http/validate"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID      string
	Title   string
	Kind    platformerrors.Kind
	Execute stepFn
}

type appState struct {
	configPath string

	config  *platformconfig.Config
	logger  *platformlogging.Logger
	tokens  *domainauth.AuthToken
	store   imagestore.Store
	cache   repository.Cache
	history repository.HistoryStore
	service *validation.Service
}

// InitGraph lists the startup steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config",
			Title:   "load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: stepLoadConfig,
		},
		{
			ID:      "logging",
			Title:   "initialise logging",
			Kind:    platformerrors.KindBootstrap,
			Execute: stepInitLogging,
		},
		{
			ID:      "auth",
			Title:   "initialise auth tokens",
			Kind:    platformerrors.KindConfig,
			Execute: stepInitAuth,
		},
		{
			ID:      "stores",
			Title:   "open storage drivers",
			Kind:    platformerrors.KindStorage,
			Execute: stepOpenStores,
		},
		{
			ID:      "domain",
			Title:   "assemble validation domain",
			Kind:    platformerrors.KindBootstrap,
			Execute: stepBuildDomain,
		},
	}
}

func stepLoadConfig(_ context.Context, state *appState) error {
	cfg, err := platformconfig.NewLoader(state.configPath).Load()
	if err != nil {
		return err
	}
	state.config = cfg
	return nil
}

func stepInitLogging(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level: state.config.Log.Level,
		Dir:   state.config.Log.Dir,
		File:  state.config.Log.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	platformlogging.Default = logger
	return nil
}

func stepInitAuth(_ context.Context, state *appState) error {
	if !state.config.Server.AuthEnabled {
		return nil
	}
	state.tokens = domainauth.NewAuthToken(state.config.Server.AuthSecret)
	return nil
}

func stepOpenStores(_ context.Context, state *appState) error {
	store, err := imagestore.New(state.config.ImageStore)
	if err != nil {
		return err
	}
	state.store = store

	verdictCache, err := cache.New(state.config.Cache)
	if err != nil {
		return err
	}
	state.cache = verdictCache

	historyStore, err := history.New(state.config.History)
	if err != nil {
		return err
	}
	state.history = historyStore
	return nil
}

func stepBuildDomain(_ context.Context, state *appState) error {
	validator := domainimage.NewValidator(&state.config.Image, state.logger)
	evaluator := validation.NewEvaluator(state.store, validator, state.cache, state.config, state.logger)
	state.service = validation.NewService(evaluator, state.history, state.store, validator,
		state.config, state.logger)
	return nil
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			return platformerrors.Wrap(step.Kind, "bootstrap:"+step.ID, step.Title, err)
		}
		if state.logger != nil {
			state.logger.DebugTag("BOOT", "step %s done", step.ID)
		}
	}
	return nil
}

// Run starts the whole service lifecycle and blocks until shutdown.
func Run(ctx context.Context, configPath string) error {
	state := &appState{configPath: configPath}
	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	logger := state.logger
	defer logger.Close()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := state.service.Close(closeCtx); err != nil {
			logger.WarnTag("BOOT", "stores did not close cleanly: %v", err)
		}
		if err := state.cache.Close(closeCtx); err != nil {
			logger.WarnTag("BOOT", "cache did not close cleanly: %v", err)
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		return err
	}

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	var authMiddleware gin.HandlerFunc
	if config.Server.AuthEnabled {
		authMiddleware = httptransport.AuthMiddleware(state.tokens)
	} else {
		authMiddleware = httptransport.IdentityMiddleware()
	}

	router, err := httptransport.Build(httptransport.Options{
		Config:         config,
		Logger:         logger,
		AuthMiddleware: authMiddleware,
	})
	if err != nil {
		return nil, err
	}

	router.Engine.NoRoute(func(c *gin.Context) {
		httptransport.RespondError(c, http.StatusNotFound, "not found", nil)
	})

	systemService, err := httpsystem.NewService(state.service, logger)
	if err != nil {
		return nil, err
	}
	validateService, err := httpvalidate.NewService(state.service, logger)
	if err != nil {
		return nil, err
	}

	if err := systemService.Register(groupCtx, router.API); err != nil {
		return nil, err
	}
	if err := validateService.Register(groupCtx, router.Secured); err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:    config.Server.Host + ":" + strconv.Itoa(config.Server.Port),
		Handler: router.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on %s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "serve failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutdown requested, draining services")

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
		return nil
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out")
		return platformerrors.New(platformerrors.KindBootstrap, "bootstrap:shutdown",
			"shutdown timed out")
	}
}
