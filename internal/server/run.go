package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-resource-api/internal/config"
	"github.com/r9s-ai/open-resource-api/internal/logx"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
	"github.com/r9s-ai/open-resource-api/pkg/query"
	"github.com/r9s-ai/open-resource-api/pkg/registry"
	"github.com/r9s-ai/open-resource-api/pkg/validate"
)

const shutdownTimeout = 10 * time.Second

func Run(cfgPath string) error {
	startedAt := time.Now()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lvl, _ := logx.ParseLevel(cfg.Logging.Level)
	logx.SetLevel(lvl)
	if lvl != logx.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	accessLogger, accessClose, accessColor, err := openAccessLogger(cfg)
	if err != nil {
		return fmt.Errorf("init access log: %w", err)
	}
	if accessClose != nil {
		defer func() { _ = accessClose.Close() }()
	}

	pidCleanup, err := writePIDFile(cfg)
	if err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if pidCleanup != nil {
		defer func() { _ = pidCleanup.Close() }()
	}

	reg := registry.NewRegistry()
	reg.SetBasePath(cfg.Server.BasePath)
	res, err := reg.ReloadFromDir(cfg.Registry.Dir)
	if err != nil {
		return fmt.Errorf("load types dir %q: %w", cfg.Registry.Dir, err)
	}
	logReload(res, nil)

	st := &state{}
	st.SetStartedAt(startedAt)
	st.RecordReload(res, nil)

	ctl, err := NewController(cfg, reg, query.NewStore())
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	installReloadSignalHandler(ctx, cfg, st, reg)
	if cfg.Registry.Watch {
		go func() {
			debounce := time.Duration(cfg.Registry.WatchDebounceMs) * time.Millisecond
			err := reg.Watch(ctx, cfg.Registry.Dir, debounce, func(res registry.LoadResult, err error) {
				st.RecordReload(res, err)
				logReload(res, err)
			})
			if err != nil {
				logx.Errorf("watch types dir: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           NewRouter(cfg, st, reg, ctl, accessLogger, accessColor),
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logx.Infof("open-resource-api listening on %s", cfg.Server.Listen)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("run: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// NewController wires the default validator, the registry's label
// resolution and hooks, and query dispatchers over store.
func NewController(cfg *config.Config, reg *registry.Registry, store *query.Store) (*pipeline.Controller, error) {
	return pipeline.NewController(pipeline.Config{
		Registry:            reg,
		Validator:           validate.New(),
		Dispatchers:         query.NewDispatchers(store),
		Hooks:               reg.Hooks(),
		SupportedExtensions: cfg.API.SupportedExtensions,
	})
}

func logReload(res registry.LoadResult, err error) {
	if err != nil {
		logx.Errorf("reload failed: %v", err)
		return
	}
	logx.Infof("types loaded=%d", len(res.LoadedTypes))
	if len(res.SkippedFiles) > 0 {
		logx.Warnf("skipped type files: %s", strings.Join(res.SkippedFiles, ", "))
	}
}

func openAccessLogger(cfg *config.Config) (*log.Logger, io.Closer, bool, error) {
	if cfg == nil || !cfg.AccessLogEnabled() {
		return nil, nil, false, nil
	}

	path := strings.TrimSpace(cfg.Logging.AccessLogPath)
	if path == "" {
		return log.New(os.Stdout, "", 0), nil, logx.ColorEnabled(), nil
	}

	dir := filepath.Dir(path)
	if strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, false, err
		}
	}
	// #nosec G304 -- access_log_path comes from trusted config/env.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, false, err
	}
	return log.New(f, "", 0), f, false, nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

func writePIDFile(cfg *config.Config) (io.Closer, error) {
	if cfg == nil {
		return nil, nil
	}
	path := strings.TrimSpace(cfg.Server.PidFile)
	if path == "" {
		return nil, nil
	}
	dir := filepath.Dir(path)
	if strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}

	tmp := path + ".tmp"
	pid := strconv.Itoa(os.Getpid()) + "\n"
	// #nosec G304 -- pid_file comes from trusted config/env.
	if err := os.WriteFile(tmp, []byte(pid), 0o600); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	return closerFunc(func() error { return os.Remove(path) }), nil
}

func installReloadSignalHandler(ctx context.Context, cfg *config.Config, st *state, reg *registry.Registry) {
	if cfg == nil || st == nil || reg == nil {
		return
	}
	var mu sync.Mutex
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				mu.Lock()
				res, err := reloadRuntime(cfg, reg)
				mu.Unlock()
				st.RecordReload(res, err)
				logReload(res, err)
			}
		}
	}()
}

func reloadRuntime(cfg *config.Config, reg *registry.Registry) (registry.LoadResult, error) {
	if cfg == nil || reg == nil {
		return registry.LoadResult{}, errors.New("reload: nil cfg/registry")
	}
	res, err := reg.ReloadFromDir(cfg.Registry.Dir)
	if err != nil {
		return registry.LoadResult{}, fmt.Errorf("reload types dir %q: %w", cfg.Registry.Dir, err)
	}
	return res, nil
}
