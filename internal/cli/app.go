package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/roach88/scentbox/internal/config"
	"github.com/roach88/scentbox/internal/questionnaire"
	"github.com/roach88/scentbox/internal/recommend"
	"github.com/roach88/scentbox/internal/remote"
	"github.com/roach88/scentbox/internal/selection"
	"github.com/roach88/scentbox/internal/store"
	"github.com/roach88/scentbox/internal/store/badgerkv"
	"github.com/roach88/scentbox/internal/survey"
)

// app holds the components shared by every command: configuration, the
// persisted store and the remote client.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	kv        store.KV
	closer    io.Closer
	client    remote.Client
	http      *remote.HTTPClient // nil unless talking to a real remote
	questions *questionnaire.Questionnaire
}

// newLogger configures logging based on the verbose flag.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// openApp loads configuration and opens the store and remote client.
// Callers must Close the result.
func openApp(opts *RootOptions, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(opts.Config, opts.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	a := &app{cfg: cfg, logger: logger}

	a.questions = questionnaire.Default()
	if cfg.Survey.Questionnaire != "" {
		q, err := questionnaire.Load(cfg.Survey.Questionnaire)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load questionnaire", err)
		}
		a.questions = q
	}

	if err := a.openStore(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	switch {
	case cfg.Remote.Fixture != "":
		f, err := remote.LoadFixture(cfg.Remote.Fixture)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load fixture", err)
		}
		a.client = remote.NewFixtureClient(*f)
	case cfg.Remote.URL != "":
		a.http = remote.NewHTTPClient(cfg.Remote.URL, cfg.Remote.Token,
			remote.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout}))
		a.client = a.http
	default:
		// No remote: answers are recorded locally and never uploaded.
		a.client = remote.NewFixtureClient(remote.Fixture{})
	}

	logger.Debug("app ready",
		"store", cfg.Store.Backend,
		"path", cfg.Store.Path,
		"remote", cfg.HasRemote())
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Store.Backend {
	case config.BackendSQLite:
		st, err := store.Open(a.cfg.Store.Path)
		if err != nil {
			return err
		}
		a.kv, a.closer = st, st
	case config.BackendBadger:
		kv, err := badgerkv.Open(a.cfg.Store.Path)
		if err != nil {
			return err
		}
		a.kv, a.closer = kv, kv
	case config.BackendMemory:
		a.kv = store.NewMemory()
	default:
		return fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
	return nil
}

// Close releases the store.
func (a *app) Close() {
	if a.closer == nil {
		return
	}
	if err := a.closer.Close(); err != nil {
		a.logger.Error("error closing store", "error", err)
	}
}

// authenticated reports whether the session starts signed in: a token is
// configured for the remote, or a fixture is being served.
func (a *app) authenticated() bool {
	if a.cfg.Remote.Fixture != "" {
		return true
	}
	return a.http != nil && a.cfg.Remote.Token != ""
}

// logout drops the credential so later requests go out unauthenticated.
func (a *app) logout(ctx context.Context) {
	a.logger.Warn("session logged out")
	if a.http != nil {
		a.http.SetToken("")
	}
}

// newSurvey creates the survey engine and restores its persisted state.
func (a *app) newSurvey(ctx context.Context, authenticated bool) (*survey.Engine, error) {
	eng := survey.New(a.client,
		survey.WithStore(a.kv),
		survey.WithAuthenticator(survey.LogoutFunc(a.logout)),
		survey.WithQuestionnaire(a.questions),
		survey.WithDebounce(a.cfg.Survey.Debounce),
		survey.WithFreshness(a.cfg.Survey.Freshness),
		survey.WithLogger(a.logger),
		survey.WithAuthenticated(authenticated),
	)
	if err := eng.Restore(ctx); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to restore survey", err)
	}
	return eng, nil
}

func (a *app) newLoader() *recommend.Loader {
	return recommend.New(a.client,
		recommend.WithTopK(a.cfg.Recommend.TopK),
		recommend.WithLogger(a.logger),
	)
}

// newSelection creates the selection engine and restores its persisted
// state over the configured defaults.
func (a *app) newSelection(ctx context.Context) (*selection.Engine, error) {
	eng := selection.New(
		selection.WithTargetCount(a.cfg.Selection.TargetCount),
		selection.WithUnitSize(a.cfg.UnitSize()),
		selection.WithPriceRange(a.cfg.PriceRange()),
		selection.WithStore(a.kv),
		selection.WithLogger(a.logger),
	)
	if err := eng.Restore(ctx); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to restore selection", err)
	}
	return eng, nil
}
