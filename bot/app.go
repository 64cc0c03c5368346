package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/korveth/ti4bot/core/bootstrap"
	coreconfig "github.com/korveth/ti4bot/core/config"
	"github.com/korveth/ti4bot/core/logger"
	coretelegram "github.com/korveth/ti4bot/core/telegram"
	tghelpers "github.com/korveth/ti4bot/core/telegram/helpers"
	"github.com/korveth/ti4bot/core/telegram/router"
	"github.com/korveth/ti4bot/game"
	"github.com/korveth/ti4bot/storage"

	tele "gopkg.in/telebot.v4"
)

// evictEvery is how often the idle-session sweep runs.
const evictEvery = 10 * time.Minute

// App carries the loaded configuration and, after Bootstrap, the wired
// session manager, store, and command registry.
type App struct {
	cfg    *coreconfig.Config
	db     *sqlx.DB
	games  *game.Manager
	interp *Interpreter
	reg    *coretelegram.Registry

	evictStop chan struct{}
}

// Load reads the configuration file and returns an App ready to bootstrap.
func Load(path string) (*App, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg}, nil
}

// CoreConfig exposes the embedded core configuration.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg }

// Bootstrap initializes the logger, connects the snapshot store when a
// database is configured, and wires the game manager and registry. Without a
// database the bot still runs; sessions then live in memory only.
func (a *App) Bootstrap() (*App, error) {
	var store game.Store
	if a.cfg.Database.Host != "" {
		res, err := bootstrap.Run(bootstrap.Options{
			Config:   a.cfg,
			Database: a.cfg.Database,
		})
		if err != nil {
			return nil, err
		}
		a.db = res.DB
		store = storage.NewPostgres(a.db)
	} else {
		if err := logger.InitLogger(a.cfg); err != nil {
			return nil, err
		}
		logger.L.With("component", "app").Warn("no database configured",
			slog.String("event", "store.memory_only"),
		)
	}

	a.games = game.NewManager(a.cfg.Game, store)
	a.interp = NewInterpreter(a.games, nil)
	a.reg = BuildRegistry(a.interp, a.games)
	return a, nil
}

// TelegramRunOptions assembles the bot runtime: routes, middlewares, and the
// lifecycle hooks that run the idle sweep and flush sessions on shutdown.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoute(a.reg, router.TextOptions{}))

	return coretelegram.RunOptions{
		Config:   a.cfg,
		Registry: a.reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, func(c tele.Context) error {
			return tghelpers.SendText(c, "Easy there, commander. One order at a time.")
		}),
		Routes:  routes,
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	timeout := time.Duration(a.cfg.Game.IdleTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		return nil
	}
	a.evictStop = make(chan struct{})
	go a.evictLoop(ctx, timeout)
	return nil
}

func (a *App) evictLoop(ctx context.Context, timeout time.Duration) {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()
	for {
		select {
		case <-a.evictStop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.games.EvictIdle(ctx, timeout)
		}
	}
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	if a.evictStop != nil {
		close(a.evictStop)
	}

	// Flush every live session so a restart resumes where the table left off.
	for _, chatID := range a.games.ChatIDs() {
		s, err := a.games.Get(ctx, chatID)
		if err != nil {
			continue
		}
		a.games.Persist(ctx, s)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.DB.Warn("db close failed", slog.String("err", err.Error()))
		}
	}
	return nil
}
