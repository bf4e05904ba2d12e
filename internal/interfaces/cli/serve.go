package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MedKG-Intelligence/internal/application/engine"
	"github.com/turtacn/MedKG-Intelligence/internal/application/query"
	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/storage/filewatch"
	httpapi "github.com/turtacn/MedKG-Intelligence/internal/interfaces/http"
	"github.com/turtacn/MedKG-Intelligence/internal/interfaces/http/handlers"
)

// NewServeCmd runs the HTTP API until SIGINT or SIGTERM.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution and query API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cc)
		},
	}
}

func runServe(ctx context.Context, cc *CLIContext) error {
	cfg := cc.Config
	log := cc.Logger
	a := newApp(cc)
	defer a.Close()

	gin.SetMode(cfg.Server.Mode)

	eng, err := a.Engine()
	if err != nil {
		return err
	}
	svc, qs, err := a.Services(ctx, eng)
	if err != nil {
		return err
	}
	router := httpapi.NewRouter(routerConfig(ctx, a, eng, svc, qs))

	// A failed first load leaves the API up and not ready; any reload
	// trigger can recover it.
	if err := eng.Start(ctx); err != nil {
		log.Error("initial snapshot load failed; serving as not ready", logging.Err(err))
	}

	reload := func(trigger string) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := eng.Reload(ctx, trigger)
			return err
		}
	}

	if cfg.Reload.WatchStoreFile {
		w, err := filewatch.New(cfg.Store.SQLite.Path, cfg.Reload.Debounce, log)
		if err != nil {
			return err
		}
		if err := w.Start(ctx, reload(engine.TriggerFile)); err != nil {
			return err
		}
		a.onClose(w.Stop)
	}

	if cfg.Messaging.Kafka.Enabled {
		if err := startReloadConsumer(ctx, a, reload(engine.TriggerKafka)); err != nil {
			return err
		}
	}

	if cc.ConfigPath != "" {
		watchConfig(cc.ConfigPath, cfg, log)
	}

	srv := httpapi.NewServer(cfg.Server, router, log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop(context.Background())
	})
	log.Info("medkg serving",
		logging.String("addr", cfg.Server.Addr()),
		logging.String("store_driver", cfg.Store.Driver),
		logging.String("version", Version))
	return g.Wait()
}

func routerConfig(ctx context.Context, a *app, eng *engine.Engine, svc handlers.Resolver, qs query.KGQueryService) httpapi.RouterConfig {
	cfg := a.cfg
	required := []handlers.HealthChecker{handlers.CheckFunc{Component: "store", Fn: eng.Ready}}
	var optional []handlers.HealthChecker
	if rc, _ := a.Redis(ctx); rc != nil {
		optional = append(optional, handlers.CheckFunc{Component: "redis", Fn: rc.Ping})
	}
	if cfg.Graph.Neo4j.ServeNeighbors {
		if _, d, _ := a.Graph(ctx); d != nil {
			required = append(required, handlers.CheckFunc{Component: "neo4j", Fn: d.HealthCheck})
		}
	}

	rc := httpapi.RouterConfig{
		EntityHandler:  handlers.NewEntityHandler(svc, qs, a.logger),
		GraphHandler:   handlers.NewGraphHandler(qs),
		GenericHandler: handlers.NewGenericHandler(qs),
		HealthHandler:  handlers.NewHealthHandler(Version, required, optional...),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         a.logger,
		Metrics:        a.Metrics(),
	}
	if cfg.Server.EnableAdmin {
		rc.AdminHandler = handlers.NewAdminHandler(eng, a.logger)
	}
	if a.collector != nil {
		rc.MetricsPath = cfg.Metrics.Path
		rc.MetricsHandler = a.collector.Handler()
	}
	return rc
}

// startReloadConsumer subscribes to the reload-event topic.  Topic
// provisioning is best effort: brokers with auto-create or a locked-down
// admin API still deliver to an existing topic.
func startReloadConsumer(ctx context.Context, a *app, reload kafka.ReloadFunc) error {
	kc := a.cfg.Messaging.Kafka
	log := a.logger.Named("kafka")

	if tm, err := kafka.NewTopicManager(kc.Brokers, log); err != nil {
		log.Warn("topic provisioning skipped", logging.Err(err))
	} else {
		if err := tm.EnsureTopic(ctx, kafka.SnapshotTopic(kc.Topic)); err != nil {
			log.Warn("topic provisioning failed", logging.String("topic", kc.Topic), logging.Err(err))
		}
		_ = tm.Close()
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(kc), log)
	if err != nil {
		return err
	}
	if err := consumer.Subscribe(kc.Topic, kafka.ReloadHandler(reload, a.Metrics(), log)); err != nil {
		_ = consumer.Close()
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return err
	}
	a.onClose(consumer.Close)
	return nil
}

// watchConfig reports edits to the config file.  Settings are bound at
// startup, so a changed file only takes effect after a restart.
func watchConfig(path string, current *config.Config, log logging.Logger) {
	err := config.Watch(path, func(next *config.Config) {
		log.Warn("configuration file changed; restart to apply",
			logging.String("path", path),
			logging.Bool("store_changed", next.Store != current.Store),
			logging.Bool("linker_changed", next.Linker != current.Linker))
	}, func(err error) {
		log.Warn("configuration file changed but is invalid", logging.String("path", path), logging.Err(err))
	})
	if err != nil {
		log.Warn("configuration watch disabled", logging.Err(err))
	}
}

//Personal.AI order the ending
