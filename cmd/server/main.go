// Command server runs the account and billing HTTP API together with the
// worker that reconciles queued PayPal notifications.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/accountbilling/api"
	"github.com/dmitrymomot/accountbilling/pkg/config"
	"github.com/dmitrymomot/accountbilling/pkg/dedup"
	"github.com/dmitrymomot/accountbilling/pkg/email"
	"github.com/dmitrymomot/accountbilling/pkg/httpserver"
	"github.com/dmitrymomot/accountbilling/pkg/jwt"
	"github.com/dmitrymomot/accountbilling/pkg/logger"
	"github.com/dmitrymomot/accountbilling/pkg/mongo"
	"github.com/dmitrymomot/accountbilling/pkg/queue"
	"github.com/dmitrymomot/accountbilling/pkg/redis"
	"github.com/dmitrymomot/accountbilling/pkg/requestid"
	"github.com/dmitrymomot/accountbilling/svc/account"
	"github.com/dmitrymomot/accountbilling/svc/billing"
	"github.com/dmitrymomot/accountbilling/svc/entitlement"
	"github.com/dmitrymomot/accountbilling/svc/invite"
	"github.com/dmitrymomot/accountbilling/svc/notify"
	"github.com/dmitrymomot/accountbilling/svc/reconcile"
	"github.com/dmitrymomot/accountbilling/svc/tax"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"accountbilling"`
}

type settings struct {
	mongo  mongo.Config
	redis  redis.Config
	http   httpserver.Config
	jwt    jwt.Config
	email  email.Config
	notify notify.Config
	invite invite.Config
	stripe billing.StripeConfig
	ipn    reconcile.IPNConfig
	queue  queue.Config
	dedup  dedup.Config
}

func loadSettings() (settings, error) {
	var s settings
	err := errors.Join(
		config.Load(&s.mongo),
		config.Load(&s.redis),
		config.Load(&s.http),
		config.Load(&s.jwt),
		config.Load(&s.email),
		config.Load(&s.notify),
		config.Load(&s.invite),
		config.Load(&s.stripe),
		config.Load(&s.ipn),
		config.Load(&s.queue),
		config.Load(&s.dedup),
	)
	return s, err
}

func main() {
	var app appConfig
	config.MustLoad(&app)

	log := logger.New(
		logger.WithEnvironment(app.Env, app.ServiceName),
		logger.WithContextExtractors(requestid.LogExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	cfg, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mongoClient, err := mongo.Connect(ctx, cfg.mongo)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error("failed to disconnect mongo", logger.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.mongo.Database)

	redisClient, err := redis.Connect(ctx, cfg.redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	accounts := account.NewMongoStore(db)
	users := account.NewMongoUsers(db)
	plans := account.NewMongoPlans(db)
	taskStorage := queue.NewMongoStorage(db)
	for name, ensure := range map[string]func(context.Context) error{
		"accounts": accounts.EnsureIndexes,
		"users":    users.EnsureIndexes,
		"tasks":    taskStorage.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	sender, err := email.New(cfg.email)
	if err != nil {
		return err
	}
	notifier := notify.New(sender, cfg.notify, log)

	members := account.NewService(accounts, users, log)
	checker := entitlement.NewChecker(plans, accounts, log)
	invites := invite.NewService(cfg.invite, invite.NewMongoStore(db), accounts, members, notifier,
		invite.WithLogger(log))
	bill := billing.NewService(cfg.stripe, accounts, users, plans, tax.NewMongoSource(db), checker,
		billing.NewStripeProcessor(cfg.stripe), billing.WithLogger(log))

	guard := dedup.NewGuard(redisClient, cfg.dedup)

	enqueuer, err := queue.NewEnqueuer(taskStorage,
		queue.WithDefaultQueue(cfg.ipn.Queue),
		queue.WithDefaultMaxRetries(cfg.queue.MaxRetries),
	)
	if err != nil {
		return err
	}
	worker, err := queue.NewWorker(taskStorage,
		queue.WithQueues(cfg.ipn.Queue),
		queue.WithPullInterval(cfg.queue.PollInterval),
		queue.WithLockTimeout(cfg.queue.LockTimeout),
		queue.WithRetryBackoff(cfg.queue.RetryBackoff),
		queue.WithMaxConcurrentTasks(cfg.queue.MaxConcurrentTasks),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}
	ipn := reconcile.NewIPNProcessor(reconcile.NewIPNVerifier(cfg.ipn), accounts, plans, checker, guard, notifier, log)
	if err := worker.RegisterHandler(ipn.Handler()); err != nil {
		return err
	}

	tokens, err := jwt.New(cfg.jwt)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Deps{
		Tokens:        tokens,
		Users:         users,
		Accounts:      members,
		Invites:       invites,
		Billing:       bill,
		StripeWebhook: reconcile.NewStripeWebhook(cfg.stripe.WebhookSecret, accounts, guard, log),
		IPN:           reconcile.NewIPNIngress(enqueuer, cfg.ipn, log),
		HealthChecks: map[string]func(context.Context) error{
			"mongo": mongo.Healthcheck(mongoClient),
			"redis": redis.Healthcheck(redisClient),
		},
		Logger: log,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	g.Go(func() error {
		return httpserver.New(cfg.http, log).Run(ctx, router)
	})
	return g.Wait()
}
