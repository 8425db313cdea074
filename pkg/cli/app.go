package cli

import (
	"os"

	"github.com/beam-cloud/onleads/pkg/clients"
	"github.com/beam-cloud/onleads/pkg/common"
	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/integrations/memory"
	"github.com/beam-cloud/onleads/pkg/integrations/notion"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/beam-cloud/onleads/pkg/workflows"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redisClientName = "onleads"

// App holds the collaborators every command runs against
type App struct {
	Config    types.AppConfig
	Registry  *integrations.Registry
	Extractor workflows.ContactExtractor
	Drafter   *workflows.Drafter
	redis     *common.RedisClient
}

// LoadApp reads configuration from path (or $CONFIG_PATH when empty) and builds
// the app
func LoadApp(path string) (*App, error) {
	var opts []common.ConfigOption
	if path != "" {
		opts = append(opts, common.WithConfigPath(path))
	}

	configManager, err := common.NewConfigManager[types.AppConfig](opts...)
	if err != nil {
		return nil, err
	}
	config := configManager.GetConfig()
	setupLogging(config)

	return NewApp(config)
}

// NewApp wires the record backends, the drafting lock and the model clients.
// Backends are not contacted here; they connect on first use.
func NewApp(config types.AppConfig) (*App, error) {
	app := &App{
		Config:   config,
		Registry: integrations.NewRegistry(),
	}

	var locker common.Locker = common.NewLocalLock()
	if config.IsLocalMode() {
		for _, kind := range types.RecordKinds() {
			app.Registry.Register(memory.New(kind))
		}
	} else {
		for _, kind := range types.RecordKinds() {
			app.Registry.Register(notion.New(kind, config.Notion))
		}

		if config.Database.Redis.IsConfigured() {
			rdb, err := common.NewRedisClient(config.Database.Redis, common.WithClientName(redisClientName))
			if err != nil {
				return nil, err
			}
			app.redis = rdb
			locker = common.NewRedisLock(rdb)
		}
	}

	leads, err := app.Registry.Get(types.RecordKindLead)
	if err != nil {
		return nil, err
	}
	emails, err := app.Registry.Get(types.RecordKindEmail)
	if err != nil {
		return nil, err
	}

	scraper := clients.NewFirecrawlClient(config.Scraper)
	app.Extractor = clients.NewContactCrawler(
		scraper,
		clients.NewChatClient(config.Models.Extraction, "OPENAI_API_KEY"),
		config.Scraper.MaxChunkLength,
	)

	generator := clients.NewEmailDrafter(clients.NewChatClient(config.Models.Drafting, "GOOGLE_API_KEY"))
	app.Drafter = workflows.NewDrafter(leads, emails, generator,
		workflows.WithLocker(locker),
		workflows.WithLockOptions(common.RedisLockOptions{
			TtlS:    config.Drafting.LockTtlS,
			Retries: config.Drafting.LockRetries,
		}),
	)

	log.Debug().Str("mode", config.Mode).Bool("redis", app.redis != nil).Msg("app ready")
	return app, nil
}

// Integration returns the backend for a kind
func (a *App) Integration(kind types.RecordKind) (integrations.Integration, error) {
	return a.Registry.Get(kind)
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func setupLogging(config types.AppConfig) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.DebugMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if config.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
