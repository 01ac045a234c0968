package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/clientdata"
	"github.com/simplainvest/wealthboard/internal/clients/wealthfeed"
	"github.com/simplainvest/wealthboard/internal/config"
	"github.com/simplainvest/wealthboard/internal/events"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
	"github.com/simplainvest/wealthboard/internal/modules/series"
	"github.com/simplainvest/wealthboard/internal/scheduler"
)

// InitializeServices creates repositories, clients and services on top of
// the initialized databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.CacheDB == nil {
		return fmt.Errorf("container must have an initialized cache database")
	}

	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	retry := wealthfeed.DefaultRetryConfig()
	retry.MaxRetries = cfg.FeedMaxRetries
	container.FeedClient = wealthfeed.NewClient(
		cfg.FeedBaseURL,
		container.ClientDataRepo,
		log,
		wealthfeed.WithTimeout(cfg.FeedTimeout),
		wealthfeed.WithRetryConfig(retry),
	)

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	normalizer, err := series.NewNormalizer(cfg.ScaleDivisor, log)
	if err != nil {
		return err
	}
	container.Normalizer = normalizer

	activity, err := dashboard.LoadActivity(cfg.ActivityFile)
	if err != nil {
		return err
	}
	container.Activity = activity

	container.RangeStore = dashboard.NewRangeStore(container.ClientDataRepo, log)
	container.DashboardService = dashboard.NewService(
		container.FeedClient,
		container.Normalizer,
		container.RangeStore,
		container.Activity,
		container.EventManager,
		log,
	)

	container.Scheduler = scheduler.New(log)
	return nil
}
