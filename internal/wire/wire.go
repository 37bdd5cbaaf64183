package wire

import (
	"TradeTalent/internal/api"
	"TradeTalent/internal/api/config"
	"TradeTalent/internal/api/handler"
	"TradeTalent/internal/job"
	"TradeTalent/internal/pkg/cron"
	"TradeTalent/internal/pkg/kafka"
	"TradeTalent/internal/pkg/mail"
	"TradeTalent/internal/pkg/mongo"
	"TradeTalent/internal/pkg/redis"
	"TradeTalent/internal/repository"
	"TradeTalent/internal/service"

	"github.com/gin-gonic/gin"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
	Funnel       service.FunnelService
}

func BuildApplication(db *gorm.DB, mongoConn *mongoDB.Database, cfg *config.Config) (*ApplicationContainer, error) {
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepo(db)
	scoreRepo := repository.NewEngagementScoreRepo(db)
	historyRepo := repository.NewEngagementHistoryRepo(db)
	funnelRepo := repository.NewFunnelRepo(db)
	suggestionRepo := repository.NewSuggestionRepo(db)
	digestRepo := repository.NewDigestRepo(db)
	listingRepo := repository.NewListingRepo(db)
	sysBoxRepo := mongo.NewSysBoxRepo(mongoConn)

	notifier := service.NewEngagementNotifier(sysBoxRepo, mail.NewClient(cfg.Mail), userRepo)
	funnelService := service.NewFunnelService(service.FunnelDeps{
		Tx:          tx,
		Scores:      scoreRepo,
		Funnel:      funnelRepo,
		History:     historyRepo,
		Suggestions: suggestionRepo,
		Digests:     digestRepo,
		Listings:    listingRepo,
		Users:       userRepo,
		Notifier:    notifier,
	})
	engagementService := service.NewEngagementService(tx, scoreRepo, historyRepo, funnelRepo, userRepo, funnelService)
	reEngagementService := service.NewReEngagementService(funnelRepo, suggestionRepo, digestRepo, listingRepo)
	sysBoxService := service.NewSysBoxService(sysBoxRepo)

	handlers := &api.HandlersGroup{
		EngagementHandler: handler.NewEngagementHandler(engagementService, reEngagementService, funnelService),
		SysBoxHandler:     handler.NewSysBoxHandler(sysBoxService),
	}
	router := api.SetupRouter(handlers)

	locker := redis.NewLocker()
	decayJob := job.NewDecayJob(engagementService, scoreRepo, locker, cfg.Engagement.DecayWorkers)
	sweepJob := job.NewDeactivationSweepJob(funnelService, locker)
	cronMgr := cron.NewCronManager(cfg.Engagement, decayJob, sweepJob)

	var kafkaMgr *kafka.ConsumerManager
	if cfg.Kafka.Enable {
		var err error
		kafkaMgr, err = kafka.NewConsumerManager(cfg, engagementService)
		if err != nil {
			return nil, err
		}
	}

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
		Funnel:       funnelService,
	}, nil
}
