package wire

import (
	"Haven/internal/api"
	"Haven/internal/api/config"
	"Haven/internal/api/handler"
	"Haven/internal/job"
	"Haven/internal/pkg/cron"
	"Haven/internal/pkg/kafka"
	pkgmongo "Haven/internal/pkg/mongo"
	"Haven/internal/repository"
	"Haven/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router   *gin.Engine
	DB       *gorm.DB
	CronMgr  *cron.Manager
	Producer *kafka.Producer
}

func BuildApplication(db *gorm.DB, mongoConn *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	threadRepo := repository.NewThreadRepo(db)
	messageRepo := pkgmongo.NewMessageRepo(mongoConn)

	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}

	notifier := service.NewNotifier(producer)
	threadService := service.NewThreadService(threadRepo, messageRepo, notifier)

	handlers := &api.HandlersGroup{
		ThreadHandler: handler.NewThreadHandler(threadService),
		WSHandler:     handler.NewWsHandler(threadService),
	}

	router := api.SetupRouter(handlers)

	digestJob := job.NewUnclaimedDigestJob(threadRepo, notifier)
	cronMgr := cron.NewCronManager(digestJob, cfg.Digest.Spec)

	return &ApplicationContainer{
		Router:   router,
		DB:       db,
		CronMgr:  cronMgr,
		Producer: producer,
	}, nil
}
