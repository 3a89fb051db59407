package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tandera.com/daypillar/internal/allocation"
	"tandera.com/daypillar/internal/changefeed"
	"tandera.com/daypillar/internal/classifier"
	"tandera.com/daypillar/internal/config"
	"tandera.com/daypillar/internal/reconciler"
	"tandera.com/daypillar/internal/scheduler"

	actionHttp "tandera.com/daypillar/internal/modules/action/delivery/http"
	actionRepo "tandera.com/daypillar/internal/modules/action/repository"
	actionService "tandera.com/daypillar/internal/modules/action/service"

	dayHttp "tandera.com/daypillar/internal/modules/day/delivery/http"
	dayService "tandera.com/daypillar/internal/modules/day/service"

	habitHttp "tandera.com/daypillar/internal/modules/habit/delivery/http"
	habitRepo "tandera.com/daypillar/internal/modules/habit/repository"
	habitService "tandera.com/daypillar/internal/modules/habit/service"

	ledgerHttp "tandera.com/daypillar/internal/modules/ledger/delivery/http"
	ledgerRepo "tandera.com/daypillar/internal/modules/ledger/repository"
	ledgerService "tandera.com/daypillar/internal/modules/ledger/service"

	pillarHttp "tandera.com/daypillar/internal/modules/pillar/delivery/http"
	pillarRepo "tandera.com/daypillar/internal/modules/pillar/repository"
	pillarService "tandera.com/daypillar/internal/modules/pillar/service"

	reflectionHttp "tandera.com/daypillar/internal/modules/reflection/delivery/http"
	reflectionRepo "tandera.com/daypillar/internal/modules/reflection/repository"
	reflectionService "tandera.com/daypillar/internal/modules/reflection/service"

	searchService "tandera.com/daypillar/internal/modules/search/service"

	userHttp "tandera.com/daypillar/internal/modules/user/delivery/http"
	userRepo "tandera.com/daypillar/internal/modules/user/repository"
	userService "tandera.com/daypillar/internal/modules/user/service"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	alloc := allocation.FromEnv()

	// Change feed transport. With redis the feed is a stream consumed through
	// a consumer group; without it an in-memory queue keeps development
	// functional on a single process.
	var feed changefeed.Feed
	var memFeed *changefeed.MemoryFeed
	if redisClient != nil {
		feed = changefeed.NewStreamFeed(redisClient, cfg.FeedStream)
	} else {
		log.Println("⚠️ Redis not configured, using in-memory change feed")
		memFeed = changefeed.NewMemoryFeed(256, cfg.FeedMaxDeliveries)
		feed = memFeed
	}

	// Search index.
	var searchSvc searchService.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliClient := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = searchService.NewSearchService(meiliClient)
	} else {
		log.Println("⚠️ Meilisearch not configured, action search disabled")
	}

	usersRepo := userRepo.NewUserRepository(db)
	userSvc := userService.NewUserService(usersRepo)
	userHandler := userHttp.NewUserHandler(userSvc)

	pillarsRepo := pillarRepo.NewPillarRepository(db)
	pillarSvc := pillarService.NewPillarService(pillarsRepo)
	pillarHandler := pillarHttp.NewPillarHandler(pillarSvc)

	actionsRepo := actionRepo.NewActionRepository(db)
	actionSvc := actionService.NewActionService(actionsRepo, feed, searchSvc)
	actionHandler := actionHttp.NewActionHandler(actionSvc)

	habitsRepo := habitRepo.NewHabitRepository(db)
	habitSvc := habitService.NewHabitService(habitsRepo, feed)
	habitHandler := habitHttp.NewHabitHandler(habitSvc)

	reflectionsRepo := reflectionRepo.NewReflectionRepository(db)
	reflectionSvc := reflectionService.NewReflectionService(reflectionsRepo)
	reflectionHandler := reflectionHttp.NewReflectionHandler(reflectionSvc)

	eventsRepo := ledgerRepo.NewPointEventRepository(db)
	ledgerSvc := ledgerService.NewLedgerService(eventsRepo, redisClient)
	ledgerHandler := ledgerHttp.NewLedgerHandler(ledgerSvc, redisClient)

	daySvc := dayService.NewDayService(actionsRepo, habitsRepo, reflectionSvc, ledgerSvc)
	dayHandler := dayHttp.NewDayHandler(daySvc)

	// Classification contract: Gemini when a key is configured, keyword rules
	// otherwise.
	var contract classifier.Contract
	if cfg.GeminiAPIKey != "" {
		gemini, err := classifier.NewGeminiClassifier(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Printf("⚠️ Gemini classifier unavailable, falling back to rules: %v", err)
			contract = classifier.NewRuleClassifier()
		} else {
			log.Printf("🤖 Gemini classifier enabled (model %s)", cfg.GeminiModel)
			contract = gemini
		}
	} else {
		contract = classifier.NewRuleClassifier()
	}
	classifierSvc := classifier.NewService(contract, pillarSvc, actionSvc, redisClient, cfg.ClassifierTimeout, cfg.ClassifierCacheTTL)

	// Reconciliation pipeline.
	actionReconciler := reconciler.NewActionReconciler(eventsRepo, actionsRepo, alloc, ledgerSvc)
	habitReconciler := reconciler.NewHabitReconciler(eventsRepo, habitsRepo, habitsRepo, alloc, ledgerSvc)
	dispatcher := reconciler.NewDispatcher(actionReconciler, habitReconciler, classifierSvc)

	if redisClient != nil {
		consumer := changefeed.NewConsumer(redisClient, changefeed.ConsumerConfig{
			Stream:        cfg.FeedStream,
			Group:         cfg.FeedGroup,
			Block:         cfg.FeedBlock,
			ClaimMinIdle:  cfg.FeedClaimMinIdle,
			ClaimInterval: cfg.FeedClaimInterval,
			MaxDeliveries: cfg.FeedMaxDeliveries,
		}, dispatcher.Dispatch)
		go consumer.Run(context.Background())
	} else {
		go memFeed.Run(context.Background(), dispatcher.Dispatch)
	}

	// Background jobs.
	jobScheduler := scheduler.NewScheduler()
	jobScheduler.Register(scheduler.NewProjectionJob(habitSvc, cfg.ProjectionCron))
	jobScheduler.Start()

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	api := router.Group("/api")
	{
		api.GET("/users/me", userHandler.GetMe)
		api.PUT("/users/me", userHandler.UpdateMe)

		api.POST("/pillars", pillarHandler.CreatePillar)
		api.GET("/pillars", pillarHandler.GetPillars)
		api.PUT("/pillars/:id", pillarHandler.UpdatePillar)
		api.DELETE("/pillars/:id", pillarHandler.DeletePillar)

		api.POST("/actions", actionHandler.CreateAction)
		api.GET("/actions", actionHandler.ListActions)
		api.GET("/actions/search", actionHandler.SearchActions)
		api.GET("/actions/:id", actionHandler.GetAction)
		api.PUT("/actions/:id", actionHandler.UpdateAction)
		api.DELETE("/actions/:id", actionHandler.DeleteAction)
		api.POST("/actions/:id/complete", actionHandler.CompleteAction)
		api.POST("/actions/:id/uncomplete", actionHandler.UncompleteAction)

		api.POST("/habits", habitHandler.CreateHabit)
		api.GET("/habits", habitHandler.GetHabits)
		api.PUT("/habits/:id", habitHandler.UpdateHabit)
		api.DELETE("/habits/:id", habitHandler.DeleteHabit)
		api.POST("/habits/:id/logs", habitHandler.SetLogStatus)

		api.POST("/reflections", reflectionHandler.CreateReflection)
		api.GET("/reflections", reflectionHandler.GetReflections)
		api.DELETE("/reflections/:id", reflectionHandler.DeleteReflection)

		api.GET("/days/:date", dayHandler.GetDaySummary)

		api.GET("/points/events", ledgerHandler.ListEvents)
		api.GET("/points/rollup", ledgerHandler.Rollup)
		api.GET("/points/ws", ledgerHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   jobScheduler,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
