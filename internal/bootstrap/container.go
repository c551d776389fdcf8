package bootstrap

import (
	"context"
	"fmt"
	"log"

	"rule-chatbot-be/internal/config"
	"rule-chatbot-be/internal/controller"
	"rule-chatbot-be/internal/handler"
	"rule-chatbot-be/internal/pkg/logger"
	"rule-chatbot-be/internal/repository/memory"
	"rule-chatbot-be/internal/repository/redisstore"
	"rule-chatbot-be/internal/service"
	"rule-chatbot-be/internal/websocket"
	"rule-chatbot-be/pkg/conversation"
	"rule-chatbot-be/pkg/events"
	"rule-chatbot-be/pkg/knowledge"
	"rule-chatbot-be/pkg/placeholder"
	"rule-chatbot-be/pkg/usage"
	"rule-chatbot-be/pkg/weather"
	"rule-chatbot-be/pkg/wikipedia"

	pktNats "rule-chatbot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// sessionBackend is what the interpreter and the health check need.
type sessionBackend interface {
	conversation.SessionStore
	service.SessionCounter
}

type Container struct {
	Logger logger.ILogger

	// Controllers
	ChatbotController controller.IChatbotController
	ChatHandler       *handler.ChatHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService  service.IConsumerService
	WebSocketHub     *websocket.Hub
	KnowledgeWatcher *knowledge.Watcher // nil when KNOWLEDGE_WATCH=false

	Knowledge *knowledge.Store

	closers []func()
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS, optional
	var exporter service.EventExporter
	if cfg.Events.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			exporter = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// Redis, only for the redis session backend
	var rdb *redis.Client
	if cfg.Session.Backend == "redis" {
		opt, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.Session.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var sessions sessionBackend
	switch cfg.Session.Backend {
	case "redis":
		sessions = redisstore.NewSessionRepository(rdb, cfg.Session.KeyPrefix)
	case "memory", "":
		sessions = memory.NewSessionRepository()
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}
	log.Printf("[INFO] Using Session Backend: %s", cfg.Session.Backend)

	// 4. Knowledge and providers
	weatherClient := weather.NewClient(weather.Options{
		BaseURL:   cfg.Weather.BaseURL,
		Latitude:  cfg.Weather.Latitude,
		Longitude: cfg.Weather.Longitude,
		City:      cfg.Weather.City,
		Timeout:   cfg.Weather.Timeout,
		CacheTTL:  cfg.Weather.CacheTTL,
	})
	table := placeholder.NewTable(nil, cfg.App.Location(), weatherClient)

	kbStore, err := knowledge.NewStore(knowledge.NewLoader(cfg.Knowledge.Dir, cfg.Knowledge.RulesFile, table))
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	rules, facts := kbStore.Current().Stats()
	sysLogger.Info("Bootstrap", "Knowledge base loaded", map[string]interface{}{"dir": cfg.Knowledge.Dir, "rules": rules, "facts": facts})
	c.Knowledge = kbStore

	searcher := wikipedia.NewClient(cfg.Search.WikipediaURL, cfg.Search.UserAgent, cfg.Search.Timeout, sysLogger)

	interpreter := conversation.NewInterpreter(
		sessions,
		placeholder.NewResolver(table),
		searcher,
		conversation.WithConfirmationFlow(cfg.Features.ConfirmationFlow),
	)

	// 5. Services
	tracker := usage.NewTracker()
	publisherService := service.NewPublisherService(cfg.Events.Topic, pubSub, exporter, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Events.Topic, tracker, sysLogger)

	wsLogger := logger.NewIsolatedLogger(cfg.App.WebSocketLogPath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	chatbotService := service.NewChatbotService(interpreter, kbStore, sessions, c.WebSocketHub, publisherService, sysLogger)
	statsService := service.NewStatsService(tracker)

	// 6. Transport
	c.ChatHandler = handler.NewChatHandler(chatbotService, c.WebSocketHub, wsLogger)
	c.ChatbotController = controller.NewChatbotController(chatbotService, statsService)

	kbStore.OnReload(func(base *knowledge.Base) {
		rules, facts := base.Stats()
		if err := publisherService.Publish(context.Background(), events.NewKnowledgeReloaded(rules, facts)); err != nil {
			sysLogger.Warn("Bootstrap", "Failed to publish reload event", map[string]interface{}{"error": err.Error()})
		}
		c.ChatHandler.NotifyReload(base)
	})

	if cfg.Knowledge.Watch {
		w, err := knowledge.NewWatcher(kbStore, cfg.Knowledge.Debounce, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Knowledge hot reload disabled", map[string]interface{}{"error": err.Error()})
		} else {
			c.KnowledgeWatcher = w
		}
	}

	return c, nil
}

// Close releases the connections opened by NewContainer, last opened first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
