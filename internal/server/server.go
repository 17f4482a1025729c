package server

import (
	"log"

	"github.com/goccy/go-json"

	"github.com/wikimedia/klaxon/apis/admin"
	"github.com/wikimedia/klaxon/apis/common"
	"github.com/wikimedia/klaxon/apis/incidents"
	"github.com/wikimedia/klaxon/apis/pages"
	"github.com/wikimedia/klaxon/internal/config"
	"github.com/wikimedia/klaxon/internal/handlers"
	"github.com/wikimedia/klaxon/internal/version"
	"github.com/wikimedia/klaxon/pkg/auth"
	"github.com/wikimedia/klaxon/pkg/feed"
	"github.com/wikimedia/klaxon/pkg/logger"
	"github.com/wikimedia/klaxon/pkg/oncall"
	"github.com/wikimedia/klaxon/pkg/paging"
	"github.com/wikimedia/klaxon/pkg/storage"
	"github.com/wikimedia/klaxon/pkg/victorops"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server represents the HTTP server instance with all its components.
// It encapsulates the Fiber application, configuration, the incident feed
// cache and the paging dispatcher.
type Server struct {
	// app is the Fiber HTTP application instance
	app *fiber.App

	// cfg contains the server configuration
	cfg *config.Config
}

// New creates and initializes a new Server instance with the provided
// configuration. It wires the upstream VictorOps client into the feed cache,
// on-call resolver and paging dispatcher, sets up the Fiber application with
// middleware and routes, and leaves the server ready to start.
func New(cfg *config.Config) *Server {
	// Initialize logger first
	if err := logger.InitFromConfig(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Upstream alerting API client, shared by the feed, the on-call
	// resolver and the paging channel
	upstream := victorops.NewClient(victorops.Config{
		APIID:               cfg.VictorOps.APIID,
		APIKey:              cfg.VictorOps.APIKey,
		BaseURL:             cfg.VictorOps.BaseURL,
		CreateIncidentURL:   cfg.VictorOps.CreateIncidentURL,
		AdminEmail:          cfg.VictorOps.AdminEmail,
		TeamIDs:             cfg.VictorOps.TeamIDs,
		EscalationPolicyIDs: cfg.VictorOps.EscalationPolicyIDs,
		Timeout:             cfg.VictorOps.Timeout,
	})
	if len(cfg.VictorOps.TeamIDs) > 0 {
		logger.Infof("Incident feed filtered to teams: %v", cfg.VictorOps.TeamIDs)
	}

	feedCache := feed.New(upstream, feed.Options{
		TTL:            cfg.Feed.CacheTTL,
		RecencyWindow:  cfg.Feed.RecencyWindow,
		BackoffInitial: cfg.Feed.BackoffInitial,
		BackoffMax:     cfg.Feed.BackoffMax,
	})

	resolver := oncall.NewResolver(upstream)

	// Authorization gate: static trust list, plus the group directory
	// when one is configured
	trustList := auth.NewStaticTrustList(cfg.Auth.TrustedUsers)
	sources := []auth.TrustSource{trustList}
	if cfg.Auth.DirectoryURL != "" {
		sources = append(sources, auth.NewDirectorySource(cfg.Auth.DirectoryURL, auth.DefaultDirectoryTimeout))
		logger.Infof("Trust directory enabled: %s", cfg.Auth.DirectoryURL)
	}
	gate := auth.NewGate(sources...)
	logger.Infof("Static trust list: %d user(s)", trustList.Len())

	// Idempotency store: Redis when enabled, in-process memory otherwise
	var store paging.Store
	if cfg.Storage.Redis.Enabled {
		storageClient, err := storage.NewManager(storage.StorageConfig{
			Redis: storage.RedisConfig{
				Enabled:   cfg.Storage.Redis.Enabled,
				Address:   cfg.Storage.Redis.Address,
				Password:  cfg.Storage.Redis.Password,
				Database:  cfg.Storage.Redis.Database,
				KeyPrefix: cfg.Storage.Redis.KeyPrefix,
			},
		})
		if err != nil {
			logger.Fatalf("Failed to initialize Redis storage client: %v", err)
		}
		logger.Infof("Redis idempotency store initialized - Address: %s", cfg.Storage.Redis.Address)
		store = paging.NewRedisStore(storageClient, cfg.Paging.IdempotencyTTL)
	} else {
		store = paging.NewMemoryStore(cfg.Paging.IdempotencyTTL)
		logger.Info("Using in-memory idempotency store")
	}

	// Delivery channels: the upstream pager always, plus the chat
	// webhook when one is configured
	channels := []paging.Channel{paging.NewVictorOpsChannel(upstream)}
	if cfg.Paging.WebhookURL != "" {
		channels = append(channels,
			paging.NewWebhookChannel(cfg.Paging.WebhookName, cfg.Paging.WebhookURL, cfg.Paging.ChannelTimeout))
		logger.Infof("Chat webhook channel enabled: %s", cfg.Paging.WebhookName)
	}

	var announcers []paging.Announcer
	if cfg.IRC.Host != "" {
		announcers = append(announcers,
			paging.NewSALAnnouncer(cfg.IRC.Host, cfg.IRC.Port, cfg.IRC.Nick, 0))
		logger.Infof("SAL announcements enabled: %s:%d", cfg.IRC.Host, cfg.IRC.Port)
	}

	dispatcher := paging.NewDispatcher(paging.DispatcherConfig{
		Gate:           gate,
		Feed:           feedCache,
		Resolver:       resolver,
		Channels:       channels,
		Store:          store,
		Announcers:     announcers,
		ChannelTimeout: cfg.Paging.ChannelTimeout,
		RetryDelay:     cfg.Paging.RetryDelay,
	})

	// Create Fiber app with faster JSON encoder
	app := fiber.New(fiber.Config{
		AppName:     "Klaxon " + version.GetVersion(),
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(common.ErrorResponse{
				Error:   true,
				Message: err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Identity extraction for the /protected group. Headers are required
	// in production, where the CAS proxy always sets them.
	identity := auth.Middleware(auth.HeaderConfig{
		UserHeader:  cfg.Auth.CASUserHeader,
		EmailHeader: cfg.Auth.CASEmailHeader,
		Require:     cfg.Environment == config.ValidEnvironmentProduction,
	})

	// Setup routes
	handlers.SetupRoutes(app, identity,
		incidents.NewHandler(feedCache),
		pages.NewHandler(dispatcher),
		admin.NewHandler(upstream, gate))

	return &Server{
		app: app,
		cfg: cfg,
	}
}

// Start starts the HTTP server and begins listening for incoming requests.
// Returns an error if the server fails to start.
func (s *Server) Start() error {
	return s.app.Listen(":" + s.cfg.Port)
}
