package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"

	config "github.com/avvvet/persona-echo/configs"
	"github.com/avvvet/persona-echo/internal/db"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/broker"
	gwconfig "github.com/avvvet/persona-echo/internal/gatewaysvc/config"
	pg "github.com/avvvet/persona-echo/internal/gatewaysvc/db"
	handlers "github.com/avvvet/persona-echo/internal/gatewaysvc/handlers"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/service"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/store"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/ws"
	nats "github.com/avvvet/persona-echo/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "gateway"

var instanceId string

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
}

func main() {
	cfg, err := gwconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	defaults, err := gwconfig.LoadGameDefaults(cfg.GameSettingsFile)
	if err != nil {
		log.Fatalf("invalid game settings: %v", err)
	}

	ctx := context.Background()

	var redisClient *redis.Client
	getRedis := func() *redis.Client {
		if redisClient != nil {
			return redisClient
		}
		c, err := db.ConnectToRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Printf("redis connection established successfully %s", cfg.RedisAddr)
		redisClient = c
		return c
	}

	// document store
	var st store.Store
	switch cfg.StoreBackend {
	case gwconfig.StoreRedis:
		st, err = store.NewRedisStore(&store.Config{RedisClient: getRedis()})
		if err != nil {
			log.Fatalf("Failed to init redis store: %v", err)
		}
	default:
		mdb, err := db.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		ms, err := store.NewMongoStore(mdb)
		if err != nil {
			log.Fatalf("Failed to init mongo store: %v", err)
		}
		if err := ms.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to create mongo indexes: %v", err)
		}
		log.Printf("mongo connection established successfully, database %s", mdb.Name())
		st = ms
	}

	// change bus
	var bus broker.Bus
	switch cfg.BusBackend {
	case gwconfig.BusNATS:
		n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)
		bus = broker.NewNATSBus(n.Conn)
	case gwconfig.BusRedis:
		bus = broker.NewRedisBus(getRedis())
	default:
		bus = broker.NewLocalBus()
	}

	gwCfg := &service.Config{
		Store:    st,
		Bus:      bus,
		Defaults: &defaults,
	}

	// optional stats archive
	if cfg.PostgresURL != "" {
		pool, err := pg.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()

		archive := store.NewStatsArchive(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare stats archive: %v", err)
		}
		log.Printf("pg connection established successfully, stats archive enabled")
		gwCfg.Archive = archive
	}

	gw, err := service.NewGateway(gwCfg)
	if err != nil {
		log.Fatalf("Failed to init gateway: %v", err)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(config.SplitList(cfg.AllowedOrigins))

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	sockets := ws.NewWs()
	h := handlers.NewHandler(gw, sockets, cfg.Port)
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	// no WriteTimeout: it would cut long-lived websocket streams
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service %s running at port %s (store=%s bus=%s)", SERVICE_NAME, instanceId, server.Addr, cfg.StoreBackend, cfg.BusBackend)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sockets.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown failed: %+v", SERVICE_NAME, err)
	}

	if err := bus.Close(); err != nil {
		log.Warnf("close bus: %v", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		log.Warnf("close store: %v", err)
	}
	if redisClient != nil && cfg.StoreBackend != gwconfig.StoreRedis {
		redisClient.Close()
	}

	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
