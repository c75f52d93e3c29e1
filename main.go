package main

import (
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/extract"
	"kanban-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	boardsTableName := os.Getenv("BOARDS_TABLE")
	settingsTableName := os.Getenv("SETTINGS_TABLE")
	if connStr == "" || boardsTableName == "" || settingsTableName == "" {
		log.Fatal("missing storage config")
	}
	boardID := os.Getenv("BOARD_ID")
	if boardID == "" {
		boardID = "default"
	}

	store, err := storage.New(connStr, boardsTableName, settingsTableName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// Redis is optional; without it every read hits table storage.
	var apiStore api.Storage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc := redis.NewClient(redisOpts)
		ttl := 5 * time.Minute
		if v := os.Getenv("BOARD_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid BOARD_CACHE_TTL: %v", err)
			}
			ttl = d
		}
		apiStore = storage.NewCache(store, rc, ttl)
	}

	extractTimeout := time.Minute
	if v := os.Getenv("EXTRACT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid EXTRACT_TIMEOUT: %v", err)
		}
		extractTimeout = d
	}

	logger := log.New()
	extractor := extract.NewService(extractTimeout, logger)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echoprometheus.NewMiddleware("kanban_api"))
	e.GET("/metrics", echoprometheus.NewHandler())
	e.Use(api.GzipRequestMiddleware())

	api.Register(e, apiStore, extractor, boardID, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
