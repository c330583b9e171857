package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskzen-api/api"
	"taskzen-api/domain"
	"taskzen-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	mongoURI := os.Getenv("MONGODB_URI")
	mongoDatabase := os.Getenv("MONGODB_DATABASE")
	if mongoURI == "" || mongoDatabase == "" {
		log.Fatal("missing mongodb config")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("missing JWT_SECRET")
	}
	jwtTTL := time.Duration(0)
	if v := os.Getenv("JWT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid JWT_TTL: %v", err)
		}
		jwtTTL = d
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := storage.New(ctx, mongoURI, mongoDatabase)
	if err != nil {
		cancel()
		log.Fatalf("storage: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		cancel()
		log.Fatalf("indexes: %v", err)
	}
	cancel()

	var tasksStore domain.TaskStorage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		cacheTTL := 5 * time.Minute
		if v := os.Getenv("DASHBOARD_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid DASHBOARD_CACHE_TTL: %v", err)
			}
			cacheTTL = d
		}
		tasksStore = storage.NewTaskCache(store, redis.NewClient(redisOptions(redisConn)), cacheTTL)
	}

	logger := log.New()

	auth := api.NewAuth([]byte(jwtSecret), jwtTTL)
	google, err := api.NewGoogleAuth(os.Getenv("GOOGLE_CLIENT_ID"), logger)
	if err != nil {
		log.Fatalf("google jwks: %v", err)
	}

	svc := api.Services{
		Accounts: domain.NewUserService(store),
		Friends:  domain.NewFriendService(store, store),
		Tasks:    domain.NewTaskService(tasksStore, store, store),
	}

	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.GzipRequestMiddleware())

	api.Register(e, svc, auth, google, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		if err := e.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Errorf("storage close: %v", err)
	}
}

// redisOptions accepts either a redis URL or the comma separated
// host,key=value form some managed providers hand out.
func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
