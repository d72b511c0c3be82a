package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"
	"google.golang.org/grpc"

	"clubhub/internal/config"
	"clubhub/internal/db"
	clubgrpc "clubhub/internal/grpc"
	internalhttp "clubhub/internal/http"
	"clubhub/internal/jobs"
	"clubhub/internal/ratelimit"
	"clubhub/internal/reports"
	"clubhub/internal/revocation"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error.Printf(".env not loaded: %v", err)
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		logger.Error.Fatalf("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	reporter := reports.New(pool)
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Error.Printf("reports close error: %v", err)
		}
	}()

	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		logger.Error.Fatalf("%v", err)
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error.Printf("redis close error: %v", err)
			}
		}()
	}

	api := internalhttp.NewServer(cfg, store, reporter, revocation.New(redisClient), newLimiter(cfg, redisClient))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	health := clubgrpc.NewHealth()
	health.SetServing(true)
	grpcServer, err := clubgrpc.NewServer(cfg.ServiceAuthToken, health)
	if err != nil {
		logger.Error.Fatalf("grpc server init failed: %v", err)
	}

	jobs.Start(ctx, cfg,
		jobs.ExpireAttempts(store, cfg.AttemptGracePeriod),
		jobs.CompleteActivities(store),
		jobs.DatabaseProbe(store, health),
	)

	go serveHTTP(httpServer, cfg.Environment)
	go serveGRPC(grpcServer, cfg.GRPCAddr)

	<-ctx.Done()
	logger.Info.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("http shutdown error: %v", err)
	}
	grpcServer.GracefulStop()
}

// connectRedis returns a nil client when REDIS_ADDR is unset.
func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Info.Println("REDIS_ADDR not set: in-process rate limiting, logout does not revoke tokens")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func newLimiter(cfg config.Config, client *redis.Client) ratelimit.Limiter {
	if client == nil {
		return ratelimit.NewMemoryLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	}
	return ratelimit.NewRedisLimiter(client, cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
}

func serveHTTP(server *http.Server, environment string) {
	logger.Info.Printf("clubhub http listening on %s (%s)", server.Addr, environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error.Fatalf("http server error: %v", err)
	}
}

func serveGRPC(server *grpc.Server, addr string) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error.Fatalf("grpc listen error: %v", err)
	}
	logger.Info.Printf("clubhub grpc health listening on %s", addr)
	if err := server.Serve(listener); err != nil {
		logger.Error.Fatalf("grpc server error: %v", err)
	}
}
