package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/messaging"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/logger"
	"github.com/rl1809/storefront/internal/port"
)

func main() {
	path := os.Getenv("STOREFRONT_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	closeLog, err := logger.Init(cfg.Development)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer closeLog()

	if err := run(cfg, logger.Log()); err != nil {
		logger.Log().Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize event publisher
	var publisher port.EventPublisher
	if cfg.Rabbit.URL != "" {
		rabbit, err := messaging.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			log.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
		} else {
			defer rabbit.Close()
			publisher = rabbit
			log.Info("connected to rabbitmq", zap.String("exchange", cfg.Rabbit.Exchange))
		}
	}

	// Fetch catalog in the background; cart operations do not wait for it
	products := service.NewCatalog(log.Named("catalog"))
	go products.Load(ctx, catalog.NewHTTPSource(cfg.Catalog.URL, cfg.Catalog.Timeout))

	// Initialize service
	opts, err := storefrontOptions(cfg)
	if err != nil {
		return err
	}
	storefront, err := service.NewStorefront(ctx, service.Dependencies{
		Catalog:     products,
		Store:       store.ledger,
		Idempotency: store.idempotency,
		Logger:      log.Named("storefront"),
	}, opts)
	if err != nil {
		return fmt.Errorf("init storefront: %w", err)
	}

	// Start archive workers
	archiver := service.NewOrderArchiver(store.orders, publisher, log.Named("archive"))
	queue := storefront.GetOrderQueue()
	var wg sync.WaitGroup
	for i := 0; queue != nil && i < cfg.Orders.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			archiver.Run(id, queue)
		}(i)
	}
	log.Info("started archive workers", zap.Int("workers", cfg.Orders.Workers))

	// Review carousel
	reviews := service.NewReviewCarousel(cfg.Reviews.Items)
	go reviews.Run(ctx, cfg.Reviews.Interval, func(i int) {
		log.Debug("review carousel advanced", zap.Int("index", i))
	})

	presenter := handler.NewPresenter(opts.DisplayFactor, cfg.Ledger.Currency)

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(unaryLogger(log.Named("grpc"))))
	handler.RegisterStorefrontServer(grpcServer, handler.NewGRPCHandler(storefront, presenter))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(handler.Services{
		Storefront: storefront,
		Reviews:    reviews,
		Banner:     service.NewCarousel(cfg.Reviews.BannerCount),
		Contact:    service.NewContactDesk(log.Named("contact")),
		Orders:     store.orders,
	}, presenter, log.Named("http"))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	// Stop the carousel, then drain the order queue
	cancel()
	storefront.Close()
	wg.Wait()
	log.Info("workers stopped")
	return nil
}

func storefrontOptions(cfg *config.Config) (service.Options, error) {
	factor, err := cfg.Ledger.Factor()
	if err != nil {
		return service.Options{}, err
	}
	balance, err := cfg.Ledger.Balance()
	if err != nil {
		return service.Options{}, err
	}
	increment, err := cfg.Ledger.Increment()
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{
		DisplayFactor:   factor,
		StartingBalance: balance,
		FundsIncrement:  increment,
		Coupons:         cfg.Ledger.Coupons,
		QueueSize:       cfg.Orders.QueueSize,
	}, nil
}

type stores struct {
	ledger      port.KeyValueStore
	idempotency port.IdempotencyStore
	orders      port.OrderRepository
	closers     []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores wires the ledger driver. Orders are archived in MySQL whenever
// a DSN is configured, in memory otherwise.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	mem := storage.NewMemoryStore()
	s := &stores{ledger: mem, idempotency: mem, orders: storage.NewMemoryOrderRepository()}

	var mysqlAdapter *storage.MySQLAdapter
	if cfg.MySQL.DSN != "" {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		s.closers = append(s.closers, db.Close)

		if err := db.PingContext(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		mysqlAdapter = storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.orders = mysqlAdapter
		log.Info("connected to mysql")
	}

	switch cfg.Store.Driver {
	case "memory":
		log.Warn("using in-memory ledger, state is lost on restart")
	case "file":
		fs, err := storage.NewFileStore(cfg.Store.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.ledger = fs
		log.Info("using file ledger", zap.String("path", fs.Path()))
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		adapter := storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL)
		s.ledger, s.idempotency = adapter, adapter
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	case "mysql":
		s.ledger = mysqlAdapter
	}
	return s, nil
}

func unaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(logger.NewContext(ctx, log), req)
		log.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return resp, err
	}
}
