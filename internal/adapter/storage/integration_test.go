package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *RedisAdapter
	db      *MySQLAdapter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/storefront?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	adapter := NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	// Start every test from an empty ledger
	rdb.Del(context.Background(), ledgerKeyPrefix+service.CartKey, ledgerKeyPrefix+service.BalanceKey)

	return &testEnv{
		redis: rdb,
		mysql: db,
		cache: NewRedisAdapter(rdb, 0),
		db:    adapter,
		cleanup: func() {
			rdb.Del(context.Background(), ledgerKeyPrefix+service.CartKey, ledgerKeyPrefix+service.BalanceKey)
			rdb.Close()
			db.Close()
		},
	}
}

func integrationCatalog() *service.Catalog {
	c := service.NewCatalog(nil)
	c.Replace([]domain.Product{
		{ID: 1, Title: "Backpack", Price: decimal.NewFromInt(1)},
		{ID: 2, Title: "Jacket", Price: decimal.NewFromInt(2)},
	})
	return c
}

func newIntegrationStorefront(t *testing.T, env *testEnv) *service.Storefront {
	s, err := service.NewStorefront(context.Background(), service.Dependencies{
		Catalog:     integrationCatalog(),
		Store:       env.cache,
		Idempotency: env.cache,
	}, service.DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorefront failed: %v", err)
	}
	return s
}

func approve() port.Confirmer {
	return port.ConfirmFunc(func(context.Context, decimal.Decimal) bool { return true })
}

func TestIntegration_CheckoutArchivesOrder(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	s := newIntegrationStorefront(t, env)

	if _, err := s.AddItem(ctx, 1); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := s.AddItem(ctx, 2); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	queue := s.GetOrderQueue()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		service.NewOrderArchiver(env.db, nil, nil).Run(0, queue)
	}()

	res, err := s.Checkout(ctx, service.CheckoutInput{RequestID: uuid.NewString(), Confirmer: approve()})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}

	s.Close()
	wg.Wait()

	// 1000 - (1+2)*123
	if !res.Snapshot.Balance.Equal(decimal.NewFromInt(631)) {
		t.Errorf("expected balance 631, got %s", res.Snapshot.Balance)
	}

	saved, err := env.db.GetOrder(ctx, res.Order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if saved == nil {
		t.Fatal("expected order archived in MySQL")
	}
	if saved.Status != domain.OrderStatusArchived {
		t.Errorf("expected status archived, got %s", saved.Status)
	}
	if !saved.Total.Equal(decimal.NewFromInt(369)) {
		t.Errorf("expected total 369, got %s", saved.Total)
	}
	if len(saved.Lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(saved.Lines))
	}

	env.mysql.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, res.Order.ID)
}

func TestIntegration_LedgerSurvivesRestart(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	s := newIntegrationStorefront(t, env)
	s.AddItem(ctx, 2)
	s.AddItem(ctx, 2)
	s.AddFunds(ctx)
	s.Close()

	restarted := newIntegrationStorefront(t, env)
	defer restarted.Close()

	if got := restarted.TotalItems(); got != 2 {
		t.Errorf("expected 2 items after restart, got %d", got)
	}
	if !restarted.Balance().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected balance 2000 after restart, got %s", restarted.Balance())
	}
}

func TestIntegration_IdempotencyPreventsDoubleCheckout(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	requestID := uuid.NewString()
	defer env.redis.Del(ctx, idempotencyKeyPrefix+"checkout:"+requestID)

	s := newIntegrationStorefront(t, env)
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.AddItem(ctx, 1)
	}

	var successCount, duplicateCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Checkout(ctx, service.CheckoutInput{RequestID: requestID, Confirmer: approve()})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrDuplicateRequest), errors.Is(err, domain.ErrEmptyCart):
				duplicateCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 settlement, got %d", successCount.Load())
	}
	if duplicateCount.Load() != 9 {
		t.Errorf("expected 9 rejected retries, got %d", duplicateCount.Load())
	}
	if !s.Balance().Equal(decimal.NewFromInt(385)) {
		t.Errorf("expected balance 385, got %s", s.Balance())
	}
}
