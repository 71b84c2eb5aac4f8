package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAppDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:app_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	t.Cleanup(func() { _ = sqlDB.Close() })
}

func TestBuildRunnerModes(t *testing.T) {
	setupAppDB(t)
	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: "0", Mode: "debug"},
		Payment: config.PaymentConfig{Provider: "mock"},
	}

	runner, container, err := BuildRunner(cfg, ModeAPI)
	if err != nil {
		t.Fatalf("build api runner failed: %v", err)
	}
	if len(runner.services) != 1 || runner.services[0].Name() != "http" {
		t.Fatalf("api mode should only start http, got %d services", len(runner.services))
	}
	container.Close()

	runner, container, err = BuildRunner(cfg, ModeAll)
	if err != nil {
		t.Fatalf("build all runner failed: %v", err)
	}
	defer container.Close()
	if len(runner.services) != 2 || runner.services[1].Name() != "order_sweeper" {
		t.Fatalf("all mode without queue should run the sweeper, got %d services", len(runner.services))
	}

	if _, _, err := BuildRunner(cfg, "unknown"); err == nil {
		t.Fatalf("unknown mode must fail")
	}
	if _, _, err := BuildRunner(&config.Config{Payment: config.PaymentConfig{Provider: "alipay"}}, ModeAPI); err == nil {
		t.Fatalf("unsupported payment provider must fail")
	}
}

type stubService struct {
	name     string
	startErr error
	stopped  bool
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *stubService) Stop(context.Context) error {
	s.stopped = true
	return nil
}

func TestRunnerStopsAllServicesOnFailure(t *testing.T) {
	failing := &stubService{name: "failing", startErr: errors.New("boom")}
	healthy := &stubService{name: "healthy"}
	err := NewRunner(failing, healthy).Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "boom" {
		t.Fatalf("runner should surface start error, got %v", err)
	}
	if !failing.stopped || !healthy.stopped {
		t.Fatalf("all services must be stopped")
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &stubService{name: "idle"}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := NewRunner(svc).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancelled runner should return nil, got %v", err)
	}
}
