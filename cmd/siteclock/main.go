package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"siteclock/internal/common/database"
	"siteclock/internal/common/logger"
	"siteclock/internal/common/mqtt"
	rediscommon "siteclock/internal/common/redis"
	"siteclock/internal/config"
	httpapi "siteclock/internal/http"
	"siteclock/internal/repository"
	"siteclock/internal/service"
	"siteclock/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "siteclock")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	loc := cfg.Location()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when enabled and reachable, otherwise in-memory
	var (
		db         *sql.DB
		employees  repository.EmployeesRepo
		sites      repository.WorkSitesRepo
		attendance repository.AttendanceRepo
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			if err := repository.EnsureSchema(ctx, d); err != nil {
				log.Fatal("Failed to prepare schema", zap.Error(err))
			}
			db = d
			log.Info("DB enabled for siteclock")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		}
	}
	if db != nil {
		defer database.Close(db)
		employees = repository.NewPostgresEmployeesRepo(db)
		sites = repository.NewPostgresWorkSitesRepo(db, loc)
		attendance = repository.NewPostgresAttendanceRepo(db, loc)
	} else {
		employees, sites, attendance = repository.NewMemoryRepos()
	}

	// Sessions and report cache: Redis when enabled, otherwise in-process
	var (
		kv          store.KV = store.NewMemoryKV()
		redisClient *redis.Client
	)
	if cfg.RedisEnabled {
		c := rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, c); err != nil {
			log.Warn("Redis unavailable, sessions kept in memory", zap.Error(err))
			_ = c.Close()
		} else {
			redisClient = c
			kv = store.NewRedisKV(c)
			defer rediscommon.Close(c)
		}
	}

	var feed service.MessagePublisher
	if cfg.MQTT.Enabled {
		if c, err := mqtt.NewClient(&cfg.MQTT.Broker, log); err != nil {
			log.Warn("MQTT unavailable, realtime feed disabled", zap.Error(err))
		} else {
			feed = c
			defer c.Disconnect()
		}
	}

	publisher := service.NewEventPublisher(redisClient, cfg.App.EventStream, feed, cfg.MQTT.TopicPrefix, log)
	reports := service.NewReportService(attendance, kv, cfg.App.ReportsDir, loc, log)
	auth := service.NewAuthService(employees, kv, cfg.Auth.SessionTTL, log)
	employeeSvc := service.NewEmployeeService(employees, reports, log)
	workSiteSvc := service.NewWorkSiteService(sites, attendance, reports, cfg.App.ReportsDir, cfg.Geofence.DefaultRadius, loc, log)
	attendanceSvc := service.NewAttendanceService(employees, sites, attendance, publisher, reports,
		service.GeofencePolicy{Enforced: cfg.Geofence.Enforced}, loc, log)
	integrity := service.NewIntegrityService(attendance, reports, log)

	if cfg.Auth.SeedAdmin {
		if err := auth.SeedAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			log.Error("Failed to seed admin", zap.Error(err))
		}
	}
	if _, err := employeeSvc.BackfillUsernames(ctx); err != nil {
		log.Error("Failed to backfill usernames", zap.Error(err))
	}

	if cfg.Daily.Enabled {
		notifier := service.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, log)
		job := service.NewDailyReportJob(reports, notifier, cfg.Daily.Hour, loc, log)
		go func() {
			if err := job.Start(ctx); err != nil {
				log.Error("Daily report job stopped", zap.Error(err))
			}
		}()
	}

	router := httpapi.NewRouter(log)
	router.RegisterRoutes(httpapi.NewAuthenticator(auth, log), httpapi.Handlers{
		Auth:       httpapi.NewAuthHandler(auth, log),
		Employees:  httpapi.NewEmployeeHandler(employeeSvc, log),
		WorkSites:  httpapi.NewWorkSiteHandler(workSiteSvc, log),
		Attendance: httpapi.NewAttendanceHandler(attendanceSvc, reports, loc, log),
		Reports:    httpapi.NewReportHandler(reports, loc, log),
		Integrity:  httpapi.NewIntegrityHandler(integrity, log),
	})

	srv := service.NewServer(cfg.HTTP.Addr, router.Handler(), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Shutdown failed", zap.Error(err))
	}
}
