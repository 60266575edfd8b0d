package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"siteclock/internal/common/database"
	"siteclock/internal/common/logger"
	rediscommon "siteclock/internal/common/redis"
	"siteclock/internal/config"
	"siteclock/internal/domain"
	"siteclock/internal/repository"
	"siteclock/internal/service"
	"siteclock/internal/store"
)

func main() {
	var apply = flag.Bool("apply", false, "Write the corrected timestamps (default: dry run)")
	var dbName = flag.String("db", "", "Database name (default: DB_NAME)")
	flag.Parse()

	cfg := config.Load()
	if *dbName != "" {
		cfg.Database.Database = *dbName
	}

	zl, err := logger.NewLogger(cfg.Log.Level, "console", "fix-timestamps")
	if err != nil {
		zl = zap.NewNop()
	}
	defer zl.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer database.Close(db)

	attendance := repository.NewPostgresAttendanceRepo(db, cfg.Location())

	// cached hour reports would otherwise outlive the corrected rows
	var cache service.CacheInvalidator
	if cfg.RedisEnabled {
		rc := rediscommon.NewRedisClient(&cfg.Redis)
		defer rediscommon.Close(rc)
		if err := rediscommon.Ping(context.Background(), rc); err == nil {
			cache = service.NewReportService(attendance, store.NewRedisKV(rc), cfg.App.ReportsDir, cfg.Location(), zl)
		}
	}

	integrity := service.NewIntegrityService(attendance, cache, zl)
	fixes, applied, err := integrity.FixTimestamps(context.Background(), !*apply)
	if err != nil {
		log.Fatalf("Fix failed after %d updates: %v", applied, err)
	}

	if len(fixes) == 0 {
		fmt.Println("No OUT records precede their IN, nothing to fix")
		return
	}
	for _, f := range fixes {
		fmt.Printf("%-25s %-20s IN %s  OUT %s -> %s  (%.2fh -> %.2fh)\n",
			f.EmployeeName, f.WorkSiteName,
			domain.FormatLocal(f.In), domain.FormatLocal(f.Out), domain.FormatLocal(f.FixedOut),
			f.OldHours, f.NewHours)
	}
	if !*apply {
		fmt.Printf("\n%d fixes proposed (dry run). Re-run with -apply to write them.\n", len(fixes))
		return
	}
	fmt.Printf("\n%d of %d fixes applied\n", applied, len(fixes))
}
