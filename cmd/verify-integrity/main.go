package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"siteclock/internal/common/database"
	"siteclock/internal/config"
	"siteclock/internal/domain"
	"siteclock/internal/repository"
	"siteclock/internal/service"
)

func main() {
	var deleteOrphans = flag.Bool("delete-orphans", false, "Delete the orphan records found")
	var dbName = flag.String("db", "", "Database name (default: DB_NAME)")
	flag.Parse()

	cfg := config.Load()
	if *dbName != "" {
		cfg.Database.Database = *dbName
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer database.Close(db)

	ctx := context.Background()
	integrity := service.NewIntegrityService(repository.NewPostgresAttendanceRepo(db, cfg.Location()), nil, zap.NewNop())

	report, err := integrity.Check(ctx)
	if err != nil {
		log.Fatalf("Integrity check failed: %v", err)
	}

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)
	fmt.Println("Clock balance per employee:")
	for _, e := range report.Employees {
		mark := "OK "
		switch e.Status {
		case service.StatusClockedIn:
			mark = "IN "
		case service.StatusError:
			mark = "ERR"
		}
		fmt.Printf("  [%s] %-30s in=%-5d out=%-5d\n", mark, e.EmployeeName, e.Ins, e.Outs)
	}

	fmt.Printf("\nOrphan records: %d\n", len(report.Orphans))
	for _, o := range report.Orphans {
		fmt.Printf("  #%-8d %-25s %-4s %s  %s\n", o.RecordID, o.EmployeeName, o.Type, domain.FormatLocal(o.Timestamp), o.Problem)
	}

	fmt.Printf("\nOUT before IN (midnight rollover candidates): %d\n", len(report.Fixes))
	for _, f := range report.Fixes {
		fmt.Printf("  #%-8d %-25s %s -> %s (%.2fh -> %.2fh)\n",
			f.OutID, f.EmployeeName, domain.FormatLocal(f.Out), domain.FormatLocal(f.FixedOut), f.OldHours, f.NewHours)
	}

	if *deleteOrphans && len(report.Orphans) > 0 {
		n, err := integrity.DeleteOrphans(ctx)
		if err != nil {
			log.Fatalf("Failed to delete orphans: %v", err)
		}
		fmt.Printf("\nDeleted %d orphan records\n", n)
		return
	}

	if report.Healthy {
		fmt.Println("\nDatabase is consistent")
		return
	}
	fmt.Println("\nInconsistencies found (run fix-timestamps -apply, or -delete-orphans)")
	os.Exit(1)
}
