package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
)

const dailyCheckInterval = time.Minute

// AnomalyNotifier receives the anomalies of a reporting period
type AnomalyNotifier interface {
	NotifyAnomalies(ctx context.Context, period string, anomalies []reconcile.Session) error
}

// DailyReportJob writes yesterday's hours workbook once a day after hour
// and forwards yesterday's anomalies to the notifier.
type DailyReportJob struct {
	reports  *ReportService
	notifier AnomalyNotifier
	hour     int
	loc      *time.Location
	interval time.Duration
	now      func() time.Time
	lastRun  string
	logger   *zap.Logger
}

func NewDailyReportJob(reports *ReportService, notifier AnomalyNotifier, hour int, loc *time.Location, logger *zap.Logger) *DailyReportJob {
	if loc == nil {
		loc = time.Local
	}
	return &DailyReportJob{
		reports:  reports,
		notifier: notifier,
		hour:     hour,
		loc:      loc,
		interval: dailyCheckInterval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start blocks until ctx is done
func (j *DailyReportJob) Start(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Starting daily report job",
		zap.Int("hour", j.hour),
		zap.Duration("interval", j.interval),
	)

	j.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *DailyReportJob) tick(ctx context.Context) {
	ran, err := j.RunIfDue(ctx)
	if err != nil {
		j.logger.Error("Daily report failed", zap.Error(err))
		return
	}
	if ran {
		j.logger.Info("Daily report completed", zap.String("date", j.lastRun))
	}
}

// RunIfDue runs the report for the previous day when the configured hour
// has passed and today has not been handled yet.
func (j *DailyReportJob) RunIfDue(ctx context.Context) (bool, error) {
	now := j.now().In(j.loc)
	today := now.Format("2006-01-02")
	if now.Hour() < j.hour || j.lastRun == today {
		return false, nil
	}
	if err := j.Run(ctx, now.AddDate(0, 0, -1)); err != nil {
		return false, err
	}
	j.lastRun = today
	return true, nil
}

// Run writes hours_{date}.xlsx for day and notifies its anomalies
func (j *DailyReportJob) Run(ctx context.Context, day time.Time) error {
	date := day.Format("2006-01-02")
	// night shifts started on day close the morning after
	f := ReportFilter{
		Start:       domain.StartOfDay(day),
		End:         domain.EndOfDay(day),
		CloseWithin: reconcile.MaxSessionHours * time.Hour,
	}

	path, err := j.reports.SaveHoursWorkbook(ctx, f, fmt.Sprintf("hours_%s.xlsx", date))
	if err != nil {
		return err
	}
	j.logger.Info("Daily hours workbook written", zap.String("path", path))

	report, err := j.reports.Summary(ctx, f)
	if err != nil {
		return err
	}
	if j.notifier == nil || len(report.Anomalies) == 0 {
		return nil
	}
	if err := j.notifier.NotifyAnomalies(ctx, date, report.Anomalies); err != nil {
		return fmt.Errorf("failed to notify anomalies: %w", err)
	}
	return nil
}
