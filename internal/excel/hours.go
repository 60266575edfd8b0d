package excel

import (
	"math"

	"siteclock/internal/reconcile"
)

var (
	summaryColumns = []Column{
		{"Dipendente", 25},
		{"Ore Totali", 12},
		{"Durata", 12},
		{"Giorni Lavorati", 15},
		{"Media Giornaliera", 18},
		{"Sessioni Valide", 15},
		{"Anomalie", 12},
	}
	dailyColumns = []Column{
		{"Dipendente", 25},
		{"Data", 12},
		{"Cantiere", 35},
		{"Entrata", 20},
		{"Uscita", 20},
		{"Ore", 10},
		{"Durata", 12},
		{"Stato", 12},
		{"Motivo", 30},
		{"Forzata", 10},
	}
	siteColumns = []Column{
		{"Dipendente", 25},
		{"Cantiere", 40},
		{"Ore", 10},
		{"Durata", 12},
	}
)

// HoursWorkbook renders reconciled hours: a per-employee summary sheet, a
// daily breakdown listing valid and invalid sessions, and hours per site.
func HoursWorkbook(summaries []reconcile.EmployeeSummary) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	if err := b.hoursSheets(summaries); err != nil {
		b.close()
		return nil, err
	}
	return b.bytes()
}

func (b *book) hoursSheets(summaries []reconcile.EmployeeSummary) error {
	summary, err := b.addSheet("Riepilogo Ore", colorHeaderBlue, summaryColumns)
	if err != nil {
		return err
	}
	var grand float64
	for i, s := range summaries {
		grand += s.TotalHours
		if err := b.setRow(summary, i+2, b.styles.cell,
			s.EmployeeName,
			round2(s.TotalHours),
			s.TotalFormatted.Text,
			s.DaysWorked,
			s.AverageFormatted.Text,
			s.ValidSessions,
			s.InvalidSessions,
		); err != nil {
			return err
		}
	}
	totalRow := len(summaries) + 2
	if err := b.setRow(summary, totalRow, b.styles.bold,
		"TOTALE", round2(grand), reconcile.FormatDuration(grand).Text); err != nil {
		return err
	}

	daily, err := b.addSheet("Dettaglio Giornaliero", colorHeaderBlue, dailyColumns)
	if err != nil {
		return err
	}
	row := 2
	for _, s := range summaries {
		for _, d := range s.Days {
			for _, sess := range d.Sessions {
				style := b.styles.cell
				status, reason := "Valida", ""
				if !sess.IsValid {
					style = b.styles.anomaly
					status, reason = "Anomalia", reasonLabel(sess.InvalidReason)
				}
				site := sess.WorkSiteIn
				if sess.IsMixed() {
					site = sess.SiteKey()
				}
				if err := b.setRow(daily, row, style,
					s.EmployeeName,
					d.Date,
					site,
					displayTime(sess.TimeIn),
					displayTime(sess.TimeOut),
					round2(sess.Hours),
					reconcile.FormatDuration(sess.Hours).Text,
					status,
					reason,
					yesNo(sess.ForcedIn || sess.ForcedOut),
				); err != nil {
					return err
				}
				row++
			}
		}
	}
	if err := b.autoFilter(daily, len(dailyColumns), row-1); err != nil {
		return err
	}

	bySite, err := b.addSheet("Ore per Cantiere", colorHeaderBlue, siteColumns)
	if err != nil {
		return err
	}
	row = 2
	for _, s := range summaries {
		for _, key := range reconcile.SortedKeys(s.HoursByKey) {
			h := s.HoursByKey[key]
			if err := b.setRow(bySite, row, b.styles.cell,
				s.EmployeeName, key, round2(h), reconcile.FormatDuration(h).Text); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func reasonLabel(r reconcile.InvalidReason) string {
	switch r {
	case reconcile.ReasonTemporal:
		return "Uscita precedente all'entrata"
	case reconcile.ReasonExcessive:
		return "Durata superiore a 24 ore"
	default:
		return ""
	}
}

func yesNo(v bool) string {
	if v {
		return "Sì"
	}
	return "No"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
