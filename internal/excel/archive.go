package excel

import (
	"fmt"
	"time"

	"siteclock/internal/domain"
)

// ArchiveColumns header of a deleted site's history
var ArchiveColumns = []Column{
	{"Dipendente", 25},
	{"Tipo", 12},
	{"Data e Ora", 20},
	{"Dispositivo", 35},
	{"Latitudine", 15},
	{"Longitudine", 15},
	{"Google Maps", 20},
	{"ID Timbratura", 15},
}

// WorkSiteArchive renders every record of a site followed by an info block
// describing the site being deleted.
func WorkSiteArchive(site domain.WorkSite, records []domain.AttendanceRecord, deletedAt time.Time) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	sheet, err := b.addSheet("Storico "+site.Name, colorHeaderRed, ArchiveColumns)
	if err != nil {
		b.close()
		return nil, err
	}

	row := 2
	for _, rec := range records {
		if err := b.writeRecordRow(sheet, row, rec, []any{
			rec.EmployeeName,
			typeLabel(string(rec.Type)),
			displayTime(rec.Timestamp),
			rec.DeviceInfo,
			coordinate(rec.Latitude),
			coordinate(rec.Longitude),
			"N/D",
			rec.ID,
		}, 2, 7); err != nil {
			b.close()
			return nil, err
		}
		row++
	}

	row++
	info := [][]any{
		{"INFORMAZIONI CANTIERE ELIMINATO"},
		{"Nome:", site.Name},
		{"Indirizzo:", site.Address},
		{"Coordinate:", fmt.Sprintf("%v, %v", site.Latitude, site.Longitude)},
		{"Data Eliminazione:", displayTime(deletedAt)},
		{"Totale Timbrature:", len(records)},
	}
	for i, values := range info {
		style := 0
		if i == 0 {
			style = b.styles.bold
		}
		if err := b.setRow(sheet, row, style, values...); err != nil {
			b.close()
			return nil, err
		}
		row++
	}
	return b.bytes()
}
