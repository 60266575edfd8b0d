package excel

import (
	"fmt"

	"siteclock/internal/domain"
	"siteclock/internal/reconcile"
)

// RegisterColumns header of the attendance register
var RegisterColumns = []Column{
	{"Nome Dipendente", 25},
	{"Cantiere", 30},
	{"Tipo", 12},
	{"Data e Ora", 20},
	{"Dispositivo", 35},
	{"Latitudine", 15},
	{"Longitudine", 15},
	{"Google Maps", 20},
	{"ID Dipendente", 15},
}

// AttendanceRegister renders the raw clock register, one row per record
func AttendanceRegister(records []domain.AttendanceRecord) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	sheet, err := b.addSheet("Registro Presenze", colorHeaderBlue, RegisterColumns)
	if err != nil {
		b.close()
		return nil, err
	}

	for i, rec := range records {
		row := i + 2
		site := rec.WorkSiteName
		if site == "" {
			site = reconcile.UnspecifiedSite
		}
		if err := b.writeRecordRow(sheet, row, rec, []any{
			rec.EmployeeName,
			site,
			typeLabel(string(rec.Type)),
			displayTime(rec.Timestamp),
			rec.DeviceInfo,
			coordinate(rec.Latitude),
			coordinate(rec.Longitude),
			"N/D",
			rec.EmployeeID,
		}, 3, 8); err != nil {
			b.close()
			return nil, err
		}
	}

	if err := b.autoFilter(sheet, len(RegisterColumns), len(records)+1); err != nil {
		b.close()
		return nil, fmt.Errorf("failed to set autofilter: %w", err)
	}
	return b.bytes()
}

// writeRecordRow writes one attendance row, colors the type cell and turns
// the maps cell into a hyperlink when the record has coordinates.
func (b *book) writeRecordRow(sheet string, row int, rec domain.AttendanceRecord, values []any, typeCol, mapsCol int) error {
	url := domain.MapsURL(rec.Latitude, rec.Longitude)
	if url != "" {
		values[mapsCol-1] = "Apri in Maps"
	}
	if err := b.setRow(sheet, row, b.styles.cell, values...); err != nil {
		return err
	}

	typeStyle := b.styles.outType
	if rec.Type == reconcile.In {
		typeStyle = b.styles.inType
	}
	if err := b.setStyle(sheet, typeCol, row, typeStyle); err != nil {
		return err
	}

	if url == "" {
		return nil
	}
	cell, _ := coordinatesToCell(mapsCol, row)
	if err := b.f.SetCellHyperLink(sheet, cell, url, "External"); err != nil {
		return fmt.Errorf("failed to set hyperlink: %w", err)
	}
	return b.setStyle(sheet, mapsCol, row, b.styles.link)
}
