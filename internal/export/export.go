// Package export renders a stored search's ads as CSV, XLSX or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ad-scout/internal/model"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

const sheetName = "Anuncios"

// Headers is the column set shared by CSV and XLSX output.
var Headers = []string{
	"Página",
	"URL",
	"Texto del Anuncio",
	"País",
	"Días Activo",
	"Cantidad de Anuncios",
	"Contacto",
	"Teléfono",
	"Es Ganador",
	"Es Potencial",
	"Biblioteca de Anuncios",
}

// ParseFormat accepts csv, xlsx (or excel) and json, case-insensitively.
// Empty input defaults to JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Filename names the download for a search exported on day.
func Filename(searchID string, f Format, day time.Time) string {
	return fmt.Sprintf("ads_search_%s_%s.%s", searchID, day.Format("2006-01-02"), f)
}

// Write encodes search in format f. CSV and XLSX carry only the ads; JSON
// carries the whole search.
func Write(w io.Writer, f Format, search *model.Search) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, search.Ads)
	case FormatXLSX:
		return WriteXLSX(w, search.Ads)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(search), "export: encode json")
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteCSV writes a header row and one row per ad.
func WriteCSV(w io.Writer, ads []model.AdRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, ad := range ads {
		if err := cw.Write(Row(ad)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", ad.PageName)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single-sheet workbook. Numeric columns are stored as
// numbers.
func WriteXLSX(w io.Writer, ads []model.AdRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Headers {
		header.AddCell().SetString(h)
	}

	for _, ad := range ads {
		row := sheet.AddRow()
		for i, v := range Row(ad) {
			cell := row.AddCell()
			switch i {
			case colDays:
				cell.SetInt(ad.DaysRunning)
			case colAdsCount:
				cell.SetInt(ad.AdsCount)
			default:
				cell.SetString(v)
			}
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

const (
	colDays     = 4
	colAdsCount = 5
)

// Row is the Headers-aligned rendering of ad.
func Row(ad model.AdRecord) []string {
	return []string{
		ad.PageName,
		ad.PageURL,
		ad.AdText,
		ad.Country,
		strconv.Itoa(ad.DaysRunning),
		strconv.Itoa(ad.AdsCount),
		yesNo(ad.HasContactSignal),
		ad.ContactPhone,
		yesNo(ad.IsWinner),
		yesNo(ad.IsPotential),
		ad.AdsLibraryURL,
	}
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
