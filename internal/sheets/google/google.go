package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	ports "bilancio/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ensure interface conformance
var _ ports.MonthExporter = (*Client)(nil)

var header = []any{"Month", "Type", "Category", "Subcategory", "Mode", "Installment", "Amount"}

const lastColumn = "G"

type Options struct {
	SpreadsheetID   string
	SheetName       string // base name; the year is prefixed per export
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	labeler       ports.Labeler
}

// New creates a Sheets exporter authenticated with a service account.
// labeler may be nil, in which case ids are exported instead of names.
func New(ctx context.Context, opts Options, labeler ports.Labeler) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentials, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Budget"
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready",
		applog.FieldComponent, applog.ComponentSheets,
		"sheet_base", base)
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetBase:     base,
		labeler:       labeler,
	}, nil
}

func loadCredentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// ExportMonth rewrites the rows of o's month in the "<year> <base>" sheet,
// leaving the other months' rows in place.
func (c *Client) ExportMonth(ctx context.Context, o core.MonthOverview) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	labels, err := ports.LoadLabels(ctx, c.labeler)
	if err != nil {
		return "", fmt.Errorf("load labels: %w", err)
	}

	sheet := yearPrefixedName(c.sheetBase, o.Year)
	full := fmt.Sprintf("%s!A:%s", sheet, lastColumn)

	if err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, full).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	rows := mergeMonth(resp.Values, monthKey(o.Year, o.Month), buildRows(o, labels))

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, full, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	ref := fmt.Sprintf("%s!A1:%s%d", sheet, lastColumn, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write sheet %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Month exported to Google Sheets",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldOperation, applog.OpExport,
		applog.FieldYear, o.Year,
		applog.FieldMonth, o.Month,
		applog.FieldSheetsRef, ref)
	return ref, nil
}

// ensureSheet adds the sheet title to the spreadsheet when it is missing.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet", applog.FieldComponent, applog.ComponentSheets, "sheet", title)
	return nil
}

func monthKey(year, month int) string {
	return core.NewYearMonth(year, month).String()
}

// buildRows renders o as sheet rows followed by a totals row.
func buildRows(o core.MonthOverview, labels ports.Labels) [][]any {
	key := monthKey(o.Year, o.Month)
	rows := make([][]any, 0, len(o.Declarations)+1)
	for _, d := range o.Declarations {
		cat, sub := labels.Category(d)
		installment := ""
		if d.Mode == core.Installment {
			installment = fmt.Sprintf("%d/%d", d.InstallmentIndex, d.InstallmentsTotal)
		}
		rows = append(rows, []any{key, string(d.Type), cat, sub, string(d.Mode), installment, core.FormatAmount(d.Amount)})
	}
	rows = append(rows, []any{key, "balance", "", "", "", "", core.FormatAmount(o.Balance)})
	return rows
}

// mergeMonth drops the header and every row of key from existing, adds rows
// and returns header plus all rows ordered by month.
func mergeMonth(existing [][]any, key string, rows [][]any) [][]any {
	kept := make([][]any, 0, len(existing)+len(rows))
	for i, r := range existing {
		if i == 0 && len(r) > 0 && cell(r[0]) == "Month" {
			continue
		}
		if len(r) == 0 || cell(r[0]) == key || cell(r[0]) == "" {
			continue
		}
		kept = append(kept, r)
	}
	kept = append(kept, rows...)
	sort.SliceStable(kept, func(i, j int) bool {
		return cell(kept[i][0]) < cell(kept[j][0])
	})
	return append([][]any{header}, kept...)
}

func cell(v any) string {
	return strings.TrimSpace(fmt.Sprint(v))
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
