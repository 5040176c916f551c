package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/logging"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrSheetsDisabled is returned when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("google sheets export is not configured")

// SheetsExporter writes a fund's export table to one tab of a spreadsheet,
// replacing whatever the tab held.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	log           *logging.Logger
}

type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string // empty: use the fund name
	CredentialsFile string
}

// NewSheetsExporter authenticates with a service account file. Extra options
// are appended after the credentials.
func NewSheetsExporter(ctx context.Context, cfg SheetsConfig, logger *logging.Logger, opts ...goption.ClientOption) (*SheetsExporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, ErrSheetsDisabled
	}

	var all []goption.ClientOption
	if cfg.CredentialsFile != "" {
		creds, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		all = append(all, goption.WithCredentialsJSON(creds), goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	all = append(all, opts...)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		log:           logger.WithComponent(logging.ComponentSheets),
	}, nil
}

// Export writes f to its tab and returns the updated range.
func (e *SheetsExporter) Export(ctx context.Context, f chit.Fund) (string, error) {
	rows, err := Rows(f)
	if err != nil {
		return "", err
	}

	tab := e.sheetName
	if tab == "" {
		tab = SheetName(f.Name)
	}
	if err := e.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	quoted := "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", tab, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	values = append(values, header)
	for _, r := range rows {
		values = append(values, r.Cells())
	}

	vr := &gsheet.ValueRange{Values: values}
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, quoted+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", tab, err)
	}

	e.log.InfoContext(ctx, "fund exported to sheets",
		logging.FieldOperation, logging.OpExport,
		logging.FieldFundID, string(f.ID),
		logging.FieldCount, len(rows),
	)
	return resp.UpdatedRange, nil
}

func (e *SheetsExporter) ensureTab(ctx context.Context, tab string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	if slices.ContainsFunc(ss.Sheets, func(s *gsheet.Sheet) bool {
		return s.Properties != nil && s.Properties.Title == tab
	}) {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	e.log.InfoContext(ctx, "sheet created", "sheet", tab)
	return nil
}
