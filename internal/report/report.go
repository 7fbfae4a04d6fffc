// Package report renders filtered slices of the ledger into CSV, XLSX,
// and PDF payloads. All three encodings draw on one shared query result,
// sorted by creation time descending; they differ only in rendering.
//
// Column asymmetry between the encodings (the spreadsheet omits the
// Account Type column, the PDF truncates account and remark) is an
// existing behavioral contract and is preserved deliberately.
package report

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/store"
)

// Filter narrows a report. StartDate and EndDate are calendar dates
// (YYYY-MM-DD); a bound that fails to parse is silently dropped rather
// than failing the request.
type Filter struct {
	UserID    string
	AccountID string
	StartDate string
	EndDate   string
}

// Row is one rendered report line.
type Row struct {
	Date         string
	Time         string
	Account      string
	AccountKind  string
	Direction    string
	Amount       decimal.Decimal
	Delta        decimal.Decimal
	BalanceAfter decimal.Decimal
	RefType      string
	Remark       string
}

// File is a fully materialized report payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service generates account reports.
type Service struct {
	store    store.EntryStore
	loc      *time.Location
	currency string
	log      zerolog.Logger
	now      func() time.Time

	// RepeatPDFHeader re-prints the table header on every PDF page.
	// Off by default for parity with existing reports.
	RepeatPDFHeader bool
}

// NewService creates a report service. loc is the time zone report day
// bounds and timestamps are taken in; currency is the ISO code used for
// PDF amount display.
func NewService(st store.EntryStore, loc *time.Location, currency string, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    st,
		loc:      loc,
		currency: currency,
		log:      log,
		now:      time.Now,
	}
}

// Rows runs the shared query and projects it into report rows.
func (s *Service) Rows(ctx context.Context, filter Filter) ([]Row, error) {
	entryFilter := store.EntryFilter{
		UserID:    filter.UserID,
		AccountID: filter.AccountID,
	}

	if d, err := civil.ParseDate(filter.StartDate); filter.StartDate != "" && err == nil {
		from := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, s.loc)
		entryFilter.From = &from
	} else if filter.StartDate != "" {
		s.log.Debug().Str("start_date", filter.StartDate).Msg("Ignoring unparseable start date")
	}
	if d, err := civil.ParseDate(filter.EndDate); filter.EndDate != "" && err == nil {
		to := time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 999*int(time.Millisecond), s.loc)
		entryFilter.To = &to
	} else if filter.EndDate != "" {
		s.log.Debug().Str("end_date", filter.EndDate).Msg("Ignoring unparseable end date")
	}

	entries, err := s.store.QueryEntries(ctx, entryFilter)
	if err != nil {
		return nil, fmt.Errorf("query report entries: %w", err)
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		created := e.CreatedAt.In(s.loc)
		rows = append(rows, Row{
			Date:         created.Format("2006-01-02"),
			Time:         created.Format("15:04:05"),
			Account:      e.AccountName,
			AccountKind:  string(e.AccountKind),
			Direction:    string(e.Direction),
			Amount:       e.Amount,
			Delta:        e.Delta,
			BalanceAfter: e.BalanceAfter,
			RefType:      string(e.RefType),
			Remark:       e.Remark,
		})
	}
	return rows, nil
}

// CSV renders the report as a text/csv attachment.
func (s *Service) CSV(ctx context.Context, filter Filter) (*File, error) {
	rows, err := s.Rows(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := renderCSV(rows)
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return &File{
		Name:        s.filename("csv"),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// Excel renders the report as an XLSX attachment.
func (s *Service) Excel(ctx context.Context, filter Filter) (*File, error) {
	rows, err := s.Rows(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := renderExcel(rows)
	if err != nil {
		return nil, fmt.Errorf("render excel: %w", err)
	}
	return &File{
		Name:        s.filename("xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

// PDF renders the report as a paginated PDF attachment.
func (s *Service) PDF(ctx context.Context, filter Filter) (*File, error) {
	rows, err := s.Rows(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := renderPDF(rows, pdfMeta{
		GeneratedAt:  s.now().In(s.loc),
		StartDate:    orAll(filter.StartDate),
		EndDate:      orAll(filter.EndDate),
		Currency:     s.currency,
		RepeatHeader: s.RepeatPDFHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return &File{
		Name:        s.filename("pdf"),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *Service) filename(ext string) string {
	return fmt.Sprintf("account-report-%s.%s", s.now().In(s.loc).Format("2006-01-02"), ext)
}

func orAll(date string) string {
	if _, err := civil.ParseDate(date); err != nil {
		return "All"
	}
	return date
}
