package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"legalintel/internal/core"
	"legalintel/internal/sources"
)

const sheetsSource = "Google Sheets"

var (
	_ sources.TimelineReader  = (*Client)(nil)
	_ sources.FinancialReader = (*Client)(nil)
)

// Options configures the spreadsheet layout and credentials.
type Options struct {
	SpreadsheetID      string
	TimelineSheet      string // default "Timeline"
	FinancialsSheet    string // default "Financials"
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	timelineSheet   string
	financialsSheet string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, opts), nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	timeline := strings.TrimSpace(opts.TimelineSheet)
	if timeline == "" {
		timeline = "Timeline"
	}
	financials := strings.TrimSpace(opts.FinancialsSheet)
	if financials == "" {
		financials = "Financials"
	}
	return &Client{
		svc:             svc,
		spreadsheetID:   opts.SpreadsheetID,
		timelineSheet:   timeline,
		financialsSheet: financials,
	}
}

// newSheetsService initializes a read-only Sheets Service. Inline JSON wins
// over the file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credsFile := strings.TrimSpace(opts.ServiceAccountFile)
	if opts.ServiceAccountJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case opts.ServiceAccountJSON != "":
		credentialsJSON = []byte(opts.ServiceAccountJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) readRange(ctx context.Context, rng string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ReadTimeline reads the timeline sheet (columns A:G, header on row 1).
func (c *Client) ReadTimeline(ctx context.Context) (sources.TimelinePayload, error) {
	values, err := c.readRange(ctx, fmt.Sprintf("%s!A1:G", c.timelineSheet))
	if err != nil {
		return sources.TimelinePayload{}, err
	}
	events, err := parseTimeline(values)
	if err != nil {
		return sources.TimelinePayload{}, err
	}
	for i := range events {
		if events[i].Source == "" {
			events[i].Source = sheetsSource
		}
	}
	return sources.TimelinePayload{Events: core.SortChronological(events)}, nil
}

// ReadFinancials reads the financials sheet (columns A:C, header on row 1).
func (c *Client) ReadFinancials(ctx context.Context) (sources.FinancialPayload, error) {
	values, err := c.readRange(ctx, fmt.Sprintf("%s!A1:C", c.financialsSheet))
	if err != nil {
		return sources.FinancialPayload{}, err
	}
	series, err := parseFinancials(values)
	if err != nil {
		return sources.FinancialPayload{}, err
	}
	return sources.FinancialPayload{
		FinancialSeries: series,
		Source:          sheetsSource,
		LastUpdated:     time.Now().UTC(),
	}, nil
}
