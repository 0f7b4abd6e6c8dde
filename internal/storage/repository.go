package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"legalintel/internal/core"
	"legalintel/internal/sources"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a singleton record has not been stored yet.
var ErrNotFound = errors.New("record not found")

const (
	seriesContributions = "contributions"
	seriesObligations   = "obligations"
)

var (
	_ sources.Reader      = (*SQLiteRepository)(nil)
	_ sources.EventWriter = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AppendEvent implements sources.EventWriter
func (r *SQLiteRepository) AppendEvent(ctx context.Context, e core.Event) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (title, event_date, description, type, color, source) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Title, e.Date.String(), e.Description, e.Type, e.Color.String(), e.Source)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event id: %w", err)
	}

	slog.InfoContext(ctx, "Event saved to SQLite",
		"id", id,
		"title", e.Title,
		"type", e.Type,
		"date", e.Date.String())

	return id, nil
}

// ReadTimeline implements sources.TimelineReader. Events come back in
// chronological order.
func (r *SQLiteRepository) ReadTimeline(ctx context.Context) (sources.TimelinePayload, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, event_date, description, type, color, source FROM events ORDER BY event_date, id`)
	if err != nil {
		return sources.TimelinePayload{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []core.Event{}
	for rows.Next() {
		var (
			e           core.Event
			date, color string
		)
		if err := rows.Scan(&e.ID, &e.Title, &date, &e.Description, &e.Type, &color, &e.Source); err != nil {
			return sources.TimelinePayload{}, fmt.Errorf("scan event: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			slog.WarnContext(ctx, "Skipping event with invalid date", "id", e.ID, "date", date)
			continue
		}
		e.Date = d
		e.Color = core.ParseColor(color)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return sources.TimelinePayload{}, fmt.Errorf("iterate events: %w", err)
	}
	return sources.TimelinePayload{Events: events}, nil
}

// ReadFinancials implements sources.FinancialReader
func (r *SQLiteRepository) ReadFinancials(ctx context.Context) (sources.FinancialPayload, error) {
	contrib, err := r.readSeries(ctx, seriesContributions)
	if err != nil {
		return sources.FinancialPayload{}, err
	}
	oblig, err := r.readSeries(ctx, seriesObligations)
	if err != nil {
		return sources.FinancialPayload{}, err
	}
	return sources.FinancialPayload{
		FinancialSeries: core.FinancialSeries{
			CapitalContributions:   contrib,
			OutstandingObligations: oblig,
		},
		Source:      "SQLite",
		LastUpdated: time.Now().UTC(),
	}, nil
}

func (r *SQLiteRepository) readSeries(ctx context.Context, series string) ([]core.SeriesPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT label, amount FROM series_points WHERE series = ? ORDER BY position`, series)
	if err != nil {
		return nil, fmt.Errorf("query %s series: %w", series, err)
	}
	defer rows.Close()

	out := []core.SeriesPoint{}
	for rows.Next() {
		var p core.SeriesPoint
		if err := rows.Scan(&p.Date, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan %s point: %w", series, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceFinancials rewrites both series in one transaction, keeping input order.
func (r *SQLiteRepository) ReplaceFinancials(ctx context.Context, fs core.FinancialSeries) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM series_points`); err != nil {
		return fmt.Errorf("clear series: %w", err)
	}
	insert := func(series string, points []core.SeriesPoint) error {
		for i, p := range points {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO series_points (series, position, label, amount) VALUES (?, ?, ?, ?)`,
				series, i, p.Date, p.Amount); err != nil {
				return fmt.Errorf("insert %s point %d: %w", series, i, err)
			}
		}
		return nil
	}
	if err := insert(seriesContributions, fs.CapitalContributions); err != nil {
		return err
	}
	if err := insert(seriesObligations, fs.OutstandingObligations); err != nil {
		return err
	}
	return tx.Commit()
}

// ReadLoanDetails implements sources.LoanReader
func (r *SQLiteRepository) ReadLoanDetails(ctx context.Context) (core.LoanDetails, error) {
	var (
		l                   core.LoanDetails
		principal, rate, ts string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT principal, interest_rate, status, source, last_updated FROM loan_details WHERE id = 1`).
		Scan(&principal, &rate, &l.Status, &l.Source, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LoanDetails{}, fmt.Errorf("loan details: %w", ErrNotFound)
	}
	if err != nil {
		return core.LoanDetails{}, fmt.Errorf("query loan details: %w", err)
	}
	if l.Principal, err = decimal.NewFromString(principal); err != nil {
		return core.LoanDetails{}, fmt.Errorf("parse principal %q: %w", principal, err)
	}
	if l.InterestRate, err = decimal.NewFromString(rate); err != nil {
		return core.LoanDetails{}, fmt.Errorf("parse interest rate %q: %w", rate, err)
	}
	l.LastUpdated, _ = time.Parse(time.RFC3339, ts)
	return l, nil
}

// SaveLoanDetails upserts the singleton loan record.
func (r *SQLiteRepository) SaveLoanDetails(ctx context.Context, l core.LoanDetails) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loan_details (id, principal, interest_rate, status, source, last_updated)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			principal = excluded.principal,
			interest_rate = excluded.interest_rate,
			status = excluded.status,
			source = excluded.source,
			last_updated = excluded.last_updated`,
		l.Principal.String(), l.InterestRate.String(), l.Status, l.Source, l.LastUpdated.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save loan details: %w", err)
	}
	return nil
}

// ReadCaseStatus implements sources.CaseStatusReader
func (r *SQLiteRepository) ReadCaseStatus(ctx context.Context) (core.CaseStatus, error) {
	var s core.CaseStatus
	err := r.db.QueryRowContext(ctx, `SELECT tro_days, legal_status FROM case_status WHERE id = 1`).
		Scan(&s.TRODays, &s.LegalStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CaseStatus{}, fmt.Errorf("case status: %w", ErrNotFound)
	}
	if err != nil {
		return core.CaseStatus{}, fmt.Errorf("query case status: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) SaveCaseStatus(ctx context.Context, s core.CaseStatus) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO case_status (id, tro_days, legal_status) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET tro_days = excluded.tro_days, legal_status = excluded.legal_status`,
		s.TRODays, s.LegalStatus)
	if err != nil {
		return fmt.Errorf("save case status: %w", err)
	}
	return nil
}

// ReadAnalysis implements sources.AnalysisReader
func (r *SQLiteRepository) ReadAnalysis(ctx context.Context, p core.Perspective) (core.POVAnalysis, error) {
	var (
		a                core.POVAnalysis
		findingsJSON, ts string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT analysis, strength_score, findings_json, source, last_updated FROM pov_analyses WHERE perspective = ?`,
		string(p)).Scan(&a.Analysis, &a.StrengthScore, &findingsJSON, &a.Source, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return core.POVAnalysis{}, fmt.Errorf("analysis %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return core.POVAnalysis{}, fmt.Errorf("query analysis %s: %w", p, err)
	}
	if err := json.Unmarshal([]byte(findingsJSON), &a.Findings); err != nil {
		return core.POVAnalysis{}, fmt.Errorf("decode findings for %s: %w", p, err)
	}
	a.Perspective = p
	a.LastUpdated, _ = time.Parse(time.RFC3339, ts)
	return a.Normalize(), nil
}

// SaveAnalysis upserts the analysis for a.Perspective.
func (r *SQLiteRepository) SaveAnalysis(ctx context.Context, a core.POVAnalysis) error {
	a = a.Normalize()
	findings := a.Findings
	if findings == nil {
		findings = []core.Finding{}
	}
	b, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pov_analyses (perspective, analysis, strength_score, findings_json, source, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(perspective) DO UPDATE SET
			analysis = excluded.analysis,
			strength_score = excluded.strength_score,
			findings_json = excluded.findings_json,
			source = excluded.source,
			last_updated = excluded.last_updated`,
		string(a.Perspective), a.Analysis, a.StrengthScore, string(b), a.Source, a.LastUpdated.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", a.Perspective, err)
	}
	return nil
}

// CountEvents returns the number of stored events.
func (r *SQLiteRepository) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
