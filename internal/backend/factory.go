package backend

import (
	"context"
	"fmt"

	"legalintel/internal/amqp"
	"legalintel/internal/core"
	"legalintel/internal/log"
	"legalintel/internal/sources"
	gsheet "legalintel/internal/sources/google"
	"legalintel/internal/sources/memory"
	"legalintel/internal/sources/remote"
	"legalintel/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	default:
		return f.createMemoryBackend(config)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewFromFile(config.FixtureFile)
	f.logger.Info("Initialized memory backend", "fixture", config.FixtureFile)
	return &BackendResult{
		Type:   MemoryBackend,
		Reader: store,
		Writer: store,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	seeded, err := repo.SeedIfEmpty(ctx, seedFromFixture(f.loadFixture(config.FixtureFile)))
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("seed SQLite repository: %w", err)
	}

	// AMQP is optional; without it the API writes events itself
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, writing events directly", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"seeded", seeded,
		"amqp_enabled", amqpClient != nil)

	res := &BackendResult{
		Type:   SQLiteBackend,
		Reader: repo,
		Writer: repo,
		Pinger: repo,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := repo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			if len(errs) > 0 {
				return fmt.Errorf("close sqlite backend: %v", errs)
			}
			return nil
		},
	}
	if amqpClient != nil {
		res.Publisher = amqpClient
	}
	return res, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		TimelineSheet:      config.GoogleTimelineSheet,
		FinancialsSheet:    config.GoogleFinancialsSheet,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &BackendResult{
		Type:   SheetsBackend,
		Reader: sheetsComposite{Client: cli, rest: memory.NewFromFile(config.FixtureFile)},
	}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	cli, err := remote.New(config.RemoteBaseURL, config.SourceTimeout)
	if err != nil {
		return nil, fmt.Errorf("initialize remote client: %w", err)
	}
	f.logger.Info("Initialized remote backend", "base_url", config.RemoteBaseURL)
	return &BackendResult{
		Type:   RemoteBackend,
		Reader: cli,
	}, nil
}

func (f *DefaultFactory) loadFixture(path string) memory.Fixture {
	if path == "" {
		return memory.DefaultFixture()
	}
	fx, err := memory.LoadFixture(path)
	if err != nil {
		f.logger.Warn("Fixture not loaded, seeding built-in data", "path", path, "error", err)
		return memory.DefaultFixture()
	}
	return fx
}

// seedFromFixture orders analyses by the perspective list so seeding is
// deterministic.
func seedFromFixture(fx memory.Fixture) storage.Seed {
	seed := storage.Seed{
		Events:     fx.Events,
		Loan:       fx.Loan,
		Status:     fx.Status,
		Financials: fx.Financials,
	}
	for _, o := range core.Perspectives() {
		if a, ok := fx.Analyses[o.ID]; ok {
			a.Perspective = o.ID
			seed.Analyses = append(seed.Analyses, a)
		}
	}
	return seed
}

var _ sources.Reader = sheetsComposite{}

// sheetsComposite reads timeline and financials from the spreadsheet and the
// remaining resources from the fixture.
type sheetsComposite struct {
	*gsheet.Client
	rest *memory.Store
}

func (c sheetsComposite) ReadLoanDetails(ctx context.Context) (core.LoanDetails, error) {
	return c.rest.ReadLoanDetails(ctx)
}

func (c sheetsComposite) ReadCaseStatus(ctx context.Context) (core.CaseStatus, error) {
	return c.rest.ReadCaseStatus(ctx)
}

func (c sheetsComposite) ReadAnalysis(ctx context.Context, p core.Perspective) (core.POVAnalysis, error) {
	return c.rest.ReadAnalysis(ctx, p)
}
