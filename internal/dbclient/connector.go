package dbclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/storage"
)

// Backend bundles the domain stores served by one database.
type Backend struct {
	Driver      domain.DatabaseDriver
	Pages       domain.PageStore
	History     domain.HistoryStore
	Products    domain.ProductStore
	Clicks      domain.ClickStore
	Content     domain.ContentStore
	Subscribers domain.SubscriberStore
	Approvals   domain.ApprovalStore

	ping  func(ctx context.Context) error
	close func() error
}

// Ping verifies the backing database is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases the database connection.
func (b *Backend) Close() error {
	return b.close()
}

// Options tune the stores built by Connect.
type Options struct {
	HistoryLimit int
	Logger       *zap.Logger
}

// Connect opens the database described by conn and returns its stores.
// The password must be provided separately (from SecretStore).
func Connect(ctx context.Context, conn *domain.DatabaseConnection, password string, opts Options) (*Backend, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		return openSQL(conn.Driver, conn.Host, opts)
	case domain.DatabaseDriverMySQL:
		return openSQL(conn.Driver, buildMySQLDSN(conn, password), opts)
	case domain.DatabaseDriverPostgres:
		return openSQL(conn.Driver, buildPostgresDSN(conn, password), opts)
	case domain.DatabaseDriverMongoDB:
		m, err := NewMongoStore(ctx, conn, password, log.Named("mongo"))
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver:      conn.Driver,
			Pages:       m,
			History:     m.History(opts.HistoryLimit),
			Products:    m,
			Clicks:      m,
			Content:     m,
			Subscribers: m,
			Approvals:   m,
			ping:        m.Ping,
			close:       func() error { return m.Close(context.Background()) },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}

func openSQL(driver domain.DatabaseDriver, dsn string, opts Options) (*Backend, error) {
	db, err := storage.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Driver:      driver,
		Pages:       storage.NewPageStore(db),
		History:     storage.NewHistoryStore(db, opts.HistoryLimit),
		Products:    storage.NewProductStore(db),
		Clicks:      storage.NewClickStore(db),
		Content:     storage.NewContentStore(db),
		Subscribers: storage.NewSubscriberStore(db),
		Approvals:   storage.NewApprovalStore(db),
		ping:        db.Ping,
		close:       db.Close,
	}, nil
}
