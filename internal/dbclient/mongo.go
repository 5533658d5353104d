package dbclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

const (
	collPages       = "pages"
	collHistory     = "page_history"
	collProducts    = "products"
	collClicks      = "clicks"
	collContent     = "site_content"
	collNavLinks    = "nav_links"
	collSubscribers = "subscribers"
	collApprovals   = "mcp_approvals"
)

// MongoStore implements the domain stores on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger
}

// buildMongoURI returns the connection URI and the database name for conn.
func buildMongoURI(conn *domain.DatabaseConnection, password string) (uri, dbName string) {
	// A full connection string (Atlas mongodb+srv:// or standard mongodb://)
	// is used as is; otherwise the URI is built from host:port.
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri = conn.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", url.QueryEscape(password))
			uri = strings.ReplaceAll(uri, "<db_password>", url.QueryEscape(password))
		}
	} else {
		port := conn.Port
		if port == 0 {
			port = 27017
		}
		if conn.Username != "" {
			uri = fmt.Sprintf("mongodb://%s@%s:%d",
				url.UserPassword(conn.Username, password).String(), conn.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
		}
		if len(conn.Extra) > 0 {
			params := url.Values{}
			for _, k := range sortedKeys(conn.Extra) {
				params.Set(k, conn.Extra[k])
			}
			uri += "/?" + params.Encode()
		}
	}

	dbName = conn.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	if dbName == "" {
		dbName = "storefront"
	}
	return uri, dbName
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return ""
	}
	path := rest[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

// NewMongoStore connects to MongoDB and ensures the indexes the stores
// rely on exist.
func NewMongoStore(ctx context.Context, conn *domain.DatabaseConnection, password string, log *zap.Logger) (*MongoStore, error) {
	uri, dbName := buildMongoURI(conn, password)

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, url.QueryEscape(password), "***")
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Info("connecting", zap.String("uri", logURI), zap.String("database", dbName))

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	m := &MongoStore{client: client, db: client.Database(dbName), log: log}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{collPages, mongo.IndexModel{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique}},
		{collProducts, mongo.IndexModel{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique}},
		{collProducts, mongo.IndexModel{Keys: bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}}}},
		{collClicks, mongo.IndexModel{Keys: bson.D{{Key: "productId", Value: 1}}}},
		{collClicks, mongo.IndexModel{Keys: bson.D{{Key: "rolledUp", Value: 1}, {Key: "createdAt", Value: 1}}}},
		{collSubscribers, mongo.IndexModel{Keys: bson.D{{Key: "synced", Value: 1}}}},
		{collApprovals, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}}},
	}
	for _, ix := range indexes {
		if _, err := m.db.Collection(ix.coll).Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("create index on %s: %w", ix.coll, err)
		}
	}
	return nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) coll(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// History returns the page-history store backed by the same database.
func (m *MongoStore) History(maxEntries int) *MongoHistoryStore {
	return &MongoHistoryStore{m: m, maxEntries: maxEntries}
}
