package dbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

// Page content is kept as a JSON string: free-form props would otherwise
// decode back as bson.D instead of plain maps.
type pageDoc struct {
	ID          string    `bson:"_id"`
	Slug        string    `bson:"slug"`
	Title       string    `bson:"title"`
	ContentJSON string    `bson:"contentJson"`
	Published   bool      `bson:"published"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type productDoc struct {
	ID           string    `bson:"_id"`
	Slug         string    `bson:"slug"`
	Name         string    `bson:"name"`
	Description  string    `bson:"description"`
	PriceCents   int64     `bson:"priceCents"`
	Currency     string    `bson:"currency"`
	ImageURL     string    `bson:"imageUrl"`
	AffiliateURL string    `bson:"affiliateUrl"`
	Category     string    `bson:"category"`
	Featured     bool      `bson:"featured"`
	Active       bool      `bson:"active"`
	SortOrder    int       `bson:"sortOrder"`
	ClickCount   int64     `bson:"clickCount"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type clickDoc struct {
	ID        string    `bson:"_id"`
	ProductID string    `bson:"productId"`
	Referrer  string    `bson:"referrer"`
	UserAgent string    `bson:"userAgent"`
	RolledUp  bool      `bson:"rolledUp"`
	CreatedAt time.Time `bson:"createdAt"`
}

type contentDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type navDoc struct {
	ID        string `bson:"_id"`
	Label     string `bson:"label"`
	Href      string `bson:"href"`
	SortOrder int    `bson:"sortOrder"`
	External  bool   `bson:"external"`
	Visible   bool   `bson:"visible"`
}

type subscriberDoc struct {
	Email     string    `bson:"_id"`
	Source    string    `bson:"source"`
	Synced    bool      `bson:"synced"`
	CreatedAt time.Time `bson:"createdAt"`
}

type approvalDoc struct {
	ID          string    `bson:"_id"`
	Tool        string    `bson:"tool"`
	Description string    `bson:"description"`
	Status      string    `bson:"status"`
	Metadata    string    `bson:"metadata"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type historyDoc struct {
	PageID  string   `bson:"_id"`
	Entries []string `bson:"entries"`
	Cursor  int      `bson:"cursor"`
	Dirty   bool     `bson:"dirty"`
}

func mongoNotFound(err error, what, key string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", what, key, domain.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func matched(n int64, what, key string) error {
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, key, domain.ErrNotFound)
	}
	return nil
}

func decodeAll[D any, T any](ctx context.Context, cur *mongo.Cursor, conv func(D) (T, error)) ([]T, error) {
	defer cur.Close(ctx)
	var out []T
	for cur.Next(ctx) {
		var d D
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		v, err := conv(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

// ─────────────────────────────────────────────────────────────
// Pages
// ─────────────────────────────────────────────────────────────

func toPageDoc(p *domain.Page) (pageDoc, error) {
	raw, err := json.Marshal(p.Content)
	if err != nil {
		return pageDoc{}, fmt.Errorf("encode page content: %w", err)
	}
	return pageDoc{
		ID: p.ID, Slug: p.Slug, Title: p.Title, ContentJSON: string(raw),
		Published: p.Published, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}, nil
}

func fromPageDoc(d pageDoc) (domain.Page, error) {
	p := domain.Page{
		ID: d.ID, Slug: d.Slug, Title: d.Title, Published: d.Published,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(d.ContentJSON), &p.Content); err != nil {
		return p, fmt.Errorf("decode page %s content: %w", d.ID, err)
	}
	if p.Content.Elements == nil {
		p.Content.Elements = []domain.PageElement{}
	}
	return p, nil
}

func (m *MongoStore) CreatePage(ctx context.Context, p *domain.Page) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	doc, err := toPageDoc(p)
	if err != nil {
		return err
	}
	if _, err := m.coll(collPages).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (m *MongoStore) findPage(ctx context.Context, filter bson.D, key string) (*domain.Page, error) {
	var d pageDoc
	if err := m.coll(collPages).FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mongoNotFound(err, "page", key)
	}
	p, err := fromPageDoc(d)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *MongoStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	return m.findPage(ctx, bson.D{{Key: "_id", Value: id}}, id)
}

func (m *MongoStore) GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	return m.findPage(ctx, bson.D{{Key: "slug", Value: slug}}, slug)
}

func (m *MongoStore) ListPages(ctx context.Context) ([]domain.Page, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "slug", Value: 1}})
	cur, err := m.coll(collPages).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return decodeAll(ctx, cur, fromPageDoc)
}

func (m *MongoStore) UpdatePage(ctx context.Context, p *domain.Page) error {
	p.UpdatedAt = time.Now().UTC()
	doc, err := toPageDoc(p)
	if err != nil {
		return err
	}
	res, err := m.coll(collPages).UpdateOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "slug", Value: doc.Slug},
		{Key: "title", Value: doc.Title},
		{Key: "contentJson", Value: doc.ContentJSON},
		{Key: "published", Value: doc.Published},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return matched(res.MatchedCount, "page", p.ID)
}

func (m *MongoStore) DeletePage(ctx context.Context, id string) error {
	res, err := m.coll(collPages).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return matched(res.DeletedCount, "page", id)
}

// ─────────────────────────────────────────────────────────────
// Page history
// ─────────────────────────────────────────────────────────────

// MongoHistoryStore keeps one document per page holding the whole buffer.
type MongoHistoryStore struct {
	m          *MongoStore
	maxEntries int
}

func (h *MongoHistoryStore) LoadHistory(ctx context.Context, pageID string) (*domain.HistoryState, error) {
	var d historyDoc
	err := h.m.coll(collHistory).FindOne(ctx, bson.D{{Key: "_id", Value: pageID}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(d.Entries) == 0 {
		return nil, nil
	}
	state := &domain.HistoryState{Cursor: d.Cursor, Dirty: d.Dirty}
	for _, raw := range d.Entries {
		var c domain.PageContent
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		state.Entries = append(state.Entries, c)
	}
	if state.Cursor < 0 || state.Cursor >= len(state.Entries) {
		state.Cursor = len(state.Entries) - 1
	}
	return state, nil
}

func (h *MongoHistoryStore) SaveHistory(ctx context.Context, pageID string, state domain.HistoryState) error {
	entries, cursor := state.Entries, state.Cursor
	if h.maxEntries > 0 && len(entries) > h.maxEntries {
		drop := len(entries) - h.maxEntries
		entries = entries[drop:]
		cursor -= drop
	}
	if cursor < 0 {
		cursor = 0
	}
	d := historyDoc{PageID: pageID, Cursor: cursor, Dirty: state.Dirty, Entries: make([]string, len(entries))}
	for i, c := range entries {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		d.Entries[i] = string(raw)
	}
	_, err := h.m.coll(collHistory).ReplaceOne(ctx, bson.D{{Key: "_id", Value: pageID}}, d,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// RecordHistory updates the buffer in place with an update pipeline:
// keep entries up to the cursor, append entry, trim, point at the end.
func (h *MongoHistoryStore) RecordHistory(ctx context.Context, pageID string, entry domain.PageContent, dirty bool) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	kept := bson.D{{Key: "$slice", Value: bson.A{
		bson.D{{Key: "$ifNull", Value: bson.A{"$entries", bson.A{}}}},
		bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$cursor", -1}}}, 1}}},
	}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "entries", Value: bson.D{{Key: "$concatArrays", Value: bson.A{kept, bson.A{string(raw)}}}}}}}},
	}
	if h.maxEntries > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: bson.D{
			{Key: "entries", Value: bson.D{{Key: "$slice", Value: bson.A{"$entries", -h.maxEntries}}}},
		}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$set", Value: bson.D{
		{Key: "cursor", Value: bson.D{{Key: "$subtract", Value: bson.A{bson.D{{Key: "$size", Value: "$entries"}}, 1}}}},
		{Key: "dirty", Value: dirty},
	}}})
	_, err = h.m.coll(collHistory).UpdateOne(ctx, bson.D{{Key: "_id", Value: pageID}}, pipeline,
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

func (h *MongoHistoryStore) MoveHistoryCursor(ctx context.Context, pageID string, delta int, dirty bool) error {
	last := bson.D{{Key: "$subtract", Value: bson.A{bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$entries", bson.A{}}}}}}, 1}}}
	moved := bson.D{{Key: "$add", Value: bson.A{"$cursor", delta}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "cursor", Value: bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$min", Value: bson.A{moved, last}}}}}}},
			{Key: "dirty", Value: dirty},
		}}},
	}
	if _, err := h.m.coll(collHistory).UpdateOne(ctx, bson.D{{Key: "_id", Value: pageID}}, pipeline); err != nil {
		return fmt.Errorf("move history cursor: %w", err)
	}
	return nil
}

func (h *MongoHistoryStore) ClearHistory(ctx context.Context, pageID string) error {
	if _, err := h.m.coll(collHistory).DeleteOne(ctx, bson.D{{Key: "_id", Value: pageID}}); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────
// Products and clicks
// ─────────────────────────────────────────────────────────────

func toProductDoc(p *domain.Product) productDoc {
	return productDoc{
		ID: p.ID, Slug: p.Slug, Name: p.Name, Description: p.Description,
		PriceCents: p.PriceCents, Currency: p.Currency, ImageURL: p.ImageURL, AffiliateURL: p.AffiliateURL,
		Category: p.Category, Featured: p.Featured, Active: p.Active, SortOrder: p.SortOrder,
		ClickCount: p.ClickCount, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func fromProductDoc(d productDoc) (domain.Product, error) {
	return domain.Product{
		ID: d.ID, Slug: d.Slug, Name: d.Name, Description: d.Description,
		PriceCents: d.PriceCents, Currency: d.Currency, ImageURL: d.ImageURL, AffiliateURL: d.AffiliateURL,
		Category: d.Category, Featured: d.Featured, Active: d.Active, SortOrder: d.SortOrder,
		ClickCount: d.ClickCount, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

func (m *MongoStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := m.coll(collProducts).InsertOne(ctx, toProductDoc(p)); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *MongoStore) findProduct(ctx context.Context, filter bson.D, key string) (*domain.Product, error) {
	var d productDoc
	if err := m.coll(collProducts).FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mongoNotFound(err, "product", key)
	}
	p, _ := fromProductDoc(d)
	return &p, nil
}

func (m *MongoStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return m.findProduct(ctx, bson.D{{Key: "_id", Value: id}}, id)
}

func (m *MongoStore) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return m.findProduct(ctx, bson.D{{Key: "slug", Value: slug}}, slug)
}

// productFilter translates a ProductFilter into a query document.
func productFilter(f domain.ProductFilter) bson.D {
	filter := bson.D{}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.FeaturedOnly {
		filter = append(filter, bson.E{Key: "featured", Value: true})
	}
	if f.ActiveOnly {
		filter = append(filter, bson.E{Key: "active", Value: true})
	}
	return filter
}

func (m *MongoStore) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})
	cur, err := m.coll(collProducts).Find(ctx, productFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return decodeAll(ctx, cur, fromProductDoc)
}

func (m *MongoStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := m.coll(collProducts).UpdateOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "slug", Value: p.Slug},
		{Key: "name", Value: p.Name},
		{Key: "description", Value: p.Description},
		{Key: "priceCents", Value: p.PriceCents},
		{Key: "currency", Value: p.Currency},
		{Key: "imageUrl", Value: p.ImageURL},
		{Key: "affiliateUrl", Value: p.AffiliateURL},
		{Key: "category", Value: p.Category},
		{Key: "featured", Value: p.Featured},
		{Key: "active", Value: p.Active},
		{Key: "sortOrder", Value: p.SortOrder},
		{Key: "updatedAt", Value: p.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return matched(res.MatchedCount, "product", p.ID)
}

func (m *MongoStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := m.coll(collProducts).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if err := matched(res.DeletedCount, "product", id); err != nil {
		return err
	}
	if _, err := m.coll(collClicks).DeleteMany(ctx, bson.D{{Key: "productId", Value: id}}); err != nil {
		return fmt.Errorf("delete product clicks: %w", err)
	}
	return nil
}

func (m *MongoStore) RecordClick(ctx context.Context, c *domain.Click) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := m.coll(collClicks).InsertOne(ctx, clickDoc{
		ID: c.ID, ProductID: c.ProductID, Referrer: c.Referrer, UserAgent: c.UserAgent,
		RolledUp: c.RolledUp, CreatedAt: c.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

func (m *MongoStore) ClickStats(ctx context.Context, productID string) (*domain.ClickStats, error) {
	p, err := m.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	pending, err := m.coll(collClicks).CountDocuments(ctx, bson.D{
		{Key: "productId", Value: productID},
		{Key: "rolledUp", Value: false},
	})
	if err != nil {
		return nil, fmt.Errorf("count pending clicks: %w", err)
	}
	return &domain.ClickStats{ProductID: productID, Pending: pending, Total: p.ClickCount + pending}, nil
}

// RollupClicks folds pending clicks into products. Without a replica set
// there are no transactions, so counts are folded first and clicks marked
// after; a crash in between double-counts at most one batch.
func (m *MongoStore) RollupClicks(ctx context.Context) (int64, error) {
	pendingUpTo := bson.D{
		{Key: "rolledUp", Value: false},
		{Key: "createdAt", Value: bson.D{{Key: "$lte", Value: time.Now().UTC()}}},
	}
	cur, err := m.coll(collClicks).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: pendingUpTo}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$productId"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return 0, fmt.Errorf("aggregate pending clicks: %w", err)
	}
	type group struct {
		ProductID string `bson:"_id"`
		N         int64  `bson:"n"`
	}
	groups, err := decodeAll(ctx, cur, func(g group) (group, error) { return g, nil })
	if err != nil {
		return 0, fmt.Errorf("decode pending clicks: %w", err)
	}

	var total int64
	for _, g := range groups {
		_, err := m.coll(collProducts).UpdateOne(ctx,
			bson.D{{Key: "_id", Value: g.ProductID}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "clickCount", Value: g.N}}}},
		)
		if err != nil {
			return total, fmt.Errorf("fold clicks into %s: %w", g.ProductID, err)
		}
		total += g.N
	}
	if _, err := m.coll(collClicks).UpdateMany(ctx, pendingUpTo,
		bson.D{{Key: "$set", Value: bson.D{{Key: "rolledUp", Value: true}}}}); err != nil {
		return total, fmt.Errorf("mark clicks rolled up: %w", err)
	}
	if total > 0 {
		m.log.Debug("clicks rolled up", zap.Int64("clicks", total))
	}
	return total, nil
}

func (m *MongoStore) PruneClicks(ctx context.Context, before time.Time) (int64, error) {
	res, err := m.coll(collClicks).DeleteMany(ctx, bson.D{
		{Key: "rolledUp", Value: true},
		{Key: "createdAt", Value: bson.D{{Key: "$lt", Value: before.UTC()}}},
	})
	if err != nil {
		return 0, fmt.Errorf("prune clicks: %w", err)
	}
	return res.DeletedCount, nil
}

// ─────────────────────────────────────────────────────────────
// Content and navigation
// ─────────────────────────────────────────────────────────────

func (m *MongoStore) ListContent(ctx context.Context) ([]domain.ContentEntry, error) {
	cur, err := m.coll(collContent).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return decodeAll(ctx, cur, func(d contentDoc) (domain.ContentEntry, error) {
		return domain.ContentEntry{Key: d.Key, Value: d.Value, UpdatedAt: d.UpdatedAt}, nil
	})
}

func (m *MongoStore) UpsertContent(ctx context.Context, e *domain.ContentEntry) error {
	e.UpdatedAt = time.Now().UTC()
	_, err := m.coll(collContent).ReplaceOne(ctx, bson.D{{Key: "_id", Value: e.Key}},
		contentDoc{Key: e.Key, Value: e.Value, UpdatedAt: e.UpdatedAt},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert content: %w", err)
	}
	return nil
}

func (m *MongoStore) DeleteContent(ctx context.Context, key string) error {
	res, err := m.coll(collContent).DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return matched(res.DeletedCount, "content", key)
}

func fromNavDoc(d navDoc) (domain.NavLink, error) {
	return domain.NavLink{
		ID: d.ID, Label: d.Label, Href: d.Href, SortOrder: d.SortOrder,
		External: d.External, Visible: d.Visible,
	}, nil
}

func toNavDoc(l *domain.NavLink) navDoc {
	return navDoc{
		ID: l.ID, Label: l.Label, Href: l.Href, SortOrder: l.SortOrder,
		External: l.External, Visible: l.Visible,
	}
}

func (m *MongoStore) ListNavLinks(ctx context.Context) ([]domain.NavLink, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "label", Value: 1}})
	cur, err := m.coll(collNavLinks).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list nav links: %w", err)
	}
	return decodeAll(ctx, cur, fromNavDoc)
}

func (m *MongoStore) GetNavLink(ctx context.Context, id string) (*domain.NavLink, error) {
	var d navDoc
	if err := m.coll(collNavLinks).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d); err != nil {
		return nil, mongoNotFound(err, "nav link", id)
	}
	l, _ := fromNavDoc(d)
	return &l, nil
}

func (m *MongoStore) CreateNavLink(ctx context.Context, l *domain.NavLink) error {
	if _, err := m.coll(collNavLinks).InsertOne(ctx, toNavDoc(l)); err != nil {
		return fmt.Errorf("insert nav link: %w", err)
	}
	return nil
}

func (m *MongoStore) UpdateNavLink(ctx context.Context, l *domain.NavLink) error {
	res, err := m.coll(collNavLinks).ReplaceOne(ctx, bson.D{{Key: "_id", Value: l.ID}}, toNavDoc(l))
	if err != nil {
		return fmt.Errorf("update nav link: %w", err)
	}
	return matched(res.MatchedCount, "nav link", l.ID)
}

func (m *MongoStore) DeleteNavLink(ctx context.Context, id string) error {
	res, err := m.coll(collNavLinks).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete nav link: %w", err)
	}
	return matched(res.DeletedCount, "nav link", id)
}

// ─────────────────────────────────────────────────────────────
// Subscribers
// ─────────────────────────────────────────────────────────────

func fromSubscriberDoc(d subscriberDoc) (domain.Subscriber, error) {
	return domain.Subscriber{Email: d.Email, Source: d.Source, Synced: d.Synced, CreatedAt: d.CreatedAt}, nil
}

func (m *MongoStore) AddSubscriber(ctx context.Context, s *domain.Subscriber) (bool, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := m.coll(collSubscribers).InsertOne(ctx, subscriberDoc{
		Email: s.Email, Source: s.Source, Synced: s.Synced, CreatedAt: s.CreatedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert subscriber: %w", err)
	}
	return true, nil
}

func (m *MongoStore) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.coll(collSubscribers).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return decodeAll(ctx, cur, fromSubscriberDoc)
}

func (m *MongoStore) ListUnsynced(ctx context.Context, limit int) ([]domain.Subscriber, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := m.coll(collSubscribers).Find(ctx, bson.D{{Key: "synced", Value: false}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list unsynced subscribers: %w", err)
	}
	return decodeAll(ctx, cur, fromSubscriberDoc)
}

func (m *MongoStore) MarkSynced(ctx context.Context, email string) error {
	res, err := m.coll(collSubscribers).UpdateOne(ctx, bson.D{{Key: "_id", Value: email}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "synced", Value: true}}}})
	if err != nil {
		return fmt.Errorf("mark subscriber synced: %w", err)
	}
	return matched(res.MatchedCount, "subscriber", email)
}

// ─────────────────────────────────────────────────────────────
// Approvals
// ─────────────────────────────────────────────────────────────

func fromApprovalDoc(d approvalDoc) (domain.Approval, error) {
	return domain.Approval{
		ID: d.ID, Tool: d.Tool, Description: d.Description,
		Status: domain.ApprovalStatus(d.Status), Metadata: d.Metadata, CreatedAt: d.CreatedAt,
	}, nil
}

func (m *MongoStore) CreateApproval(ctx context.Context, a *domain.Approval) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = domain.ApprovalPending
	}
	_, err := m.coll(collApprovals).InsertOne(ctx, approvalDoc{
		ID: a.ID, Tool: a.Tool, Description: a.Description,
		Status: string(a.Status), Metadata: a.Metadata, CreatedAt: a.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

func (m *MongoStore) GetApproval(ctx context.Context, id string) (*domain.Approval, error) {
	var d approvalDoc
	if err := m.coll(collApprovals).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d); err != nil {
		return nil, mongoNotFound(err, "approval", id)
	}
	a, _ := fromApprovalDoc(d)
	return &a, nil
}

func (m *MongoStore) ListPendingApprovals(ctx context.Context) ([]domain.Approval, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	filter := bson.D{{Key: "status", Value: string(domain.ApprovalPending)}}
	cur, err := m.coll(collApprovals).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return decodeAll(ctx, cur, fromApprovalDoc)
}

func (m *MongoStore) SetApprovalStatus(ctx context.Context, id string, status domain.ApprovalStatus) error {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: string(domain.ApprovalPending)}}
	res, err := m.coll(collApprovals).UpdateOne(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(status)}}}})
	if err != nil {
		return fmt.Errorf("update approval: %w", err)
	}
	return matched(res.MatchedCount, "approval", id)
}

func (m *MongoStore) DeleteApproval(ctx context.Context, id string) error {
	if _, err := m.coll(collApprovals).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete approval: %w", err)
	}
	return nil
}

var (
	_ domain.ApprovalStore   = (*MongoStore)(nil)
	_ domain.PageStore       = (*MongoStore)(nil)
	_ domain.ProductStore    = (*MongoStore)(nil)
	_ domain.ClickStore      = (*MongoStore)(nil)
	_ domain.ContentStore    = (*MongoStore)(nil)
	_ domain.SubscriberStore = (*MongoStore)(nil)
	_ domain.HistoryStore    = (*MongoHistoryStore)(nil)
)
