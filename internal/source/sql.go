package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	_ "github.com/jackc/pgx/v5/stdlib"                  // "pgx" driver
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver

	"porschevents/internal/log"
	"porschevents/internal/model"
)

// ErrDuplicateEmail is returned by CreateUser when the email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	tableEvents = "events"
	tableUsers  = "users"

	dialectSQLite   = "sqlite3"
	dialectPostgres = "postgres"
)

// SQL is a Source backed by a relational database. SQLite and Postgres
// are supported.
type SQL struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	name    string
}

// OpenSQL connects to the database. driver is "sqlite3" or one of
// "pgx"/"postgres".
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	var sqlDriver, dialect string
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3", "":
		sqlDriver, dialect = "sqlite3", dialectSQLite
	case "pgx", "postgres", "postgresql":
		sqlDriver, dialect = "pgx", dialectPostgres
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", sqlDriver, err)
	}
	if dialect == dialectSQLite {
		// An in-memory database exists per connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", sqlDriver, err)
	}
	return NewSQL(db, dialect), nil
}

// NewSQL wraps an existing connection. dialect is a goqu dialect name.
func NewSQL(db *sqlx.DB, dialect string) *SQL {
	return &SQL{db: db, dialect: goqu.Dialect(dialect), name: dialect}
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) schema() []string {
	seq, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if s.name == dialectPostgres {
		seq, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq ` + seq + `,
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			location TEXT NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			start_date ` + ts + ` NOT NULL,
			end_date ` + ts + ` NOT NULL,
			category TEXT NOT NULL,
			event_type TEXT NOT NULL,
			organizer_id TEXT NOT NULL,
			max_attendees INTEGER,
			current_attendees INTEGER NOT NULL DEFAULT 0,
			is_free BOOLEAN NOT NULL,
			ticket_price DOUBLE PRECISION,
			image_urls TEXT NOT NULL,
			tags TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			seq ` + seq + `,
			id TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			profile_image_url TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			preferences TEXT NOT NULL,
			is_verified BOOLEAN NOT NULL,
			is_admin BOOLEAN NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
	}
}

// Migrate creates the tables when they do not exist yet.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Seed inserts the fixture catalogue and users. Rows whose id already
// exists are left alone, so seeding twice is harmless.
func (s *SQL) Seed(ctx context.Context, fx *Fixture) error {
	events, err := fx.ListEvents(ctx)
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := s.InsertEvent(ctx, e); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}
	for _, u := range fx.Users() {
		rec, err := userRecord(u)
		if err != nil {
			return err
		}
		if err := s.insert(ctx, tableUsers, rec, true); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	log.Info("sql source seeded", "events", len(events), "dialect", s.name)
	return nil
}

// InsertEvent stores an event after validating it. An event whose id
// is already stored is left as it is.
func (s *SQL) InsertEvent(ctx context.Context, e model.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.insert(ctx, tableEvents, eventRecord(e), true)
}

func (s *SQL) insert(ctx context.Context, table string, rec goqu.Record, ignoreConflict bool) error {
	ds := s.dialect.Insert(table).Rows(rec).Prepared(true)
	if ignoreConflict {
		ds = ds.OnConflict(goqu.DoNothing())
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", table, err)
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

type eventRow struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	Description      string    `db:"description"`
	Location         string    `db:"location"`
	Latitude         *float64  `db:"latitude"`
	Longitude        *float64  `db:"longitude"`
	StartDate        time.Time `db:"start_date"`
	EndDate          time.Time `db:"end_date"`
	Category         string    `db:"category"`
	EventType        string    `db:"event_type"`
	OrganizerID      string    `db:"organizer_id"`
	MaxAttendees     *int      `db:"max_attendees"`
	CurrentAttendees int       `db:"current_attendees"`
	IsFree           bool      `db:"is_free"`
	TicketPrice      *float64  `db:"ticket_price"`
	ImageURLs        string    `db:"image_urls"`
	Tags             string    `db:"tags"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

var eventColumns = []interface{}{
	"id", "title", "description", "location", "latitude", "longitude",
	"start_date", "end_date", "category", "event_type", "organizer_id",
	"max_attendees", "current_attendees", "is_free", "ticket_price",
	"image_urls", "tags", "status", "created_at", "updated_at",
}

func eventRecord(e model.Event) goqu.Record {
	images, _ := json.MarshalToString(nonNil(e.ImageURLs))
	tags, _ := json.MarshalToString(nonNil(e.Tags))
	return goqu.Record{
		"id":                e.ID,
		"title":             e.Title,
		"description":       e.Description,
		"location":          e.Location,
		"latitude":          orNull(e.Latitude),
		"longitude":         orNull(e.Longitude),
		"start_date":        e.StartDate.UTC(),
		"end_date":          e.EndDate.UTC(),
		"category":          string(e.Category),
		"event_type":        string(e.EventType),
		"organizer_id":      e.OrganizerID,
		"max_attendees":     orNull(e.MaxAttendees),
		"current_attendees": e.CurrentAttendees,
		"is_free":           e.IsFree,
		"ticket_price":      orNull(e.TicketPrice),
		"image_urls":        images,
		"tags":              tags,
		"status":            string(e.Status),
		"created_at":        e.CreatedAt.UTC(),
		"updated_at":        e.UpdatedAt.UTC(),
	}
}

func (r eventRow) event() (model.Event, error) {
	e := model.Event{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		Location:         r.Location,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		StartDate:        r.StartDate.UTC(),
		EndDate:          r.EndDate.UTC(),
		Category:         model.Category(r.Category),
		EventType:        model.EventType(r.EventType),
		OrganizerID:      r.OrganizerID,
		MaxAttendees:     r.MaxAttendees,
		CurrentAttendees: r.CurrentAttendees,
		IsFree:           r.IsFree,
		TicketPrice:      r.TicketPrice,
		Status:           model.Status(r.Status),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if err := json.UnmarshalFromString(r.ImageURLs, &e.ImageURLs); err != nil {
		return model.Event{}, fmt.Errorf("event %s image_urls: %w", r.ID, err)
	}
	if err := json.UnmarshalFromString(r.Tags, &e.Tags); err != nil {
		return model.Event{}, fmt.Errorf("event %s tags: %w", r.ID, err)
	}
	return e, nil
}

// ListEvents returns every event in insertion order.
func (s *SQL) ListEvents(ctx context.Context) ([]model.Event, error) {
	query, args, err := s.dialect.From(tableEvents).
		Select(eventColumns...).
		Order(goqu.C("seq").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select events: %w", err)
	}

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrUnavailable, err)
	}

	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.event()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type userRow struct {
	ID              string    `db:"id"`
	Email           string    `db:"email"`
	PasswordHash    string    `db:"password_hash"`
	FirstName       string    `db:"first_name"`
	LastName        string    `db:"last_name"`
	ProfileImageURL string    `db:"profile_image_url"`
	Bio             string    `db:"bio"`
	Location        string    `db:"location"`
	Preferences     string    `db:"preferences"`
	IsVerified      bool      `db:"is_verified"`
	IsAdmin         bool      `db:"is_admin"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

var userColumns = []interface{}{
	"id", "email", "password_hash", "first_name", "last_name",
	"profile_image_url", "bio", "location", "preferences",
	"is_verified", "is_admin", "created_at", "updated_at",
}

func userRecord(u model.User) (goqu.Record, error) {
	prefs, err := json.MarshalToString(u.Preferences)
	if err != nil {
		return nil, fmt.Errorf("user %s preferences: %w", u.ID, err)
	}
	return goqu.Record{
		"id":                u.ID,
		"email":             strings.ToLower(u.Email),
		"password_hash":     u.PasswordHash,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"profile_image_url": u.ProfileImageURL,
		"bio":               u.Bio,
		"location":          u.Location,
		"preferences":       prefs,
		"is_verified":       u.IsVerified,
		"is_admin":          u.IsAdmin,
		"created_at":        u.CreatedAt.UTC(),
		"updated_at":        u.UpdatedAt.UTC(),
	}, nil
}

func (r userRow) user() (model.User, error) {
	u := model.User{
		ID:              r.ID,
		Email:           r.Email,
		PasswordHash:    r.PasswordHash,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		ProfileImageURL: r.ProfileImageURL,
		Bio:             r.Bio,
		Location:        r.Location,
		IsVerified:      r.IsVerified,
		IsAdmin:         r.IsAdmin,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if err := json.UnmarshalFromString(r.Preferences, &u.Preferences); err != nil {
		return model.User{}, fmt.Errorf("user %s preferences: %w", r.ID, err)
	}
	return u, nil
}

// FindUserByEmail matches emails case-insensitively. Emails are stored
// lower-cased.
func (s *SQL) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query, args, err := s.dialect.From(tableUsers).
		Select(userColumns...).
		Where(goqu.C("email").Eq(strings.ToLower(strings.TrimSpace(email)))).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	var row userRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find user: %v", ErrUnavailable, err)
	}
	u, err := row.user()
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser persists a newly registered user.
func (s *SQL) CreateUser(ctx context.Context, u model.User) error {
	existing, err := s.FindUserByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateEmail
	}
	rec, err := userRecord(u)
	if err != nil {
		return err
	}
	if err := s.insert(ctx, tableUsers, rec, false); err != nil {
		return fmt.Errorf("%w: create user: %v", ErrUnavailable, err)
	}
	return nil
}

// orNull turns a nil pointer into SQL NULL.
func orNull[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
