package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS download_blobs (
	token        TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_type TEXT NOT NULL,
	payload      BYTEA NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL
)`
	createIndexQuery = `CREATE INDEX IF NOT EXISTS download_blobs_expires_at_idx ON download_blobs (expires_at)`
	insertQuery      = `INSERT INTO download_blobs (token, filename, content_type, payload, expires_at) VALUES ($1, $2, $3, $4, $5)`
	takeQuery        = `DELETE FROM download_blobs WHERE token = $1 AND expires_at > NOW() RETURNING filename, content_type, payload`
	revokeQuery      = `DELETE FROM download_blobs WHERE token = $1 AND expires_at > NOW()`
	purgeQuery       = `DELETE FROM download_blobs WHERE expires_at <= NOW()`
)

type blobRow struct {
	Filename    string `db:"filename"`
	ContentType string `db:"content_type"`
	Payload     []byte `db:"payload"`
}

// PostgresStore keeps blobs in a table; rows are deleted when taken and
// purged once expired
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
	stop   chan struct{}
	done   chan struct{}
}

// OpenPostgres connects, creates the table and starts the purge loop
func OpenPostgres(cfg PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := NewPostgresStore(db, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize blob table: %w", err)
	}

	interval := cfg.PurgeInterval
	if interval <= 0 {
		interval = time.Minute
	}
	store.startPurge(interval)

	logger.Info("Postgres blob store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Duration("purge_interval", interval))

	return store, nil
}

// NewPostgresStore wraps an existing connection without starting the purge loop
func NewPostgresStore(db *sqlx.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger, now: time.Now}
}

func (s *PostgresStore) initialize(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createTableQuery); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, createIndexQuery); err != nil {
		return err
	}
	return nil
}

// Put inserts a row that expires after ttl
func (s *PostgresStore) Put(ctx context.Context, b Blob, ttl time.Duration) (string, error) {
	token := newToken()
	expiresAt := s.now().Add(ttl).UTC()

	if _, err := s.db.ExecContext(ctx, insertQuery, token, b.Filename, b.ContentType, b.Data, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return token, nil
}

// Take deletes the row and returns its contents
func (s *PostgresStore) Take(ctx context.Context, token string) (Blob, error) {
	if !validToken(token) {
		return Blob{}, ErrNotFound
	}

	var row blobRow
	err := s.db.GetContext(ctx, &row, takeQuery, token)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("failed to take blob: %w", err)
	}

	return Blob{Filename: row.Filename, ContentType: row.ContentType, Data: row.Payload}, nil
}

// Revoke deletes the row
func (s *PostgresStore) Revoke(ctx context.Context, token string) error {
	if !validToken(token) {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, revokeQuery, token)
	if err != nil {
		return fmt.Errorf("failed to revoke blob: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke blob: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, purgeQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to purge blobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) startPurge(interval time.Duration) {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				n, err := s.Purge(ctx)
				cancel()
				if err != nil {
					s.logger.Warn("Blob purge failed", zap.Error(err))
				} else if n > 0 {
					s.logger.Debug("Expired blobs purged", zap.Int64("count", n))
				}
			}
		}
	}()
}

// Close stops the purge loop and closes the database
func (s *PostgresStore) Close() error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
	}
	return s.db.Close()
}

// maskDatabaseURL hides the password in a connection URL
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at == -1 {
		return url
	}
	creds := url[:at]
	colon := strings.LastIndex(creds, ":")
	if colon == -1 || colon < strings.Index(creds, "://")+3 {
		return url
	}
	return creds[:colon+1] + "***" + url[at:]
}
