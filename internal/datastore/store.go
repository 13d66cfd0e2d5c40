// Package datastore provides SQL-backed observation logs using GORM.
// SQLite and MySQL backends implement the same observation.Log contract as
// the CSV file.
package datastore

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bioscout/bioscout/internal/conf"
	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
	"github.com/bioscout/bioscout/internal/observation"
)

const slowQueryThreshold = 200 * time.Millisecond

// Store is an observation log kept in a SQL table. Append counts the rows
// and inserts the next id in a single transaction; a writer in another
// process that claims the same id makes the insert fail instead of
// overwriting.
type Store struct {
	db      *gorm.DB
	dialect string
	log     logger.Logger
	mu      sync.Mutex
}

var _ observation.Log = (*Store)(nil)

// OpenSQLite opens (creating if needed) the SQLite database at path and
// migrates the observations table.
func OpenSQLite(path string, log logger.Logger) (*Store, error) {
	log = storeLogger(log).Module("sqlite")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(fmt.Errorf("creating database directory: %w", err)).
				Component("datastore").
				Category(errors.CategoryStorage).
				FileContext(path).
				Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryStorage).
			FileContext(path).
			Context("dialect", "sqlite").
			Build()
	}

	// SQLite allows one writer at a time.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	return newStore(db, "sqlite", log)
}

// MySQLConfig holds the connection settings for OpenMySQL.
type MySQLConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// DSN returns the go-sql-driver connection string.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database)
}

// OpenMySQL connects to MySQL and migrates the observations table.
func OpenMySQL(cfg MySQLConfig, log logger.Logger) (*Store, error) {
	return OpenMySQLDSN(cfg.DSN(), log)
}

// OpenMySQLDSN connects to MySQL using a raw DSN.
func OpenMySQLDSN(dsn string, log logger.Logger) (*Store, error) {
	log = storeLogger(log).Module("mysql")

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		log.Error("failed to open MySQL database", logger.Error(err))
		return nil, errors.New(fmt.Errorf("failed to open MySQL database: %w", err)).
			Component("datastore").
			Category(errors.CategoryStorage).
			Context("dialect", "mysql").
			Build()
	}

	return newStore(db, "mysql", log)
}

// Open returns the SQL store selected by settings.Observation.Backend.
func Open(settings *conf.Settings, log logger.Logger) (*Store, error) {
	switch settings.Observation.Backend {
	case conf.BackendSQLite:
		return OpenSQLite(settings.Datastore.SQLite.Path, log)
	case conf.BackendMySQL:
		m := settings.Datastore.MySQL
		return OpenMySQL(MySQLConfig{
			Host:     m.Host,
			Port:     m.Port,
			Username: m.Username,
			Password: m.Password,
			Database: m.Database,
		}, log)
	default:
		return nil, errors.Newf("backend %q is not a SQL backend", settings.Observation.Backend).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func newStore(db *gorm.DB, dialect string, log logger.Logger) (*Store, error) {
	if err := db.AutoMigrate(&observationRecord{}); err != nil {
		return nil, errors.New(fmt.Errorf("failed to migrate observations table: %w", err)).
			Component("datastore").
			Category(errors.CategoryStorage).
			Context("dialect", dialect).
			Context("operation", "migrate").
			Build()
	}
	log.Debug("observations table ready", logger.String("dialect", dialect))
	return &Store{db: db, dialect: dialect, log: log}, nil
}

func storeLogger(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.Global().Module("datastore")
	}
	return log
}

// Dialect returns "sqlite" or "mysql".
func (s *Store) Dialect() string { return s.dialect }

// Load returns all observations ordered by id.
func (s *Store) Load(ctx context.Context) ([]observation.Observation, error) {
	var records []observationRecord
	if err := s.db.WithContext(ctx).Order("observation_id").Find(&records).Error; err != nil {
		return nil, s.storageError(err, "load")
	}

	result := make([]observation.Observation, 0, len(records))
	for _, r := range records {
		o, err := r.toObservation()
		if err != nil {
			return nil, s.storageError(fmt.Errorf("observation %d: %w", r.ObservationID, err), "load")
		}
		result = append(result, o)
	}
	return result, nil
}

// Append assigns id = row count + 1 and inserts entry.
func (s *Store) Append(ctx context.Context, entry observation.Observation) (observation.Observation, error) {
	if err := entry.Validate(); err != nil {
		return observation.Observation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&observationRecord{}).Count(&count).Error; err != nil {
			return fmt.Errorf("counting observations: %w", err)
		}
		entry.ID = int(count) + 1

		record := toRecord(entry)
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("inserting observation %d: %w", entry.ID, err)
		}
		return nil
	})
	if err != nil {
		return observation.Observation{}, s.storageError(err, "append")
	}

	s.log.Info("observation appended",
		logger.Int("observation_id", entry.ID),
		logger.String("species", entry.SpeciesName))
	return entry, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) storageError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryStorage).
		Context("dialect", s.dialect).
		Context("operation", operation).
		Build()
}
