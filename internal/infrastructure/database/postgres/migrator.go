// Package postgres provides the PostgreSQL backend of the knowledge-graph
// store: connection management and schema migrations with golang-migrate.
// Query logic is shared with the embedded backend in package relational.
package postgres

import (
	"embed"
	stderrors "errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// EmbeddedSource selects the migrations compiled into the binary.
const EmbeddedSource = "embedded"

// MigrationStatus is the state recorded in schema_migrations.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// Migrator applies schema migrations.  Each operation uses a dedicated
// connection that is closed when the operation returns.
type Migrator struct {
	cfg    config.PostgresConfig
	source string
	logger logging.Logger
}

// NewMigrator builds a Migrator for cfg.  An empty cfg.MigrationPath or
// "embedded" uses the compiled-in migrations; anything else is a
// golang-migrate source URL such as file://migrations/postgres.
func NewMigrator(cfg config.PostgresConfig, log logging.Logger) *Migrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	src := strings.TrimSpace(cfg.MigrationPath)
	if src == "" {
		src = EmbeddedSource
	}
	return &Migrator{cfg: cfg, source: src, logger: log.Named("migrate")}
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	db, err := sqlOpen(driverName, buildDSN(m.cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMigration, "failed to open migration connection")
	}
	// The driver takes ownership of db; Migrate.Close releases it.
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeMigration, "failed to create migration driver")
	}

	var mg *migrate.Migrate
	if m.source == EmbeddedSource {
		src, srcErr := iofs.New(embeddedMigrations, "migrations")
		if srcErr != nil {
			_ = driver.Close()
			return nil, errors.Wrap(srcErr, errors.ErrCodeMigration, "failed to read embedded migrations")
		}
		mg, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	} else {
		mg, err = migrate.NewWithDatabaseInstance(m.source, "postgres", driver)
	}
	if err != nil {
		_ = driver.Close()
		return nil, errors.Wrap(err, errors.ErrCodeMigration, "failed to create migrate instance").WithDetail(m.source)
	}
	return mg, nil
}

func closeMigrate(mg *migrate.Migrate, log logging.Logger) {
	srcErr, dbErr := mg.Close()
	if srcErr != nil || dbErr != nil {
		log.Warn("failed to close migrator", logging.Any("source_error", srcErr), logging.Any("database_error", dbErr))
	}
}

// Up applies every pending migration.  No pending migrations is not an error.
func (m *Migrator) Up() error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	defer closeMigrate(mg, m.logger)

	if err := mg.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, _, _ := mg.Version()
		return errors.Wrap(err, errors.ErrCodeMigration, "failed to run migrations").WithDetailf("current version %d", version)
	}
	version, dirty, err := mg.Version()
	if err != nil && !stderrors.Is(err, migrate.ErrNilVersion) {
		m.logger.Warn("failed to read migration version", logging.Err(err))
	}
	m.logger.Info("database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
		logging.String("source", m.source),
	)
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return errors.InvalidParam("steps must be greater than 0").WithDetailf("got %d", steps)
	}
	mg, err := m.instance()
	if err != nil {
		return err
	}
	defer closeMigrate(mg, m.logger)

	if err := mg.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeMigration, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeMigration, "failed to roll back migrations").WithDetailf("steps %d", steps)
	}
	return nil
}

// Status reports the applied version; zero when nothing has been applied.
func (m *Migrator) Status() (MigrationStatus, error) {
	mg, err := m.instance()
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeMigrate(mg, m.logger)

	version, dirty, err := mg.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return MigrationStatus{}, nil
		}
		return MigrationStatus{}, errors.Wrap(err, errors.ErrCodeMigration, "failed to read migration version")
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}

// Force sets the recorded version without running migrations.  Used to
// recover from a dirty state.
func (m *Migrator) Force(version int) error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	defer closeMigrate(mg, m.logger)

	if err := mg.Force(version); err != nil {
		return errors.Wrap(err, errors.ErrCodeMigration, "failed to force migration version").WithDetailf("version %d", version)
	}
	return nil
}

//Personal.AI order the ending
