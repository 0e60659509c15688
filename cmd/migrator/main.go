package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"storefront-service/internal/config"
)

const (
	directionUp    = "up"
	directionDown  = "down"
	directionSteps = "steps"
)

// migrationLogger adapts logrus to migrate.Logger.
type migrationLogger struct {
	log     logrus.FieldLogger
	verbose bool
}

func (ml *migrationLogger) Printf(format string, v ...any) {
	ml.log.Info(fmt.Sprintf(format, v...))
}

func (ml *migrationLogger) Verbose() bool {
	return ml.verbose
}

// migrator is the subset of *migrate.Migrate the command drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Close() (source error, database error)
}

func main() {
	envFile := pflag.String("env-file", ".env", "path to an optional .env file")
	migrationsPath := pflag.StringP("path", "m", "migrations", "directory holding the migration files")
	direction := pflag.StringP("direction", "d", directionUp, "up, down, or steps")
	steps := pflag.IntP("steps", "n", 0, "number of migrations to apply with --direction=steps; negative rolls back")
	verbose := pflag.BoolP("verbose", "v", false, "log every applied migration")
	pflag.Parse()

	log := config.NewLogger("info").WithField("service", "migrator")

	if err := checkArgs(*direction, *steps); err != nil {
		log.WithError(err).Error("Invalid arguments")
		os.Exit(2)
	}

	pc, err := config.LoadPostgres(*envFile, log)
	if err != nil {
		log.WithError(err).Error("Error loading configuration")
		os.Exit(2)
	}

	m, err := migrate.New("file://"+*migrationsPath, pc.URL())
	if err != nil {
		log.WithError(err).Error("Failed to initialize migrations")
		os.Exit(2)
	}
	m.Log = &migrationLogger{log: log, verbose: *verbose}

	os.Exit(run(m, *direction, *steps, log))
}

func checkArgs(direction string, steps int) error {
	switch direction {
	case directionUp, directionDown:
		return nil
	case directionSteps:
		if steps == 0 {
			return errors.New("--steps must be non-zero with --direction=steps")
		}
		return nil
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
}

// run applies the migrations and closes m. It returns the process exit code.
func run(m migrator, direction string, steps int, log logrus.FieldLogger) int {
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.WithFields(logrus.Fields{"source_error": srcErr, "database_error": dbErr}).Warn("Failed to close migrations")
		}
	}()

	var err error
	switch direction {
	case directionUp:
		err = m.Up()
	case directionDown:
		err = m.Down()
	case directionSteps:
		err = m.Steps(steps)
	default:
		log.WithField("direction", direction).Error("Unknown direction")
		return 2
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No migrations to apply")
			return 0
		}
		log.WithError(err).Error("Migration failed")
		return 1
	}
	log.WithField("direction", direction).Info("Migrations applied")
	return 0
}
