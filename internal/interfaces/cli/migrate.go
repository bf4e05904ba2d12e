package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/MedKG-Intelligence/internal/config"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// NewMigrateCmd manages the store schema.  The embedded SQLite store only
// supports up (create the schema in place) and status.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the store schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cc.Config.Store.Driver == config.DriverPostgres {
				if err := postgres.NewMigrator(cc.Config.Store.Postgres, cc.Logger).Up(); err != nil {
					return err
				}
			} else {
				a := newApp(cc)
				defer a.Close()
				store, err := a.openStore(cmd.Context(), storeWrite)
				if err != nil {
					return err
				}
				a.onClose(store.Close)
			}
			PrintSuccess(cmd, "schema is up to date")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Down(steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cc.Config.Store.Driver != config.DriverPostgres {
				// A read-only attach verifies that every table is present.
				a := newApp(cc)
				defer a.Close()
				store, err := a.openStore(cmd.Context(), storeRead)
				if err != nil {
					return err
				}
				a.onClose(store.Close)
				return PrintResult(cmd, migrationView{Driver: config.DriverSQLite, Ready: true})
			}
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			st, err := m.Status()
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationView{Driver: config.DriverPostgres, Ready: st.Version > 0 && !st.Dirty, MigrationStatus: st})
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Record a schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.MalformedInput("version must be an integer").WithDetail(args[0])
			}
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("schema version forced to %d", version))
			return nil
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

func migrator(cmd *cobra.Command) (*postgres.Migrator, error) {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if cc.Config.Store.Driver != config.DriverPostgres {
		return nil, errors.MalformedInput("operation requires the postgres store driver").WithDetail(cmd.CommandPath())
	}
	return postgres.NewMigrator(cc.Config.Store.Postgres, cc.Logger), nil
}

type migrationView struct {
	Driver string `json:"driver"`
	Ready  bool   `json:"ready"`
	postgres.MigrationStatus
}

func (migrationView) TableHeaders() []string { return []string{"DRIVER", "VERSION", "DIRTY", "READY"} }

func (v migrationView) TableRows() [][]string {
	version := "-"
	if v.Driver == config.DriverPostgres {
		version = strconv.FormatUint(uint64(v.Version), 10)
	}
	return [][]string{{v.Driver, version, strconv.FormatBool(v.Dirty), strconv.FormatBool(v.Ready)}}
}

//Personal.AI order the ending
