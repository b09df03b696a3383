package main

import (
	"fmt"

	"github.com/wgdzlh/datacube/testdb"

	"github.com/spf13/cobra"
)

func (a *app) testServer() *testdb.Server {
	return testdb.NewServer(a.v.GetString("testdb.dir"))
}

func newTestDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testdb",
		Short: "Run utility commands on the test database directory",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create DBNAME [DBFILE]",
			Short: "Create and load a database from a dump file",
			Long: `Create and load a database from a dump file: an SQL script (.sql) or a
SQLite database file. If no dump is given an empty catalogue is created.`,
			Args: cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				dump := ""
				if len(args) > 1 {
					dump = args[1]
				}
				if err := a.testServer().Create(cmd.Context(), args[0], dump); err != nil {
					return err
				}
				a.printSuccess("created %s", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "save DBNAME DBFILE",
			Short: "Save a database to a dump file (.sql for a script)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.testServer().Save(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				a.printSuccess("saved %s to %s", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "drop DBNAME",
			Short: "Drop a database from the test directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.testServer().Drop(args[0])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the databases in the test directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				names, err := a.testServer().List()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(a.out, name)
				}
				return nil
			},
		},
		newCleanupCmd(a, "cleanup"),
	)
	return cmd
}

func newCleanupCmd(a *app, use string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: "Drop all temporary test databases",
		Long: `Drop all temporary test databases. Note that running this command may
cause tests currently running to fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.testServer().Cleanup(a.out)
			return err
		},
	}
}

func newDBCleanupCmd(a *app) *cobra.Command {
	return newCleanupCmd(a, "dbcleanup")
}
