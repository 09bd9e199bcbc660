package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmmlang/cx/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <database>",
	Short: "Bring a database up to the current schema version",
	Long: `Migrate opens the given SQLite database and, if its recorded schema
version is older than the version this build of cx understands, walks the
migration catalogue to bring it up to date. Opening a database with Open
already performs this check automatically; this command exists for
pre-flight checks and CI.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	path := args[0]
	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	fmt.Printf("%s is at schema %s\n", path, store.CurrentSchemaVersion())
	return nil
}
