package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"forge/internal/db"
	"forge/internal/db/repositories"
	"forge/internal/fragments"
)

var exportCmd = &cobra.Command{
	Use:   "export <message-id>",
	Short: "Export a fragment's files to a local directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	messageID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message ID %q", args[0])
	}
	databaseURL, _ := cmd.Flags().GetString("database")
	outputDir, _ := cmd.Flags().GetString("output")

	database, err := db.New(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	repos := repositories.New(database)

	message, err := repos.Messages.Get(cmd.Context(), messageID)
	if err != nil {
		return fmt.Errorf("failed to load message %d: %w", messageID, err)
	}
	if message.Fragment == nil {
		return fmt.Errorf("message %d has no fragment", messageID)
	}

	if err := fragments.Export(afero.NewOsFs(), outputDir, message.Fragment.Files); err != nil {
		return err
	}
	fmt.Printf("Exported %d files from %q to %s\n", len(message.Fragment.Files), message.Fragment.Title, outputDir)
	return nil
}
