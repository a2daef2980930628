package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/fileshare/internal/app"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/service"
)

func ReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Compare blobs with file records once and remove stale orphans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			store, err := app.NewStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			rs := service.NewReconcileService(repository.NewFileRepository(database), store, 0, cfg.ReconcileGrace)
			report, err := rs.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checked %d records and %d blobs in %s\n", report.FilesChecked, report.BlobsChecked, report.Duration)
			for _, issue := range report.Issues {
				fmt.Fprintf(out, "%s\t%s\tfile=%s\tremoved=%t\n", issue.Type, issue.StoragePath, issue.FileID, issue.Removed)
			}
			return nil
		},
	}
}
