package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/export"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/service"
)

func exportCmd() *cobra.Command {
	var (
		eventID string
		status  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSONL snapshot of registrations to S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.ExportS3Bucket == "" {
				return fmt.Errorf("EXPORT_S3_BUCKET is required")
			}
			f := model.RegistrationFilter{EventID: eventID, Status: model.PaymentStatus(status)}
			if err := service.ValidateFilter(f); err != nil {
				return err
			}

			dest, err := export.NewS3Destination(ctx, a.cfg.ExportS3Bucket, a.cfg.ExportS3Region, a.cfg.ExportS3Endpoint)
			if err != nil {
				return err
			}
			res, err := export.NewExporter(a.registrations, dest, a.cfg.ExportS3Prefix).Run(ctx, f)
			if err != nil {
				return err
			}
			a.logger.Info("export written", "bucket", a.cfg.ExportS3Bucket, "key", res.Key, "count", res.Count)

			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		},
	}

	cmd.Flags().StringVar(&eventID, "event-id", "", "Only export registrations for this event")
	cmd.Flags().StringVar(&status, "status", "", "Only export registrations in this status (pending, paid, failed, cancelled, refunded)")

	return cmd
}
