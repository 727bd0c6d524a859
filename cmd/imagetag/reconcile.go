package main

import (
	"github.com/spf13/cobra"

	"imagetag/internal/api"
	"imagetag/internal/config"
)

func newReconcileCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored bytes with image records",
		Long: "Compare stored bytes with image records. Without --apply nothing is changed; " +
			"with --apply, blobs that belong to no image are deleted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Reconcile(cmd.Context(), apply)
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(resp)
				}
				return writeReconcile(resp)
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete orphan blobs")
	return cmd
}

func writeReconcile(resp api.ReconcileResponse) error {
	if resp.DryRun {
		if err := writePlain("dry run: %d orphan blobs would be removed\n", len(resp.OrphanBlobs)); err != nil {
			return err
		}
	} else {
		if err := writePlain("removed %d orphan blobs (%d failed)\n", resp.DeletedBlobs, resp.FailedDeletes); err != nil {
			return err
		}
	}
	for _, key := range resp.OrphanBlobs {
		if err := writePlain("  orphan: %s\n", key); err != nil {
			return err
		}
	}
	if len(resp.MissingBlobs) > 0 {
		if err := writePlain("%d images have no stored bytes\n", len(resp.MissingBlobs)); err != nil {
			return err
		}
		for _, id := range resp.MissingBlobs {
			if err := writePlain("  missing: %s\n", id); err != nil {
				return err
			}
		}
	}
	return nil
}
