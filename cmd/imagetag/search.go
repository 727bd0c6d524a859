package main

import (
	"github.com/spf13/cobra"

	"imagetag/internal/api"
	"imagetag/internal/config"
)

func newSearchCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <tag-id> [<tag-id>...]",
		Short: "List images carrying every given tag",
		Long:  "List images carrying every given tag. Ids may also be passed comma separated.",
		Args:  requireAtLeastArgs(1, "at least one tag id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []string
			for _, arg := range args {
				ids = append(ids, splitCommaList(arg)...)
			}
			return withClient(cfg, func(client *api.Client) error {
				images, err := client.SearchImages(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(images)
				}
				return writeImageList(images)
			})
		},
	}
}
