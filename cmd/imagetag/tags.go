package main

import (
	"github.com/spf13/cobra"

	"imagetag/internal/api"
	"imagetag/internal/config"
)

func newTagCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "tag", Short: "Manage image tags"}
	cmd.AddCommand(
		newTagAddCmd(cfg, out),
		newTagReplaceCmd(cfg, out),
		newTagRemoveCmd(cfg),
		newTagListCmd(cfg, out),
	)
	return cmd
}

func newTagAddCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <image-id> <name>",
		Short: "Attach a tag to an image, creating the tag if needed",
		Args:  requireExactlyArgs(2, "image id and tag name are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				tag, err := client.AddTag(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(tag)
				}
				return writePlain("%s\t%s\n", tag.ID, tag.Name)
			})
		},
	}
}

func newTagReplaceCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <image-id> <old-tag-id> <new-name>",
		Short: "Swap one of an image's tags for another",
		Args:  requireExactlyArgs(3, "image id, old tag id and new tag name are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				tag, err := client.ReplaceTag(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(tag)
				}
				return writePlain("%s\t%s\n", tag.ID, tag.Name)
			})
		},
	}
}

func newTagRemoveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <image-id> <tag-id>",
		Short: "Detach a tag from an image",
		Args:  requireExactlyArgs(2, "image id and tag id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				return client.DeleteTag(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newTagListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				tags, err := client.ListTags(cmd.Context())
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(tags)
				}
				return writeTagList(tags)
			})
		},
	}
}
