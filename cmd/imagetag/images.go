package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"imagetag/internal/api"
	"imagetag/internal/config"
	"imagetag/internal/models"
)

func newImageCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "image", Short: "Manage images"}
	cmd.AddCommand(
		newImageUploadCmd(cfg, out),
		newImageListCmd(cfg, out),
		newImageShowCmd(cfg, out),
		newImageFetchCmd(cfg),
		newImageRemoveCmd(cfg),
	)
	return cmd
}

func newImageUploadCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var (
		mediaType string
		filename  string
	)

	cmd := &cobra.Command{
		Use:   "upload <path> [<path>...]",
		Short: "Upload one or more image files",
		Args:  requireAtLeastArgs(1, "at least one path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if filename != "" && len(args) > 1 {
				return fmt.Errorf("--name can only be used with a single path")
			}
			return withClient(cfg, func(client *api.Client) error {
				created := make([]models.Image, 0, len(args))
				for _, path := range args {
					image, err := uploadFile(cmd, client, path, chooseFirst(filename, filepath.Base(path)), mediaType)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					created = append(created, image)
				}
				if out.structured() {
					if len(created) == 1 {
						return out.write(created[0])
					}
					return out.write(created)
				}
				return writeImageList(created)
			})
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "", "declared media type (default: detected by the server)")
	cmd.Flags().StringVar(&filename, "name", "", "stored filename (default: base name of path)")
	return cmd
}

func uploadFile(cmd *cobra.Command, client *api.Client, path, filename, mediaType string) (models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Image{}, err
	}
	defer file.Close()
	return client.UploadImage(cmd.Context(), filename, mediaType, file)
}

func newImageListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var (
		offset int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images in upload order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if offset < 0 || limit < 0 {
				return fmt.Errorf("--offset and --limit must be >= 0")
			}
			return withClient(cfg, func(client *api.Client) error {
				images, err := client.ListImages(cmd.Context(), offset, limit)
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

	cmd.Flags().IntVar(&offset, "offset", 0, "number of images to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of images")
	return cmd
}

func newImageShowCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <image-id>",
		Short: "Show an image's filename and tags",
		Args:  requireImageID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				meta, err := client.GetImageMetadata(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(meta)
				}
				return writeImageMetadata(args[0], meta)
			})
		},
	}
}

func newImageFetchCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <image-id>",
		Short: "Download an image's bytes",
		Args:  requireImageID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var w io.Writer = os.Stdout
				if path := strings.TrimSpace(output); path != "" && path != "-" {
					file, err := os.Create(path)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}
				mediaType, err := client.FetchImage(cmd.Context(), args[0], w)
				if err != nil {
					return err
				}
				if w != os.Stdout {
					fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", output, mediaType)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newImageRemoveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <image-id> [<image-id>...]",
		Short: "Delete images with their tags and bytes",
		Args:  requireAtLeastArgs(1, "image id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range args {
					if err := client.DeleteImage(cmd.Context(), id); err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
				}
				return nil
			})
		},
	}
}

func chooseFirst(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
