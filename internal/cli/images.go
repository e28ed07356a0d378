package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drivemanager/drivectl/internal/api"
	"github.com/drivemanager/drivectl/internal/models"
	"github.com/drivemanager/drivectl/internal/progress"
	"github.com/drivemanager/drivectl/internal/services"
	"github.com/drivemanager/drivectl/internal/util/filter"
)

// newImagesCmd creates the 'images' command group.
func newImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Image operations",
		Long: `Commands for listing, uploading and deleting images.

Images always live inside a folder; the root holds folders only.`,
	}

	cmd.AddCommand(newImagesListCmd())
	cmd.AddCommand(newImagesUploadCmd())
	cmd.AddCommand(newImagesDeleteCmd())

	return cmd
}

func imageName(img models.Image) string { return img.Name }

// newImagesListCmd creates the 'images list' command.
func newImagesListCmd() *cobra.Command {
	var folder string
	var search string
	var include string
	var exclude string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images in a folder",
		Long: `List the images in a folder.

Filters apply to image names, case-insensitively:
  --search   substring match (space separated terms must all match)
  --include  comma-separated glob patterns to keep
  --exclude  comma-separated glob patterns to drop (wins over --include)

Examples:
  drivectl images list --folder /Photos
  drivectl images list --folder 65f0c2... --include "*.png,*.jpg" --exclude "tmp*"`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := getAPIClient(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := requireLogin(env); err != nil {
				return err
			}

			ctx := GetContext()
			svc := services.NewFolderService(env.client, env.eventBus)
			target, err := svc.Resolve(ctx, folder)
			if err != nil {
				return apiFailure("failed to resolve folder", err)
			}
			if target.IsPlaceholder() {
				return api.ErrRootHasNoImages
			}

			images, err := env.client.ListImages(ctx, target.ID)
			if err != nil {
				return apiFailure("failed to list images", err)
			}

			images = filter.Apply(images, imageName, filter.Config{
				Include: filter.ParseList(include),
				Exclude: filter.ParseList(exclude),
				Search:  strings.Fields(search),
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s:\n", target.Name)
			if len(images) == 0 {
				fmt.Fprintln(out, "  (no images)")
				return nil
			}
			for _, img := range images {
				fmt.Fprintf(out, "  🖼  %s (ID: %s)\n", img.Name, img.ID)
				if img.URL != "" {
					fmt.Fprintf(out, "      %s\n", img.URL)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Folder ID or path (required)")
	cmd.Flags().StringVar(&search, "search", "", "Only show images whose name contains this text")
	cmd.Flags().StringVar(&include, "include", "", "Comma-separated glob patterns to include")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Comma-separated glob patterns to exclude")
	cmd.MarkFlagRequired("folder")

	return cmd
}

// newImagesUploadCmd creates the 'images upload' command.
func newImagesUploadCmd() *cobra.Command {
	var folder string
	var name string

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload images into a folder",
		Long: `Upload one or more local image files into a folder.

The image name defaults to the file name. --name is only allowed with a
single file.

Examples:
  drivectl images upload --folder /Photos cat.png dog.jpg
  drivectl images upload --folder 65f0c2... --name "Holiday" IMG_0042.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			var names []string
			if name = strings.TrimSpace(name); name != "" {
				if len(args) > 1 {
					return fmt.Errorf("--name can only be used with a single file")
				}
				names = []string{name}
			}

			env, err := getAPIClient(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := requireLogin(env); err != nil {
				return err
			}

			ctx := GetContext()
			svc := services.NewFolderService(env.client, env.eventBus)
			target, err := svc.Resolve(ctx, folder)
			if err != nil {
				return apiFailure("failed to resolve folder", err)
			}
			if target.IsPlaceholder() {
				return fmt.Errorf("images cannot be uploaded to the root folder; choose a folder with --folder")
			}

			ui := progress.NewUploadUI(len(args))
			if path, err := svc.PathOf(ctx, target.ID); err == nil {
				ui.SetFolderPath(target.ID, path)
			}
			if ui.IsTerminal() {
				console := logger.Output()
				logger.SetOutput(ui.Writer())
				defer logger.SetOutput(console)
			}

			logger.Info().Int("files", len(args)).Str("folder_id", target.ID).Msg("Uploading images")
			results, err := svc.UploadImages(ctx, target.ID, args, names, ui)

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d of %d image(s) to %s\n", len(results)-failed, len(results), target.Name)

			if err != nil {
				return fmt.Errorf("upload aborted: %w", err)
			}
			if failed > 0 {
				return fmt.Errorf("%d upload(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Destination folder ID or path (required)")
	cmd.Flags().StringVar(&name, "name", "", "Image name (single file only)")
	cmd.MarkFlagRequired("folder")

	return cmd
}

// newImagesDeleteCmd creates the 'images delete' command.
func newImagesDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete IMAGE_ID",
		Short: "Delete an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID := args[0]

			if !yes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Delete image %s?", imageID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			env, err := getAPIClient(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := requireLogin(env); err != nil {
				return err
			}

			if err := env.client.DeleteImage(GetContext(), imageID); err != nil {
				return apiFailure("failed to delete image", err)
			}

			GetLogger().Info().Str("image_id", imageID).Msg("Image deleted")
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Image deleted successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}
