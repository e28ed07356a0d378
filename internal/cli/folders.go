package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivemanager/drivectl/internal/models"
	"github.com/drivemanager/drivectl/internal/services"
	"github.com/drivemanager/drivectl/internal/util/filter"
)

// newFoldersCmd creates the 'folders' command group.
func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Folder operations",
		Long: `Commands for listing, creating and deleting folders.

Folders are addressed by ID or by absolute path from the root, e.g.
"/Docs/2024". An empty reference or "/" is the root.`,
	}

	cmd.AddCommand(newFoldersListCmd())
	cmd.AddCommand(newFoldersCreateCmd())
	cmd.AddCommand(newFoldersDeleteCmd())
	cmd.AddCommand(newFoldersTreeCmd())
	cmd.AddCommand(newFoldersInfoCmd())

	return cmd
}

func folderName(f models.Folder) string { return f.Name }

// newFoldersListCmd creates the 'folders list' command.
func newFoldersListCmd() *cobra.Command {
	var parent string
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subfolders",
		Long: `List the folders directly inside a folder (default: root).

Examples:
  drivectl folders list
  drivectl folders list --parent /Docs --search trip`,
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

			folder, err := svc.Resolve(ctx, parent)
			if err != nil {
				return apiFailure("failed to resolve folder", err)
			}

			children, err := svc.Children(ctx, folder.ID)
			if err != nil {
				return apiFailure("failed to list folders", err)
			}
			children = filter.ByQuery(children, folderName, search)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s:\n", folder.Name)
			if len(children) == 0 {
				fmt.Fprintln(out, "  (empty)")
				return nil
			}
			for _, f := range children {
				fmt.Fprintf(out, "  📁 %s (ID: %s)\n", f.Name, f.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Parent folder ID or path (default: root)")
	cmd.Flags().StringVar(&search, "search", "", "Only show folders whose name contains this text")

	return cmd
}

// newFoldersCreateCmd creates the 'folders create' command.
func newFoldersCreateCmd() *cobra.Command {
	var name string
	var parent string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a folder",
		Long: `Create a folder at the root or inside another folder.

Examples:
  drivectl folders create --name Photos
  drivectl folders create --name 2024 --parent /Photos`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--name must not be blank")
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
			parentID := ""
			if parent != "" {
				svc := services.NewFolderService(env.client, env.eventBus)
				p, err := svc.Resolve(ctx, parent)
				if err != nil {
					return apiFailure("failed to resolve parent", err)
				}
				parentID = p.ID
			}

			logger.Info().Str("name", name).Str("parent_id", parentID).Msg("Creating folder")
			folder, err := env.client.CreateFolder(ctx, name, models.StringPtr(parentID))
			if err != nil {
				return apiFailure("failed to create folder", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Folder created successfully\n  Name: %s\n  ID:   %s\n", folder.Name, folder.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Folder name (required)")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent folder ID or path (default: root)")
	cmd.MarkFlagRequired("name")

	return cmd
}

// newFoldersDeleteCmd creates the 'folders delete' command.
func newFoldersDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete FOLDER_ID",
		Short: "Delete a folder",
		Long: `Delete a folder by ID.

WARNING: This operation cannot be undone!

Example:
  drivectl folders delete 65f0c2... --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			folderID := args[0]

			if !yes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Delete folder %s? This cannot be undone.", folderID))
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

			logger.Info().Str("folder_id", folderID).Msg("Deleting folder")
			if err := env.client.DeleteFolder(GetContext(), folderID); err != nil {
				return apiFailure("failed to delete folder", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Folder deleted successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

// newFoldersTreeCmd creates the 'folders tree' command.
func newFoldersTreeCmd() *cobra.Command {
	var depth int
	var countImages bool

	cmd := &cobra.Command{
		Use:   "tree [FOLDER]",
		Short: "Print the folder hierarchy",
		Long: `Print the folder hierarchy below a folder (default: root).

Examples:
  drivectl folders tree
  drivectl folders tree /Photos --depth 2 --images`,
		Args: cobra.MaximumNArgs(1),
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

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			start, err := svc.Resolve(ctx, ref)
			if err != nil {
				return apiFailure("failed to resolve folder", err)
			}

			tree, err := svc.Tree(ctx, start.ID, services.TreeOptions{MaxDepth: depth, CountImages: countImages})
			if err != nil {
				return apiFailure("failed to walk folders", err)
			}

			printTree(cmd.OutOrStdout(), tree)
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum depth to list (0 = unlimited)")
	cmd.Flags().BoolVar(&countImages, "images", false, "Show the number of images in each folder")

	return cmd
}

func printTree(out io.Writer, tree *services.TreeNode) {
	tree.Walk(func(n *services.TreeNode) {
		line := strings.Repeat("  ", n.Depth) + "📁 " + n.Folder.Name
		if n.Folder.ID != "" {
			line += " (ID: " + n.Folder.ID + ")"
		}
		if n.ImageCount >= 0 {
			line += fmt.Sprintf(" [%d images]", n.ImageCount)
		}
		if n.Err != nil {
			line += " ✗ " + n.Err.Error()
		}
		fmt.Fprintln(out, line)
	})
}

// newFoldersInfoCmd creates the 'folders info' command.
func newFoldersInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info FOLDER",
		Short: "Show folder details",
		Long: `Show a folder's name, path, parent and contents summary.

Example:
  drivectl folders info /Photos/2024`,
		Args: cobra.ExactArgs(1),
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

			folder, err := svc.Resolve(ctx, args[0])
			if err != nil {
				return apiFailure("failed to get folder", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:    %s\n", folder.Name)
			if folder.IsPlaceholder() {
				fmt.Fprintln(out, "Path:    /")
			} else {
				path, err := svc.PathOf(ctx, folder.ID)
				if err != nil {
					return apiFailure("failed to resolve path", err)
				}
				fmt.Fprintf(out, "ID:      %s\n", folder.ID)
				fmt.Fprintf(out, "Path:    %s\n", path)
				if parentID := folder.ParentIDOrEmpty(); parentID != "" {
					fmt.Fprintf(out, "Parent:  %s\n", parentID)
				}
				if !folder.CreatedAt.IsZero() {
					fmt.Fprintf(out, "Created: %s\n", folder.CreatedAt.Local().Format(time.RFC3339))
				}
			}

			children, err := svc.Children(ctx, folder.ID)
			if err != nil {
				return apiFailure("failed to list subfolders", err)
			}
			fmt.Fprintf(out, "Folders: %d\n", len(children))

			if !folder.IsPlaceholder() {
				images, err := env.client.ListImages(ctx, folder.ID)
				if err != nil {
					return apiFailure("failed to list images", err)
				}
				fmt.Fprintf(out, "Images:  %d\n", len(images))
			}
			return nil
		},
	}

	return cmd
}
