package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/drivemanager/drivectl/internal/events"
	"github.com/drivemanager/drivectl/internal/logging"
	"github.com/drivemanager/drivectl/internal/progress"
	"github.com/drivemanager/drivectl/internal/services"
	"github.com/drivemanager/drivectl/internal/state"
)

// errLeaveShell ends the browse loop without an error exit code.
var errLeaveShell = errors.New("leave shell")

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [FOLDER]",
		Short: "Browse folders interactively",
		Long: `Open an interactive folder browser, starting at FOLDER (ID or path) or the root.

Commands inside the browser:
  ls                  list subfolders and images (filtered by the search query)
  cd NAME|ID|..|/     change folder
  mkdir NAME          create a subfolder
  rmdir NAME|ID       delete a subfolder
  upload FILE [NAME]  upload an image into the current folder
  rm NAME|ID          delete an image
  search [TEXT]       filter images by name (no text clears the filter)
  refresh             reload the current folder
  pwd                 print the current path
  help                show this list
  exit                leave the browser`,
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

			start := ""
			if len(args) == 1 {
				f, err := svc.Resolve(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to resolve folder: %w", err)
				}
				start = f.ID
			}

			sh := newShell(cmd, env.client, env.store, env.eventBus, svc)
			return sh.run(ctx, start)
		},
	}

	return cmd
}

// shell is the interactive loop around a Navigator.
type shell struct {
	nav      *state.Navigator
	svc      *services.FolderService
	eventBus *events.EventBus
	prompt   *prompter
	out      io.Writer
	errOut   io.Writer
	logger   *logging.Logger

	loginRequired atomic.Bool
}

func newShell(cmd *cobra.Command, remote state.FolderService, sess state.SessionClearer, eventBus *events.EventBus, svc *services.FolderService) *shell {
	sh := &shell{
		svc:      svc,
		eventBus: eventBus,
		prompt:   newPrompter(cmd),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		logger:   GetLogger(),
	}
	sh.nav = state.NewNavigator(remote, eventBus,
		state.WithSession(sess),
		state.WithLoginRedirect(func() {
			sh.loginRequired.Store(true)
		}))
	return sh
}

func (sh *shell) run(ctx context.Context, start string) error {
	// The channel is closed with the bus when the command returns
	failures := sh.eventBus.Subscribe(state.EventOperationFailed)
	go func() {
		for ev := range failures {
			if e, ok := ev.(*state.OperationFailedEvent); ok {
				sh.logger.Debug().Str("operation", e.Operation).Str("folder_id", e.FolderID).Err(e.Error).Msg("Browser operation failed")
			}
		}
	}()

	if err := sh.navigate(ctx, start); err != nil {
		return err
	}
	if sh.leaveIfRejected() {
		return nil
	}
	sh.list()

	for {
		line, err := sh.prompt.readLine(fmt.Sprintf("drive:%s> ", sh.nav.Snapshot().FolderName()))
		if err == io.EOF {
			fmt.Fprintln(sh.errOut)
			return nil
		}
		if err != nil {
			return err
		}

		err = sh.exec(ctx, line)
		if errors.Is(err, errLeaveShell) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sh.leaveIfRejected() {
			return nil
		}
		if err != nil {
			fmt.Fprintf(sh.errOut, "✗ %v\n", err)
		}
	}
}

// leaveIfRejected reports whether the server rejected the session, printing
// the login hint once.
func (sh *shell) leaveIfRejected() bool {
	if !sh.loginRequired.Load() {
		return false
	}
	fmt.Fprintln(sh.errOut, "You have been signed out. Run 'drivectl login' and start the browser again.")
	return true
}

func (sh *shell) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "ls":
		sh.list()
	case "cd":
		return sh.cd(ctx, rest)
	case "mkdir":
		return sh.mkdir(ctx, rest)
	case "rmdir":
		return sh.rmdir(ctx, rest)
	case "upload":
		return sh.upload(ctx, rest)
	case "rm":
		return sh.rm(ctx, rest)
	case "search":
		sh.search(rest)
	case "refresh":
		sh.nav.Refresh(ctx)
		if err := sh.nav.Wait(ctx); err != nil {
			return err
		}
		if sh.loginRequired.Load() {
			return nil
		}
		sh.list()
	case "pwd":
		return sh.pwd(ctx)
	case "help", "?":
		sh.help()
	case "exit", "quit":
		return errLeaveShell
	default:
		return fmt.Errorf("unknown command %q (type 'help')", verb)
	}
	return nil
}

// navigate starts loading folderID and blocks until all fetches settle.
func (sh *shell) navigate(ctx context.Context, folderID string) error {
	sh.nav.Navigate(ctx, folderID)
	return sh.nav.Wait(ctx)
}

func (sh *shell) list() {
	snap := sh.nav.Snapshot()

	if err := snap.Err(); err != nil {
		fmt.Fprintf(sh.out, "✗ %v\n", err)
	}
	if snap.Phase == state.PhaseFailed {
		return
	}

	fmt.Fprintf(sh.out, "%s\n", snap.FolderName())
	for _, f := range snap.Subfolders {
		fmt.Fprintf(sh.out, "  📁 %s (ID: %s)\n", f.Name, f.ID)
	}

	switch {
	case snap.IsRoot():
	case snap.ImagesErr != nil:
		fmt.Fprintf(sh.out, "  ✗ images: %v\n", snap.ImagesErr)
	case !snap.ImagesLoaded:
		fmt.Fprintln(sh.out, "  (loading images...)")
	default:
		for _, img := range snap.Filtered {
			fmt.Fprintf(sh.out, "  🖼  %s (ID: %s)\n", img.Name, img.ID)
		}
		if snap.Query != "" {
			fmt.Fprintf(sh.out, "  (%d of %d images match %q)\n", len(snap.Filtered), len(snap.Images), snap.Query)
		}
	}

	if len(snap.Subfolders) == 0 && (snap.IsRoot() || len(snap.Images) == 0) {
		fmt.Fprintln(sh.out, "  (empty)")
	}
}

func (sh *shell) cd(ctx context.Context, target string) error {
	snap := sh.nav.Snapshot()

	var folderID string
	switch target {
	case "", "/":
		folderID = ""
	case "..":
		if snap.Folder != nil {
			folderID = snap.Folder.ParentIDOrEmpty()
		}
	default:
		if f, ok := snap.FindSubfolder(target); ok {
			folderID = f.ID
		} else {
			folderID = target
		}
	}

	if err := sh.navigate(ctx, folderID); err != nil {
		return err
	}
	if sh.loginRequired.Load() {
		return nil
	}
	sh.list()
	return nil
}

func (sh *shell) mkdir(ctx context.Context, name string) error {
	f, err := sh.nav.CreateSubfolder(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "✓ Created %s (ID: %s)\n", f.Name, f.ID)
	return nil
}

func (sh *shell) rmdir(ctx context.Context, target string) error {
	if target == "" {
		return fmt.Errorf("usage: rmdir NAME|ID")
	}
	f, ok := sh.nav.Snapshot().FindSubfolder(target)
	if !ok {
		return fmt.Errorf("no subfolder named %q here", target)
	}

	confirmed, err := sh.prompt.confirm(fmt.Sprintf("Delete folder %s?", f.Name))
	if err != nil || !confirmed {
		return err
	}
	if err := sh.nav.DeleteFolder(ctx, f.ID); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "✓ Deleted %s\n", f.Name)
	return nil
}

func (sh *shell) upload(ctx context.Context, args string) error {
	path, name, _ := strings.Cut(args, " ")
	if path == "" {
		return fmt.Errorf("usage: upload FILE [NAME]")
	}
	if name = strings.TrimSpace(name); name == "" {
		name = filepath.Base(path)
	}
	if sh.nav.Snapshot().IsRoot() {
		return state.ErrRootUpload
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	bar := progress.NewCLIProgress()
	bar.Start(info.Size(), "Uploading "+name)
	img, err := sh.nav.UploadImage(ctx, name, progress.NewProgressReader(file, info.Size(), bar))
	if err != nil {
		bar.Error(err)
		return err
	}
	bar.Finish()

	fmt.Fprintf(sh.out, "✓ Uploaded %s (ID: %s)\n", img.Name, img.ID)
	return nil
}

func (sh *shell) rm(ctx context.Context, target string) error {
	if target == "" {
		return fmt.Errorf("usage: rm NAME|ID")
	}
	img, ok := sh.nav.Snapshot().FindImage(target)
	if !ok {
		return fmt.Errorf("no image named %q here", target)
	}
	if err := sh.nav.DeleteImage(ctx, img.ID); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "✓ Deleted %s\n", img.Name)
	return nil
}

func (sh *shell) search(query string) {
	matches := sh.nav.SetSearchQuery(query)
	if query == "" {
		fmt.Fprintln(sh.out, "Search cleared")
		return
	}
	fmt.Fprintf(sh.out, "%d image(s) match %q\n", len(matches), query)
	for _, img := range matches {
		fmt.Fprintf(sh.out, "  🖼  %s (ID: %s)\n", img.Name, img.ID)
	}
}

func (sh *shell) pwd(ctx context.Context) error {
	id := sh.nav.CurrentFolderID()
	if id == "" {
		fmt.Fprintln(sh.out, "/")
		return nil
	}
	path, err := sh.svc.PathOf(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, path)
	return nil
}

func (sh *shell) help() {
	fmt.Fprint(sh.out, `Commands:
  ls                  list subfolders and images
  cd NAME|ID|..|/     change folder
  mkdir NAME          create a subfolder
  rmdir NAME|ID       delete a subfolder
  upload FILE [NAME]  upload an image
  rm NAME|ID          delete an image
  search [TEXT]       filter images by name
  refresh             reload the current folder
  pwd                 print the current path
  exit                leave the browser
`)
}
