package state

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drivemanager/drivectl/internal/api"
	"github.com/drivemanager/drivectl/internal/events"
	"github.com/drivemanager/drivectl/internal/models"
	"github.com/drivemanager/drivectl/internal/session"
)

func waitFor(t *testing.T, nav *Navigator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := nav.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

// generationDone returns the completion channel of the current generation.
func generationDone(nav *Navigator) <-chan struct{} {
	nav.mu.Lock()
	defer nav.mu.Unlock()
	return nav.done
}

func folderNames(folders []models.Folder) []string {
	out := []string{}
	for _, f := range folders {
		out = append(out, f.Name)
	}
	return out
}

func imageNames(images []models.Image) []string {
	out := []string{}
	for _, img := range images {
		out = append(out, img.Name)
	}
	return out
}

func TestNewNavigatorIsIdleAtRoot(t *testing.T) {
	nav := NewNavigator(newFakeService(), nil)
	snap := nav.Snapshot()
	if snap.Phase != PhaseIdle || !snap.IsRoot() {
		t.Errorf("initial snapshot = %+v", snap)
	}
	waitFor(t, nav)
}

func TestRootNavigationAndRootCreate(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("f1", "Docs", "")
	svc.created = []*models.Folder{{ID: "f2", Name: "Docs2"}}

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "")
	waitFor(t, nav)

	snap := nav.Snapshot()
	if snap.Phase != PhaseLoaded {
		t.Fatalf("Phase = %v, want loaded", snap.Phase)
	}
	if got := folderNames(snap.Subfolders); !reflect.DeepEqual(got, []string{"Docs"}) {
		t.Fatalf("Subfolders = %v, want [Docs]", got)
	}
	if snap.FolderName() != "Root Folder" {
		t.Errorf("FolderName() = %q", snap.FolderName())
	}
	if svc.callCount(OpGetFolder) != 0 || svc.callCount(OpListImages) != 0 {
		t.Error("root navigation must not request folder metadata or images")
	}

	if _, err := nav.CreateSubfolder(context.Background(), "Docs2"); err != nil {
		t.Fatalf("CreateSubfolder() error = %v", err)
	}
	if got := folderNames(nav.Snapshot().Subfolders); !reflect.DeepEqual(got, []string{"Docs", "Docs2"}) {
		t.Errorf("Subfolders = %v, want [Docs Docs2]", got)
	}
}

func TestRootCreateIgnoresNestedResult(t *testing.T) {
	svc := newFakeService()
	svc.created = []*models.Folder{{ID: "x", Name: "Odd", ParentID: models.StringPtr("elsewhere")}}

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "")
	waitFor(t, nav)

	if _, err := nav.CreateSubfolder(context.Background(), "Odd"); err != nil {
		t.Fatalf("CreateSubfolder() error = %v", err)
	}
	if n := len(nav.Snapshot().Subfolders); n != 0 {
		t.Errorf("root list has %d entries, want 0", n)
	}
}

func TestFolderNavigationLoadsAllThree(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("A", "Album", "")
	svc.addFolder("A1", "Summer", "A")
	svc.addImage("A", "i1", "beach.png")

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "A")
	waitFor(t, nav)

	snap := nav.Snapshot()
	if snap.Phase != PhaseLoaded || snap.FolderName() != "Album" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := folderNames(snap.Subfolders); !reflect.DeepEqual(got, []string{"Summer"}) {
		t.Errorf("Subfolders = %v", got)
	}
	if got := imageNames(snap.Filtered); !reflect.DeepEqual(got, []string{"beach.png"}) {
		t.Errorf("Filtered = %v", got)
	}
	if !snap.ImagesLoaded {
		t.Error("ImagesLoaded should be true")
	}
}

func TestStaleResultsNeverOverwrite(t *testing.T) {
	tests := []struct {
		name         string
		releaseFirst bool // release F1's fetches before F2's
	}{
		{"old completes last", false},
		{"old completes first", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.addFolder("F1", "One", "")
			svc.addFolder("F1c", "child of one", "F1")
			svc.addFolder("F2", "Two", "")
			svc.addFolder("F2c", "child of two", "F2")

			var gates1, gates2 []chan struct{}
			for _, op := range []string{OpGetFolder, OpListSubfolders, OpListImages} {
				gates1 = append(gates1, svc.gate(op+":F1"))
				gates2 = append(gates2, svc.gate(op+":F2"))
			}
			release := func(gates []chan struct{}) {
				for _, g := range gates {
					close(g)
				}
			}

			nav := NewNavigator(svc, nil)
			nav.Navigate(context.Background(), "F1")
			done1 := generationDone(nav)
			nav.Navigate(context.Background(), "F2")
			done2 := generationDone(nav)

			if tt.releaseFirst {
				release(gates1)
				<-done1
				release(gates2)
				<-done2
			} else {
				release(gates2)
				<-done2
				release(gates1)
				<-done1
			}

			snap := nav.Snapshot()
			if snap.FolderID != "F2" || snap.FolderName() != "Two" {
				t.Errorf("folder = %s/%q, want F2/Two", snap.FolderID, snap.FolderName())
			}
			if got := folderNames(snap.Subfolders); !reflect.DeepEqual(got, []string{"child of two"}) {
				t.Errorf("Subfolders = %v, want [child of two]", got)
			}
			if snap.Phase != PhaseLoaded {
				t.Errorf("Phase = %v, want loaded", snap.Phase)
			}
		})
	}
}

func TestImagesDoNotGateLoaded(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("A", "Album", "")
	svc.addImage("A", "i1", "late.png")
	imagesGate := svc.gate(OpListImages + ":A")

	bus := events.NewEventBus(100)
	defer bus.Close()
	phases := bus.Subscribe(EventPhaseChanged)

	nav := NewNavigator(svc, bus)
	nav.Navigate(context.Background(), "A")

	deadline := time.After(2 * time.Second)
	for loaded := false; !loaded; {
		select {
		case e := <-phases:
			loaded = e.(*PhaseChangedEvent).To == PhaseLoaded
		case <-deadline:
			t.Fatal("navigator never reached loaded while images were pending")
		}
	}

	if nav.Snapshot().ImagesLoaded {
		t.Error("images should still be pending")
	}

	close(imagesGate)
	waitFor(t, nav)
	if got := imageNames(nav.Snapshot().Images); !reflect.DeepEqual(got, []string{"late.png"}) {
		t.Errorf("Images = %v", got)
	}
}

func TestPartialFailures(t *testing.T) {
	folderErr := &api.ApplicationError{StatusCode: 404, Message: "Folder not found"}
	subErr := &api.TransportError{Message: "Failed to connect to the server"}

	tests := []struct {
		name      string
		errs      map[string]error
		wantPhase Phase
		wantErr   error
	}{
		{"folder fails", map[string]error{OpGetFolder: folderErr}, PhaseLoaded, folderErr},
		{"subfolders fail", map[string]error{OpListSubfolders: subErr}, PhaseLoaded, subErr},
		{"both fail, folder wins", map[string]error{OpGetFolder: folderErr, OpListSubfolders: subErr}, PhaseFailed, folderErr},
		{"images fail only", map[string]error{OpListImages: subErr}, PhaseLoaded, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.addFolder("A", "Album", "")
			for op, err := range tt.errs {
				svc.setErr(op+":A", err)
			}

			nav := NewNavigator(svc, nil)
			nav.Navigate(context.Background(), "A")
			waitFor(t, nav)

			snap := nav.Snapshot()
			if snap.Phase != tt.wantPhase {
				t.Errorf("Phase = %v, want %v", snap.Phase, tt.wantPhase)
			}
			if snap.Err() != tt.wantErr {
				t.Errorf("Err() = %v, want %v", snap.Err(), tt.wantErr)
			}
		})
	}
}

func TestSearchQueryPureAndIdempotent(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("A", "Album", "")
	svc.addImage("A", "i1", "Cat.png")
	svc.addImage("A", "i2", "dog.png")
	svc.addImage("A", "i3", "concatenate.jpg")

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "A")
	waitFor(t, nav)
	calls := svc.totalCalls()

	first := imageNames(nav.SetSearchQuery("cat"))
	second := imageNames(nav.SetSearchQuery("cat"))
	if !reflect.DeepEqual(first, []string{"Cat.png", "concatenate.jpg"}) || !reflect.DeepEqual(first, second) {
		t.Errorf("SetSearchQuery(cat) = %v then %v", first, second)
	}

	all := imageNames(nav.SetSearchQuery(""))
	if !reflect.DeepEqual(all, []string{"Cat.png", "dog.png", "concatenate.jpg"}) {
		t.Errorf("SetSearchQuery(\"\") = %v, want full list in order", all)
	}
	if svc.totalCalls() != calls {
		t.Error("SetSearchQuery must not call the service")
	}
}

func TestFilteredFollowsImageChanges(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("A", "Album", "")
	svc.addImage("A", "i1", "cat.png")

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "A")
	waitFor(t, nav)
	nav.SetSearchQuery("CAT")

	if _, err := nav.UploadImage(context.Background(), "cat2.png", strings.NewReader("x")); err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if _, err := nav.UploadImage(context.Background(), "dog.png", strings.NewReader("x")); err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if got := imageNames(nav.Snapshot().Filtered); !reflect.DeepEqual(got, []string{"cat.png", "cat2.png"}) {
		t.Errorf("Filtered = %v", got)
	}

	if err := nav.DeleteImage(context.Background(), "i1"); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	if got := imageNames(nav.Snapshot().Filtered); !reflect.DeepEqual(got, []string{"cat2.png"}) {
		t.Errorf("Filtered after delete = %v", got)
	}
}

func TestCreateSubfolderRetryAppearsOnce(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("root-A", "A", "")

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "root-A")
	waitFor(t, nav)

	svc.setErr(OpCreateFolder+":root-A", &api.ApplicationError{StatusCode: 500, Message: "boom"})
	if _, err := nav.CreateSubfolder(context.Background(), "Photos"); err == nil {
		t.Fatal("first CreateSubfolder() should fail")
	}
	if n := len(nav.Snapshot().Subfolders); n != 0 {
		t.Fatalf("failed create changed the list: %d entries", n)
	}

	svc.setErr(OpCreateFolder+":root-A", nil)
	photos := &models.Folder{ID: "p1", Name: "Photos", ParentID: models.StringPtr("root-A")}
	svc.created = []*models.Folder{photos, photos}

	for i := 0; i < 2; i++ {
		if _, err := nav.CreateSubfolder(context.Background(), "Photos"); err != nil {
			t.Fatalf("CreateSubfolder() error = %v", err)
		}
	}

	count := 0
	for _, f := range nav.Snapshot().Subfolders {
		if f.Name == "Photos" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Photos appears %d times, want 1", count)
	}
}

func TestLocalValidation(t *testing.T) {
	svc := newFakeService()
	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "")
	waitFor(t, nav)

	if _, err := nav.CreateSubfolder(context.Background(), "   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("CreateSubfolder(blank) error = %v, want ErrEmptyName", err)
	}
	if _, err := nav.UploadImage(context.Background(), "cat", strings.NewReader("x")); !errors.Is(err, ErrRootUpload) {
		t.Errorf("UploadImage(root) error = %v, want ErrRootUpload", err)
	}
	if svc.callCount(OpCreateFolder) != 0 || svc.callCount(OpUploadImage) != 0 {
		t.Error("local validation failures must not reach the service")
	}
}

func TestDeleteMissingImageIsNoop(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("A", "Album", "")
	svc.addImage("A", "i1", "a.png")
	svc.addImage("A", "i2", "b.png")

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "A")
	waitFor(t, nav)
	before := nav.Snapshot().Images

	if err := nav.DeleteImage(context.Background(), "nope"); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	after := nav.Snapshot().Images
	if len(after) != len(before) || !reflect.DeepEqual(after, before) {
		t.Errorf("Images changed: %v -> %v", imageNames(before), imageNames(after))
	}
}

func TestDeleteFolderRemovesOnSuccessOnly(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("A", "Album", "")
	svc.addFolder("A1", "One", "A")
	svc.addFolder("A2", "Two", "A")

	bus := events.NewEventBus(100)
	defer bus.Close()
	failures := bus.Subscribe(EventOperationFailed)

	nav := NewNavigator(svc, bus)
	nav.Navigate(context.Background(), "A")
	waitFor(t, nav)

	svc.setErr(OpDeleteFolder+":A1", &api.ApplicationError{StatusCode: 403, Message: "not yours"})
	if err := nav.DeleteFolder(context.Background(), "A1"); err == nil {
		t.Fatal("DeleteFolder() should fail")
	}
	select {
	case e := <-failures:
		if op := e.(*OperationFailedEvent).Operation; op != OpDeleteFolder {
			t.Errorf("failed op = %s", op)
		}
	case <-time.After(time.Second):
		t.Error("expected an operation_failed event")
	}
	if got := folderNames(nav.Snapshot().Subfolders); !reflect.DeepEqual(got, []string{"One", "Two"}) {
		t.Errorf("Subfolders after failed delete = %v", got)
	}

	if err := nav.DeleteFolder(context.Background(), "A2"); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	if got := folderNames(nav.Snapshot().Subfolders); !reflect.DeepEqual(got, []string{"One"}) {
		t.Errorf("Subfolders after delete = %v", got)
	}
}

func TestAuthRejectedClearsSessionAndRedirects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		run  func(nav *Navigator) error
	}{
		{
			name: OpGetFolder,
			key:  OpGetFolder + ":A",
			run:  func(nav *Navigator) error { nav.Navigate(context.Background(), "A"); return nil },
		},
		{
			name: OpListSubfolders,
			key:  OpListSubfolders + ":A",
			run:  func(nav *Navigator) error { nav.Navigate(context.Background(), "A"); return nil },
		},
		{
			name: OpUploadImage,
			key:  OpUploadImage + ":A",
			run: func(nav *Navigator) error {
				_, err := nav.UploadImage(context.Background(), "cat", strings.NewReader("x"))
				return err
			},
		},
		{
			name: OpDeleteFolder,
			key:  OpDeleteFolder + ":A1",
			run:  func(nav *Navigator) error { return nav.DeleteFolder(context.Background(), "A1") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.addFolder("A", "Album", "")
			svc.addFolder("A1", "One", "A")

			store, _ := session.NewStore(session.NewMemoryPort(), nil)
			_ = store.Login("t1")

			bus := events.NewEventBus(100)
			defer bus.Close()
			loginRequired := bus.Subscribe(events.EventLoginRequired)

			var redirects int32
			nav := NewNavigator(svc, bus,
				WithSession(store),
				WithLoginRedirect(func() { atomic.AddInt32(&redirects, 1) }))

			// Start from a loaded folder so mutations have somewhere to run
			nav.Navigate(context.Background(), "A")
			waitFor(t, nav)

			svc.setErr(tt.key, api.ErrAuthenticationRejected)
			err := tt.run(nav)
			waitFor(t, nav)

			if err != nil && !api.IsAuthRejected(err) {
				t.Errorf("error = %v, want auth rejection", err)
			}
			if store.IsLoggedIn() {
				t.Error("session should be cleared")
			}
			if got := atomic.LoadInt32(&redirects); got != 1 {
				t.Errorf("login redirect ran %d times, want 1", got)
			}
			if nav.Phase() != PhaseUnauthenticated {
				t.Errorf("Phase = %v, want unauthenticated", nav.Phase())
			}
			select {
			case <-loginRequired:
			case <-time.After(time.Second):
				t.Error("expected a login_required event")
			}
		})
	}
}

func TestAuthRejectedSupersedesOtherFetches(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("A", "Album", "")
	svc.addFolder("A1", "One", "A")
	subGate := svc.gate(OpListSubfolders + ":A")
	svc.setErr(OpGetFolder+":A", api.ErrAuthenticationRejected)

	var redirects int32
	nav := NewNavigator(svc, nil, WithLoginRedirect(func() { atomic.AddInt32(&redirects, 1) }))
	nav.Navigate(context.Background(), "A")

	deadline := time.Now().Add(2 * time.Second)
	for nav.Phase() != PhaseUnauthenticated {
		if time.Now().After(deadline) {
			t.Fatal("never became unauthenticated")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(subGate)
	waitFor(t, nav)

	snap := nav.Snapshot()
	if snap.Phase != PhaseUnauthenticated || len(snap.Subfolders) != 0 {
		t.Errorf("later results leaked into an unauthenticated snapshot: %+v", snap)
	}
	if got := atomic.LoadInt32(&redirects); got != 1 {
		t.Errorf("redirects = %d, want 1", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("f1", "Docs", "")

	nav := NewNavigator(svc, nil)
	nav.Navigate(context.Background(), "")
	waitFor(t, nav)

	snap := nav.Snapshot()
	snap.Subfolders[0].Name = "changed"
	if nav.Snapshot().Subfolders[0].Name != "Docs" {
		t.Error("mutating a snapshot leaked into the navigator")
	}
}

func TestStaleAuthRejectionLeavesNewerGeneration(t *testing.T) {
	svc := newFakeService()
	svc.addFolder("F1", "One", "")
	svc.addFolder("F2", "Two", "")
	gate := svc.gate(OpGetFolder + ":F1")
	svc.setErr(OpGetFolder+":F1", api.ErrAuthenticationRejected)

	store, _ := session.NewStore(session.NewMemoryPort(), nil)
	_ = store.Login("t1")

	var redirects int32
	nav := NewNavigator(svc, nil,
		WithSession(store),
		WithLoginRedirect(func() { atomic.AddInt32(&redirects, 1) }))

	nav.Navigate(context.Background(), "F1")
	done1 := generationDone(nav)
	nav.Navigate(context.Background(), "F2")
	waitFor(t, nav)

	close(gate)
	<-done1

	snap := nav.Snapshot()
	if snap.Phase != PhaseLoaded || snap.FolderName() != "Two" {
		t.Errorf("snapshot = %v/%q, want loaded/Two", snap.Phase, snap.FolderName())
	}
	if got := atomic.LoadInt32(&redirects); got != 0 {
		t.Errorf("login redirect ran %d times for a superseded fetch", got)
	}
	if !store.IsLoggedIn() {
		t.Error("a superseded fetch must not clear the session")
	}

	// The newer generation still gets its own redirect
	svc.setErr(OpListSubfolders+":F2", api.ErrAuthenticationRejected)
	nav.Refresh(context.Background())
	waitFor(t, nav)
	if got := atomic.LoadInt32(&redirects); got != 1 {
		t.Errorf("redirects after refresh = %d, want 1", got)
	}
	if nav.CurrentFolderID() != "F2" || nav.Phase() != PhaseUnauthenticated {
		t.Errorf("refresh state = %s/%v", nav.CurrentFolderID(), nav.Phase())
	}
}

func TestSnapshotFindByNameThenID(t *testing.T) {
	snap := Snapshot{
		Subfolders: []models.Folder{{ID: "a", Name: "b"}, {ID: "b", Name: "Trips"}},
		Images:     []models.Image{{ID: "i1", Name: "cat.png"}, {ID: "cat.png", Name: "other"}},
	}

	tests := []struct {
		ref    string
		wantID string
		wantOK bool
	}{
		{ref: "Trips", wantID: "b", wantOK: true},
		{ref: "b", wantID: "a", wantOK: true}, // a name beats an id
		{ref: "missing"},
	}
	for _, tt := range tests {
		f, ok := snap.FindSubfolder(tt.ref)
		if ok != tt.wantOK || f.ID != tt.wantID {
			t.Errorf("FindSubfolder(%q) = (%q, %v), want (%q, %v)", tt.ref, f.ID, ok, tt.wantID, tt.wantOK)
		}
	}

	if img, ok := snap.FindImage("cat.png"); !ok || img.ID != "i1" {
		t.Errorf("FindImage(cat.png) = (%q, %v)", img.ID, ok)
	}
	if img, ok := snap.FindImage("i1"); !ok || img.Name != "cat.png" {
		t.Errorf("FindImage(i1) = (%q, %v)", img.Name, ok)
	}
}
