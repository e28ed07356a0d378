package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/drivemanager/drivectl/internal/api"
	"github.com/drivemanager/drivectl/internal/models"
)

func sampleRemote() *memRemote {
	m := newMemRemote()
	m.add("docs", "Docs", "")
	m.add("pics", "Pictures", "")
	m.add("y2024", "2024", "docs")
	m.add("trips", "Trips", "y2024")
	m.add("y2025", "2025", "docs")
	m.images["trips"] = []models.Image{{ID: "i1", Name: "beach"}, {ID: "i2", Name: "hill"}}
	return m
}

func treeLines(root *TreeNode) []string {
	var out []string
	root.Walk(func(n *TreeNode) {
		out = append(out, n.Folder.Name)
	})
	return out
}

func TestTreeFullWalkKeepsServerOrder(t *testing.T) {
	svc := NewFolderService(sampleRemote(), nil)

	root, err := svc.Tree(context.Background(), "", TreeOptions{CountImages: true})
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}

	want := []string{"Root Folder", "Docs", "2024", "Trips", "2025", "Pictures"}
	if got := treeLines(root); !reflect.DeepEqual(got, want) {
		t.Errorf("Tree() = %v, want %v", got, want)
	}

	var trips *TreeNode
	root.Walk(func(n *TreeNode) {
		if n.Folder.ID == "trips" {
			trips = n
		}
	})
	if trips == nil || trips.ImageCount != 2 || trips.Depth != 3 {
		t.Errorf("trips node = %+v", trips)
	}
	if root.ImageCount != -1 {
		t.Errorf("root ImageCount = %d, want -1", root.ImageCount)
	}
}

func TestTreeMaxDepth(t *testing.T) {
	svc := NewFolderService(sampleRemote(), nil)

	root, err := svc.Tree(context.Background(), "docs", TreeOptions{MaxDepth: 1})
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	if got := treeLines(root); !reflect.DeepEqual(got, []string{"Docs", "2024", "2025"}) {
		t.Errorf("Tree(depth 1) = %v", got)
	}
}

func TestTreeRecordsNodeErrors(t *testing.T) {
	remote := sampleRemote()
	remote.errs["list:y2024"] = &api.ApplicationError{StatusCode: 500, Message: "boom"}
	svc := NewFolderService(remote, nil)

	root, err := svc.Tree(context.Background(), "", TreeOptions{})
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}

	var failed *TreeNode
	root.Walk(func(n *TreeNode) {
		if n.Err != nil {
			failed = n
		}
	})
	if failed == nil || failed.Folder.ID != "y2024" {
		t.Errorf("expected the 2024 node to carry the error, got %+v", failed)
	}
}

func TestTreeAbortsOnAuthRejection(t *testing.T) {
	remote := sampleRemote()
	remote.errs["list:docs"] = api.ErrAuthenticationRejected
	svc := NewFolderService(remote, nil)

	if _, err := svc.Tree(context.Background(), "", TreeOptions{}); !errors.Is(err, api.ErrAuthenticationRejected) {
		t.Errorf("Tree() error = %v, want auth rejection", err)
	}
}

func TestResolvePath(t *testing.T) {
	svc := NewFolderService(sampleRemote(), nil)

	tests := []struct {
		path    string
		wantID  string
		wantErr bool
	}{
		{"", "", false},
		{"/", "", false},
		{"Docs", "docs", false},
		{"/Docs/2024/Trips", "trips", false},
		{"Docs//2025/", "y2025", false},
		{"/Docs/2026", "", true},
		{"/docs", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := svc.ResolvePath(context.Background(), tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrPathNotFound) {
					t.Errorf("ResolvePath(%q) error = %v, want ErrPathNotFound", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePath(%q) error = %v", tt.path, err)
			}
			if got.ID != tt.wantID {
				t.Errorf("ResolvePath(%q) = %q, want %q", tt.path, got.ID, tt.wantID)
			}
		})
	}
}

func TestResolveAcceptsIDOrPath(t *testing.T) {
	svc := NewFolderService(sampleRemote(), nil)

	byID, err := svc.Resolve(context.Background(), "y2024")
	if err != nil || byID.Name != "2024" {
		t.Errorf("Resolve(id) = (%+v, %v)", byID, err)
	}
	byPath, err := svc.Resolve(context.Background(), "/Docs/2024")
	if err != nil || byPath.ID != "y2024" {
		t.Errorf("Resolve(path) = (%+v, %v)", byPath, err)
	}
}

func TestPathOf(t *testing.T) {
	svc := NewFolderService(sampleRemote(), nil)

	got, err := svc.PathOf(context.Background(), "trips")
	if err != nil {
		t.Fatalf("PathOf() error = %v", err)
	}
	if got != "/Docs/2024/Trips" {
		t.Errorf("PathOf() = %q", got)
	}
}
