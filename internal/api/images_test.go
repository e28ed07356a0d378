package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

// 1x1 transparent PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestUploadImageMultipart(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/folders/upload-image/f1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if got := r.FormValue("name"); got != "cat" {
			t.Errorf("name field = %q, want cat", got)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile(image) error = %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "cat.png" {
			t.Errorf("filename = %q, want cat.png", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part Content-Type = %q, want image/png", ct)
		}
		data, _ := io.ReadAll(file)
		if !bytes.Equal(data, pngBytes) {
			t.Error("uploaded bytes differ from source")
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"image":   map[string]string{"_id": "i1", "name": "cat", "folder": "f1", "url": "https://cdn/cat.png"},
		})
	})

	img, err := client.UploadImage(context.Background(), "f1", "cat", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("UploadImage() error = %v", err)
	}
	if img.ID != "i1" || img.FolderID != "f1" {
		t.Errorf("UploadImage() = %+v", img)
	}
}

func TestUploadImageRequiresSuccessFlag(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
	})

	_, err := client.UploadImage(context.Background(), "f1", "cat", strings.NewReader("data"))
	var te *TransportError
	if !errors.As(err, &te) || te.Message != msgInvalidResponse {
		t.Errorf("UploadImage() error = %v, want %q", err, msgInvalidResponse)
	}
}

func TestImagesAtRootRejectedLocally(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	if _, err := client.ListImages(context.Background(), ""); !errors.Is(err, ErrRootHasNoImages) {
		t.Errorf("ListImages(root) error = %v", err)
	}
	if _, err := client.UploadImage(context.Background(), "", "x", strings.NewReader("x")); !errors.Is(err, ErrRootHasNoImages) {
		t.Errorf("UploadImage(root) error = %v", err)
	}
}

func TestListAndDeleteImages(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/folders/images/f1":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"images": []map[string]string{{"_id": "i1", "name": "cat"}, {"_id": "i2", "name": "dog"}},
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/folders/delete-image/i1":
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "deleted"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})

	images, err := client.ListImages(context.Background(), "f1")
	if err != nil || len(images) != 2 {
		t.Fatalf("ListImages() = (%v, %v)", images, err)
	}
	if err := client.DeleteImage(context.Background(), "i1"); err != nil {
		t.Errorf("DeleteImage() error = %v", err)
	}
}
