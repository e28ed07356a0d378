package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/drivemanager/drivectl/internal/models"
)

// ListImages returns the images stored directly in folderID.
func (c *Client) ListImages(ctx context.Context, folderID string) ([]models.Image, error) {
	if folderID == "" {
		return nil, ErrRootHasNoImages
	}

	var resp models.ImagesResponse
	path := "/folders/images/" + url.PathEscape(folderID)
	if err := c.do(ctx, request{method: nethttp.MethodGet, path: path}, &resp); err != nil {
		return nil, err
	}
	if resp.Images == nil {
		return []models.Image{}, nil
	}
	return resp.Images, nil
}

// UploadImage sends content as a multipart form with the fields "image" (the
// file part) and "name". The backend must answer with success == true.
func (c *Client) UploadImage(ctx context.Context, folderID, name string, content io.Reader) (*models.Image, error) {
	if folderID == "" {
		return nil, ErrRootHasNoImages
	}

	// Sniff the content type from the header bytes, then stream the rest
	header := make([]byte, 3072)
	n, err := io.ReadFull(content, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	header = header[:n]
	mtype := mimetype.Detect(header)
	body := io.MultiReader(bytes.NewReader(header), content)

	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	go func() {
		var err error
		defer func() {
			_ = pipeWriter.CloseWithError(err)
		}()

		partHeader := make(textproto.MIMEHeader)
		partHeader.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(uploadFilename(name, mtype))))
		partHeader.Set("Content-Type", mtype.String())

		part, err := writer.CreatePart(partHeader)
		if err != nil {
			err = fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err = io.Copy(part, body); err != nil {
			err = fmt.Errorf("failed to copy image data: %w", err)
			return
		}
		if err = writer.WriteField("name", name); err != nil {
			err = fmt.Errorf("failed to write name field: %w", err)
			return
		}
		err = writer.Close()
	}()

	var resp models.UploadImageResponse
	path := "/folders/upload-image/" + url.PathEscape(folderID)
	err = c.do(ctx, request{
		method:      nethttp.MethodPost,
		path:        path,
		body:        pipeReader,
		contentType: writer.FormDataContentType(),
	}, &resp)
	_ = pipeReader.Close()
	if err != nil {
		return nil, err
	}

	if !resp.Success || resp.Image == nil {
		return nil, &TransportError{Message: msgInvalidResponse}
	}
	return resp.Image, nil
}

// DeleteImage deletes one image by id.
func (c *Client) DeleteImage(ctx context.Context, imageID string) error {
	path := "/folders/delete-image/" + url.PathEscape(imageID)
	return c.do(ctx, request{method: nethttp.MethodDelete, path: path}, nil)
}

// uploadFilename gives the file part an extension matching its content so the
// backend's storage keeps a usable name.
func uploadFilename(name string, mtype *mimetype.MIME) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "image"
	}
	if filepath.Ext(base) == "" {
		base += mtype.Extension()
	}
	return base
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
