package gdrive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"viralcut/internal/ports"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Client implements ports.StorageProvider backed by Google Drive.
// Object keys are stored as the Drive file name so a locator handed out
// before upload stays valid; reads look the file up by name.
type Client struct {
	srv      *drive.Service
	folderID string
}

func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	file := &drive.File{Name: in.ObjectKey}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}

	call := c.srv.Files.Create(file)
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Fields("id", "size").Context(ctx).Do()
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("gdrive upload failed: %w", err)
	}

	size := in.Size
	if created.Size > 0 {
		size = created.Size
	}
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: size}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	id, err := c.lookup(ctx, objectKey)
	if err != nil {
		return nil, "", 0, err
	}

	resp, err := c.srv.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, "", 0, fmt.Errorf("gdrive download failed: %w", err)
	}

	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	id, err := c.lookup(ctx, objectKey)
	if err != nil {
		return err
	}
	return c.srv.Files.Delete(id).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

func (c *Client) lookup(ctx context.Context, objectKey string) (string, error) {
	list, err := c.srv.Files.List().
		Q(nameQuery(objectKey, c.folderID)).
		Fields("files(id)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("gdrive lookup failed: %w", err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("gdrive object %q: %w", objectKey, os.ErrNotExist)
	}
	return list.Files[0].Id, nil
}

func nameQuery(objectKey, folderID string) string {
	esc := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	q := fmt.Sprintf("name = '%s' and trashed = false", esc.Replace(objectKey))
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", esc.Replace(folderID))
	}
	return q
}
