// Package drive lists and downloads source PDFs from a Google Drive folder.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Sentinel errors for Drive operations.
var (
	// ErrAuthentication indicates an invalid or expired service credential.
	ErrAuthentication = errors.New("drive: authentication failed")

	// ErrNotFound indicates a missing folder or file.
	ErrNotFound = errors.New("drive: not found")
)

// pdfMimeType is the only MIME type the source adapter syncs.
const pdfMimeType = "application/pdf"

// listPageSize is the page size for files.list requests.
const listPageSize = 100

// File identifies a document in the source folder.
type File struct {
	// ID is the provider's file identifier.
	ID string
	// Name is the file name, unique within the source folder.
	Name string
}

// Client wraps the Drive v3 API for read-only document access.
type Client struct {
	svc    *drive.Service
	logger *zap.Logger
}

// NewClient builds a Client authenticated with a service account key.
// credentialsJSON is the raw service account JSON (already base64-decoded).
func NewClient(ctx context.Context, credentialsJSON []byte, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing service account credentials: %v", ErrAuthentication, err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return &Client{svc: svc, logger: logger}, nil
}

// NewClientFromService wraps an existing Drive service. Used by tests to
// point the client at a fake API endpoint.
func NewClientFromService(svc *drive.Service, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{svc: svc, logger: logger}
}

// ListPDFs returns the non-trashed PDF files in the given folder.
// An empty folder yields an empty slice, not an error.
func (c *Client) ListPDFs(ctx context.Context, folderID string) ([]File, error) {
	if folderID == "" {
		return nil, fmt.Errorf("%w: folder id is required", ErrNotFound)
	}

	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", folderID, pdfMimeType)

	var files []File
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			Fields("nextPageToken", "files(id, name)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, mapAPIError(fmt.Errorf("listing folder %s: %w", folderID, err))
		}

		for _, f := range res.Files {
			files = append(files, File{ID: f.Id, Name: f.Name})
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	c.logger.Debug("listed drive folder",
		zap.String("folder_id", folderID),
		zap.Int("pdf_count", len(files)),
	)

	return files, nil
}

// Download streams the file's bytes to destPath. On success destPath
// holds an exact copy; a partial file is removed on failure. Skip-if-exists
// caching is the caller's concern.
func (c *Client) Download(ctx context.Context, fileID, destPath string) error {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return mapAPIError(fmt.Errorf("downloading file %s: %w", fileID, err))
	}
	defer resp.Body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("writing %s: %w", destPath, err)
	}

	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("closing %s: %w", destPath, err)
	}

	c.logger.Debug("downloaded drive file",
		zap.String("file_id", fileID),
		zap.String("dest", destPath),
	)

	return nil
}

// mapAPIError translates googleapi status codes into sentinel errors.
func mapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		case 404:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}
