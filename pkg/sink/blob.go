package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/item"
)

// Uploader stores a finished result document.
type Uploader interface {
	UploadResult(ctx context.Context, blobPath string, data []byte, metadata map[string]string) (string, error)
}

// AzureBlobClient uploads results to one Azure Blob Storage container using
// a shared key. It also works against Azurite over plain HTTP.
type AzureBlobClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger

	mu            sync.Mutex
	containerInit bool
}

// NewAzureBlobClient creates a client from a standard connection string.
func NewAzureBlobClient(connectionString, containerName string, logger *zap.Logger) (*AzureBlobClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if connectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if containerName == "" {
		return nil, fmt.Errorf("container name is required")
	}

	params := parseConnectionString(connectionString)
	accountName := params["AccountName"]
	accountKey := params["AccountKey"]
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("account name and key are required in the connection string")
	}
	serviceURL := params["BlobEndpoint"]
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	var clientOpts *azblob.ClientOptions
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		clientOpts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{InsecureAllowCredentialWithHTTP: true},
		}
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureBlobClient{client: client, containerName: containerName, logger: logger}, nil
}

// UploadResult uploads data as a JSON block blob and returns its URL.
func (a *AzureBlobClient) UploadResult(ctx context.Context, blobPath string, data []byte, metadata map[string]string) (string, error) {
	if err := a.ensureContainer(ctx); err != nil {
		return "", err
	}

	metadataPtr := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		metadataPtr[k] = to.Ptr(v)
	}

	blobClient := a.client.ServiceClient().NewContainerClient(a.containerName).NewBlockBlobClient(blobPath)
	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata:    metadataPtr,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("application/json")},
	})
	if err != nil {
		a.logger.Error("failed to upload to blob storage",
			zap.String("blob_path", blobPath),
			zap.Int("size", len(data)),
			zap.Error(err))
		return "", fmt.Errorf("blob upload failed: %w", err)
	}

	a.logger.Info("uploaded blob", zap.String("blob_path", blobPath), zap.Int("size_bytes", len(data)))
	return blobClient.URL(), nil
}

func (a *AzureBlobClient) ensureContainer(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.containerInit {
		return nil
	}

	_, err := a.client.CreateContainer(ctx, a.containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to ensure container: %w", err)
	}
	a.containerInit = true
	return nil
}

func parseConnectionString(connectionString string) map[string]string {
	parts := strings.Split(connectionString, ";")
	params := make(map[string]string, len(parts))
	for _, part := range parts {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		params[key] = value
	}
	return params
}

// BlobResult is the document a Blob sink uploads.
type BlobResult struct {
	RunID string       `json:"run_id"`
	Count int          `json:"count"`
	Items []*item.Item `json:"items"`
}

// Blob collects every batch of a run and uploads them as one document on
// Close.
type Blob struct {
	uploader Uploader
	path     string
	runID    string
	logger   *zap.Logger

	mu    sync.Mutex
	items []*item.Item
	url   string
}

// NewBlob creates a blob sink writing to path.
func NewBlob(uploader Uploader, path, runID string, logger *zap.Logger) (*Blob, error) {
	if uploader == nil {
		return nil, fmt.Errorf("uploader cannot be nil")
	}
	if path == "" {
		return nil, fmt.Errorf("blob path cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Blob{uploader: uploader, path: path, runID: runID, logger: logger}, nil
}

func (s *Blob) Write(_ context.Context, batch []*item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, batch...)
	return nil
}

// Close uploads the collected items.
func (s *Blob) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(BlobResult{RunID: s.runID, Count: len(s.items), Items: s.items})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	url, err := s.uploader.UploadResult(ctx, s.path, data, map[string]string{
		"run_id": s.runID,
		"count":  strconv.Itoa(len(s.items)),
	})
	if err != nil {
		return err
	}
	s.url = url
	s.logger.Info("run result stored", zap.String("url", url), zap.Int("items", len(s.items)))
	return nil
}

// URL returns the location of the uploaded result once Close succeeded.
func (s *Blob) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

var (
	_ Uploader = (*AzureBlobClient)(nil)
	_ Sink     = (*Blob)(nil)
)
