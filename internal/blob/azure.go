package blob

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
)

// AzureTransferer uploads to a SAS URL. Azure requires the block-blob
// headers a plain PUT does not send, so the SDK client is used instead.
type AzureTransferer struct {
	options *blockblob.ClientOptions
	logger  *slog.Logger
}

func NewAzureTransferer(options *blockblob.ClientOptions, logger *slog.Logger) *AzureTransferer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AzureTransferer{options: options, logger: logger}
}

func (t *AzureTransferer) Transfer(ctx context.Context, target string, data []byte, contentType string) error {
	client, err := blockblob.NewClientWithNoCredential(target, t.options)
	if err != nil {
		return &TransferError{Cause: err}
	}
	_, err = client.UploadBuffer(ctx, data, &blockblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			t.logger.Warn("azure blob transfer rejected", "status", respErr.StatusCode, "code", respErr.ErrorCode)
			return &TransferError{Status: respErr.StatusCode, Cause: err}
		}
		return &TransferError{Cause: err}
	}
	return nil
}
