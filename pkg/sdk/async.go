package sdk

import (
	"context"

	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
	"github.com/dmitrijs2005/gophrecords/pkg/records"
	"github.com/dmitrijs2005/gophrecords/pkg/task"
)

// Go runs fn in the background. Cancelling the returned task cancels the
// context fn receives and makes the task finish with ErrCancelled.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *task.Task[T] {
	return task.Run(ctx, fn)
}

func CreateRecordAsync[T fhir.Resource](ctx context.Context, c *Client, res T, annotations ...string) *task.Task[records.Record[T]] {
	return Go(ctx, func(ctx context.Context) (records.Record[T], error) {
		return CreateRecord(ctx, c, res, annotations...)
	})
}

func UpdateRecordAsync[T fhir.Resource](ctx context.Context, c *Client, res T, annotations ...string) *task.Task[records.Record[T]] {
	return Go(ctx, func(ctx context.Context) (records.Record[T], error) {
		return UpdateRecord(ctx, c, res, annotations...)
	})
}

func FetchRecordAsync[T fhir.Resource](ctx context.Context, c *Client, recordID string) *task.Task[records.Record[T]] {
	return Go(ctx, func(ctx context.Context) (records.Record[T], error) {
		return FetchRecord[T](ctx, c, recordID)
	})
}

func DownloadRecordAsync[T fhir.Resource](ctx context.Context, c *Client, recordID string) *task.Task[records.Record[T]] {
	return Go(ctx, func(ctx context.Context) (records.Record[T], error) {
		return DownloadRecord[T](ctx, c, recordID)
	})
}

func (c *Client) DeleteRecordAsync(ctx context.Context, recordID string) *task.Task[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.DeleteRecord(ctx, recordID)
	})
}

func (c *Client) DownloadAttachmentsAsync(ctx context.Context, recordID string, attachmentIDs []string, typ records.DownloadType) *task.Task[[]*fhir.Attachment] {
	return Go(ctx, func(ctx context.Context) ([]*fhir.Attachment, error) {
		return c.DownloadAttachments(ctx, recordID, attachmentIDs, typ)
	})
}

func (c *Client) SearchRecordsAsync(ctx context.Context, q records.Query) *task.Task[[]records.Record[fhir.Resource]] {
	return Go(ctx, func(ctx context.Context) ([]records.Record[fhir.Resource], error) {
		return c.SearchRecords(ctx, q)
	})
}
