package sdk

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrecords/internal/client/models"
	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
	"github.com/dmitrijs2005/gophrecords/pkg/records"
)

// CreateRecord stores res as a new record. res itself is left untouched.
func CreateRecord[T fhir.Resource](ctx context.Context, c *Client, res T, annotations ...string) (records.Record[T], error) {
	rec, err := c.records.CreateRecord(ctx, res, annotations)
	if err != nil {
		return records.Record[T]{}, err
	}
	return typed[T](rec)
}

// UpdateRecord replaces the record identified by res.GetID().
func UpdateRecord[T fhir.Resource](ctx context.Context, c *Client, res T, annotations ...string) (records.Record[T], error) {
	rec, err := c.records.UpdateRecord(ctx, res, annotations)
	if err != nil {
		return records.Record[T]{}, err
	}
	return typed[T](rec)
}

// FetchRecord returns the record without attachment payloads.
func FetchRecord[T fhir.Resource](ctx context.Context, c *Client, recordID string) (records.Record[T], error) {
	rec, err := c.records.FetchRecord(ctx, recordID)
	if err != nil {
		return records.Record[T]{}, err
	}
	return typed[T](rec)
}

// DownloadRecord returns the record with every attachment payload filled in.
func DownloadRecord[T fhir.Resource](ctx context.Context, c *Client, recordID string) (records.Record[T], error) {
	rec, err := c.records.DownloadRecord(ctx, recordID)
	if err != nil {
		return records.Record[T]{}, err
	}
	return typed[T](rec)
}

func CreateRecords[T fhir.Resource](ctx context.Context, c *Client, resources []T, annotations ...string) records.BatchResult[records.Record[T], T] {
	return typedBatch[T](c.records.CreateRecords(ctx, asResources(resources), annotations), asType[T], resourceOf[T])
}

func UpdateRecords[T fhir.Resource](ctx context.Context, c *Client, resources []T, annotations ...string) records.BatchResult[records.Record[T], T] {
	return typedBatch[T](c.records.UpdateRecords(ctx, asResources(resources), annotations), asType[T], resourceOf[T])
}

func FetchRecords[T fhir.Resource](ctx context.Context, c *Client, recordIDs []string) records.BatchResult[records.Record[T], string] {
	return typedBatch[T](c.records.FetchRecordsByID(ctx, recordIDs), identity, recordID)
}

func DownloadRecords[T fhir.Resource](ctx context.Context, c *Client, recordIDs []string) records.BatchResult[records.Record[T], string] {
	return typedBatch[T](c.records.DownloadRecords(ctx, recordIDs), identity, recordID)
}

// DeleteRecord removes a record.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	return c.records.DeleteRecord(ctx, recordID)
}

func (c *Client) DeleteRecords(ctx context.Context, recordIDs []string) records.BatchResult[string, string] {
	return c.records.DeleteRecords(ctx, recordIDs)
}

// DownloadAttachments fetches the requested attachments of a record. Variant
// downloads come back with a transient "full#variant" id.
func (c *Client) DownloadAttachments(ctx context.Context, recordID string, attachmentIDs []string, typ records.DownloadType) ([]*fhir.Attachment, error) {
	return c.records.DownloadAttachments(ctx, recordID, attachmentIDs, typ)
}

// SearchRecords returns the FHIR records matching q. Raw data records are
// excluded.
func (c *Client) SearchRecords(ctx context.Context, q records.Query) ([]records.Record[fhir.Resource], error) {
	found, err := c.records.SearchRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]records.Record[fhir.Resource], 0, len(found))
	for _, rec := range found {
		if rec.Resource() == nil {
			continue
		}
		out = append(out, records.Record[fhir.Resource]{
			Resource:    rec.Resource(),
			Meta:        metaOf(rec),
			Annotations: rec.Annotations,
		})
	}
	return out, nil
}

func (c *Client) CountRecords(ctx context.Context, resourceType string, annotations ...string) (int, error) {
	return c.records.CountRecords(ctx, resourceType, annotations)
}

func (c *Client) CreateDataRecord(ctx context.Context, data []byte, annotations ...string) (records.DataRecord, error) {
	rec, err := c.records.CreateDataRecord(ctx, data, annotations)
	if err != nil {
		return records.DataRecord{}, err
	}
	return dataRecord(rec)
}

func (c *Client) UpdateDataRecord(ctx context.Context, recordID string, data []byte, annotations ...string) (records.DataRecord, error) {
	rec, err := c.records.UpdateDataRecord(ctx, recordID, data, annotations)
	if err != nil {
		return records.DataRecord{}, err
	}
	return dataRecord(rec)
}

func (c *Client) FetchDataRecord(ctx context.Context, recordID string) (records.DataRecord, error) {
	rec, err := c.records.FetchDataRecord(ctx, recordID)
	if err != nil {
		return records.DataRecord{}, err
	}
	return dataRecord(rec)
}

func typed[T fhir.Resource](rec *models.DecryptedRecord) (records.Record[T], error) {
	res, ok := rec.Resource().(T)
	if !ok {
		var want T
		return records.Record[T]{}, common.ExpectedFieldViolation(
			fmt.Sprintf("record %s holds %T, not %T", rec.ID, rec.Resource(), want))
	}
	return records.Record[T]{Resource: res, Meta: metaOf(rec), Annotations: rec.Annotations}, nil
}

func dataRecord(rec *models.DecryptedRecord) (records.DataRecord, error) {
	raw, ok := rec.Payload.(models.RawPayload)
	if !ok {
		return records.DataRecord{}, common.ExpectedFieldViolation(fmt.Sprintf("record %s is not a data record", rec.ID))
	}
	return records.DataRecord{ID: rec.ID, Data: raw.Data, Meta: metaOf(rec), Annotations: rec.Annotations}, nil
}

func metaOf(rec *models.DecryptedRecord) records.Meta {
	return records.Meta{CreatedDate: rec.CustomCreated, UpdatedDate: rec.UpdatedAt}
}

func asResources[T fhir.Resource](in []T) []fhir.Resource {
	out := make([]fhir.Resource, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

func identity(s string) string { return s }

func recordID(rec *models.DecryptedRecord) string { return rec.ID }

func asType[T fhir.Resource](r fhir.Resource) T {
	v, _ := r.(T)
	return v
}

func resourceOf[T fhir.Resource](rec *models.DecryptedRecord) T {
	return asType[T](rec.Resource())
}

// typedBatch converts a batch over untyped records. A success whose resource
// has another type moves to the failures, keyed by lost(record).
func typedBatch[T fhir.Resource, In any, F any](
	res records.BatchResult[*models.DecryptedRecord, In],
	input func(In) F,
	lost func(*models.DecryptedRecord) F,
) records.BatchResult[records.Record[T], F] {
	var out records.BatchResult[records.Record[T], F]
	for _, rec := range res.Successes {
		r, err := typed[T](rec)
		if err != nil {
			out.Failures = append(out.Failures, records.Failure[F]{Input: lost(rec), Err: err})
			continue
		}
		out.Successes = append(out.Successes, r)
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, records.Failure[F]{Input: input(f.Input), Err: f.Err})
	}
	return out
}
