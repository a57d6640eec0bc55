package cli

import (
	"context"

	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
	"github.com/dmitrijs2005/gophrecords/pkg/records"
	"github.com/dmitrijs2005/gophrecords/pkg/sdk"
)

// Records is the record surface the commands need.
type Records interface {
	Create(ctx context.Context, res fhir.Resource, annotations []string) (records.Record[fhir.Resource], error)
	Fetch(ctx context.Context, recordID string) (records.Record[fhir.Resource], error)
	Download(ctx context.Context, recordID string) (records.Record[fhir.Resource], error)
	Delete(ctx context.Context, recordID string) error
	Search(ctx context.Context, q records.Query) ([]records.Record[fhir.Resource], error)
	Count(ctx context.Context, resourceType string, annotations []string) (int, error)
	CreateData(ctx context.Context, data []byte, annotations []string) (records.DataRecord, error)
	FetchData(ctx context.Context, recordID string) (records.DataRecord, error)
	DownloadAttachments(ctx context.Context, recordID string, ids []string, typ records.DownloadType) ([]*fhir.Attachment, error)
}

// Pinger reports whether the platform is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SDKRecords adapts an sdk.Client to Records.
type SDKRecords struct {
	Client *sdk.Client
}

func (r SDKRecords) Create(ctx context.Context, res fhir.Resource, annotations []string) (records.Record[fhir.Resource], error) {
	return sdk.CreateRecord(ctx, r.Client, res, annotations...)
}

func (r SDKRecords) Fetch(ctx context.Context, recordID string) (records.Record[fhir.Resource], error) {
	return sdk.FetchRecord[fhir.Resource](ctx, r.Client, recordID)
}

func (r SDKRecords) Download(ctx context.Context, recordID string) (records.Record[fhir.Resource], error) {
	return sdk.DownloadRecord[fhir.Resource](ctx, r.Client, recordID)
}

func (r SDKRecords) Delete(ctx context.Context, recordID string) error {
	return r.Client.DeleteRecord(ctx, recordID)
}

func (r SDKRecords) Search(ctx context.Context, q records.Query) ([]records.Record[fhir.Resource], error) {
	return r.Client.SearchRecords(ctx, q)
}

func (r SDKRecords) Count(ctx context.Context, resourceType string, annotations []string) (int, error) {
	return r.Client.CountRecords(ctx, resourceType, annotations...)
}

func (r SDKRecords) CreateData(ctx context.Context, data []byte, annotations []string) (records.DataRecord, error) {
	return r.Client.CreateDataRecord(ctx, data, annotations...)
}

func (r SDKRecords) FetchData(ctx context.Context, recordID string) (records.DataRecord, error) {
	return r.Client.FetchDataRecord(ctx, recordID)
}

func (r SDKRecords) DownloadAttachments(ctx context.Context, recordID string, ids []string, typ records.DownloadType) ([]*fhir.Attachment, error) {
	return r.Client.DownloadAttachments(ctx, recordID, ids, typ)
}
