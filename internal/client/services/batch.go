package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophrecords/internal/client/models"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
	"github.com/dmitrijs2005/gophrecords/pkg/records"
)

// runBatch runs fn for every input, at most limit at a time, and partitions
// the outcomes. A failing item never stops the others.
func runBatch[In any, Out any](ctx context.Context, limit int, inputs []In, fn func(context.Context, In) (Out, error)) records.BatchResult[Out, In] {
	outs := make([]Out, len(inputs))
	errs := make([]error, len(inputs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			outs[i], errs[i] = fn(ctx, in)
			return nil
		})
	}
	_ = g.Wait()

	var res records.BatchResult[Out, In]
	for i, in := range inputs {
		if errs[i] != nil {
			res.Failures = append(res.Failures, records.Failure[In]{Input: in, Err: errs[i]})
			continue
		}
		res.Successes = append(res.Successes, outs[i])
	}
	return res
}

// CreateRecords creates every resource with the same annotations.
func (s *RecordService) CreateRecords(ctx context.Context, resources []fhir.Resource, annotations []string) records.BatchResult[*models.DecryptedRecord, fhir.Resource] {
	return runBatch(ctx, s.BatchConcurrency, resources, func(ctx context.Context, r fhir.Resource) (*models.DecryptedRecord, error) {
		return s.CreateRecord(ctx, r, annotations)
	})
}

// UpdateRecords updates every resource with the same annotations.
func (s *RecordService) UpdateRecords(ctx context.Context, resources []fhir.Resource, annotations []string) records.BatchResult[*models.DecryptedRecord, fhir.Resource] {
	return runBatch(ctx, s.BatchConcurrency, resources, func(ctx context.Context, r fhir.Resource) (*models.DecryptedRecord, error) {
		return s.UpdateRecord(ctx, r, annotations)
	})
}

// FetchRecordsByID fetches every record id.
func (s *RecordService) FetchRecordsByID(ctx context.Context, ids []string) records.BatchResult[*models.DecryptedRecord, string] {
	return runBatch(ctx, s.BatchConcurrency, ids, s.FetchRecord)
}

// DownloadRecords downloads every record id with its attachments.
func (s *RecordService) DownloadRecords(ctx context.Context, ids []string) records.BatchResult[*models.DecryptedRecord, string] {
	return runBatch(ctx, s.BatchConcurrency, ids, s.DownloadRecord)
}

// DeleteRecords deletes every record id. Successes are the deleted ids.
func (s *RecordService) DeleteRecords(ctx context.Context, ids []string) records.BatchResult[string, string] {
	return runBatch(ctx, s.BatchConcurrency, ids, func(ctx context.Context, id string) (string, error) {
		if err := s.DeleteRecord(ctx, id); err != nil {
			return "", err
		}
		return id, nil
	})
}
