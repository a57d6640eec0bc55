package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrecords/internal/client/client"
	"github.com/dmitrijs2005/gophrecords/internal/client/models"
	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
	"github.com/dmitrijs2005/gophrecords/internal/logging"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
	"github.com/dmitrijs2005/gophrecords/pkg/records"
)

// RecordService runs the record operations. Each call is one sequential
// pipeline; only the KeyService is shared between concurrent calls.
type RecordService struct {
	client      client.Client
	keys        *KeyService
	tags        *TagCodec
	tagger      *Tagger
	attachments *AttachmentService
	parser      fhir.Parser
	logger      logging.Logger

	// BatchConcurrency bounds the in-flight items of batch calls. Zero or
	// less means unbounded.
	BatchConcurrency int

	now func() time.Time
}

func NewRecordService(
	c client.Client,
	keys *KeyService,
	tagger *Tagger,
	attachments *AttachmentService,
	parser fhir.Parser,
	logger logging.Logger,
) *RecordService {
	return &RecordService{
		client:      c,
		keys:        keys,
		tags:        NewTagCodec(keys),
		tagger:      tagger,
		attachments: attachments,
		parser:      parser,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateRecord encrypts and stores a new FHIR record. Attachment payloads are
// uploaded separately and referenced by id from the stored body; the
// returned resource carries the payloads again.
func (s *RecordService) CreateRecord(ctx context.Context, res fhir.Resource, annotations []string) (*models.DecryptedRecord, error) {
	if err := checkResourceRestrictions(res); err != nil {
		return nil, err
	}

	work, err := s.clone(res)
	if err != nil {
		return nil, err
	}
	atts := attachmentsOf(work)
	if err := validateCreateAttachments(atts); err != nil {
		return nil, err
	}

	dataKey, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESGCM, cryptox.KeySize256)
	if err != nil {
		return nil, err
	}

	var attKey *cryptox.SymmetricKey
	if hasPayload(atts) {
		k, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESGCM, cryptox.KeySize256)
		if err != nil {
			return nil, err
		}
		attKey = &k
	}

	payloads, err := s.uploadAttachments(ctx, work, atts, attKey)
	if err != nil {
		return nil, err
	}

	rec := &models.DecryptedRecord{
		Payload:       models.FhirPayload{Resource: work},
		Tags:          s.tagger.FhirTags(work.GetResourceType(), nil),
		Annotations:   annotations,
		CustomCreated: s.now().UTC(),
		DataKey:       dataKey,
		AttachmentKey: attKey,
		ModelVersion:  models.ModelVersion,
	}

	out, err := s.roundTrip(ctx, rec, s.client.CreateRecord)
	if err != nil {
		return nil, err
	}
	restorePayloads(out.Resource(), payloads)

	s.logger.Info(ctx, "record created", "record_id", out.ID, "resource_type", work.GetResourceType())
	return out, nil
}

// UpdateRecord replaces the stored record res.GetID(). Attachments whose
// hash did not change are not uploaded again.
func (s *RecordService) UpdateRecord(ctx context.Context, res fhir.Resource, annotations []string) (*models.DecryptedRecord, error) {
	if res.GetID() == "" {
		return nil, common.ExpectedFieldViolation("resource id")
	}
	if err := checkResourceRestrictions(res); err != nil {
		return nil, err
	}

	old, err := s.fetch(ctx, res.GetID())
	if err != nil {
		return nil, err
	}
	oldRes := old.Resource()
	if oldRes == nil {
		return nil, common.ExpectedFieldViolation(fmt.Sprintf("record %s is not a FHIR record", old.ID))
	}
	if !strings.EqualFold(oldRes.GetResourceType(), res.GetResourceType()) {
		return nil, common.ExpectedFieldViolation(fmt.Sprintf("resource type %s, stored record is %s", res.GetResourceType(), oldRes.GetResourceType()))
	}

	work, err := s.clone(res)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]*fhir.Attachment)
	for _, a := range attachmentsOf(oldRes) {
		if a.ID != "" {
			previous[a.ID] = a
		}
	}

	var toUpload []*fhir.Attachment
	kept := make(map[string]string)
	for _, a := range attachmentsOf(work) {
		if a.ID == "" {
			if a.Data == "" {
				continue
			}
			if err := validateNewPayload(a); err != nil {
				return nil, err
			}
			toUpload = append(toUpload, a)
			continue
		}

		prev, ok := previous[a.ID]
		if !ok {
			return nil, common.IDUsageViolation(fmt.Sprintf("attachment %s is not part of record %s", a.ID, old.ID))
		}
		if a.Data == "" {
			continue
		}
		if err := validateNewPayload(a); err != nil {
			return nil, err
		}
		if a.Hash == prev.Hash {
			kept[a.ID] = a.Data
			a.Data = ""
			continue
		}
		a.ID = ""
		toUpload = append(toUpload, a)
	}

	attKey := old.AttachmentKey
	if attKey == nil && len(toUpload) > 0 {
		k, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESGCM, cryptox.KeySize256)
		if err != nil {
			return nil, err
		}
		attKey = &k
	}

	payloads, err := s.uploadAttachments(ctx, work, toUpload, attKey)
	if err != nil {
		return nil, err
	}
	for id, data := range kept {
		payloads[id] = data
	}

	if ident, ok := work.(fhir.Identifiable); ok {
		present := make(map[string]struct{})
		for _, a := range attachmentsOf(work) {
			if a.ID != "" {
				present[a.ID] = struct{}{}
			}
		}
		ident.SetIdentifiers(pruneIdentifiers(ident.GetIdentifiers(), present))
	}

	rec := &models.DecryptedRecord{
		ID:            old.ID,
		Payload:       models.FhirPayload{Resource: work},
		Tags:          s.tagger.FhirTags(work.GetResourceType(), old.Tags),
		Annotations:   annotations,
		CustomCreated: old.CustomCreated,
		DataKey:       old.DataKey,
		AttachmentKey: attKey,
		ModelVersion:  models.ModelVersion,
	}

	out, err := s.roundTrip(ctx, rec, s.client.UpdateRecord)
	if err != nil {
		return nil, err
	}
	restorePayloads(out.Resource(), payloads)

	s.logger.Info(ctx, "record updated", "record_id", out.ID, "uploaded", len(toUpload), "kept", len(kept))
	return out, nil
}

// FetchRecord returns the decrypted record without attachment payloads.
func (s *RecordService) FetchRecord(ctx context.Context, recordID string) (*models.DecryptedRecord, error) {
	rec, err := s.fetch(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Resource() == nil {
		return nil, common.ExpectedFieldViolation(fmt.Sprintf("record %s is not a FHIR record", recordID))
	}
	return rec, nil
}

// DownloadRecord returns the decrypted record with every attachment payload
// filled in.
func (s *RecordService) DownloadRecord(ctx context.Context, recordID string) (*models.DecryptedRecord, error) {
	rec, err := s.FetchRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	res := rec.Resource()
	var withID []*fhir.Attachment
	for _, a := range attachmentsOf(res) {
		if a.ID != "" {
			withID = append(withID, a)
		}
	}
	if len(withID) == 0 {
		return rec, nil
	}
	if rec.AttachmentKey == nil {
		return nil, common.ExpectedFieldViolation(fmt.Sprintf("record %s has attachments but no attachment key", recordID))
	}

	if _, err := s.attachments.Download(ctx, withID, *rec.AttachmentKey, s.keys.UserID()); err != nil {
		return nil, err
	}
	if err := checkResourceRestrictions(res); err != nil {
		return nil, err
	}
	return rec, nil
}

// DownloadAttachments fetches the given attachments of a record in the
// requested variant. The record itself is not modified.
func (s *RecordService) DownloadAttachments(ctx context.Context, recordID string, attachmentIDs []string, typ records.DownloadType) ([]*fhir.Attachment, error) {
	rec, err := s.FetchRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	res := rec.Resource()

	declared := make(map[string]*fhir.Attachment)
	for _, a := range attachmentsOf(res) {
		if a.ID != "" {
			declared[a.ID] = a
		}
	}

	selected := make([]*fhir.Attachment, 0, len(attachmentIDs))
	for _, id := range attachmentIDs {
		if a, ok := declared[id]; ok {
			cp := *a
			selected = append(selected, &cp)
		}
	}
	if len(selected) != len(attachmentIDs) {
		return nil, common.IDUsageViolation(fmt.Sprintf("requested %d attachments, record %s declares %d of them", len(attachmentIDs), recordID, len(selected)))
	}
	if len(selected) == 0 {
		return selected, nil
	}
	if rec.AttachmentKey == nil {
		return nil, common.ExpectedFieldViolation(fmt.Sprintf("record %s has attachments but no attachment key", recordID))
	}

	if typ != records.DownloadFull {
		var idx map[string]variants
		if ident, ok := res.(fhir.Identifiable); ok {
			idx = variantIndex(ident.GetIdentifiers())
		}
		for _, a := range selected {
			v, ok := idx[a.ID]
			if !ok {
				continue
			}
			variantID := v.Preview
			if typ == records.DownloadSmall {
				variantID = v.Thumbnail
			}
			if variantID != a.ID {
				a.ID = transientID(a.ID, variantID)
			}
		}
	}

	return s.attachments.Download(ctx, selected, *rec.AttachmentKey, s.keys.UserID())
}

// DeleteRecord removes a record.
func (s *RecordService) DeleteRecord(ctx context.Context, recordID string) error {
	if err := s.client.DeleteRecord(ctx, s.keys.UserID(), recordID); err != nil {
		return err
	}
	s.logger.Info(ctx, "record deleted", "record_id", recordID)
	return nil
}

// CreateDataRecord stores raw application data.
func (s *RecordService) CreateDataRecord(ctx context.Context, data []byte, annotations []string) (*models.DecryptedRecord, error) {
	if err := CheckDataSize(data); err != nil {
		return nil, err
	}

	dataKey, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESGCM, cryptox.KeySize256)
	if err != nil {
		return nil, err
	}

	rec := &models.DecryptedRecord{
		Payload:       models.RawPayload{Data: data},
		Tags:          s.tagger.AppDataTags(nil),
		Annotations:   annotations,
		CustomCreated: s.now().UTC(),
		DataKey:       dataKey,
		ModelVersion:  models.ModelVersion,
	}
	return s.roundTrip(ctx, rec, s.client.CreateRecord)
}

// UpdateDataRecord replaces the data of an existing raw record.
func (s *RecordService) UpdateDataRecord(ctx context.Context, recordID string, data []byte, annotations []string) (*models.DecryptedRecord, error) {
	if err := CheckDataSize(data); err != nil {
		return nil, err
	}

	old, err := s.fetch(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if _, ok := old.Payload.(models.RawPayload); !ok {
		return nil, common.ExpectedFieldViolation(fmt.Sprintf("record %s is not a data record", recordID))
	}

	rec := &models.DecryptedRecord{
		ID:            old.ID,
		Payload:       models.RawPayload{Data: data},
		Tags:          s.tagger.AppDataTags(old.Tags),
		Annotations:   annotations,
		CustomCreated: old.CustomCreated,
		DataKey:       old.DataKey,
		ModelVersion:  models.ModelVersion,
	}
	return s.roundTrip(ctx, rec, s.client.UpdateRecord)
}

// FetchDataRecord returns a raw data record.
func (s *RecordService) FetchDataRecord(ctx context.Context, recordID string) (*models.DecryptedRecord, error) {
	rec, err := s.fetch(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if _, ok := rec.Payload.(models.RawPayload); !ok {
		return nil, common.ExpectedFieldViolation(fmt.Sprintf("record %s is not a data record", recordID))
	}
	return rec, nil
}

// SearchRecords returns the records matching q, decrypted.
func (s *RecordService) SearchRecords(ctx context.Context, q records.Query) ([]*models.DecryptedRecord, error) {
	tokens, err := s.filterTokens(ctx, q.ResourceType, q.Annotations)
	if err != nil {
		return nil, err
	}

	res, err := s.client.SearchRecords(ctx, s.keys.UserID(), models.SearchQuery{
		Tags:      tokens,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Limit:     q.PageSize,
		Offset:    q.Offset,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*models.DecryptedRecord, 0, len(res.Records))
	for _, enc := range res.Records {
		rec, err := s.decryptRecord(ctx, enc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// CountRecords counts the records of resourceType carrying all annotations.
// An empty resourceType counts every record.
func (s *RecordService) CountRecords(ctx context.Context, resourceType string, annotations []string) (int, error) {
	tokens, err := s.filterTokens(ctx, resourceType, annotations)
	if err != nil {
		return 0, err
	}
	return s.client.CountRecords(ctx, s.keys.UserID(), tokens)
}

func (s *RecordService) filterTokens(ctx context.Context, resourceType string, annotations []string) ([]string, error) {
	var tags map[string]string
	if resourceType != "" {
		tags = TagsForType(resourceType)
	}
	tokens, err := s.tags.EncryptTags(ctx, tags)
	if err != nil {
		return nil, err
	}
	ann, err := s.tags.EncryptAnnotations(ctx, annotations)
	if err != nil {
		return nil, err
	}
	return append(tokens, ann...), nil
}

func (s *RecordService) fetch(ctx context.Context, recordID string) (*models.DecryptedRecord, error) {
	enc, err := s.client.FetchRecord(ctx, s.keys.UserID(), recordID)
	if err != nil {
		return nil, err
	}
	return s.decryptRecord(ctx, enc)
}

type transportCall func(ctx context.Context, userID string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error)

// roundTrip encrypts rec, sends it and decrypts the platform's answer.
func (s *RecordService) roundTrip(ctx context.Context, rec *models.DecryptedRecord, call transportCall) (*models.DecryptedRecord, error) {
	enc, err := s.encryptRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, s.keys.UserID(), enc)
	if err != nil {
		return nil, err
	}
	return s.decryptRecord(ctx, resp)
}

// uploadAttachments uploads atts, links the variants through identifiers on
// res and strips every payload from res. It returns the stripped payloads
// keyed by attachment id.
func (s *RecordService) uploadAttachments(ctx context.Context, res fhir.Resource, atts []*fhir.Attachment, key *cryptox.SymmetricKey) (map[string]string, error) {
	payloads := make(map[string]string)
	if len(atts) > 0 && key != nil {
		results, err := s.attachments.Upload(ctx, atts, *key, s.keys.UserID())
		if err != nil {
			return nil, err
		}

		ident, canLink := res.(fhir.Identifiable)
		for _, r := range results {
			if len(r.VariantIDs) == 0 || !canLink {
				continue
			}
			ids := ident.GetIdentifiers()
			ident.SetIdentifiers(append(ids, compoundIdentifier(r.Attachment.ID, r.VariantIDs, s.tagger.PartnerID())))
		}
	}

	for _, a := range attachmentsOf(res) {
		if a.Data == "" {
			continue
		}
		if a.ID != "" {
			payloads[a.ID] = a.Data
		}
		a.Data = ""
	}
	return payloads, nil
}

func (s *RecordService) encryptRecord(ctx context.Context, rec *models.DecryptedRecord) (*models.EncryptedRecord, error) {
	tagTokens, err := s.tags.EncryptTags(ctx, rec.Tags)
	if err != nil {
		return nil, err
	}
	annTokens, err := s.tags.EncryptAnnotations(ctx, rec.Annotations)
	if err != nil {
		return nil, err
	}

	var body []byte
	switch p := rec.Payload.(type) {
	case models.FhirPayload:
		encoded, err := s.parser.Encode(p.Resource)
		if err != nil {
			return nil, common.Wrap(common.ErrEncryptionFailed, err)
		}
		body = []byte(encoded)
	case models.RawPayload:
		body = p.Data
	default:
		return nil, common.ExpectedFieldViolation("record payload")
	}

	sealed, err := cryptox.Encrypt(rec.DataKey, body)
	if err != nil {
		return nil, err
	}

	ckID, ck, err := s.keys.CurrentCommonKey(ctx)
	if err != nil {
		return nil, err
	}

	wrappedData, err := cryptox.WrapKey(ck, rec.DataKey, cryptox.KeyTypeData)
	if err != nil {
		return nil, err
	}

	var wrappedAtt cryptox.WrappedKey
	if rec.AttachmentKey != nil {
		wrappedAtt, err = cryptox.WrapKey(ck, *rec.AttachmentKey, cryptox.KeyTypeAttachment)
		if err != nil {
			return nil, err
		}
	}

	return &models.EncryptedRecord{
		CommonKeyID:   ckID,
		ID:            rec.ID,
		EncryptedTags: append(tagTokens, annTokens...),
		EncryptedBody: base64.StdEncoding.EncodeToString(sealed),
		CustomCreated: rec.CustomCreated.Format(models.CustomDateLayout),
		EncryptedKey:  wrappedData,
		AttachmentKey: wrappedAtt,
		ModelVersion:  rec.ModelVersion,
	}, nil
}

func (s *RecordService) decryptRecord(ctx context.Context, enc *models.EncryptedRecord) (*models.DecryptedRecord, error) {
	if enc.ModelVersion > models.ModelVersion {
		return nil, fmt.Errorf("%w: %d", common.ErrModelVersionNotSupported, enc.ModelVersion)
	}

	tags, err := s.tags.DecryptTags(ctx, enc.EncryptedTags)
	if err != nil {
		return nil, err
	}
	annotations, err := s.tags.DecryptAnnotations(ctx, enc.EncryptedTags)
	if err != nil {
		return nil, err
	}

	ck, err := s.keys.ResolveCommonKey(ctx, enc.CommonKeyID)
	if err != nil {
		return nil, err
	}
	dataKey, err := cryptox.UnwrapKey(ck, enc.EncryptedKey)
	if err != nil {
		return nil, err
	}

	var attKey *cryptox.SymmetricKey
	if enc.AttachmentKey != "" {
		k, err := cryptox.UnwrapKey(ck, enc.AttachmentKey)
		if err != nil {
			return nil, err
		}
		attKey = &k
	}

	var body []byte
	if enc.EncryptedBody != "" {
		sealed, err := base64.StdEncoding.DecodeString(enc.EncryptedBody)
		if err != nil {
			return nil, common.Wrap(common.ErrDecryptionFailed, err)
		}
		body, err = cryptox.Decrypt(dataKey, sealed)
		if err != nil {
			return nil, err
		}
	}

	rec := &models.DecryptedRecord{
		ID:            enc.ID,
		Tags:          tags,
		Annotations:   annotations,
		DataKey:       dataKey,
		AttachmentKey: attKey,
		ModelVersion:  enc.ModelVersion,
	}
	if enc.CustomCreated != "" {
		if t, err := time.Parse(models.CustomDateLayout, enc.CustomCreated); err == nil {
			rec.CustomCreated = t
		}
	}
	if enc.CreatedAt != nil {
		rec.CreatedAt = *enc.CreatedAt
	}
	if enc.UpdatedAt != nil {
		rec.UpdatedAt = *enc.UpdatedAt
	} else {
		rec.UpdatedAt = rec.CreatedAt
	}

	if tags[TagFlag] == FlagAppData {
		rec.Payload = models.RawPayload{Data: body}
		return rec, nil
	}

	res, err := s.parser.Decode(tags[TagResourceType], string(body))
	if err != nil {
		return nil, fmt.Errorf("parse record %s: %w", enc.ID, err)
	}
	res.SetID(enc.ID)
	rec.Payload = models.FhirPayload{Resource: res}
	return rec, nil
}

// clone deep-copies r through the parser so the caller's value is never
// modified by the pipeline.
func (s *RecordService) clone(r fhir.Resource) (fhir.Resource, error) {
	body, err := s.parser.Encode(r)
	if err != nil {
		return nil, err
	}
	return s.parser.Decode(r.GetResourceType(), body)
}

func attachmentsOf(r fhir.Resource) []*fhir.Attachment {
	if h, ok := r.(fhir.AttachmentHolder); ok {
		return h.Attachments()
	}
	return nil
}

func hasPayload(atts []*fhir.Attachment) bool {
	for _, a := range atts {
		if a.Data != "" {
			return true
		}
	}
	return false
}

func restorePayloads(r fhir.Resource, payloads map[string]string) {
	for _, a := range attachmentsOf(r) {
		if data, ok := payloads[a.ID]; ok {
			a.Data = data
		}
	}
}
