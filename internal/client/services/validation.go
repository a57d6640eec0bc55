package services

import (
	"bytes"
	"fmt"

	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

// Mime types accepted as attachment payloads.
const (
	MimeJPEG  = "image/jpeg"
	MimePNG   = "image/png"
	MimeTIFF  = "image/tiff"
	MimeDICOM = "application/dicom"
	MimePDF   = "application/pdf"
)

var (
	magicJPEG   = []byte{0xFF, 0xD8, 0xFF}
	magicPNG    = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	magicTIFFLE = []byte{'I', 'I', 0x2A, 0x00}
	magicTIFFBE = []byte{'M', 'M', 0x00, 0x2A}
	magicPDF    = []byte("%PDF-")
	magicDICOM  = []byte("DICM")
)

const dicomPreambleSize = 128

// DetectMimeType identifies a supported payload by its leading bytes.
func DetectMimeType(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, magicJPEG):
		return MimeJPEG, true
	case bytes.HasPrefix(data, magicPNG):
		return MimePNG, true
	case bytes.HasPrefix(data, magicTIFFLE), bytes.HasPrefix(data, magicTIFFBE):
		return MimeTIFF, true
	case bytes.HasPrefix(data, magicPDF):
		return MimePDF, true
	case len(data) >= dicomPreambleSize+len(magicDICOM) &&
		bytes.Equal(data[dicomPreambleSize:dicomPreambleSize+len(magicDICOM)], magicDICOM):
		return MimeDICOM, true
	}
	return "", false
}

// CheckPayloadRestrictions enforces the size limit and the supported types.
func CheckPayloadRestrictions(data []byte) error {
	if len(data) > common.MaxDataSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", common.ErrMaxDataSizeViolation, len(data), common.MaxDataSize)
	}
	if _, ok := DetectMimeType(data); !ok {
		return common.ErrUnsupportedFileType
	}
	return nil
}

// CheckDataSize enforces the size limit on raw data records.
func CheckDataSize(data []byte) error {
	if len(data) > common.MaxDataSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", common.ErrMaxDataSizeViolation, len(data), common.MaxDataSize)
	}
	return nil
}

// checkResourceRestrictions applies CheckPayloadRestrictions to every
// attachment of r that carries a payload.
func checkResourceRestrictions(r fhir.Resource) error {
	holder, ok := r.(fhir.AttachmentHolder)
	if !ok {
		return nil
	}
	for _, a := range holder.Attachments() {
		if a.Data == "" {
			continue
		}
		data, err := a.Payload()
		if err != nil {
			return common.ExpectedFieldViolation("attachment data is not base64")
		}
		if err := CheckPayloadRestrictions(data); err != nil {
			return err
		}
	}
	return nil
}

// validateNewPayload checks that an attachment about to be uploaded declares
// a hash and size matching its payload.
func validateNewPayload(a *fhir.Attachment) error {
	if a.Hash == "" {
		return common.ExpectedFieldViolation("attachment hash")
	}
	if a.Size == nil {
		return common.ExpectedFieldViolation("attachment size")
	}

	data, err := a.Payload()
	if err != nil {
		return common.ExpectedFieldViolation("attachment data is not base64")
	}
	if fhir.Hash(data) != a.Hash {
		return common.ErrInvalidAttachmentPayloadHash
	}
	if *a.Size != len(data) {
		return common.ExpectedFieldViolation(fmt.Sprintf("attachment size %d, payload is %d bytes", *a.Size, len(data)))
	}
	return nil
}

// validateCreateAttachments rejects ids supplied by the caller and checks
// every payload.
func validateCreateAttachments(atts []*fhir.Attachment) error {
	for _, a := range atts {
		if a.ID != "" {
			return common.IDUsageViolation(fmt.Sprintf("attachment %s has an id on create", a.ID))
		}
		if a.Data == "" {
			continue
		}
		if err := validateNewPayload(a); err != nil {
			return err
		}
	}
	return nil
}
