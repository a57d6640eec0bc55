package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrecords/internal/client/services"
	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/internal/filex"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
	"github.com/dmitrijs2005/gophrecords/pkg/records"
)

var errEmptyInput = errors.New("empty input")

// ensureDownloadDir is a test seam for filex.EnsureSubdDir.
var ensureDownloadDir = filex.EnsureSubdDir

func (a *App) prompt(text string) (string, error) {
	v, err := GetSimpleText(a.reader, text, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", errEmptyInput
	}
	return v, nil
}

func (a *App) fail(err error) error {
	log.Printf("error: %v", err)
	return err
}

// Create reads a FHIR JSON document from disk and stores it.
func (a *App) Create(ctx context.Context) error {
	path, err := a.prompt("Enter path to a FHIR JSON file")
	if err != nil {
		return a.fail(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return a.fail(err)
	}
	res, err := a.parser.Decode("", string(data))
	if err != nil {
		return a.fail(err)
	}
	return a.store(ctx, res)
}

// Upload wraps a file in a DocumentReference and stores it.
func (a *App) Upload(ctx context.Context) error {
	path, err := a.prompt("Enter path to a file (JPEG, PNG, TIFF, DICOM or PDF)")
	if err != nil {
		return a.fail(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return a.fail(err)
	}
	mime, ok := services.DetectMimeType(data)
	if !ok {
		return a.fail(common.ErrUnsupportedFileType)
	}
	description, err := GetSimpleText(a.reader, "Enter description", a.out)
	if err != nil {
		return a.fail(err)
	}

	att := fhir.NewAttachment(filepath.Base(path), mime, data, time.Now())
	return a.store(ctx, fhir.NewDocumentReference(description, att))
}

func (a *App) store(ctx context.Context, res fhir.Resource) error {
	annotations, err := GetAnnotations(a.reader, a.out)
	if err != nil {
		return a.fail(err)
	}
	rec, err := a.records.Create(ctx, res, annotations)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Created %s record %s\n", rec.Resource.GetResourceType(), rec.Resource.GetID())
	return nil
}

// AddData stores typed text as a raw data record.
func (a *App) AddData(ctx context.Context) error {
	text, err := GetMultiline(a.reader, "Enter data", a.out)
	if err != nil {
		return a.fail(err)
	}
	if text == "" {
		return a.fail(errEmptyInput)
	}
	annotations, err := GetAnnotations(a.reader, a.out)
	if err != nil {
		return a.fail(err)
	}
	rec, err := a.records.CreateData(ctx, []byte(text), annotations)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Created data record %s\n", rec.ID)
	return nil
}

// Show prints a FHIR record without attachment payloads.
func (a *App) Show(ctx context.Context) error {
	id, err := a.prompt("Enter record id to show")
	if err != nil {
		return a.fail(err)
	}
	rec, err := a.records.Fetch(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	body, err := a.parser.Encode(rec.Resource)
	if err != nil {
		return a.fail(err)
	}
	a.printMeta(rec.Meta, rec.Annotations)
	fmt.Fprintln(a.out, body)
	return nil
}

// ShowData prints a raw data record.
func (a *App) ShowData(ctx context.Context) error {
	id, err := a.prompt("Enter record id to show")
	if err != nil {
		return a.fail(err)
	}
	rec, err := a.records.FetchData(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	a.printMeta(rec.Meta, rec.Annotations)
	fmt.Fprintln(a.out, string(rec.Data))
	return nil
}

func (a *App) printMeta(m records.Meta, annotations []string) {
	fmt.Fprintf(a.out, "Created: %s\n", formatDate(m.CreatedDate))
	fmt.Fprintf(a.out, "Updated: %s\n", formatDate(m.UpdatedDate))
	if len(annotations) > 0 {
		fmt.Fprintf(a.out, "Annotations: %s\n", strings.Join(annotations, ", "))
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// Download saves every attachment of a record.
func (a *App) Download(ctx context.Context) error {
	id, err := a.prompt("Enter record id to download")
	if err != nil {
		return a.fail(err)
	}
	rec, err := a.records.Download(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	holder, ok := rec.Resource.(fhir.AttachmentHolder)
	if !ok {
		fmt.Fprintln(a.out, "Record has no attachments")
		return nil
	}
	return a.save(id, holder.Attachments())
}

// Attachment saves one attachment in the requested size.
func (a *App) Attachment(ctx context.Context) error {
	recordID, err := a.prompt("Enter record id")
	if err != nil {
		return a.fail(err)
	}
	attID, err := a.prompt("Enter attachment id")
	if err != nil {
		return a.fail(err)
	}
	size, err := GetSimpleText(a.reader, "Enter size: full, medium or small", a.out)
	if err != nil {
		return a.fail(err)
	}
	typ, err := parseDownloadType(size)
	if err != nil {
		return a.fail(err)
	}

	atts, err := a.records.DownloadAttachments(ctx, recordID, []string{attID}, typ)
	if err != nil {
		return a.fail(err)
	}
	return a.save(recordID, atts)
}

func parseDownloadType(s string) (records.DownloadType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return records.DownloadFull, nil
	case "medium", "preview":
		return records.DownloadMedium, nil
	case "small", "thumbnail":
		return records.DownloadSmall, nil
	}
	return 0, fmt.Errorf("unknown size %q", s)
}

func (a *App) save(recordID string, atts []*fhir.Attachment) error {
	if a.downloadDir == "" {
		dir, err := ensureDownloadDir(DownloadDir)
		if err != nil {
			return a.fail(err)
		}
		a.downloadDir = dir
	}

	saved := 0
	for _, att := range atts {
		if att.Data == "" {
			continue
		}
		data, err := att.Payload()
		if err != nil {
			return a.fail(err)
		}
		name := filex.SafeName(recordID+"_"+att.ID+"_"+att.Title, recordID)
		path, err := filex.WriteFile(a.downloadDir, name, data)
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, len(data))
		saved++
	}
	if saved == 0 {
		fmt.Fprintln(a.out, "Nothing to save")
	}
	return nil
}

// Delete removes a record.
func (a *App) Delete(ctx context.Context) error {
	id, err := a.prompt("Enter record id to delete")
	if err != nil {
		return a.fail(err)
	}
	if err := a.records.Delete(ctx, id); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}

func (a *App) filter() (string, []string, error) {
	resourceType, err := GetSimpleText(a.reader, "Enter resource type (empty for all)", a.out)
	if err != nil {
		return "", nil, err
	}
	annotations, err := GetAnnotations(a.reader, a.out)
	if err != nil {
		return "", nil, err
	}
	return resourceType, annotations, nil
}

// Search lists the FHIR records matching a resource type and annotations.
func (a *App) Search(ctx context.Context) error {
	resourceType, annotations, err := a.filter()
	if err != nil {
		return a.fail(err)
	}
	found, err := a.records.Search(ctx, records.Query{ResourceType: resourceType, Annotations: annotations})
	if err != nil {
		return a.fail(err)
	}
	if len(found) == 0 {
		fmt.Fprintln(a.out, "No records found")
		return nil
	}
	for _, rec := range found {
		fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n",
			rec.Resource.GetID(),
			rec.Resource.GetResourceType(),
			formatDate(rec.Meta.CreatedDate),
			strings.Join(rec.Annotations, ","))
	}
	return nil
}

// Count prints how many records match a resource type and annotations.
func (a *App) Count(ctx context.Context) error {
	resourceType, annotations, err := a.filter()
	if err != nil {
		return a.fail(err)
	}
	n, err := a.records.Count(ctx, resourceType, annotations)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "%d record(s)\n", n)
	return nil
}
