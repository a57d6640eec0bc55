package services

import (
	"strings"

	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

// AttachmentIDNamespace prefixes the identifier value linking a full
// attachment to its downscaled variants.
const AttachmentIDNamespace = "d4l_f_p_t"

// IDSeparator joins the parts of compound and transient attachment ids.
const IDSeparator = "#"

// variants holds the blob ids of the downscaled copies of one attachment.
type variants struct {
	Preview   string
	Thumbnail string
}

// compoundIdentifier encodes fullID and its variant ids as
// "d4l_f_p_t#full#preview#thumbnail", assigned to partnerID.
func compoundIdentifier(fullID string, variantIDs []string, partnerID string) fhir.Identifier {
	parts := append([]string{AttachmentIDNamespace, fullID}, variantIDs...)
	return fhir.Identifier{
		Value:    strings.Join(parts, IDSeparator),
		Assigner: &fhir.Reference{Reference: partnerID},
	}
}

func parseCompound(value string) (string, variants, bool) {
	parts := strings.Split(value, IDSeparator)
	if len(parts) != 4 || parts[0] != AttachmentIDNamespace {
		return "", variants{}, false
	}
	return parts[1], variants{Preview: parts[2], Thumbnail: parts[3]}, true
}

// variantIndex maps full attachment ids to their variants.
func variantIndex(ids []fhir.Identifier) map[string]variants {
	idx := make(map[string]variants)
	for _, id := range ids {
		if full, v, ok := parseCompound(id.Value); ok {
			idx[full] = v
		}
	}
	return idx
}

// pruneIdentifiers drops compound identifiers whose full id is not in
// present. Other identifiers are kept.
func pruneIdentifiers(ids []fhir.Identifier, present map[string]struct{}) []fhir.Identifier {
	out := make([]fhir.Identifier, 0, len(ids))
	for _, id := range ids {
		if full, _, ok := parseCompound(id.Value); ok {
			if _, keep := present[full]; !keep {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

// transientID names one variant of a full attachment for a download request.
func transientID(fullID, variantID string) string {
	return fullID + IDSeparator + variantID
}

// splitTransientID reverses transientID.
func splitTransientID(id string) (fullID, variantID string, ok bool) {
	return strings.Cut(id, IDSeparator)
}
