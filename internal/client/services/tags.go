package services

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
)

// AnnotationMarker prefixes every annotation before encryption so it can be
// told apart from tags after decryption.
const AnnotationMarker = "custom="

const tagDelimiter = "="

type tagKeyProvider interface {
	TagEncryptionKey(ctx context.Context) (cryptox.SymmetricKey, error)
}

// TagCodec encrypts tags and annotations one token at a time with the
// account TEK and a fixed zero IV. The output is deterministic so the
// platform can match encrypted tokens for search.
type TagCodec struct {
	keys tagKeyProvider
}

func NewTagCodec(keys tagKeyProvider) *TagCodec {
	return &TagCodec{keys: keys}
}

// EncryptTags returns one token per key=value pair. Order is not meaningful.
func (c *TagCodec) EncryptTags(ctx context.Context, tags map[string]string) ([]string, error) {
	tek, err := c.keys.TagEncryptionKey(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tags))
	for k, v := range tags {
		token, err := encryptToken(tek, k+tagDelimiter+v)
		if err != nil {
			return nil, err
		}
		out = append(out, token)
	}
	return out, nil
}

// DecryptTags decrypts tokens and keeps the ones that are tags. Any token
// that fails to decrypt fails the whole call.
func (c *TagCodec) DecryptTags(ctx context.Context, tokens []string) (map[string]string, error) {
	plain, err := c.decryptAll(ctx, tokens)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string, len(plain))
	for _, p := range plain {
		if strings.HasPrefix(p, AnnotationMarker) {
			continue
		}
		k, v, ok := strings.Cut(p, tagDelimiter)
		if !ok {
			continue
		}
		tags[k] = v
	}
	return tags, nil
}

// EncryptAnnotations prefixes each annotation with AnnotationMarker and
// encrypts it.
func (c *TagCodec) EncryptAnnotations(ctx context.Context, annotations []string) ([]string, error) {
	tek, err := c.keys.TagEncryptionKey(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(annotations))
	for _, a := range annotations {
		token, err := encryptToken(tek, AnnotationMarker+a)
		if err != nil {
			return nil, err
		}
		out = append(out, token)
	}
	return out, nil
}

// DecryptAnnotations decrypts tokens and returns the annotations among them
// with the marker removed, in token order.
func (c *TagCodec) DecryptAnnotations(ctx context.Context, tokens []string) ([]string, error) {
	plain, err := c.decryptAll(ctx, tokens)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0)
	for _, p := range plain {
		if a, ok := strings.CutPrefix(p, AnnotationMarker); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *TagCodec) decryptAll(ctx context.Context, tokens []string) ([]string, error) {
	tek, err := c.keys.TagEncryptionKey(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		raw, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, common.Wrap(common.ErrDecryptionFailed, err)
		}
		p, err := cryptox.DecryptDeterministic(tek, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, string(p))
	}
	return out, nil
}

func encryptToken(tek cryptox.SymmetricKey, s string) (string, error) {
	ct, err := cryptox.EncryptDeterministic(tek, []byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}
