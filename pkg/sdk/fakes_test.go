package sdk

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophrecords/internal/client/client"
	"github.com/dmitrijs2005/gophrecords/internal/client/models"
	"github.com/dmitrijs2005/gophrecords/internal/client/repositories/secrets"
	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
)

type memPlatform struct {
	client.Client

	mu      sync.Mutex
	seq     int
	records map[string]*models.EncryptedRecord

	// account keys, wrapped on demand for whichever device asks
	ck  cryptox.SymmetricKey
	tek cryptox.SymmetricKey
}

func (p *memPlatform) CreateRecord(_ context.Context, _ string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	cp := *rec
	cp.ID = fmt.Sprintf("r-%d", p.seq)
	now := time.Now().UTC()
	cp.CreatedAt = &now
	p.records[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (p *memPlatform) UpdateRecord(_ context.Context, _ string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[rec.ID]; !ok {
		return nil, client.ErrNotFound
	}
	cp := *rec
	p.records[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (p *memPlatform) FetchRecord(_ context.Context, _ string, id string) (*models.EncryptedRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (p *memPlatform) matching(tags []string) []*models.EncryptedRecord {
	ids := make([]string, 0, len(p.records))
	for id := range p.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []*models.EncryptedRecord
	for _, id := range ids {
		rec := p.records[id]
		if !containsAll(rec.EncryptedTags, tags) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out
}

func containsAll(have, want []string) bool {
	for _, t := range want {
		if !slices.Contains(have, t) {
			return false
		}
	}
	return true
}

func (p *memPlatform) SearchRecords(_ context.Context, _ string, q models.SearchQuery) (*models.SearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	all := p.matching(q.Tags)
	return &models.SearchResult{Records: all, TotalCount: len(all)}, nil
}

func (p *memPlatform) CountRecords(_ context.Context, _ string, tags []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.matching(tags)), nil
}

func (p *memPlatform) DeleteRecord(_ context.Context, _ string, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[id]; !ok {
		return client.ErrNotFound
	}
	delete(p.records, id)
	return nil
}

func (p *memPlatform) FetchUserInfo(_ context.Context, publicKey string) (*models.UserInfo, error) {
	pub, err := cryptox.ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	wrappedCK, err := cryptox.WrapKeyAsymmetric(pub, p.ck, cryptox.KeyTypeCommon)
	if err != nil {
		return nil, err
	}
	wrappedTEK, err := cryptox.WrapKey(p.ck, p.tek, cryptox.KeyTypeTag)
	if err != nil {
		return nil, err
	}
	return &models.UserInfo{
		UserID:           "user-1",
		CommonKeyID:      "ck-1",
		WrappedCommonKey: wrappedCK,
		WrappedTEK:       wrappedTEK,
	}, nil
}

type memBlobs struct {
	mu    sync.Mutex
	seq   int
	blobs map[string][]byte
}

func (b *memBlobs) UploadBlob(_ context.Context, _ string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := fmt.Sprintf("b%d", b.seq)
	b.blobs[id] = bytes.Clone(data)
	return id, nil
}

func (b *memBlobs) DownloadBlob(_ context.Context, _ string, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (b *memBlobs) DeleteBlob(_ context.Context, _ string, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, id)
	return nil
}

// newTestClient returns a client bootstrapped as a fresh device: it has no
// key pair until Bootstrap generates and registers one. Keys live in an
// encrypted in-memory SQLite store.
func newTestClient(t *testing.T) (*Client, *memPlatform) {
	t.Helper()
	ctx := context.Background()

	repo, db, err := secrets.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := secrets.NewEncryptedRepository(repo)
	require.NoError(t, store.Unlock(ctx, []byte("device-pass")))

	ck, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESGCM, cryptox.KeySize256)
	require.NoError(t, err)
	tek, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESCBC, cryptox.KeySize256)
	require.NoError(t, err)

	platform := &memPlatform{
		records: map[string]*models.EncryptedRecord{},
		ck:      ck,
		tek:     tek,
	}

	c, err := NewWithDependencies(Dependencies{
		Platform:         platform,
		Blobs:            &memBlobs{blobs: map[string][]byte{}},
		Secrets:          store,
		ClientID:         "acme#cli",
		BatchConcurrency: 2,
	})
	require.NoError(t, err)
	require.NoError(t, c.Bootstrap(ctx))
	return c, platform
}
