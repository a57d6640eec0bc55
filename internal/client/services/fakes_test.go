package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophrecords/internal/client/client"
	"github.com/dmitrijs2005/gophrecords/internal/client/models"
	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
	"github.com/dmitrijs2005/gophrecords/internal/logging"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

// fakePlatform keeps encrypted records in memory and matches search tags
// the way the platform does: every requested token must be present.
type fakePlatform struct {
	client.Client

	mu        sync.Mutex
	seq       int
	records   map[string]*models.EncryptedRecord
	envelopes map[string]*models.CommonKeyEnvelope
	deleteErr map[string]error

	// account is wrapped for whichever public key the device registers
	account   *fakeAccount
	publicKey string

	commonKeyFetches atomic.Int32
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		records:   map[string]*models.EncryptedRecord{},
		envelopes: map[string]*models.CommonKeyEnvelope{},
		deleteErr: map[string]error{},
	}
}

func (p *fakePlatform) CreateRecord(_ context.Context, _ string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error) {
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

func (p *fakePlatform) UpdateRecord(_ context.Context, _ string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old, ok := p.records[rec.ID]
	if !ok {
		return nil, client.ErrNotFound
	}
	cp := *rec
	cp.CreatedAt = old.CreatedAt
	now := time.Now().UTC()
	cp.UpdatedAt = &now
	p.records[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (p *fakePlatform) FetchRecord(_ context.Context, _ string, recordID string) (*models.EncryptedRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[recordID]
	if !ok {
		return nil, client.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (p *fakePlatform) match(tags []string) []*models.EncryptedRecord {
	ids := make([]string, 0, len(p.records))
	for id := range p.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []*models.EncryptedRecord
	for _, id := range ids {
		rec := p.records[id]
		ok := true
		for _, t := range tags {
			if !slices.Contains(rec.EncryptedTags, t) {
				ok = false
				break
			}
		}
		if ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

func (p *fakePlatform) SearchRecords(_ context.Context, _ string, q models.SearchQuery) (*models.SearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	all := p.match(q.Tags)
	total := len(all)
	if q.Offset < len(all) {
		all = all[q.Offset:]
	} else {
		all = nil
	}
	if q.Limit > 0 && q.Limit < len(all) {
		all = all[:q.Limit]
	}
	return &models.SearchResult{Records: all, TotalCount: total}, nil
}

func (p *fakePlatform) CountRecords(_ context.Context, _ string, tags []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.match(tags)), nil
}

func (p *fakePlatform) DeleteRecord(_ context.Context, _ string, recordID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.deleteErr[recordID]; err != nil {
		return err
	}
	if _, ok := p.records[recordID]; !ok {
		return client.ErrNotFound
	}
	delete(p.records, recordID)
	return nil
}

func (p *fakePlatform) FetchCommonKey(_ context.Context, _ string, id string) (*models.CommonKeyEnvelope, error) {
	p.commonKeyFetches.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	env, ok := p.envelopes[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return env, nil
}

type fakeAccount struct {
	userID      string
	commonKeyID string
	ck          cryptox.SymmetricKey
	tek         cryptox.SymmetricKey
}

func (p *fakePlatform) FetchUserInfo(_ context.Context, publicKey string) (*models.UserInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publicKey = publicKey
	if p.account == nil {
		return nil, client.ErrUnauthorized
	}

	pub, err := cryptox.ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	wrappedCK, err := cryptox.WrapKeyAsymmetric(pub, p.account.ck, cryptox.KeyTypeCommon)
	if err != nil {
		return nil, err
	}
	wrappedTEK, err := cryptox.WrapKey(p.account.ck, p.account.tek, cryptox.KeyTypeTag)
	if err != nil {
		return nil, err
	}
	return &models.UserInfo{
		UserID:           p.account.userID,
		CommonKeyID:      p.account.commonKeyID,
		WrappedCommonKey: wrappedCK,
		WrappedTEK:       wrappedTEK,
	}, nil
}

func (p *fakePlatform) registeredKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.publicKey
}

func (p *fakePlatform) stored(t *testing.T, id string) *models.EncryptedRecord {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[id]
	require.True(t, ok, "record %s not stored", id)
	return rec
}

type memSecrets struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemSecrets() *memSecrets { return &memSecrets{m: map[string][]byte{}} }

func (s *memSecrets) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[name]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (s *memSecrets) Set(_ context.Context, name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[name] = bytes.Clone(value)
	return nil
}

func (s *memSecrets) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, name)
	return nil
}

// flakySecrets fails the next failGets reads.
type flakySecrets struct {
	*memSecrets
	failGets atomic.Int32
}

func (s *flakySecrets) Get(ctx context.Context, name string) ([]byte, error) {
	if s.failGets.Add(-1) >= 0 {
		return nil, errors.New("keystore busy")
	}
	return s.memSecrets.Get(ctx, name)
}

type memBlobs struct {
	mu      sync.Mutex
	seq     int
	blobs   map[string][]byte
	uploads int
	failUp  error
}

func newMemBlobs() *memBlobs { return &memBlobs{blobs: map[string][]byte{}} }

func (b *memBlobs) UploadBlob(_ context.Context, _ string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUp != nil {
		return "", b.failUp
	}
	b.seq++
	b.uploads++
	id := fmt.Sprintf("b%d", b.seq)
	b.blobs[id] = bytes.Clone(data)
	return id, nil
}

func (b *memBlobs) DownloadBlob(_ context.Context, _ string, blobID string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[blobID]
	if !ok {
		return nil, client.ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (b *memBlobs) DeleteBlob(_ context.Context, _ string, blobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, blobID)
	return nil
}

func (b *memBlobs) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

// fakeCodec claims it can decode any payload and returns a marker payload
// per target size. A nil entry in out means the image already fits.
type fakeCodec struct {
	out   map[int][]byte
	err   error
	errAt map[int]error
	calls atomic.Int32
}

func (c *fakeCodec) IsResizable([]byte) bool { return true }

func (c *fakeCodec) Resize(_ []byte, targetPx int, _ int) ([]byte, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	if err := c.errAt[targetPx]; err != nil {
		return nil, err
	}
	return c.out[targetPx], nil
}

// countingParser records Decode calls.
type countingParser struct {
	fhir.Parser
	decodes atomic.Int32
}

func (p *countingParser) Decode(resourceType, data string) (fhir.Resource, error) {
	p.decodes.Add(1)
	return p.Parser.Decode(resourceType, data)
}

type testEnv struct {
	platform *fakePlatform
	secrets  *memSecrets
	blobs    *memBlobs
	parser   *countingParser
	keys     *KeyService
	svc      *RecordService
	kp       *cryptox.KeyPair
	ck       cryptox.SymmetricKey
	tek      cryptox.SymmetricKey
}

func newTestEnv(t *testing.T, codec ImageCodec) *testEnv {
	t.Helper()
	ctx := context.Background()

	kp, err := cryptox.GenerateKeyPair(cryptox.AlgorithmRSAOAEP, cryptox.KeySize2048)
	require.NoError(t, err)
	ck, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESGCM, cryptox.KeySize256)
	require.NoError(t, err)
	tek, err := cryptox.GenerateSymmetricKey(cryptox.AlgorithmAESCBC, cryptox.KeySize256)
	require.NoError(t, err)

	env := &testEnv{
		platform: newFakePlatform(),
		secrets:  newMemSecrets(),
		blobs:    newMemBlobs(),
		parser:   &countingParser{Parser: fhir.NewJSONParser()},
		kp:       kp,
		ck:       ck,
		tek:      tek,
	}

	logger := logging.Discard()
	env.keys = NewKeyService("user-1", env.platform, env.secrets, logger)
	require.NoError(t, env.keys.StoreKeyPair(ctx, kp))
	require.NoError(t, env.keys.StoreCommonKey(ctx, "k1", ck))
	require.NoError(t, env.keys.StoreCurrentCommonKeyID(ctx, "k1"))
	require.NoError(t, env.keys.StoreTagEncryptionKey(ctx, tek))

	env.svc = NewRecordService(
		env.platform,
		env.keys,
		NewTagger("acme#android"),
		NewAttachmentService(env.blobs, codec, logger),
		env.parser,
		logger,
	)
	return env
}

func jpegPayload(n int, fill byte) []byte {
	data := bytes.Repeat([]byte{fill}, n)
	copy(data, magicJPEG)
	return data
}

func tiffPayload(n int) []byte {
	data := make([]byte, n)
	copy(data, magicTIFFLE)
	return data
}

func pdfPayload(body string) []byte {
	return append(append([]byte{}, magicPDF...), body...)
}
