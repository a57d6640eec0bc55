// Package services implements the record pipeline: key management, tag
// encryption, attachment transfer and the record operations built on them.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophrecords/internal/client/client"
	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
	"github.com/dmitrijs2005/gophrecords/internal/logging"
)

// Names under which key material is kept in the SecretStore.
const (
	secretUserID          = "user_id"
	secretKeyPair         = "key_pair"
	secretTagKey          = "tag_encryption_key"
	secretCurrentCommonID = "current_common_key_id"
	secretCommonKeyPrefix = "common_key/"
)

var errMissingSecret = errors.New("secret not found")

// SecretStore persists serialized key material on the device. Get returns
// (nil, nil) when name is not present.
type SecretStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
}

// KeyService owns the account keys. Common keys are cached by id, in memory
// and in the SecretStore; a miss is fetched from the platform and unwrapped
// with the device key pair. It is the only state shared between concurrent
// record operations.
type KeyService struct {
	client client.Client
	store  SecretStore
	logger logging.Logger

	mu         sync.RWMutex
	userID     string
	commonKeys map[string]cryptox.SymmetricKey
	currentID  string
	tagKey     *cryptox.SymmetricKey
	keyPair    *cryptox.KeyPair
}

func NewKeyService(userID string, c client.Client, store SecretStore, logger logging.Logger) *KeyService {
	return &KeyService{
		client:     c,
		store:      store,
		logger:     logger,
		userID:     userID,
		commonKeys: make(map[string]cryptox.SymmetricKey),
	}
}

// UserID returns the account the keys belong to.
func (s *KeyService) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Bootstrap pulls the account key set from the platform. It makes sure a
// device key pair exists and registers its public half, so the platform can
// wrap the current common key for this device. The common key is unwrapped
// with the pair, the tag encryption key with the common key, and all of them
// are persisted.
func (s *KeyService) Bootstrap(ctx context.Context) error {
	kp, err := s.EnsureKeyPair(ctx)
	if err != nil {
		return err
	}
	pub, err := kp.PublicKeyString()
	if err != nil {
		return err
	}

	info, err := s.client.FetchUserInfo(ctx, pub)
	if err != nil {
		return common.Wrap(common.ErrKeyFetchingFailed, err)
	}

	ck, err := cryptox.UnwrapKeyAsymmetric(kp, info.WrappedCommonKey)
	if err != nil {
		return err
	}
	if err := s.StoreCommonKey(ctx, info.CommonKeyID, ck); err != nil {
		return err
	}
	if err := s.StoreCurrentCommonKeyID(ctx, info.CommonKeyID); err != nil {
		return err
	}

	tek, err := cryptox.UnwrapKey(ck, info.WrappedTEK)
	if err != nil {
		return err
	}
	if err := s.StoreTagEncryptionKey(ctx, tek); err != nil {
		return err
	}

	if info.UserID != "" {
		if err := s.store.Set(ctx, secretUserID, []byte(info.UserID)); err != nil {
			return common.Wrap(common.ErrKeyEncryptionFailed, err)
		}
		s.mu.Lock()
		s.userID = info.UserID
		s.mu.Unlock()
	}

	s.logger.Info(ctx, "account keys loaded", "common_key_id", info.CommonKeyID)
	return nil
}

// ResolveCommonKey returns the common key with the given id. Racing misses
// for the same id may both fetch; the last one stored wins.
func (s *KeyService) ResolveCommonKey(ctx context.Context, id string) (cryptox.SymmetricKey, error) {
	s.mu.RLock()
	k, ok := s.commonKeys[id]
	s.mu.RUnlock()
	if ok {
		return k, nil
	}

	k, err := s.loadSymmetric(ctx, secretCommonKeyPrefix+id)
	if err == nil {
		s.cacheCommonKey(id, k)
		return k, nil
	}
	if !errors.Is(err, errMissingSecret) {
		return cryptox.SymmetricKey{}, err
	}

	kp, err := s.KeyPair(ctx)
	if err != nil {
		return cryptox.SymmetricKey{}, err
	}

	s.logger.Debug(ctx, "common key miss, fetching", "common_key_id", id)
	env, err := s.client.FetchCommonKey(ctx, s.UserID(), id)
	if err != nil {
		return cryptox.SymmetricKey{}, common.Wrap(common.ErrKeyFetchingFailed, err)
	}

	k, err = cryptox.UnwrapKeyAsymmetric(kp, env.WrappedCommonKey)
	if err != nil {
		return cryptox.SymmetricKey{}, err
	}

	if err := s.StoreCommonKey(ctx, id, k); err != nil {
		return cryptox.SymmetricKey{}, err
	}
	return k, nil
}

// StoreCommonKey caches key under id and persists it.
func (s *KeyService) StoreCommonKey(ctx context.Context, id string, key cryptox.SymmetricKey) error {
	if err := s.storeSymmetric(ctx, secretCommonKeyPrefix+id, key, cryptox.KeyTypeCommon); err != nil {
		return err
	}
	s.cacheCommonKey(id, key)
	return nil
}

func (s *KeyService) cacheCommonKey(id string, key cryptox.SymmetricKey) {
	s.mu.Lock()
	s.commonKeys[id] = key
	s.mu.Unlock()
}

// CurrentCommonKeyID returns the id new records are written under.
func (s *KeyService) CurrentCommonKeyID(ctx context.Context) (string, error) {
	s.mu.RLock()
	id := s.currentID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	raw, err := s.store.Get(ctx, secretCurrentCommonID)
	if err != nil {
		return "", common.Wrap(common.ErrKeyFetchingFailed, err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: no current common key", common.ErrKeyFetchingFailed)
	}

	s.mu.Lock()
	s.currentID = string(raw)
	s.mu.Unlock()
	return string(raw), nil
}

// StoreCurrentCommonKeyID switches new writes to id. The key itself must be
// resolvable through ResolveCommonKey.
func (s *KeyService) StoreCurrentCommonKeyID(ctx context.Context, id string) error {
	if err := s.store.Set(ctx, secretCurrentCommonID, []byte(id)); err != nil {
		return common.Wrap(common.ErrKeyEncryptionFailed, err)
	}
	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()
	return nil
}

// CurrentCommonKey returns the current common key together with its id.
func (s *KeyService) CurrentCommonKey(ctx context.Context) (string, cryptox.SymmetricKey, error) {
	id, err := s.CurrentCommonKeyID(ctx)
	if err != nil {
		return "", cryptox.SymmetricKey{}, err
	}
	k, err := s.ResolveCommonKey(ctx, id)
	if err != nil {
		return "", cryptox.SymmetricKey{}, err
	}
	return id, k, nil
}

// TagEncryptionKey returns the account TEK.
func (s *KeyService) TagEncryptionKey(ctx context.Context) (cryptox.SymmetricKey, error) {
	s.mu.RLock()
	k := s.tagKey
	s.mu.RUnlock()
	if k != nil {
		return *k, nil
	}

	tek, err := s.loadSymmetric(ctx, secretTagKey)
	if err != nil {
		if errors.Is(err, errMissingSecret) {
			return cryptox.SymmetricKey{}, fmt.Errorf("%w: no tag encryption key", common.ErrKeyFetchingFailed)
		}
		return cryptox.SymmetricKey{}, err
	}

	s.mu.Lock()
	s.tagKey = &tek
	s.mu.Unlock()
	return tek, nil
}

// StoreTagEncryptionKey persists the TEK.
func (s *KeyService) StoreTagEncryptionKey(ctx context.Context, key cryptox.SymmetricKey) error {
	if err := s.storeSymmetric(ctx, secretTagKey, key, cryptox.KeyTypeTag); err != nil {
		return err
	}
	key.Algorithm = cryptox.AlgorithmAESCBC
	s.mu.Lock()
	s.tagKey = &key
	s.mu.Unlock()
	return nil
}

// KeyPair returns the device key pair.
func (s *KeyService) KeyPair(ctx context.Context) (*cryptox.KeyPair, error) {
	s.mu.RLock()
	kp := s.keyPair
	s.mu.RUnlock()
	if kp != nil {
		return kp, nil
	}

	raw, err := s.store.Get(ctx, secretKeyPair)
	if err != nil {
		return nil, common.Wrap(common.ErrKeyFetchingFailed, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: device key pair: %w", common.ErrKeyFetchingFailed, errMissingSecret)
	}

	var ek cryptox.ExchangeKey
	if err := json.Unmarshal(raw, &ek); err != nil {
		return nil, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}
	kp, err = cryptox.ImportKeyPair(ek)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.keyPair = kp
	s.mu.Unlock()
	return kp, nil
}

// EnsureKeyPair returns the stored device key pair, generating and persisting
// a new RSA-2048 pair only when none is stored. Any other failure to read the
// pair is returned as is.
func (s *KeyService) EnsureKeyPair(ctx context.Context) (*cryptox.KeyPair, error) {
	kp, err := s.KeyPair(ctx)
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, errMissingSecret) {
		return nil, err
	}

	kp, err = cryptox.GenerateKeyPair(cryptox.AlgorithmRSAOAEP, cryptox.KeySize2048)
	if err != nil {
		return nil, err
	}
	if err := s.StoreKeyPair(ctx, kp); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "generated device key pair")
	return kp, nil
}

// StoreKeyPair persists kp as the device key pair.
func (s *KeyService) StoreKeyPair(ctx context.Context, kp *cryptox.KeyPair) error {
	ek, err := cryptox.ExportKeyPair(kp)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(ek)
	if err != nil {
		return common.Wrap(common.ErrKeyEncryptionFailed, err)
	}
	if err := s.store.Set(ctx, secretKeyPair, raw); err != nil {
		return common.Wrap(common.ErrKeyEncryptionFailed, err)
	}
	s.mu.Lock()
	s.keyPair = kp
	s.mu.Unlock()
	return nil
}

func (s *KeyService) storeSymmetric(ctx context.Context, name string, key cryptox.SymmetricKey, t cryptox.KeyType) error {
	raw, err := json.Marshal(cryptox.ExportSymmetricKey(key, t))
	if err != nil {
		return common.Wrap(common.ErrKeyEncryptionFailed, err)
	}
	if err := s.store.Set(ctx, name, raw); err != nil {
		return common.Wrap(common.ErrKeyEncryptionFailed, err)
	}
	return nil
}

func (s *KeyService) loadSymmetric(ctx context.Context, name string) (cryptox.SymmetricKey, error) {
	raw, err := s.store.Get(ctx, name)
	if err != nil {
		return cryptox.SymmetricKey{}, common.Wrap(common.ErrKeyFetchingFailed, err)
	}
	if len(raw) == 0 {
		return cryptox.SymmetricKey{}, errMissingSecret
	}

	var ek cryptox.ExchangeKey
	if err := json.Unmarshal(raw, &ek); err != nil {
		return cryptox.SymmetricKey{}, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}
	return cryptox.ImportSymmetricKey(ek)
}
