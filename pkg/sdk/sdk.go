// Package sdk is the public entry point of GophRecords. A Client encrypts
// FHIR resources, their tags and their attachments on the device before
// anything reaches the platform, and decrypts them after download.
//
// Typical use:
//
//	c, err := sdk.New(ctx, cfg,
//	    sdk.WithTokens(access, refresh),
//	    sdk.WithPassphrase(pass))
//	if err != nil { ... }
//	defer c.Close()
//
//	rec, err := sdk.CreateRecord(ctx, c, patient, "visit=2024")
package sdk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/gophrecords/internal/client/auth"
	"github.com/dmitrijs2005/gophrecords/internal/client/client"
	"github.com/dmitrijs2005/gophrecords/internal/client/config"
	"github.com/dmitrijs2005/gophrecords/internal/client/repositories/secrets"
	"github.com/dmitrijs2005/gophrecords/internal/client/services"
	"github.com/dmitrijs2005/gophrecords/internal/imagex"
	"github.com/dmitrijs2005/gophrecords/internal/logging"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

type (
	Config      = config.Config
	Platform    = client.Client
	BlobStore   = client.BlobStore
	SecretStore = services.SecretStore
	ImageCodec  = services.ImageCodec
	Logger      = logging.Logger
)

// DefaultConfig returns a Config populated with defaults only.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	return cfg
}

// Client runs record operations for one account. It is safe for concurrent
// use.
type Client struct {
	platform Platform
	records  *services.RecordService
	keys     *services.KeyService
	closers  []func() error
}

// Dependencies lets callers supply their own collaborators. Platform, Blobs
// and Secrets are required; the rest fall back to defaults.
type Dependencies struct {
	Platform         Platform
	Blobs            BlobStore
	Secrets          SecretStore
	Codec            ImageCodec
	Parser           fhir.Parser
	Logger           Logger
	ClientID         string
	UserID           string
	BatchConcurrency int
}

// NewWithDependencies assembles a Client without touching the network. Call
// Bootstrap before the first record operation if the device has not loaded
// the account keys yet.
func NewWithDependencies(deps Dependencies) (*Client, error) {
	if deps.Platform == nil || deps.Blobs == nil || deps.Secrets == nil {
		return nil, fmt.Errorf("%w: platform, blob store and secret store are required", client.ErrInvalidConfig)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Parser == nil {
		deps.Parser = fhir.NewJSONParser()
	}
	if deps.Codec == nil {
		deps.Codec = imagex.NewCodec()
	}

	keys := services.NewKeyService(deps.UserID, deps.Platform, deps.Secrets, deps.Logger.With("component", "keys"))
	atts := services.NewAttachmentService(deps.Blobs, deps.Codec, deps.Logger.With("component", "attachments"))
	rs := services.NewRecordService(
		deps.Platform,
		keys,
		services.NewTagger(deps.ClientID),
		atts,
		deps.Parser,
		deps.Logger.With("component", "records"),
	)
	rs.BatchConcurrency = deps.BatchConcurrency

	return &Client{platform: deps.Platform, records: rs, keys: keys}, nil
}

type options struct {
	accessToken  string
	refreshToken string
	passphrase   []byte
	logger       Logger
	codec        ImageCodec
	secrets      SecretStore
	dialOptions  []grpc.DialOption
}

// Option customizes New.
type Option func(*options)

// WithTokens sets the platform session. The owner id is read from the
// access token.
func WithTokens(access, refresh string) Option {
	return func(o *options) { o.accessToken, o.refreshToken = access, refresh }
}

// WithPassphrase unlocks the on-device secret store.
func WithPassphrase(p []byte) Option {
	return func(o *options) { o.passphrase = p }
}

func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithImageCodec(c ImageCodec) Option {
	return func(o *options) { o.codec = c }
}

// WithSecretStore replaces the configured storage. WithPassphrase is not
// needed then.
func WithSecretStore(s SecretStore) Option {
	return func(o *options) { o.secrets = s }
}

func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOptions = append(o.dialOptions, opts...) }
}

// New builds the full client graph from cfg and loads the account keys.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	userID, err := auth.OwnerIDFromToken(o.accessToken)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	fail := func(err error) (*Client, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	platform, err := client.NewGRPCClient(cfg.ServerEndpointAddr, cfg.RequestTimeout, o.dialOptions...)
	if err != nil {
		return nil, err
	}
	platform.SetTokens(o.accessToken, o.refreshToken)
	closers = append(closers, platform.Close)

	blobs, err := newBlobStore(ctx, cfg, platform)
	if err != nil {
		return fail(err)
	}

	store := o.secrets
	if store == nil {
		enc, db, err := openSecrets(ctx, cfg, o.passphrase)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, db.Close)
		store = enc
	}

	c, err := NewWithDependencies(Dependencies{
		Platform:         platform,
		Blobs:            blobs,
		Secrets:          store,
		Codec:            o.codec,
		Logger:           o.logger,
		ClientID:         cfg.ClientID,
		UserID:           userID,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	if err != nil {
		return fail(err)
	}
	c.closers = closers

	if err := c.Bootstrap(ctx); err != nil {
		return fail(err)
	}
	return c, nil
}

func newBlobStore(ctx context.Context, cfg *Config, issuer client.BlobURLIssuer) (BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		return client.NewS3BlobStore(ctx, cfg)
	case config.BlobBackendPresigned, "":
		return client.NewPresignedBlobStore(issuer), nil
	default:
		return nil, fmt.Errorf("%w: unknown blob backend %q", client.ErrInvalidConfig, cfg.BlobBackend)
	}
}

var errNoPassphrase = errors.New("passphrase required to unlock the secret store")

func openSecrets(ctx context.Context, cfg *Config, passphrase []byte) (*secrets.EncryptedRepository, *sql.DB, error) {
	if len(passphrase) == 0 {
		return nil, nil, errNoPassphrase
	}
	repo, db, err := secrets.Open(ctx, cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return nil, nil, err
	}
	enc := secrets.NewEncryptedRepository(repo)
	if err := enc.Unlock(ctx, passphrase); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return enc, db, nil
}

// Bootstrap loads the account key set from the platform and persists it.
func (c *Client) Bootstrap(ctx context.Context) error {
	return c.keys.Bootstrap(ctx)
}

// UserID is the account the client operates on.
func (c *Client) UserID() string {
	return c.keys.UserID()
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that the platform answers. Platforms without a health call
// are assumed reachable.
func (c *Client) Ping(ctx context.Context) error {
	if p, ok := c.platform.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the transport and storage handles opened by New.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
