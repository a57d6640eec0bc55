package config

import "time"

// Storage drivers accepted by StorageDriver.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Blob backends accepted by BlobBackend.
const (
	BlobBackendPresigned = "presigned"
	BlobBackendS3        = "s3"
)

// Config holds runtime settings for the GophRecords client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the platform gRPC endpoint.
//   - ClientID: "<partner>#<platform>" identifier of this client application.
//   - RequestTimeout: per-call deadline applied by the gRPC adapter.
//   - StorageDriver / StorageDSN: where the device keeps its key material.
//   - BlobBackend: "presigned" (URLs from the platform) or "s3" (direct).
//   - S3*: bucket settings used when BlobBackend is "s3".
//   - BatchConcurrency: upper bound on in-flight items of a batch call.
//   - OnlineCheckInterval: how often the CLI pings the platform.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerEndpointAddr  string
	ClientID            string
	RequestTimeout      time.Duration
	StorageDriver       string
	StorageDSN          string
	BlobBackend         string
	S3Region            string
	S3Endpoint          string
	S3Bucket            string
	S3AccessKey         string
	S3SecretKey         string
	BatchConcurrency    int
	OnlineCheckInterval time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.ClientID = "gophrecords#cli"
	c.RequestTimeout = 30 * time.Second
	c.StorageDriver = StorageSQLite
	c.StorageDSN = "file:gophrecords.db"
	c.BlobBackend = BlobBackendPresigned
	c.S3Region = "us-east-1"
	c.S3Bucket = "gophrecords"
	c.BatchConcurrency = 4
	c.OnlineCheckInterval = 10 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
