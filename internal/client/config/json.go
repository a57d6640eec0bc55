package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophrecords/internal/flagx"
	"github.com/dmitrijs2005/gophrecords/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	ClientID           string         `json:"client_id"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	StorageDriver      string         `json:"storage_driver"`
	StorageDSN         string         `json:"storage_dsn"`
	BlobBackend        string         `json:"blob_backend"`
	S3                 struct {
		Region    string `json:"region"`
		Endpoint  string `json:"endpoint"`
		Bucket    string `json:"bucket"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
	} `json:"s3"`
	BatchConcurrency    int            `json:"batch_concurrency"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file whose path is
// given by -c or -config. Only non-zero values override what is already set.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.ClientID, jc.ClientID)
	setString(&cfg.StorageDriver, jc.StorageDriver)
	setString(&cfg.StorageDSN, jc.StorageDSN)
	setString(&cfg.BlobBackend, jc.BlobBackend)
	setString(&cfg.S3Region, jc.S3.Region)
	setString(&cfg.S3Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3Bucket, jc.S3.Bucket)
	setString(&cfg.S3AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3SecretKey, jc.S3.SecretKey)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.BatchConcurrency > 0 {
		cfg.BatchConcurrency = jc.BatchConcurrency
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
