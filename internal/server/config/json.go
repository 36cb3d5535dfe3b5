package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
	"github.com/dmitrijs2005/filedrop/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// It is seeded from the current Config before unmarshalling, so keys missing
// from the file keep their previous values.
type JsonConfig struct {
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	MetricsAddr         string         `json:"metrics_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	LogLevel            string         `json:"log_level"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3UsePathStyle      bool           `json:"s3_use_path_style"`
	AllowedMimeTypes    []string       `json:"allowed_mime_types"`
	MaxFileSize         int64          `json:"max_file_size"`
	MaxFiles            int            `json:"max_files"`
	CacheControlSeconds int            `json:"cache_control_seconds"`
	Upsert              bool           `json:"upsert"`
	UploadConcurrency   int            `json:"upload_concurrency"`
	CompensateOrphans   bool           `json:"compensate_orphans"`
	MaxSessions         int            `json:"max_sessions"`
}

func fromConfig(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:    c.EndpointAddrGRPC,
		MetricsAddr:         c.MetricsAddr,
		DatabaseDSN:         c.DatabaseDSN,
		SecretKey:           c.SecretKey,
		LogLevel:            c.LogLevel,
		ShutdownTimeout:     timex.Duration{Duration: c.ShutdownTimeout},
		S3RootUser:          c.S3RootUser,
		S3RootPassword:      c.S3RootPassword,
		S3Bucket:            c.S3Bucket,
		S3Region:            c.S3Region,
		S3BaseEndpoint:      c.S3BaseEndpoint,
		S3UsePathStyle:      c.S3UsePathStyle,
		AllowedMimeTypes:    c.AllowedMimeTypes,
		MaxFileSize:         c.MaxFileSize,
		MaxFiles:            c.MaxFiles,
		CacheControlSeconds: c.CacheControlSeconds,
		Upsert:              c.Upsert,
		UploadConcurrency:   c.UploadConcurrency,
		CompensateOrphans:   c.CompensateOrphans,
		MaxSessions:         c.MaxSessions,
	}
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := fromConfig(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.MetricsAddr = c.MetricsAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.LogLevel = c.LogLevel
	config.ShutdownTimeout = c.ShutdownTimeout.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3UsePathStyle = c.S3UsePathStyle
	config.AllowedMimeTypes = c.AllowedMimeTypes
	config.MaxFileSize = c.MaxFileSize
	config.MaxFiles = c.MaxFiles
	config.CacheControlSeconds = c.CacheControlSeconds
	config.Upsert = c.Upsert
	config.UploadConcurrency = c.UploadConcurrency
	config.CompensateOrphans = c.CompensateOrphans
	config.MaxSessions = c.MaxSessions
}
