// Package config loads the draftform service configuration.
//
// The configuration is read from draftform.json or draftform.yaml. Missing
// keys keep their defaults, unknown keys are rejected, and the environment
// variables DRAFTFORM_API_URL and DRAFTFORM_ADDR override the file.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "readTimeout": "10s",
//	    "writeTimeout": "10s",
//	    "shutdownTimeout": "30s"
//	  },
//	  "api": {
//	    "baseURL": "https://admin.example.com/api",
//	    "timeout": "15s"
//	  },
//	  "drafts": {
//	    "backend": "sqlite",
//	    "sqlitePath": "draftform.db",
//	    "ttl": "24h"
//	  },
//	  "metrics": {"enabled": true, "namespace": "draftform"},
//	  "log": {"level": "info", "format": "json"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromDir(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
