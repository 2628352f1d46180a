package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] in the layout of the JSON
// config file.
type StructuredJSONConfig struct {
	Storage struct {
		Root    string `json:"root"`
		Backend string `json:"backend"`
		DSN     string `json:"dsn"`
		KeysDir string `json:"keys_dir"`
	} `json:"storage,omitempty"`

	Security struct {
		PBKDFIterations uint32 `json:"pbkdf_iterations"`
		HashAlgorithm   string `json:"hash_algorithm"`
	} `json:"security,omitempty"`

	Workers struct {
		SweepInterval  Duration `json:"sweep_interval"`
		BackupInterval Duration `json:"backup_interval"`
	} `json:"workers,omitempty"`

	Bootstrap struct {
		AdminUsername string `json:"admin_username"`
		AdminPassword string `json:"admin_password"`
	} `json:"bootstrap,omitempty"`

	Metrics struct {
		Address string `json:"address"`
	} `json:"metrics,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Storage: Storage{
			Root:    jsonCfg.Storage.Root,
			Backend: jsonCfg.Storage.Backend,
			DSN:     jsonCfg.Storage.DSN,
			KeysDir: jsonCfg.Storage.KeysDir,
		},
		Security: Security{
			PBKDFIterations: jsonCfg.Security.PBKDFIterations,
			HashAlgorithm:   jsonCfg.Security.HashAlgorithm,
		},
		Workers: Workers{
			SweepInterval:  time.Duration(jsonCfg.Workers.SweepInterval),
			BackupInterval: time.Duration(jsonCfg.Workers.BackupInterval),
		},
		Bootstrap: Bootstrap{
			AdminUsername: jsonCfg.Bootstrap.AdminUsername,
			AdminPassword: jsonCfg.Bootstrap.AdminPassword,
		},
		Metrics: Metrics{
			Address: jsonCfg.Metrics.Address,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
