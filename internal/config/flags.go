package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags from the process arguments.
//
// Flags:
//
//	-root storage root directory
//	-backend storage backend (json, bolt, sqlite, postgres)
//	-dsn database DSN for the SQL backends
//	-keys-dir keyring directory
//	-pbkdf-iterations PBKDF2 iteration count
//	-hash-algorithm password hash algorithm (pbkdf2-sha256, argon2id)
//	-sweep-interval license expiry sweep interval (e.g., "1h")
//	-backup-interval automatic backup interval (e.g., "24h")
//	-admin-user first administrator username
//	-admin-password first administrator password
//	-metrics-address ops listener address in format [host]:[port]
//	-c/-config json file path with configs
func ParseFlags() (*StructuredConfig, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) (*StructuredConfig, error) {
	var cfg StructuredConfig
	var metricsAddress NetAddress
	var iterations uint64

	fs.StringVar(&cfg.Storage.Root, "root", "", "Storage root directory")
	fs.StringVar(&cfg.Storage.Backend, "backend", "", "Storage backend: json, bolt, sqlite or postgres")
	fs.StringVar(&cfg.Storage.DSN, "dsn", "", "Database DSN")
	fs.StringVar(&cfg.Storage.KeysDir, "keys-dir", "", "Keyring directory")
	fs.Uint64Var(&iterations, "pbkdf-iterations", 0, "PBKDF2 iteration count")
	fs.StringVar(&cfg.Security.HashAlgorithm, "hash-algorithm", "", "Password hash algorithm")
	fs.DurationVar(&cfg.Workers.SweepInterval, "sweep-interval", 0, "License expiry sweep interval (e.g., 1h)")
	fs.DurationVar(&cfg.Workers.BackupInterval, "backup-interval", 0, "Automatic backup interval (e.g., 24h)")
	fs.StringVar(&cfg.Bootstrap.AdminUsername, "admin-user", "", "First administrator username")
	fs.StringVar(&cfg.Bootstrap.AdminPassword, "admin-password", "", "First administrator password")
	fs.Var(&metricsAddress, "metrics-address", "Ops listener address host:port")
	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if iterations > uint64(^uint32(0)) {
		return nil, errors.New("pbkdf-iterations is out of range")
	}
	cfg.Security.PBKDFIterations = uint32(iterations)
	cfg.Metrics.Address = metricsAddress.String()

	return &cfg, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is
// "localhost" or empty, and returns an error if the format or values are
// invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number is a positive integer up to 65535")
	}

	if host != "localhost" && host != "" {
		ip := net.ParseIP(host)
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
