// Package config defines the Conf struct used by the cmd package to bind cobra
// flags and viper configuration values into a single typed structure.
package config

// Conf holds the configuration values populated by viper from cobra flags,
// environment variables, or a config file.
//
// mapstructure tags are required wherever the lowercased Go field name does
// not match the cobra flag name that viper binds.  Without them,
// viper.Unmarshal silently leaves those fields at their zero value.
type Conf struct {
	// Password is the passphrase pushed as key material before a database is
	// loaded. Corresponds to --password (matches KDBXCAT_PASSWORD).
	Password string `mapstructure:"password"`
	// KeyFile is an optional path whose raw contents are pushed as
	// additional key material, composed with Password when both are set.
	KeyFile string `mapstructure:"keyfile"`
}
