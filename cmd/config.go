package cmd

import (
	"sqlporter/internal/client"

	"github.com/spf13/viper"
)

// LoadConnection assembles the shared connection settings with the usual
// precedence: flag > config file > environment > default.
func LoadConnection() (client.Connection, error) {
	conn := client.Connection{
		Server:          viper.GetString("connection.server"),
		User:            viper.GetString("connection.user"),
		Password:        viper.GetString("connection.password"),
		Trusted:         viper.GetBool("connection.trusted"),
		TrustServerCert: viper.GetBool("connection.trust_server_cert"),
	}
	return conn, conn.Validate()
}
