// Package client wraps the external SQL Server tools the pipeline drives:
// sqlcmd for statements and script files, bcp for bulk data. Both share
// one Connection value and run through the execx primitive.
package client

import (
	"fmt"
	"net/url"
)

// Connection carries the target server and credentials shared by every
// collaborator. Trusted selects integrated authentication instead of the
// explicit user/password pair.
type Connection struct {
	Server          string `mapstructure:"server"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Trusted         bool   `mapstructure:"trusted"`
	TrustServerCert bool   `mapstructure:"trust_server_cert"`
}

// DSN builds the go-mssqldb connection URL for direct catalog access.
func (c Connection) DSN(database string) string {
	u := &url.URL{Scheme: "sqlserver", Host: c.Server}
	if !c.Trusted {
		u.User = url.UserPassword(c.User, c.Password)
	}
	q := url.Values{}
	if database != "" {
		q.Set("database", database)
	}
	if c.TrustServerCert {
		q.Set("trustservercertificate", "true")
	}
	if c.Trusted {
		q.Set("trusted_connection", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SqlcmdArgs returns the connection portion of a sqlcmd invocation.
func (c Connection) SqlcmdArgs() []string {
	args := []string{"-S", c.Server}
	if c.Trusted {
		args = append(args, "-E")
	} else {
		args = append(args, "-U", c.User, "-P", c.Password)
	}
	if c.TrustServerCert {
		args = append(args, "-C")
	}
	return args
}

// BcpArgs returns the connection portion of a bcp invocation.
func (c Connection) BcpArgs() []string {
	args := []string{"-S", c.Server}
	if c.Trusted {
		args = append(args, "-T")
	} else {
		args = append(args, "-U", c.User, "-P", c.Password)
	}
	if c.TrustServerCert {
		args = append(args, "-u")
	}
	return args
}

// Validate rejects configurations that cannot authenticate.
func (c Connection) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required (flag --server, env SQLPORTER_SERVER, or config)")
	}
	if !c.Trusted && c.User == "" {
		return fmt.Errorf("user is required unless trusted authentication is enabled")
	}
	return nil
}
