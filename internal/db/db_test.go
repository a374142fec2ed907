package db

import (
	"testing"

	"github.com/shinyyama/support-chat/internal/config"
)

func TestBuildDSN(t *testing.T) {
	base := config.Config{DBUser: "u", DBPassword: "p", DBName: "chat"}
	tests := []struct {
		name string
		mod  func(c *config.Config)
		want string
	}{
		{
			name: "mysql host and default port",
			mod:  func(c *config.Config) { c.DBDriver = config.DriverMySQL; c.DBHost = "db" },
			want: "u:p@tcp(db:3306)/chat?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "mysql explicit tcp",
			mod:  func(c *config.Config) { c.DBDriver = config.DriverMySQL; c.DBHost = "tcp(10.0.0.1:3307)" },
			want: "u:p@tcp(10.0.0.1:3307)/chat?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "mysql socket path",
			mod:  func(c *config.Config) { c.DBDriver = config.DriverMySQL; c.DBHost = "/var/run/mysqld.sock" },
			want: "u:p@unix(/var/run/mysqld.sock)/chat?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "mysql cloud sql",
			mod: func(c *config.Config) {
				c.DBDriver = config.DriverMySQL
				c.DBHost = "ignored"
				c.InstanceConnectionName = "proj:region:inst"
			},
			want: "u:p@unix(/cloudsql/proj:region:inst)/chat?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "postgres defaults",
			mod:  func(c *config.Config) { c.DBDriver = config.DriverPostgres; c.DBHost = "pg" },
			want: "host=pg port=5432 user=u password=p dbname=chat sslmode=disable TimeZone=UTC",
		},
		{
			name: "postgres cloud sql with sslmode",
			mod: func(c *config.Config) {
				c.DBDriver = config.DriverPostgres
				c.InstanceConnectionName = "proj:region:inst"
				c.DBSSLMode = "require"
			},
			want: "host=/cloudsql/proj:region:inst port=5432 user=u password=p dbname=chat sslmode=require TimeZone=UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mod(&cfg)
			if got := BuildDSN(&cfg); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}
