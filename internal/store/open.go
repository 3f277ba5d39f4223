package store

import (
	"context"
	"fmt"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverLibsql = "libsql"
	DriverRedis  = "redis"
)

type Config struct {
	// Driver is one of memory, sqlite, libsql or redis.
	Driver string `json:"driver"`
	// Path is the sqlite database file.
	Path string `json:"path"`
	// Url and AuthToken address a libsql server.
	Url       string      `json:"url"`
	AuthToken string      `json:"auth_token"`
	Redis     RedisConfig `json:"redis"`
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("store: sqlite driver requires a path")
		}
	case DriverLibsql:
		if c.Url == "" {
			return fmt.Errorf("store: libsql driver requires a url")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store: redis driver requires an address")
		}
	default:
		return fmt.Errorf("store: unknown driver %q", c.Driver)
	}
	return nil
}

// Open constructs the store described by c.
func Open(ctx context.Context, c Config) (Store, error) {
	err := c.Validate()
	if err != nil {
		return nil, err
	}

	var s Store
	switch c.Driver {
	case DriverSQLite:
		s, err = OpenSQLite(c.Path)
	case DriverLibsql:
		s, err = OpenLibsql(c.Url, c.AuthToken)
	case DriverRedis:
		s, err = OpenRedis(ctx, c.Redis)
	default:
		s = NewMemory()
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
