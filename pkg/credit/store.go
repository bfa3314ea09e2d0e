package credit

import (
	"context"
	"fmt"

	"github.com/igolaizola/zhiyin/pkg/credit/local"
	"github.com/igolaizola/zhiyin/pkg/credit/redis"
	"github.com/igolaizola/zhiyin/pkg/storage"
)

// NewStore creates the balance store for the given type. The connection
// string is a file path for local, a redis URL or address for redis, and a
// path or dsn for sqlite, mysql and postgres.
func NewStore(ctx context.Context, typ, conn string, debug bool) (Store, error) {
	switch typ {
	case "", "local":
		if conn == "" {
			conn = DefaultKey
		}
		return local.New(conn), nil
	case "redis":
		s, err := redis.Dial(conn, DefaultKey)
		if err != nil {
			return nil, fmt.Errorf("credit: %w", err)
		}
		return s, nil
	case "sqlite", "mysql", "postgres":
		s, err := storage.New(typ, conn, debug)
		if err != nil {
			return nil, fmt.Errorf("credit: %w", err)
		}
		if err := s.Start(ctx); err != nil {
			return nil, fmt.Errorf("credit: %w", err)
		}
		return s.NewBalanceStore(DefaultKey), nil
	default:
		return nil, fmt.Errorf("credit: unknown store type %q", typ)
	}
}
