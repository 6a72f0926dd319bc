package storage

import (
	"testing"
	"time"
)

func TestPostgresPool_Defaults(t *testing.T) {
	p := PostgresPool{}.withDefaults()
	if p.MaxOpenConns != 10 || p.MaxIdleConns != 5 {
		t.Fatalf("unexpected pool sizes: %+v", p)
	}
	if p.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %v", p.PingTimeout)
	}
}

func TestPostgresPool_KeepsExplicitValues(t *testing.T) {
	p := PostgresPool{MaxOpenConns: 3, ConnMaxLifetime: time.Minute}.withDefaults()
	if p.MaxOpenConns != 3 || p.ConnMaxLifetime != time.Minute {
		t.Fatalf("explicit values overwritten: %+v", p)
	}
}
