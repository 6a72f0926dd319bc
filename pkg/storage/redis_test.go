package storage

import (
	"context"
	"testing"
	"time"
)

func TestSlotScriptsInitialized(t *testing.T) {
	if slotAcquireScript == nil || slotReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestAcquireSlot_RejectsInvalidArgs(t *testing.T) {
	if _, err := AcquireSlot(context.Background(), nil, "k", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisOptions{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestRedisOptions_Defaults(t *testing.T) {
	o := RedisOptions{Addr: "localhost:6379"}.withDefaults()
	if o.PoolSize != 10 || o.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}
