package rules

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/contentsafety/internal/platform/redisx"
)

func TestRedisSourceIntegration(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("CS_RUN_REDIS_INTEGRATION")), "true") {
		t.Skip("set CS_RUN_REDIS_INTEGRATION=true to run redis integration tests")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	ctx := context.Background()
	rdb, err := redisx.NewClient(ctx, &goredis.Options{Addr: addr})
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	key := fmt.Sprintf("cs-it-rules-%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = rdb.Del(context.Background(), key).Err() })

	src := NewRedisSourceWithClient(rdb, key, nil)
	t.Cleanup(func() { _ = src.Close() })
	if _, err := src.TryLoad(ctx); err != ErrSourceNotFound {
		t.Fatalf("missing key: want ErrSourceNotFound got=%v", err)
	}
	if err := rdb.Set(ctx, key, `{"ng":[{"pattern":"完治","suggest":"改善が期待される"}]}`, time.Minute).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := src.TryLoad(ctx)
	if err != nil {
		t.Fatalf("TryLoad: %v", err)
	}
	if len(got) != 1 || got[0].Suggestion != "改善が期待される" {
		t.Fatalf("unexpected rules: %+v", got)
	}
}
