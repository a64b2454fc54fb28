package vault

import (
	"context"
	"testing"
	"time"
)

func TestSplitMount(t *testing.T) {
	cases := []struct{ in, mount, rel string }{
		{"secret/wpmn", "secret", "wpmn"},
		{"kv/apps/wpmn/db", "kv", "apps/wpmn/db"},
		{"secret", "secret", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		m, r := splitMount(c.in)
		if m != c.mount || r != c.rel {
			t.Errorf("splitMount(%q) = %q, %q", c.in, m, r)
		}
	}
}

func TestGetKVServesCache(t *testing.T) {
	c := &Client{cache: map[string]cached{
		"secret/wpmn#db_password": {val: "hunter2", exp: time.Now().Add(time.Minute)},
	}}
	got, err := c.GetKV(context.Background(), "secret/wpmn", "db_password", time.Minute)
	if err != nil || got != "hunter2" {
		t.Fatalf("GetKV = %q, %v", got, err)
	}

	if _, err := c.GetKV(context.Background(), "", "k", 0); err == nil {
		t.Fatal("expected error for empty path")
	}
}
