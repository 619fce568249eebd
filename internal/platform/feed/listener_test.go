package feed

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestMigrationsNotifyOnListenerChannel(t *testing.T) {
	files, err := filepath.Glob("../../../migrations/*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("no migrations found: %v", err)
	}
	notify := regexp.MustCompile(`pg_notify\('([^']+)'`)
	found := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		for _, m := range notify.FindAllStringSubmatch(string(data), -1) {
			found++
			if m[1] != Channel {
				t.Fatalf("%s notifies %q, listener uses %q", filepath.Base(file), m[1], Channel)
			}
		}
	}
	if found < 2 {
		t.Fatalf("expected the votes and employees triggers, found %d notify calls", found)
	}
}

func TestNewListenerUsesFixedChannel(t *testing.T) {
	if l := NewListener(nil, NewBroker()); l.Channel != Channel || l.RetryDelay <= 0 {
		t.Fatalf("unexpected listener %+v", l)
	}
}
