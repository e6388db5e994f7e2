package common

import (
	"testing"
	"time"
)

func TestEnvFallback(t *testing.T) {
	t.Setenv("BIDPLUS_TEST_VALUE", "  ")
	if got := Env("BIDPLUS_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("BIDPLUS_TEST_VALUE", " set ")
	if got := Env("BIDPLUS_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("BIDPLUS_TEST_TIMEOUT", "soon")
	if got := EnvDuration("BIDPLUS_TEST_TIMEOUT", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	t.Setenv("BIDPLUS_TEST_TIMEOUT", "250ms")
	if got := EnvDuration("BIDPLUS_TEST_TIMEOUT", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", got)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("BIDPLUS_TEST_PARTITIONS", "ten")
	if got := EnvInt("BIDPLUS_TEST_PARTITIONS", 10); got != 10 {
		t.Fatalf("expected fallback, got %d", got)
	}
	t.Setenv("BIDPLUS_TEST_PARTITIONS", "6")
	if got := EnvInt("BIDPLUS_TEST_PARTITIONS", 10); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}

func TestEnvBool(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "yes": true, "off": false, "0": false}
	for in, want := range cases {
		t.Setenv("BIDPLUS_TEST_FLAG", in)
		if got := EnvBool("BIDPLUS_TEST_FLAG", !want); got != want {
			t.Errorf("EnvBool(%q) = %v, want %v", in, got, want)
		}
	}
	t.Setenv("BIDPLUS_TEST_FLAG", "maybe")
	if got := EnvBool("BIDPLUS_TEST_FLAG", true); !got {
		t.Error("expected fallback for unknown value")
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("BIDPLUS_TEST_BROKERS", " kafka-a:9092 , ,kafka-b:9092 ")
	got := EnvList("BIDPLUS_TEST_BROKERS", "localhost:9092")
	if len(got) != 2 || got[0] != "kafka-a:9092" || got[1] != "kafka-b:9092" {
		t.Fatalf("unexpected split: %#v", got)
	}
	t.Setenv("BIDPLUS_TEST_BROKERS", "")
	if got := EnvList("BIDPLUS_TEST_BROKERS", "localhost:9092"); len(got) != 1 || got[0] != "localhost:9092" {
		t.Fatalf("expected fallback list, got %#v", got)
	}
}
