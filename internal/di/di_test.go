package di

import (
	"testing"
)

type greeter struct {
	name string
}

func TestContainer_RegisterAndGet(t *testing.T) {
	c := NewContainer()
	c.Register("config", "value")

	if !c.Has("config") {
		t.Fatal("expected config to be registered")
	}
	if got := c.Get("config"); got != "value" {
		t.Fatalf("Get(config) = %v", got)
	}
}

func TestToken_FactoryIsSingleton(t *testing.T) {
	c := NewContainer()
	calls := 0
	tok := NewToken[*greeter]("test.greeter")

	RegisterToken(c, tok, func(sr ServiceRegistry) *greeter {
		calls++
		return &greeter{name: "deployer"}
	})

	first := GetToken(c, tok)
	second := GetToken(c, tok)

	if first != second {
		t.Fatal("expected the same instance on every resolve")
	}
	if calls != 1 {
		t.Fatalf("factory called %d times, want 1", calls)
	}
	if first.name != "deployer" {
		t.Fatalf("name = %q", first.name)
	}
}

func TestToken_FactoryResolvesDependencies(t *testing.T) {
	c := NewContainer()
	c.Register("name", "runner")
	tok := NewToken[*greeter]("test.greeter")

	RegisterToken(c, tok, func(sr ServiceRegistry) *greeter {
		return &greeter{name: sr.Get("name").(string)}
	})

	if got := GetToken(c, tok).name; got != "runner" {
		t.Fatalf("name = %q, want runner", got)
	}
}

func TestContainer_PanicsOnUnknown(t *testing.T) {
	c := NewContainer()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unregistered service")
		}
	}()
	c.Get("missing")
}

func TestContainer_PanicsOnCycle(t *testing.T) {
	c := NewContainer()
	a := NewToken[string]("a")
	b := NewToken[string]("b")
	RegisterToken(c, a, func(sr ServiceRegistry) string { return GetToken(sr, b) })
	RegisterToken(c, b, func(sr ServiceRegistry) string { return GetToken(sr, a) })

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for dependency cycle")
		}
	}()
	GetToken(c, a)
}
