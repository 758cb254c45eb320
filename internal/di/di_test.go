package di_test

import (
	"testing"

	"github.com/fd1az/poolctl/internal/di"
)

type counter struct{ n int }

func TestContainer_FactoryIsSingleton(t *testing.T) {
	c := di.NewContainer()
	calls := 0
	tok := di.NewToken[*counter]("test:counter")

	di.RegisterToken(c, tok, func(sr di.ServiceRegistry) *counter {
		calls++
		return &counter{n: calls}
	})

	a := di.GetToken(c, tok)
	b := di.GetToken(c, tok)
	if a != b {
		t.Fatal("expected the same instance")
	}
	if calls != 1 {
		t.Fatalf("expected factory to run once, ran %d times", calls)
	}
}

func TestContainer_RegisterValue(t *testing.T) {
	c := di.NewContainer()
	c.Register("config", "value")

	if got := c.Get("config").(string); got != "value" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestContainer_UnknownKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	di.NewContainer().Get("missing")
}

type greeter interface{ Greet() string }

func TestGetToken_NilInterface(t *testing.T) {
	c := di.NewContainer()
	tok := di.NewToken[greeter]("test:greeter")

	di.RegisterToken(c, tok, func(di.ServiceRegistry) greeter { return nil })

	if got := di.GetToken(c, tok); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
