package action_test

import (
	"errors"
	"testing"

	"github.com/nazeru/storefront-checkout-go/pkg/action"
)

func TestNamespace_Type(t *testing.T) {
	ns := action.NewNamespace("CHECKOUT")

	if got := ns.Type("INPUT", "SUBMIT"); got != "CHECKOUT/INPUT/SUBMIT" {
		t.Errorf("Type = %q, want %q", got, "CHECKOUT/INPUT/SUBMIT")
	}
	if got := ns.Type("RESET"); got != "CHECKOUT/RESET" {
		t.Errorf("Type = %q, want %q", got, "CHECKOUT/RESET")
	}
	if got := action.NewNamespace("").Type("EDIT"); got != "EDIT" {
		t.Errorf("Type without prefix = %q, want %q", got, "EDIT")
	}
}

func TestNamespace_Group(t *testing.T) {
	g := action.NewNamespace("CHECKOUT").Group("ORDER")

	if g.Submit != "CHECKOUT/ORDER/SUBMIT" || g.Accept != "CHECKOUT/ORDER/ACCEPT" || g.Reject != "CHECKOUT/ORDER/REJECT" {
		t.Fatalf("unexpected group %+v", g)
	}
	if !g.Has("CHECKOUT/ORDER/REJECT") {
		t.Error("expected group to contain its reject type")
	}
	if g.Has("CHECKOUT/INPUT/REJECT") {
		t.Error("expected group not to contain another domain's type")
	}
}

func TestNew_ErrorPayload(t *testing.T) {
	boom := errors.New("boom")

	a := action.New("X", boom)
	if !a.Error {
		t.Fatal("expected Error flag for error payload")
	}
	if !errors.Is(a.Err(), boom) {
		t.Errorf("Err = %v, want %v", a.Err(), boom)
	}

	ok := action.New("X", map[string]any{"ok": true})
	if ok.Error || ok.Err() != nil {
		t.Errorf("expected success action, got %+v", ok)
	}
}
