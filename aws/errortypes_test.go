package aws

import "testing"

func TestRegisterErrorType_ScopedByServiceName(t *testing.T) {
	RegisterErrorType("svc-a", func(code, message string) (error, bool) {
		if code == "Foo" {
			return errString("a-foo"), true
		}
		return nil, false
	})
	RegisterErrorType("svc-b", func(code, message string) (error, bool) {
		if code == "Foo" {
			return errString("b-foo"), true
		}
		return nil, false
	})

	a := RegisteredErrorTypes("svc-a")
	if len(a) != 1 {
		t.Fatalf("expected 1 factory for svc-a, got %d", len(a))
	}
	err, matched := a[0]("Foo", "")
	if !matched || err.Error() != "a-foo" {
		t.Fatalf("svc-a factory did not match expected Foo: %v %v", err, matched)
	}

	if empty := RegisteredErrorTypes("svc-unregistered"); len(empty) != 0 {
		t.Fatalf("expected no factories for an unregistered service, got %d", len(empty))
	}
}

type errString string

func (e errString) Error() string { return string(e) }
