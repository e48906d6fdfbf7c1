package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseResolve,
				Kind:      KindMissingRequire,
				Path:      []string{"requires", "java.scripting"},
				Component: "org.openjdk.nashorn",
				Unit:      "guest",
				Detail:    "module not found",
			},
			contains: []string{"[resolve]", "missing_require", "requires.java.scripting", "component org.openjdk.nashorn", "unit guest", "module not found"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindInvalidData,
			},
			contains: []string{"[decode]", "invalid_data"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "compile",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "compile", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDescriptor,
		Kind:  KindSealed,
		Path:  []string{"requires"},
	}

	if !errors.Is(err, &Error{Phase: PhaseDescriptor, Kind: KindSealed}) {
		t.Error("errors.Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindSealed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDescriptor, Kind: KindAccess}) {
		t.Error("Is should not match different kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDefine, KindDuplicate).
		Component("org.openjdk.nashorn").
		Unit("nashorn-core-15.4.wasm").
		Path("layer", "1").
		Value(42).
		Cause(cause).
		Detail("module %s already defined", "org.openjdk.nashorn").
		Build()

	if err.Phase != PhaseDefine || err.Kind != KindDuplicate {
		t.Errorf("Phase/Kind = %v/%v", err.Phase, err.Kind)
	}
	if err.Component != "org.openjdk.nashorn" {
		t.Errorf("Component = %q", err.Component)
	}
	if err.Unit != "nashorn-core-15.4.wasm" {
		t.Errorf("Unit = %q", err.Unit)
	}
	if len(err.Path) != 2 || err.Path[0] != "layer" {
		t.Errorf("Path = %v", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through errors.Is")
	}
	if err.Detail != "module org.openjdk.nashorn already defined" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestFatal(t *testing.T) {
	if Fatal(nil) != nil {
		t.Fatal("Fatal(nil) should be nil")
	}

	inner := Wrap(PhaseResolve, KindMissingRequire, errors.New("boom"), "resolve")
	fe := Fatal(inner)
	if !IsFatal(fe) {
		t.Fatal("IsFatal should report true")
	}
	if IsFatal(inner) {
		t.Fatal("plain error reported as fatal")
	}
	if Fatal(fe) != fe {
		t.Error("Fatal should not double wrap")
	}

	wrapped := fmt.Errorf("context: %w", fe)
	if !IsFatal(wrapped) {
		t.Error("IsFatal should see through wrapping")
	}
	if !errors.Is(wrapped, &Error{Phase: PhaseResolve, Kind: KindMissingRequire}) {
		t.Error("structured error lost behind Fatal")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseDiscover, "module", "org.openjdk.nashorn")
		if err.Kind != KindNotFound || err.Value != "org.openjdk.nashorn" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Sealed", func(t *testing.T) {
		err := Sealed("m", "requires")
		if err.Phase != PhaseDescriptor || err.Kind != KindSealed {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Access", func(t *testing.T) {
		err := Access("org.openjdk.nashorn", "org.openjdk.nashorn.internal", "unnamed")
		if !strings.Contains(err.Error(), "org.openjdk.nashorn.internal") {
			t.Errorf("message %q missing package", err.Error())
		}
	})

	t.Run("Load", func(t *testing.T) {
		cause := errors.New("bad magic")
		err := Load("guest", "compile", cause)
		if err.Unit != "guest" || !errors.Is(err, cause) {
			t.Errorf("got %+v", err)
		}
	})
}
