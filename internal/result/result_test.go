package result

import "testing"

func TestMakeRoundTrip(t *testing.T) {
	code := Make(ModuleHID, 3302)
	if code.Module() != ModuleHID {
		t.Fatalf("expected module %d, got %d", ModuleHID, code.Module())
	}
	if code.Description() != 3302 {
		t.Fatalf("expected description 3302, got %d", code.Description())
	}
	if code != InvalidPalmaHandle {
		t.Fatalf("expected InvalidPalmaHandle, got %v", code)
	}
}

func TestSuccessIsZero(t *testing.T) {
	if uint32(Success) != 0 {
		t.Fatalf("success must encode as zero, got 0x%x", uint32(Success))
	}
	if !Success.Succeeded() || Success.Failed() {
		t.Fatalf("success code misreports state")
	}
}

func TestFailureCodes(t *testing.T) {
	for _, code := range []Code{InvalidNpadID, NpadNotConnected, InvalidParameters, InvalidPalmaHandle, NotSupported} {
		if code.Succeeded() {
			t.Errorf("code %v reports success", code)
		}
		if code.Module() != ModuleHID {
			t.Errorf("code %v has module %d, want %d", code, code.Module(), ModuleHID)
		}
	}
}

func TestStringKnownCodes(t *testing.T) {
	if got := InvalidPalmaHandle.String(); got != "invalid palma handle" {
		t.Fatalf("unexpected string: %q", got)
	}
	if got := Make(ModuleHID, 9999).String(); got != "result(module=202, description=9999)" {
		t.Fatalf("unexpected string for unknown code: %q", got)
	}
}
