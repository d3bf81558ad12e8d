package paya

import (
	"strings"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUnsupported:      "Unsupported",
		KindOutOfHostMemory:  "OutOfHostMemory",
		KindInvalidHandle:    "InvalidHandle",
		KindSwapchainStale:   "SwapchainStale",
		KindProgrammingFault: "ProgrammingFault",
		Kind(999):            "Unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestNewFaultErrorFormatsMessage(t *testing.T) {
	err := newFaultError(KindInvalidHandle, "slot %d out of bounds (len %d)", 5, 3)
	if err.Kind != KindInvalidHandle {
		t.Fatalf("Kind = %v, want KindInvalidHandle", err.Kind)
	}
	if !strings.Contains(err.Error(), "slot 5 out of bounds (len 3)") {
		t.Fatalf("Error() = %q, missing formatted message", err.Error())
	}
	if strings.Contains(err.Error(), "vk result") {
		t.Fatalf("Error() = %q, fault errors must not mention a vk.Result", err.Error())
	}
}

func TestNewVkErrorIncludesResult(t *testing.T) {
	err := newVkError(KindOutOfDeviceMemory, vk.ErrorOutOfDeviceMemory, "vkCreateBuffer failed")
	if err.Result != vk.ErrorOutOfDeviceMemory {
		t.Fatalf("Result = %v, want ErrorOutOfDeviceMemory", err.Result)
	}
	if !strings.Contains(err.Error(), "vk result") {
		t.Fatalf("Error() = %q, want it to mention the vk.Result", err.Error())
	}
}

func TestCheckErrRecoversPanic(t *testing.T) {
	run := func() (err error) {
		defer checkErr(&err)
		panic(newFaultError(KindProgrammingFault, "boom"))
	}

	if err := run(); err == nil {
		t.Fatal("checkErr did not recover the panic into err")
	}
}

func TestOrPanicRunsFinalizersBeforePanicking(t *testing.T) {
	ran := false
	finalizer := func() { ran = true }

	defer func() {
		if recover() == nil {
			t.Fatal("orPanic did not panic on a non-nil error")
		}
		if !ran {
			t.Fatal("orPanic did not run its finalizer before panicking")
		}
	}()

	orPanic(newFaultError(KindProgrammingFault, "fatal"), finalizer)
}

func TestOrPanicNoopOnNilError(t *testing.T) {
	called := false
	orPanic(nil, func() { called = true })
	if called {
		t.Fatal("orPanic ran a finalizer despite a nil error")
	}
}

func TestIsError(t *testing.T) {
	if isError(vk.Success) {
		t.Fatal("isError(vk.Success) = true, want false")
	}
	if !isError(vk.ErrorDeviceLost) {
		t.Fatal("isError(vk.ErrorDeviceLost) = false, want true")
	}
}
