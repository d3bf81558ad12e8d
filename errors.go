package paya

import (
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// Kind classifies a paya Error per the CPU-side error taxonomy (spec §7).
type Kind int

const (
	KindUnsupported Kind = iota
	KindOutOfHostMemory
	KindOutOfDeviceMemory
	KindInvalidHandle
	KindSurfaceLost
	KindSwapchainStale
	KindTimeout
	KindProgrammingFault
)

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "Unsupported"
	case KindOutOfHostMemory:
		return "OutOfHostMemory"
	case KindOutOfDeviceMemory:
		return "OutOfDeviceMemory"
	case KindInvalidHandle:
		return "InvalidHandle"
	case KindSurfaceLost:
		return "SurfaceLost"
	case KindSwapchainStale:
		return "SwapchainStale"
	case KindTimeout:
		return "Timeout"
	case KindProgrammingFault:
		return "ProgrammingFault"
	default:
		return "Unknown"
	}
}

// Error is paya's single error type. It always carries a Kind and, when it
// originated from a failed Vulkan call, the vk.Result that triggered it.
type Error struct {
	Kind    Kind
	Result  vk.Result
	hasVk   bool
	Message string
	frame   string
}

func (e *Error) Error() string {
	if e.hasVk {
		return fmt.Sprintf("paya: %s: %s (vk result %d) at %s", e.Kind, e.Message, e.Result, e.frame)
	}
	return fmt.Sprintf("paya: %s: %s at %s", e.Kind, e.Message, e.frame)
}

// isError mirrors the teacher's isError: vk.Success is the only
// non-error result.
func isError(ret vk.Result) bool {
	return ret != vk.Success
}

func callerFrame(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s (%s:%d)", name, file, line)
}

// newVkError wraps a failed vk.Result into the appropriate taxonomy Kind,
// generalizing the teacher's newError (which only produced a flat
// `fmt.Errorf`) to carry a Kind alongside the captured call-site frame.
func newVkError(kind Kind, ret vk.Result, context string) *Error {
	return &Error{
		Kind:    kind,
		Result:  ret,
		hasVk:   true,
		Message: context,
		frame:   callerFrame(3),
	}
}

// newFaultError constructs a Kind-tagged Error with no underlying
// vk.Result, used for CPU-side faults like InvalidHandle.
func newFaultError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		frame:   callerFrame(3),
	}
}

// orPanic matches the teacher's orPanic: a non-nil error runs any supplied
// finalizers and then panics. Used for ProgrammingFault-class failures,
// which spec §7 documents as fatal.
func orPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

// checkErr recovers a panic into *err, matching the teacher's checkErr.
func checkErr(err *error) {
	if v := recover(); v != nil {
		*err = fmt.Errorf("%+v", v)
	}
}

// checkErrStack recovers a panic into *err along with a captured goroutine
// stack, matching the teacher's checkErrStack. No function in this package
// defers it.
func checkErrStack(err *error) {
	if v := recover(); v != nil {
		stack := make([]byte, 32*1024)
		n := runtime.Stack(stack, false)
		switch event := v.(type) {
		case error:
			*err = fmt.Errorf("%s\n%s", event.Error(), stack[:n])
		default:
			*err = fmt.Errorf("%+v %s", v, stack[:n])
		}
	}
}
