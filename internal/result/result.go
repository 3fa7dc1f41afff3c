// Package result defines the result-code space shared between the HID
// service layer and the peripheral controllers it hosts. Codes cross the
// emulation boundary as raw 32-bit values, so their encoding is part of
// the guest ABI and must not change.
package result

import "fmt"

// Code is a service result code. The low 9 bits carry the error module
// and the remaining bits carry the description.
type Code uint32

// ModuleHID is the error module shared by every HID service code.
const ModuleHID = 202

// Make builds a Code from an error module and a description value.
func Make(module, description uint32) Code {
	return Code(module&0x1ff | description<<9)
}

// Codes used by the Palma peripheral core.
const (
	Success            Code = 0
	InvalidNpadID           = Code(ModuleHID | 709<<9)
	NpadNotConnected        = Code(ModuleHID | 710<<9)
	InvalidParameters       = Code(ModuleHID | 715<<9)
	InvalidPalmaHandle      = Code(ModuleHID | 3302<<9)
	NotSupported            = Code(ModuleHID | 3304<<9)
)

// Module returns the error module the code belongs to.
func (c Code) Module() uint32 {
	return uint32(c) & 0x1ff
}

// Description returns the module-relative description value.
func (c Code) Description() uint32 {
	return uint32(c) >> 9
}

// Succeeded reports whether the code indicates success.
func (c Code) Succeeded() bool {
	return c == Success
}

// Failed reports whether the code indicates failure.
func (c Code) Failed() bool {
	return c != Success
}

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case InvalidNpadID:
		return "invalid npad id"
	case NpadNotConnected:
		return "npad not connected"
	case InvalidParameters:
		return "invalid parameters"
	case InvalidPalmaHandle:
		return "invalid palma handle"
	case NotSupported:
		return "not supported"
	default:
		return fmt.Sprintf("result(module=%d, description=%d)", c.Module(), c.Description())
	}
}
