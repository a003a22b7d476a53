package serdes

import (
	"fmt"
	"strings"
)

// FormatHex renders each buffer element as a fixed width hex group.
func FormatHex(b Buffer) string {
	return formatElements(b, "0x%0*X", int(b.ElementBits()/4))
}

// FormatBinary renders each buffer element as a fixed width bit group.
func FormatBinary(b Buffer) string {
	return formatElements(b, "%0*b", int(b.ElementBits()))
}

func formatElements(b Buffer, verb string, digits int) string {
	var sb strings.Builder
	eb := b.ElementBits()
	for i := 0; i < b.Elements(); i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, verb, digits, b.s.get(uint64(i)*uint64(eb), eb))
	}
	return sb.String()
}
