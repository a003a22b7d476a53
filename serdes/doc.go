// Package serdes describes a binary layout once and uses the same description to
// store values into a bit buffer or load them back out.
//
// A Packet is a cursor over a caller-owned Buffer with a fixed Mode. Every call to
// Add moves the cursor by the same number of bits in both modes, so a Formatter
// written once serves as both encoder and decoder.
//
// Wire conventions:
//   - fields are packed back to back in call order, with no tags and no implicit padding
//   - bits fill each buffer element from its most significant bit down
//   - multi-bit values are written most significant bit first, so multi-byte
//     scalars over a byte buffer are big-endian
//   - errors are sticky: once a Packet leaves OK every later call is a no-op
package serdes
