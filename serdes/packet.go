package serdes

import "fmt"

// Packet is a serialization session: a cursor over a borrowed Buffer with a fixed
// Mode and a sticky Status. A Packet is not safe for concurrent use.
type Packet struct {
	buf    Buffer
	mode   Mode
	start  uint64
	offset uint64
	limit  uint64

	status   Status
	detail   string
	failedAt uint64

	observer Observer
	depth    int

	// alignBase is 0 for a top-level Packet and the region start for children.
	alignBase uint64
}

type Option func(*Packet)

// WithBitOffset starts the cursor at off bits into the buffer.
func WithBitOffset(off uint64) Option {
	return func(p *Packet) {
		p.start = off
		p.offset = off
	}
}

// WithObserver reports every Add item to o.
func WithObserver(o Observer) Option {
	return func(p *Packet) {
		p.observer = o
	}
}

func NewPacket(buf Buffer, mode Mode, opts ...Option) *Packet {
	p := &Packet{
		buf:   buf,
		mode:  mode,
		limit: buf.BitCapacity(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Packet) Mode() Mode        { return p.mode }
func (p *Packet) Storing() bool     { return p.mode == Storing }
func (p *Packet) Loading() bool     { return p.mode == Loading }
func (p *Packet) Status() Status    { return p.status }
func (p *Packet) Detail() string    { return p.detail }
func (p *Packet) Ok() bool          { return p.status == OK }
func (p *Packet) Buffer() Buffer    { return p.buf }
func (p *Packet) BitOffset() uint64 { return p.offset }

// Consumed is the number of bits moved since the start offset.
func (p *Packet) Consumed() uint64 {
	return p.offset - p.start
}

// BitCapacity is the bit limit of the session. For a Region child it is the end of
// the region, not the end of the buffer.
func (p *Packet) BitCapacity() uint64 {
	return p.limit
}

func (p *Packet) Remaining() uint64 {
	if p.offset >= p.limit {
		return 0
	}
	return p.limit - p.offset
}

// Err returns nil while the Packet is OK and an *Error afterwards.
func (p *Packet) Err() error {
	if p.status == OK {
		return nil
	}
	return &Error{Status: p.status, Detail: p.detail, Bit: p.failedAt}
}

func (p *Packet) Result() Result {
	return Result{Status: p.status, Bits: p.Consumed(), Detail: p.detail}
}

// Reset clears the status and rewinds the cursor to the start offset.
func (p *Packet) Reset() {
	p.ClearStatus()
	p.offset = p.start
}

// ClearStatus returns the Packet to OK without moving the cursor.
func (p *Packet) ClearStatus() {
	p.status = OK
	p.detail = ""
	p.failedAt = 0
}

// Fail records a failure. It has no effect if the Packet already failed or if
// status is OK.
func (p *Packet) Fail(status Status, format string, args ...any) {
	if status == OK || p.status != OK {
		return
	}
	p.status = status
	p.detail = fmt.Sprintf(format, args...)
	p.failedAt = p.offset
}

func (p *Packet) failCapacity(need uint64) {
	status := Overflow
	if p.mode == Loading {
		status = Underrun
	}
	p.Fail(status, "need %d bits, %d remaining", need, p.Remaining())
}

func (p *Packet) reserve(n uint64) bool {
	if p.status != OK {
		return false
	}
	if p.Remaining() < n {
		p.failCapacity(n)
		return false
	}
	return true
}

func (p *Packet) putBits(n uint, v uint64) bool {
	if n > MaxFieldBits {
		p.Fail(InvalidValue, "width %d exceeds %d bits", n, MaxFieldBits)
		return false
	}
	if !p.reserve(uint64(n)) {
		return false
	}
	if n > 0 {
		p.buf.s.put(p.offset, n, v&mask(n))
	}
	p.offset += uint64(n)
	return true
}

func (p *Packet) getBits(n uint) (uint64, bool) {
	if n > MaxFieldBits {
		p.Fail(InvalidValue, "width %d exceeds %d bits", n, MaxFieldBits)
		return 0, false
	}
	if !p.reserve(uint64(n)) {
		return 0, false
	}
	var v uint64
	if n > 0 {
		v = p.buf.s.get(p.offset, n)
	}
	p.offset += uint64(n)
	return v, true
}

// Pad writes n zero bits when storing and skips n bits when loading.
func (p *Packet) Pad(n uint64) *Packet {
	if !p.reserve(n) {
		return p
	}
	if p.mode == Storing {
		zeroBits(p.buf, p.offset, n)
	}
	p.offset += n
	return p
}

// Align moves the cursor to the next multiple of n bits in the buffer. Inside a
// Region the multiple is counted from the region start. An aligned cursor does
// not move.
func (p *Packet) Align(n uint64) *Packet {
	if p.status != OK {
		return p
	}
	if n == 0 {
		p.Fail(InvalidValue, "align to zero bits")
		return p
	}
	if rem := (p.offset - p.alignBase) % n; rem != 0 {
		p.Pad(n - rem)
	}
	return p
}

// ByteRange copies n bytes of the buffer starting at byte start.
func (p *Packet) ByteRange(start, n int) []byte {
	if p.status != OK {
		return nil
	}
	if start < 0 || n < 0 || start > p.buf.Size() || n > p.buf.Size()-start {
		p.Fail(InvalidValue, "byte range [%d,+%d) outside %d byte buffer", start, n, p.buf.Size())
		return nil
	}
	return p.buf.AppendBytes(make([]byte, 0, n), start, n)
}

// PreviousBytes copies the whole bytes between byte start and the cursor.
func (p *Packet) PreviousBytes(start int) []byte {
	end := int(p.offset / 8)
	if start > end {
		p.Fail(InvalidValue, "byte %d is past the cursor at byte %d", start, end)
		return nil
	}
	return p.ByteRange(start, end-start)
}

func (p *Packet) child(bits uint64) *Packet {
	return &Packet{
		buf:      p.buf,
		mode:     p.mode,
		start:    p.offset,
		offset:   p.offset,
		limit:    p.offset + bits,
		observer: p.observer,
		depth:    p.depth + 1,

		alignBase: p.offset,
	}
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{mode=%s status=%s offset=%d capacity=%d}", p.mode, p.status, p.offset, p.limit)
}
