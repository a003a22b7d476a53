package serdes

// Kind tags the variant of a dispatched item.
type Kind uint8

const (
	KindScalar Kind = iota
	KindSequence
	KindCountedArray
	KindDelimitedArray
	KindBitpack
	KindPad
	KindAlign
	KindFormatter
	KindSubPacket
	KindValidator
)

var kindNames = [...]string{
	KindScalar:         "scalar",
	KindSequence:       "sequence",
	KindCountedArray:   "counted_array",
	KindDelimitedArray: "delimited_array",
	KindBitpack:        "bitpack",
	KindPad:            "pad",
	KindAlign:          "align",
	KindFormatter:      "formatter",
	KindSubPacket:      "sub_packet",
	KindValidator:      "validator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event describes one Add item after it ran.
type Event struct {
	Kind   Kind
	Mode   Mode
	Offset uint64 // absolute bit offset where the item started
	Bits   uint64
	Status Status
	Depth  int
}

type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
