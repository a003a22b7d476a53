package serdes

import (
	"reflect"
	"sync"
)

var registry = struct {
	sync.RWMutex
	formats map[reflect.Type]func(p *Packet, v any)
}{formats: make(map[reflect.Type]func(p *Packet, v any))}

// RegisterFormat lets Add accept *T for a type that cannot implement Formatter.
// A later registration for the same type replaces the earlier one.
func RegisterFormat[T any](fn func(p *Packet, v *T)) {
	registry.Lock()
	defer registry.Unlock()
	registry.formats[reflect.TypeFor[*T]()] = func(p *Packet, v any) {
		fn(p, v.(*T))
	}
}

func UnregisterFormat[T any]() {
	registry.Lock()
	defer registry.Unlock()
	delete(registry.formats, reflect.TypeFor[*T]())
}

func lookupFormat(t reflect.Type) func(p *Packet, v any) {
	if t == nil {
		return nil
	}
	registry.RLock()
	defer registry.RUnlock()
	return registry.formats[t]
}
