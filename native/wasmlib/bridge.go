package wasmlib

import (
	"github.com/tetratelabs/wazero/api"
)

// bridgeFunc is one host import re-exported by the bridge module.
type bridgeFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// bridgeBuilder builds a guest module that imports functions from a host
// module and exports a same-named trampoline for each. Host modules cannot
// be looked up by export, guest modules can.
type bridgeBuilder struct {
	hostModule string
	funcs      []bridgeFunc
}

func newBridgeBuilder(hostModule string) *bridgeBuilder {
	return &bridgeBuilder{hostModule: hostModule}
}

func (b *bridgeBuilder) addFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, bridgeFunc{name: name, params: params, results: results})
}

// build returns the module binary. Function i imports type i; trampoline i
// has index len(funcs)+i and calls import i.
func (b *bridgeBuilder) build() []byte {
	wasm := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	wasm = appendSection(wasm, 0x01, b.typeSection())
	wasm = appendSection(wasm, 0x02, b.importSection())
	wasm = appendSection(wasm, 0x03, b.funcSection())
	wasm = appendSection(wasm, 0x07, b.exportSection())
	wasm = appendSection(wasm, 0x0a, b.codeSection())
	return wasm
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, encodeULEB128(uint32(len(section)))...)
	return append(wasm, section...)
}

func appendName(section []byte, name string) []byte {
	section = append(section, encodeULEB128(uint32(len(name)))...)
	return append(section, name...)
}

func (b *bridgeBuilder) typeSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		section = append(section, 0x60)
		section = append(section, encodeULEB128(uint32(len(f.params)))...)
		for _, t := range f.params {
			section = append(section, valTypeToWasm(t))
		}
		section = append(section, encodeULEB128(uint32(len(f.results)))...)
		for _, t := range f.results {
			section = append(section, valTypeToWasm(t))
		}
	}
	return section
}

func (b *bridgeBuilder) importSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		section = appendName(section, b.hostModule)
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, encodeULEB128(uint32(i))...)
	}
	return section
}

func (b *bridgeBuilder) funcSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for i := range b.funcs {
		section = append(section, encodeULEB128(uint32(i))...)
	}
	return section
}

func (b *bridgeBuilder) exportSection() []byte {
	n := len(b.funcs)
	section := encodeULEB128(uint32(n))
	for i, f := range b.funcs {
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, encodeULEB128(uint32(n+i))...)
	}
	return section
}

func (b *bridgeBuilder) codeSection() []byte {
	section := encodeULEB128(uint32(len(b.funcs)))
	for i, f := range b.funcs {
		body := []byte{0x00} // no locals
		for p := range f.params {
			body = append(body, 0x20) // local.get
			body = append(body, encodeULEB128(uint32(p))...)
		}
		body = append(body, 0x10) // call
		body = append(body, encodeULEB128(uint32(i))...)
		body = append(body, 0x0b) // end

		section = append(section, encodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}

func encodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			break
		}
	}
	return result
}

func valTypeToWasm(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	default:
		return 0x7f
	}
}
