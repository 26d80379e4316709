// Package disasm decodes x86-64 instruction bytes into printable text.
// It is a pure function of its inputs: a byte buffer and the virtual
// address the buffer was read from. Callers are responsible for
// handing it trap-free bytes (see ReadMemoryWithoutTraps).
package disasm

import "golang.org/x/arch/x86/x86asm"

// Instruction is one decoded instruction at its virtual address.
type Instruction struct {
	Address uint64
	Text    string
	Len     int
}

// Disassemble decodes the whole buffer starting at base. Undecodable
// bytes are consumed one at a time and rendered as "(bad)" so a single
// data byte in an instruction stream doesn't desynchronize the rest of
// the listing.
func Disassemble(code []byte, base uint64) []Instruction {
	var out []Instruction
	pc := base
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, 64)
		if err != nil || inst.Len == 0 || inst.Op == 0 {
			out = append(out, Instruction{Address: pc, Text: "(bad)", Len: 1})
			code = code[1:]
			pc++
			continue
		}
		out = append(out, Instruction{
			Address: pc,
			Text:    x86asm.GNUSyntax(inst, pc, nil),
			Len:     inst.Len,
		})
		code = code[inst.Len:]
		pc += uint64(inst.Len)
	}
	return out
}
