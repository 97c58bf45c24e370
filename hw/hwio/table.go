package hwio

import (
	"fmt"
	"sort"

	"sidosc/emu/log"
)

type BankIO8 interface {
	// Read8 reads a byte from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

type region struct {
	begin, end uint16
	io         BankIO8
}

// Table maps address ranges to devices. Register files are small, so
// regions are kept sorted and found with a binary search.
type Table struct {
	Name string

	regions []region
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.regions = t.regions[:0]
}

// MapBank maps a register bank (that is, a structure containing multiple
// Reg8 fields with a hwio struct tag, see InitRegs) at addr. Only the
// registers having the given bank number are mapped.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapBus8(addr, 1, io)
}

func (t *Table) mapBus8(addr, size uint16, io BankIO8) {
	end := addr + size - 1
	i := sort.Search(len(t.regions), func(i int) bool { return t.regions[i].end >= addr })
	if i < len(t.regions) && t.regions[i].begin <= end {
		panic(fmt.Errorf("%s: mapping [%04x-%04x] overlaps [%04x-%04x]",
			t.Name, addr, end, t.regions[i].begin, t.regions[i].end))
	}
	t.regions = append(t.regions, region{})
	copy(t.regions[i+1:], t.regions[i:])
	t.regions[i] = region{begin: addr, end: end, io: io}

	log.ModHwIo.DebugZ("mapped").
		String("bus", t.Name).
		Hex16("addr", addr).
		Hex16("end", end).
		End()
}

func (t *Table) search(addr uint16) BankIO8 {
	i := sort.Search(len(t.regions), func(i int) bool { return t.regions[i].end >= addr })
	if i < len(t.regions) && t.regions[i].begin <= addr {
		return t.regions[i].io
	}
	return nil
}

// Read8 searches in the table for the device mapped at the given address and
// forward the read to it. Unmapped addresses read as zero.
func (t *Table) Read8(addr uint16, peek bool) uint8 {
	io := t.search(addr)
	if io == nil {
		if !peek {
			log.ModHwIo.DebugZ("unmapped Read8").
				String("name", t.Name).
				Hex16("addr", addr).
				End()
		}
		return 0
	}
	return io.Read8(addr, peek)
}

// Peek8 is a convenience function.
func (t *Table) Peek8(addr uint16) uint8 {
	return t.Read8(addr, true)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.search(addr)
	if io == nil {
		log.ModHwIo.DebugZ("unmapped Write8").
			String("name", t.Name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
		return
	}
	io.Write8(addr, val)
}
