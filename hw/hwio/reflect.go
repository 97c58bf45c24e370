package hwio

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type bankReg struct {
	offset uint16
	regPtr any
}

type regTag struct {
	offset    uint16
	hasOffset bool
	bank      int

	reset  uint64
	rwmask uint64
	hasRW  bool

	rcb, wcb, pcb string
	readonly      bool
	writeonly     bool
}

func parseTag(field, tag string) (regTag, error) {
	var rt regTag
	for _, opt := range strings.Split(tag, ",") {
		if opt == "" {
			continue
		}
		key, val, _ := strings.Cut(opt, "=")
		var err error
		switch key {
		case "offset":
			var v uint64
			v, err = strconv.ParseUint(val, 0, 16)
			rt.offset, rt.hasOffset = uint16(v), true
		case "bank":
			var v int64
			v, err = strconv.ParseInt(val, 0, 32)
			rt.bank = int(v)
		case "reset":
			rt.reset, err = strconv.ParseUint(val, 0, 64)
		case "rwmask":
			rt.rwmask, err = strconv.ParseUint(val, 0, 64)
			rt.hasRW = true
		case "rcb":
			rt.rcb = cbName("Read", field, val)
		case "wcb":
			rt.wcb = cbName("Write", field, val)
		case "pcb":
			rt.pcb = cbName("Peek", field, val)
		case "readonly":
			rt.readonly = true
		case "writeonly":
			rt.writeonly = true
		default:
			err = fmt.Errorf("unknown option %q", key)
		}
		if err != nil {
			return rt, fmt.Errorf("field %s: invalid hwio tag %q: %w", field, opt, err)
		}
	}
	return rt, nil
}

// cbName returns the name of the method used as callback. When not given
// explicitly it's the prefix followed by the upper-cased field name.
func cbName(prefix, field, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return prefix + strings.ToUpper(field)
}

// InitRegs initializes all the registers found in the struct pointed to by
// data. Registers are fields of type Reg8 carrying a "hwio" struct tag with
// the following comma-separated options:
//
//	offset=0x12   offset of the register within its bank
//	bank=N        bank number (default 0)
//	reset=0x34    initial value
//	rwmask=0xF0   bits that can be written (others are read-only)
//	rcb[=Name]    bind read callback (default method: ReadFIELD)
//	wcb[=Name]    bind write callback (default method: WriteFIELD)
//	pcb[=Name]    bind peek callback (default method: PeekFIELD)
//	readonly      writes are rejected
//	writeonly     reads return 0
func InitRegs(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.New("hwio: InitRegs requires a pointer to struct")
	}
	sv := v.Elem()
	st := sv.Type()

	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		reg, ok := sv.Field(i).Addr().Interface().(*Reg8)
		if !ok {
			return fmt.Errorf("hwio: field %s: unsupported type %s", f.Name, f.Type)
		}

		rt, err := parseTag(f.Name, tag)
		if err != nil {
			return err
		}
		if rt.reset > 0xFF {
			return fmt.Errorf("hwio: field %s: reset value too big: %#x", f.Name, rt.reset)
		}
		if rt.rwmask > 0xFF {
			return fmt.Errorf("hwio: field %s: rwmask too big: %#x", f.Name, rt.rwmask)
		}

		reg.Name = f.Name
		reg.Value = uint8(rt.reset)
		if rt.hasRW {
			reg.RoMask = ^uint8(rt.rwmask)
		}
		switch {
		case rt.readonly:
			reg.Flags = ReadOnlyFlag
		case rt.writeonly:
			reg.Flags = WriteOnlyFlag
		}

		if rt.rcb != "" {
			if err := bind(v, rt.rcb, &reg.ReadCb); err != nil {
				return err
			}
		}
		if rt.pcb != "" {
			if err := bind(v, rt.pcb, &reg.PeekCb); err != nil {
				return err
			}
		}
		if rt.wcb != "" {
			if err := bind(v, rt.wcb, &reg.WriteCb); err != nil {
				return err
			}
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}

func bind[F any](v reflect.Value, name string, cb *F) error {
	m := v.MethodByName(name)
	if !m.IsValid() {
		return fmt.Errorf("hwio: missing method %s on %s", name, v.Type())
	}
	fn, ok := m.Interface().(F)
	if !ok {
		return fmt.Errorf("hwio: method %s has wrong signature %s", name, m.Type())
	}
	*cb = fn
	return nil
}

// bankGetRegs returns the registers of data belonging to the given bank.
func bankGetRegs(data any, bankNum int) ([]bankReg, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, errors.New("hwio: bank must be a pointer to struct")
	}
	sv := v.Elem()
	st := sv.Type()

	var regs []bankReg
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseTag(f.Name, tag)
		if err != nil {
			return nil, err
		}
		if !rt.hasOffset || rt.bank != bankNum {
			continue
		}
		regs = append(regs, bankReg{
			offset: rt.offset,
			regPtr: sv.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
