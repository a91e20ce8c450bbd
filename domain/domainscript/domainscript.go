package domainscript

import (
	"encoding/binary"
)

// DomainOp identifies one of the domain operations an output script can
// carry. The values are the small-integer opcodes that start the
// operation's prefix.
type DomainOp byte

const (
	// OpDomainNew is the first half of a registration. It stores a
	// commitment to the domain without revealing which domain is being
	// registered.
	OpDomainNew DomainOp = 0x51 // OP_1

	// OpDomainFirstUpdate reveals the committed domain and assigns its
	// first value, completing the registration.
	OpDomainFirstUpdate DomainOp = 0x52 // OP_2

	// OpDomainUpdate changes a registered domain's value, transfers it
	// to another address, or simply renews it against expiration.
	OpDomainUpdate DomainOp = 0x53 // OP_3
)

// Opcodes the parser and builders deal with beyond the operation ops.
const (
	opPushData1 = 0x4c
	opPushData2 = 0x4d
	opPushData4 = 0x4e
	opNop       = 0x61
	op2Drop     = 0x6d
	opDrop      = 0x75
)

// DomainScript gives access to the domain operation carried by an output
// script. Use ParseScript to obtain one.
type DomainScript struct {
	// op is the operation the script carries, or zero if it carries
	// none.
	op DomainOp

	domain []byte
	value  []byte
	rand   []byte
	hash   []byte

	addressScript []byte
}

// ParseScript interprets the given output script as a domain operation.
// A script carries a domain operation if it starts with one of the
// operation opcodes, followed by the operation's data pushes, followed
// by the drops that clear them off the stack again. Whatever follows
// the drops is the address part of the script and is not interpreted
// further.
//
// Scripts without a well-formed operation prefix parse as plain address
// scripts: IsDomainOp reports false and AddressScript returns the whole
// script.
func ParseScript(script []byte) *DomainScript {
	ds := &DomainScript{addressScript: script}

	opcode, _, pc, ok := readOpcode(script, 0)
	if !ok {
		return ds
	}
	domainOp := DomainOp(opcode)

	// Collect the data pushes of the prefix. The first drop ends it.
	var args [][]byte
	for {
		var data []byte
		opcode, data, pc, ok = readOpcode(script, pc)
		if !ok {
			return ds
		}
		if opcode == opDrop || opcode == op2Drop || opcode == opNop {
			break
		}
		if opcode > opPushData4 {
			return ds
		}
		args = append(args, data)
	}

	// Skip over the rest of the drops. The address part starts at the
	// first opcode that is neither a drop nor a nop.
	addressStart := pc
	for {
		opcode, _, next, ok := readOpcode(script, pc)
		if !ok || (opcode != opDrop && opcode != op2Drop && opcode != opNop) {
			break
		}
		pc = next
		addressStart = pc
	}

	switch domainOp {
	case OpDomainNew:
		if len(args) != 1 {
			return ds
		}
		ds.hash = args[0]
	case OpDomainFirstUpdate:
		if len(args) != 3 {
			return ds
		}
		ds.domain = args[0]
		ds.rand = args[1]
		ds.value = args[2]
	case OpDomainUpdate:
		if len(args) != 2 {
			return ds
		}
		ds.domain = args[0]
		ds.value = args[1]
	default:
		return ds
	}

	ds.op = domainOp
	ds.addressScript = script[addressStart:]
	return ds
}

// IsDomainOp returns whether the script carries a domain operation.
func (ds *DomainScript) IsDomainOp() bool {
	return ds.op != 0
}

// Op returns the operation the script carries. Panics if the script is
// not a domain operation.
func (ds *DomainScript) Op() DomainOp {
	if !ds.IsDomainOp() {
		panic("not a domain operation script")
	}
	return ds.op
}

// IsAnyUpdate returns whether the operation is a first-update or an
// update, both of which carry a domain and a value. Panics if the
// script is not a domain operation.
func (ds *DomainScript) IsAnyUpdate() bool {
	switch ds.op {
	case OpDomainNew:
		return false
	case OpDomainFirstUpdate, OpDomainUpdate:
		return true
	default:
		panic("not a domain operation script")
	}
}

// Domain returns the domain the operation applies to. Panics unless the
// operation is a first-update or an update.
func (ds *DomainScript) Domain() []byte {
	switch ds.op {
	case OpDomainFirstUpdate, OpDomainUpdate:
		return ds.domain
	default:
		panic("domain script carries no domain")
	}
}

// Value returns the value the operation assigns to its domain. Panics
// unless the operation is a first-update or an update.
func (ds *DomainScript) Value() []byte {
	switch ds.op {
	case OpDomainFirstUpdate, OpDomainUpdate:
		return ds.value
	default:
		panic("domain script carries no value")
	}
}

// Rand returns the random salt that the registration commitment was
// built from. Panics unless the operation is a first-update.
func (ds *DomainScript) Rand() []byte {
	if ds.op != OpDomainFirstUpdate {
		panic("domain script carries no rand")
	}
	return ds.rand
}

// CommitmentHash returns the commitment hash of a registration. Panics
// unless the operation is a new.
func (ds *DomainScript) CommitmentHash() []byte {
	if ds.op != OpDomainNew {
		panic("domain script carries no commitment hash")
	}
	return ds.hash
}

// AddressScript returns the address part of the script. For scripts
// that carry no domain operation this is the whole script.
func (ds *DomainScript) AddressScript() []byte {
	return ds.addressScript
}

// readOpcode reads the opcode at offset pc of script and, for data
// pushes, the pushed data. It returns the offset right past the parsed
// opcode. ok is false when pc is at the end of the script or a push
// runs past the end.
func readOpcode(script []byte, pc int) (opcode byte, data []byte, next int, ok bool) {
	if pc >= len(script) {
		return 0, nil, pc, false
	}
	opcode = script[pc]
	pc++

	var dataLength int
	switch {
	case opcode < opPushData1:
		dataLength = int(opcode)
	case opcode == opPushData1:
		if pc+1 > len(script) {
			return 0, nil, pc, false
		}
		dataLength = int(script[pc])
		pc++
	case opcode == opPushData2:
		if pc+2 > len(script) {
			return 0, nil, pc, false
		}
		dataLength = int(binary.LittleEndian.Uint16(script[pc : pc+2]))
		pc += 2
	case opcode == opPushData4:
		if pc+4 > len(script) {
			return 0, nil, pc, false
		}
		length := binary.LittleEndian.Uint32(script[pc : pc+4])
		pc += 4
		if length > uint32(len(script)) {
			return 0, nil, pc, false
		}
		dataLength = int(length)
	default:
		return opcode, nil, pc, true
	}

	if pc+dataLength > len(script) {
		return 0, nil, pc, false
	}
	return opcode, script[pc : pc+dataLength], pc + dataLength, true
}
