package domainscript

import (
	"encoding/binary"

	"github.com/btcsuite/btcutil"
)

// Commitment computes the hash a registration commits to: the Hash160
// of the random salt followed by the domain itself. Keeping the salt
// secret until the first-update keeps the domain secret too.
func Commitment(rand, domain []byte) []byte {
	data := make([]byte, 0, len(rand)+len(domain))
	data = append(data, rand...)
	data = append(data, domain...)
	return btcutil.Hash160(data)
}

// BuildDomainNew returns an output script carrying a new operation for
// the given commitment hash, paying to the given address script.
func BuildDomainNew(addressScript, hash []byte) []byte {
	script := make([]byte, 0, len(addressScript)+len(hash)+3)
	script = append(script, byte(OpDomainNew))
	script = appendData(script, hash)
	script = append(script, op2Drop)
	return append(script, addressScript...)
}

// BuildDomainFirstUpdate returns an output script carrying a
// first-update operation that reveals the domain committed to by rand
// and assigns its first value, paying to the given address script.
func BuildDomainFirstUpdate(addressScript, domain, rand, value []byte) []byte {
	script := make([]byte, 0, len(addressScript)+len(domain)+len(rand)+len(value)+12)
	script = append(script, byte(OpDomainFirstUpdate))
	script = appendData(script, domain)
	script = appendData(script, rand)
	script = appendData(script, value)
	script = append(script, op2Drop, op2Drop)
	return append(script, addressScript...)
}

// BuildDomainUpdate returns an output script carrying an update
// operation that assigns a new value to the given domain, paying to the
// given address script.
func BuildDomainUpdate(addressScript, domain, value []byte) []byte {
	script := make([]byte, 0, len(addressScript)+len(domain)+len(value)+9)
	script = append(script, byte(OpDomainUpdate))
	script = appendData(script, domain)
	script = appendData(script, value)
	script = append(script, op2Drop, opDrop)
	return append(script, addressScript...)
}

// appendData appends a push of data onto script. The push always stays
// a data push and is never folded into a small-integer opcode, so that
// parsing finds it among the operation's arguments again.
func appendData(script, data []byte) []byte {
	switch {
	case len(data) < opPushData1:
		script = append(script, byte(len(data)))
	case len(data) <= 0xff:
		script = append(script, opPushData1, byte(len(data)))
	case len(data) <= 0xffff:
		var lengthBytes [2]byte
		binary.LittleEndian.PutUint16(lengthBytes[:], uint16(len(data)))
		script = append(script, opPushData2)
		script = append(script, lengthBytes[:]...)
	default:
		var lengthBytes [4]byte
		binary.LittleEndian.PutUint32(lengthBytes[:], uint32(len(data)))
		script = append(script, opPushData4)
		script = append(script, lengthBytes[:]...)
	}
	return append(script, data...)
}
