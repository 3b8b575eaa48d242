package devq

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync/atomic"
)

// idGenerator allocates unique uint32 ids.
//
// It uses a cryptographically secure random number generator to initialize the
// starting id and atomically increments the id to ensure uniqueness in
// concurrent environments. The zero id is reserved to signal failure and is
// never returned.
type idGenerator struct {
	id atomic.Uint32
}

func newIDGenerator() *idGenerator {
	inst := &idGenerator{}
	var buf [4]byte
	_, err := io.ReadFull(rand.Reader, buf[:])
	if err != nil {
		return inst
	}
	inst.id.Store(binary.LittleEndian.Uint32(buf[:]))

	return inst
}

func (g *idGenerator) next() uint32 {
	for {
		if id := g.id.Add(1); id != 0 {
			return id
		}
	}
}

// Command and transaction ids are allocated process-wide rather than
// per-manager: every command across all device managers gets a unique id.
var (
	cmdIDGen = newIDGenerator()
	txnIDGen = newIDGenerator()
)

// nextCommandID returns a process-wide unique command id.
func nextCommandID() uint32 {
	return cmdIDGen.next()
}

// nextTransactionID returns a process-wide unique transaction id.
func nextTransactionID() uint32 {
	return txnIDGen.next()
}
