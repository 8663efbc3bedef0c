package product

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"sync"
)

const (
	// CodeLength is the fixed length of every product code.
	CodeLength = 10
	// CodeAlphabet lists the symbols product codes are drawn from.
	CodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// Generator produces candidate product codes. Candidates are not unique by
// themselves; the service checks them against the store.
type Generator interface {
	Generate() string
}

// CodeGenerator draws codes uniformly from CodeAlphabet using an injected
// random source. It is safe for concurrent use.
type CodeGenerator struct {
	mu  sync.Mutex
	rnd *mrand.Rand
}

var _ Generator = (*CodeGenerator)(nil)

// NewCodeGenerator returns a generator reading from rnd. Pass a seeded source
// for deterministic output.
func NewCodeGenerator(rnd *mrand.Rand) *CodeGenerator {
	return &CodeGenerator{rnd: rnd}
}

// NewRandomCodeGenerator returns a generator seeded from crypto/rand.
func NewRandomCodeGenerator() *CodeGenerator {
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	return NewCodeGenerator(mrand.New(mrand.NewChaCha8(seed)))
}

// NewSeededCodeGenerator returns a generator with a fixed PCG seed.
func NewSeededCodeGenerator(seed uint64) *CodeGenerator {
	return NewCodeGenerator(mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Generate returns a new CodeLength-character candidate code.
func (g *CodeGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, CodeLength)
	for i := range buf {
		buf[i] = CodeAlphabet[g.rnd.IntN(len(CodeAlphabet))]
	}
	return string(buf)
}
