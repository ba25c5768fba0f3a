package types

import (
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// CircuitInputSignals are the named inputs handed to the witness generator.
// Values are decimal strings or lists of decimal strings, as circom expects.
type CircuitInputSignals struct {
	signals map[string]interface{}
}

func NewCircuitInputSignals() *CircuitInputSignals {
	return &CircuitInputSignals{signals: make(map[string]interface{})}
}

func (s *CircuitInputSignals) AddBytes(name string, b []byte) *CircuitInputSignals {
	vals := make([]string, len(b))
	for i, v := range b {
		vals[i] = strconv.Itoa(int(v))
	}
	s.signals[name] = vals
	return s
}

func (s *CircuitInputSignals) AddU64(name string, v uint64) *CircuitInputSignals {
	s.signals[name] = strconv.FormatUint(v, 10)
	return s
}

func (s *CircuitInputSignals) AddLimbs(name string, limbs []uint64) *CircuitInputSignals {
	vals := make([]string, len(limbs))
	for i, v := range limbs {
		vals[i] = strconv.FormatUint(v, 10)
	}
	s.signals[name] = vals
	return s
}

func (s *CircuitInputSignals) AddFr(name string, e fr.Element) *CircuitInputSignals {
	s.signals[name] = e.BigInt(new(big.Int)).String()
	return s
}

func (s *CircuitInputSignals) AddFrs(name string, es []fr.Element) *CircuitInputSignals {
	vals := make([]string, len(es))
	for i := range es {
		vals[i] = es[i].BigInt(new(big.Int)).String()
	}
	s.signals[name] = vals
	return s
}

func (s *CircuitInputSignals) AddBool(name string, b bool) *CircuitInputSignals {
	if b {
		s.signals[name] = "1"
	} else {
		s.signals[name] = "0"
	}
	return s
}

// Get returns a signal value (string or []string)
func (s *CircuitInputSignals) Get(name string) (interface{}, bool) {
	v, ok := s.signals[name]
	return v, ok
}

func (s *CircuitInputSignals) Len() int {
	return len(s.signals)
}

// MarshalJSON emits the signals with sorted keys
func (s *CircuitInputSignals) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.signals)
}
