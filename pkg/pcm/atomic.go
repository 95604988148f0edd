package pcm

import (
	"math"
	"sync/atomic"
)

// atomicFloat32 is a lock-free float32 box, used for a track's gain so
// control-plane calls never contend with the mixer's read loop.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func newAtomicFloat32(v float32) *atomicFloat32 {
	a := &atomicFloat32{}
	a.Store(v)
	return a
}

func (a *atomicFloat32) Load() float32 {
	return math.Float32frombits(a.bits.Load())
}

func (a *atomicFloat32) Store(v float32) {
	a.bits.Store(math.Float32bits(v))
}
