package convfunc

import "fmt"

// Fingerprint is the integer image pixel a pointing projects to.
type Fingerprint struct {
	X, Y int
}

func (f Fingerprint) String() string { return fmt.Sprintf("(%d,%d)", f.X, f.Y) }

// State is the lifecycle state of a cache entry.
type State int

const (
	StateUnbuilt State = iota
	StateBuilding
	StateReady
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Kernel is a stack of square complex planes indexed by
// (x, y, polarization, frequency plane, antenna-pair plane).
type Kernel struct {
	Size   int
	NPol   int
	NChan  int
	NPlane int
	Data   []complex128
}

func newKernel(size, npol, nchan, nplane int, data []complex128) Kernel {
	return Kernel{Size: size, NPol: npol, NChan: nchan, NPlane: nplane, Data: data}
}

func kernelLen(size, npol, nchan, nplane int) int {
	return size * size * npol * nchan * nplane
}

// Offset returns the index of sample (0, 0) of one plane.
func (k *Kernel) Offset(plane, ch, pol int) int {
	return ((plane*k.NChan+ch)*k.NPol + pol) * k.Size * k.Size
}

// Plane returns the Size×Size samples of one plane, row-major.
func (k *Kernel) Plane(plane, ch, pol int) []complex128 {
	off := k.Offset(plane, ch, pol)
	return k.Data[off : off+k.Size*k.Size]
}

// At returns sample (ix, iy) of one plane.
func (k *Kernel) At(ix, iy, pol, ch, plane int) complex128 {
	return k.Data[k.Offset(plane, ch, pol)+iy*k.Size+ix]
}

// Clone returns a deep copy of k.
func (k *Kernel) Clone() Kernel {
	c := *k
	c.Data = append([]complex128(nil), k.Data...)
	return c
}

// Entry is one cached pair of kernel stacks. Both stacks live in a single
// allocation owned by the entry.
type Entry struct {
	Fingerprint Fingerprint
	State       State

	ConvFunc   Kernel
	ConvWeight Kernel
	// Support holds the pixel radius of each antenna-pair plane; 0 marks a
	// plane with no usable kernel.
	Support []int
	// BeamFreqs are the frequencies of the kernel's frequency planes.
	BeamFreqs []float64
	// ClassKeys are the antenna classes the entry was built for.
	ClassKeys []string

	buf []complex128
}

// allocate sizes both kernel stacks out of one buffer.
func (e *Entry) allocate(size, npol, nchan, nplane int) {
	n := kernelLen(size, npol, nchan, nplane)
	if cap(e.buf) >= 2*n {
		e.buf = e.buf[:2*n]
		clear(e.buf)
	} else {
		e.buf = make([]complex128, 2*n)
	}
	e.ConvFunc = newKernel(size, npol, nchan, nplane, e.buf[:n:n])
	e.ConvWeight = newKernel(size, npol, nchan, nplane, e.buf[n:])
}

// Size returns the side length of every kernel plane.
func (e *Entry) Size() int { return e.ConvFunc.Size }

// NumPlanes returns the number of antenna-pair planes.
func (e *Entry) NumPlanes() int { return e.ConvFunc.NPlane }

// MaxSupport returns the largest support over all planes.
func (e *Entry) MaxSupport() int {
	m := 0
	for _, s := range e.Support {
		if s > m {
			m = s
		}
	}
	return m
}
