package sim

import "sync"

// VectorPool recycles fixed-size scratch vectors used while locating
// crossings.
type VectorPool struct {
	pool sync.Pool
	size int
}

func NewVectorPool(size int) *VectorPool {
	return &VectorPool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]float64, size)
			},
		},
	}
}

func (p *VectorPool) Get() []float64 {
	return p.pool.Get().([]float64)
}

func (p *VectorPool) Put(v []float64) {
	if len(v) == p.size {
		for i := range v {
			v[i] = 0
		}
		p.pool.Put(v)
	}
}
