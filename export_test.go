package datapipe

// Root exposes the pipeline's root source to white-box tests.
func (p *Pipeline) Root() Source {
	return p.root
}

// BackgroundRunning reports whether a prefetch source currently runs its
// background goroutine.
func BackgroundRunning(s Source) bool {
	ps, ok := s.(*prefetchSource)
	return ok && ps.running()
}

// PoolAllocated reports whether a map source currently holds a worker pool.
func PoolAllocated(s Source) bool {
	ms, ok := s.(*mapSource)
	return ok && ms.pool.pool != nil
}
