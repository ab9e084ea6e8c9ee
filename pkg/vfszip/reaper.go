package vfszip

import (
	"sync"
	"time"
)

// reaper closes idle FileSource descriptors after a grace period, the way
// the JBoss VFS reaper thread does. One reaper is shared by every fileSource
// running in asynchronous (non-NoReaper) mode; fileSources running in
// synchronous mode close their descriptor directly on Release and never
// register with a reaper.
type reaper struct {
	mu      sync.Mutex
	pending map[*fileSource]uint64 // fileSource -> generation at schedule time
}

var (
	defaultReaperOnce sync.Once
	defaultReaper     *reaper
)

func sharedReaper() *reaper {
	defaultReaperOnce.Do(func() {
		defaultReaper = &reaper{pending: make(map[*fileSource]uint64)}
	})
	return defaultReaper
}

// schedule arranges for fs to be closed after grace, unless fs is
// re-acquired (which bumps its generation) before the timer fires.
func (r *reaper) schedule(fs *fileSource, generation uint64, grace time.Duration) {
	r.mu.Lock()
	r.pending[fs] = generation
	r.mu.Unlock()

	time.AfterFunc(grace, func() {
		r.fire(fs, generation)
	})
}

// cancel removes any pending close job for fs, called when fs is re-acquired
// before its reaper timer fires.
func (r *reaper) cancel(fs *fileSource) {
	r.mu.Lock()
	delete(r.pending, fs)
	r.mu.Unlock()
}

func (r *reaper) fire(fs *fileSource, generation uint64) {
	r.mu.Lock()
	pendingGen, ok := r.pending[fs]
	if !ok || pendingGen != generation {
		r.mu.Unlock()
		return
	}
	delete(r.pending, fs)
	r.mu.Unlock()

	fs.reaperClose(generation)
}
