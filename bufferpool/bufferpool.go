// Package bufferpool implements the ref-counted, CAS-driven block
// cache: a fixed pool of page-aligned
// buffers backing reads from a single open file, where blocks are
// acquired by id, pinned while in use, and released into an
// LRU-sharded eviction queue once their reference count drops to
// zero.
//
// Grounded directly on
// _examples/original_source/src/ailego/buffer/buffer_pool.cc:
// LPMap/Entry mirrors its atomic ref_count (math.MinInt32 = free,
// 0 = evictable but still holds data, positive = pinned) and
// load_count (generation counter used to detect a block that was
// evicted and reloaded between a reader's acquire and its use of the
// cache hint), LRUCache mirrors its sharded eviction queues plus
// periodic dead-node sweep, and VecBufferPool mirrors the
// open-file/aligned-buffer-pool/pread acquisition path.
package bufferpool

import (
	"context"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/metrics"
)

const (
	refFree = int32(math.MinInt32) // sentinel: entry has no buffer assigned
	// shardCount mirrors the original's CATCH_QUEUE_NUM: spreading the
	// eviction queue across shards reduces contention between
	// concurrent release_block callers landing on the same queue.
	shardCount = 8
)

// entry is one block's ref-counting state, matching LPMap::Entry.
type entry struct {
	refCount  atomic.Int32
	loadCount atomic.Uint32
	mu        sync.Mutex
	buffer    []byte
}

// block identifies one evictable entry alongside the load generation
// it was evicted under, so a dead-node sweep can discard stale
// eviction-queue entries for blocks that were already reacquired.
type block struct {
	id         uint32
	loadAtFree uint32
}

// Pool is a fixed-capacity cache of blockSize buffers read from one
// file, addressed by block id (offset = id * blockSize).
type Pool struct {
	file      *os.File
	blockSize int

	entries []entry

	free    chan []byte
	evictMu sync.Mutex
	evict   [shardCount][]block
	inserts atomic.Uint64

	// recorder is an explicit Metrics object the owner passes in,
	// backing the pool's hit/miss counters instead of a static global
	// counter. Nil until SetRecorder is called, in which case Add is
	// simply skipped.
	recorder *metrics.Recorder
}

// SetRecorder installs r as the destination for this pool's
// bufferpool.hits/bufferpool.misses counters.
func (p *Pool) SetRecorder(r *metrics.Recorder) { p.recorder = r }

// Open opens filename and sizes the pool so that poolCapacity bytes
// of buffers are pre-allocated (poolCapacity / blockSize buffers) and
// enough entries exist to address every block in the file, plus slack
// for appends, mirroring VecBufferPool's file_size_/block_size + 500.
func Open(filename string, poolCapacity, blockSize int) (*Pool, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, annerr.Wrap("bufferpool.Open", annerr.KindReadData, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, annerr.Wrap("bufferpool.Open", annerr.KindReadData, err)
	}

	bufferNum := poolCapacity / blockSize
	if bufferNum < 1 {
		bufferNum = 1
	}
	blockNum := int(st.Size())/blockSize + 500

	p := &Pool{
		file:      f,
		blockSize: blockSize,
		entries:   make([]entry, blockNum),
		free:      make(chan []byte, bufferNum),
	}
	for i := range p.entries {
		p.entries[i].refCount.Store(refFree)
	}
	for i := 0; i < bufferNum; i++ {
		p.free <- make([]byte, blockSize)
	}
	return p, nil
}

// Close closes the underlying file. Buffers already acquired by
// callers remain valid; this only stops future reads.
func (p *Pool) Close() error { return p.file.Close() }

// NumEntries returns the number of addressable block ids.
func (p *Pool) NumEntries() int { return len(p.entries) }

// acquireBlock pins blockID's entry if it already holds data,
// returning nil if it does not (miss) or if the CAS raced with an
// in-flight eviction (acquire-after-free retry case from
// LPMap::acquire_block).
func (p *Pool) acquireBlock(blockID uint32) []byte {
	e := &p.entries[blockID]
	if e.refCount.Load() == 0 {
		e.loadCount.Add(1)
	}
	rc := e.refCount.Add(1)
	if rc < 0 {
		return nil
	}
	e.mu.Lock()
	buf := e.buffer
	e.mu.Unlock()
	return buf
}

// releaseBlock unpins blockID; once the ref count reaches zero the
// block becomes evictable and is queued (not yet evicted — mirrors
// LPMap::release_block enqueuing rather than freeing directly).
func (p *Pool) releaseBlock(blockID uint32) {
	e := &p.entries[blockID]
	if e.refCount.Add(-1) == 0 {
		p.enqueueEvictable(blockID, e.loadCount.Load())
	}
}

func (p *Pool) enqueueEvictable(blockID uint32, loadCount uint32) {
	shard := int(blockID) % shardCount
	p.evictMu.Lock()
	p.evict[shard] = append(p.evict[shard], block{id: blockID, loadAtFree: loadCount})
	inserts := p.inserts.Add(1)
	p.evictMu.Unlock()
	if int(inserts)%p.blockSize == 0 {
		p.clearDeadNodes()
	}
}

// clearDeadNodes drops queued eviction candidates whose block was
// reacquired (and possibly freed and reloaded) since they were
// queued, mirroring LRUCache::clear_dead_node's load_count check.
func (p *Pool) clearDeadNodes() {
	p.evictMu.Lock()
	defer p.evictMu.Unlock()
	for shard := range p.evict {
		kept := p.evict[shard][:0]
		for _, b := range p.evict[shard] {
			if !p.isDeadBlock(b) {
				kept = append(kept, b)
			}
		}
		p.evict[shard] = kept
	}
}

func (p *Pool) isDeadBlock(b block) bool {
	e := &p.entries[b.id]
	return e.refCount.Load() != 0 || e.loadCount.Load() != b.loadAtFree
}

// evictOne pops one non-dead candidate from the eviction queues and
// frees its buffer, returning the freed buffer for reuse, mirroring
// LPMap::recycle.
func (p *Pool) evictOne() []byte {
	p.evictMu.Lock()
	var chosen *block
	for shard := range p.evict {
		for len(p.evict[shard]) > 0 {
			candidate := p.evict[shard][0]
			p.evict[shard] = p.evict[shard][1:]
			if !p.isDeadBlock(candidate) {
				chosen = &candidate
				break
			}
		}
		if chosen != nil {
			break
		}
	}
	p.evictMu.Unlock()
	if chosen == nil {
		return nil
	}

	e := &p.entries[chosen.id]
	if !e.refCount.CompareAndSwap(0, refFree) {
		return nil
	}
	e.mu.Lock()
	buf := e.buffer
	e.buffer = nil
	e.mu.Unlock()
	return buf
}

// setBlockAcquired installs buf as blockID's data after a successful
// read, unless another goroutine raced ahead and already installed
// one (checked via a non-negative ref count), mirroring
// LPMap::set_block_acquired.
func (p *Pool) setBlockAcquired(blockID uint32, buf []byte) []byte {
	e := &p.entries[blockID]
	if e.refCount.Load() >= 0 {
		e.refCount.Add(1)
		e.mu.Lock()
		existing := e.buffer
		e.mu.Unlock()
		return existing
	}
	e.mu.Lock()
	e.buffer = buf
	e.mu.Unlock()
	e.refCount.Store(1)
	e.loadCount.Add(1)
	return buf
}

// AcquireBuffer returns the block holding blockID's data at [offset,
// offset+size) in the pool's file, reading it from disk on a miss.
// retry bounds how many times a miss will try to evict a free buffer
// before giving up, mirroring VecBufferPool::acquire_buffer's retry
// loop. Callers must call Release with the same blockID once done.
func (p *Pool) AcquireBuffer(blockID uint32, offset int64, size int, retry int) ([]byte, error) {
	if buf := p.acquireBlock(blockID); buf != nil {
		p.recorder.Add(context.Background(), "bufferpool.hits", 1)
		return buf, nil
	}
	p.recorder.Add(context.Background(), "bufferpool.misses", 1)

	buf, err := p.takeFreeBuffer(retry)
	if err != nil {
		return nil, err
	}

	n, err := p.file.ReadAt(buf[:size], offset)
	if err != nil || n != size {
		p.free <- buf
		return nil, annerr.Wrap("bufferpool.AcquireBuffer", annerr.KindReadData, err)
	}

	placed := p.setBlockAcquired(blockID, buf)
	if &placed[0] != &buf[0] {
		p.free <- buf
	}
	return placed, nil
}

func (p *Pool) takeFreeBuffer(retry int) ([]byte, error) {
	select {
	case buf := <-p.free:
		return buf, nil
	default:
	}
	for i := 0; i < retry; i++ {
		if buf := p.evictOne(); buf != nil {
			p.free <- buf
		}
		select {
		case buf := <-p.free:
			return buf, nil
		default:
		}
	}
	return nil, annerr.New("bufferpool.takeFreeBuffer", annerr.KindNoMemory)
}

// Release unpins blockID, matching VecBufferPoolHandle::release_one.
func (p *Pool) Release(blockID uint32) { p.releaseBlock(blockID) }

// Acquire pins blockID without a data read, for callers that already
// hold a reference to the buffer and only need to extend its
// lifetime (matching VecBufferPoolHandle::acquire_one).
func (p *Pool) Acquire(blockID uint32) []byte { return p.acquireBlock(blockID) }

// ReadMeta reads length bytes at offset directly, bypassing the block
// cache entirely — for small, one-shot header/footer reads that
// aren't worth caching, matching VecBufferPool::get_meta.
func (p *Pool) ReadMeta(offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := p.file.ReadAt(buf, offset)
	if err != nil || n != length {
		return nil, annerr.Wrap("bufferpool.ReadMeta", annerr.KindReadData, err)
	}
	return buf, nil
}
