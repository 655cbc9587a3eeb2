//go:build linux

package queue

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// RingQueue is the io_uring-backed EventQueue implementation. It is the
// Linux-only backend; construct it with
// NewRingQueue where io_uring is available and fall back to
// NewMultimapQueue otherwise (IoUringSupported reports which is the
// case).
//
// The ring itself only ever carries IORING_OP_NOP submissions whose
// Fd/Off/Len fields are unused; the 64-bit user_data field carries the
// index of a slot in a Go-side table holding the actual (priority,
// payload) pair. This is how an arbitrary-shaped Go event survives a
// round trip through a C ABI ring buffer without per-push allocation in
// the ring itself. Cross-thread wake-ups go through a plain non-blocking
// self-pipe outside the ring: Push writes one byte to it after
// submitting, and Wait reads it with a deadline. IORING_OP_MSG_RING and
// IORING_OP_POLL_ADD are not used, and no second ring is set up.
type RingQueue struct {
	fd int

	sqMmap []byte
	cqMmap []byte
	sqes   []unix.IoUringSqe

	sqHead, sqTail *uint32
	sqMask         uint32
	sqArray        []uint32

	cqHead, cqTail *uint32
	cqMask         uint32
	cqes           []unix.IoUringCqe

	mu       sync.Mutex
	slots    map[uint64]ringSlot
	nextSlot uint64
	nextSeq  uint64
	closed   bool

	wakeR, wakeW int      // self-pipe fallback for cross-thread wake
	wakeRFile    *os.File // wraps wakeR so Wait can use a read deadline

	pollLimiter *rate.Limiter
}

type ringSlot struct {
	priority Priority
	seq      uint64
	payload  interface{}
}

// RingConfig carries the tunables for the ring-buffer backend.
type RingConfig struct {
	Entries          uint32 // submission/completion ring size, rounded up to a power of two by the kernel
	PollTimeoutNanos int64  // re-arm interval when the completion ring is momentarily empty
}

// DefaultRingConfig returns 256 entries and a 1ms poll interval, the same
// values internal/kconfig's defaults use for provided_buffer_ring.entries
// and poll_timeout_ns.
func DefaultRingConfig() RingConfig {
	return RingConfig{Entries: 256, PollTimeoutNanos: 1_000_000}
}

// IoUringSupported does a best-effort probe (a throwaway
// IoUringSetup/close) to check whether the running kernel supports
// io_uring at all, without leaving any ring resources allocated.
func IoUringSupported() bool {
	fd, _, err := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(2), uintptr(unsafe.Pointer(&unix.IoUringParams{})), 0)
	if err != 0 {
		return false
	}
	_ = unix.Close(int(fd))
	return true
}

// NewRingQueue allocates a submission/completion ring pair of cfg.Entries
// entries and maps them into this process's address space.
func NewRingQueue(cfg RingConfig) (*RingQueue, error) {
	if cfg.Entries == 0 {
		cfg.Entries = DefaultRingConfig().Entries
	}

	var params unix.IoUringParams
	fd, err := unix.IoUringSetup(cfg.Entries, &params)
	if err != nil {
		return nil, err
	}

	q := &RingQueue{
		fd:          fd,
		slots:       make(map[uint64]ringSlot),
		pollLimiter: rate.NewLimiter(rate.Every(time.Duration(cfg.PollTimeoutNanos)), 1),
	}

	sqRingSize := int(params.SqOff.Array) + int(params.SqEntries)*4
	cqRingSize := int(params.CqOff.Cqes) + int(params.CqEntries)*int(unsafe.Sizeof(unix.IoUringCqe{}))

	sqMmap, err := unix.Mmap(fd, unix.IORING_OFF_SQ_RING, sqRingSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	cqMmap, err := unix.Mmap(fd, unix.IORING_OFF_CQ_RING, cqRingSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		_ = unix.Munmap(sqMmap)
		_ = unix.Close(fd)
		return nil, err
	}
	sqesMmap, err := unix.Mmap(fd, unix.IORING_OFF_SQES, int(params.SqEntries)*int(unsafe.Sizeof(unix.IoUringSqe{})), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		_ = unix.Munmap(sqMmap)
		_ = unix.Munmap(cqMmap)
		_ = unix.Close(fd)
		return nil, err
	}

	q.sqMmap, q.cqMmap = sqMmap, cqMmap
	q.sqHead = (*uint32)(unsafe.Pointer(&sqMmap[params.SqOff.Head]))
	q.sqTail = (*uint32)(unsafe.Pointer(&sqMmap[params.SqOff.Tail]))
	q.sqMask = *(*uint32)(unsafe.Pointer(&sqMmap[params.SqOff.RingMask]))
	q.sqArray = unsafe.Slice((*uint32)(unsafe.Pointer(&sqMmap[params.SqOff.Array])), params.SqEntries)
	q.sqes = unsafe.Slice((*unix.IoUringSqe)(unsafe.Pointer(&sqesMmap[0])), params.SqEntries)

	q.cqHead = (*uint32)(unsafe.Pointer(&cqMmap[params.CqOff.Head]))
	q.cqTail = (*uint32)(unsafe.Pointer(&cqMmap[params.CqOff.Tail]))
	q.cqMask = *(*uint32)(unsafe.Pointer(&cqMmap[params.CqOff.RingMask]))
	q.cqes = unsafe.Slice((*unix.IoUringCqe)(unsafe.Pointer(&cqMmap[params.CqOff.Cqes])), params.CqEntries)

	r, w, err := pipe2CloExec()
	if err != nil {
		q.closeMmaps()
		_ = unix.Close(fd)
		return nil, err
	}
	q.wakeR, q.wakeW = r, w
	q.wakeRFile = os.NewFile(uintptr(r), "ichor-ring-wake")

	return q, nil
}

func pipe2CloExec() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

func (q *RingQueue) closeMmaps() {
	if q.sqMmap != nil {
		_ = unix.Munmap(q.sqMmap)
	}
	if q.cqMmap != nil {
		_ = unix.Munmap(q.cqMmap)
	}
}

// Close releases all ring and pipe resources. It is not part of the
// Queue interface (Quit only marks the queue closed for Push); callers
// that own a *RingQueue directly should defer Close after Quit.
func (q *RingQueue) Close() error {
	q.closeMmaps()
	_ = q.wakeRFile.Close()
	_ = unix.Close(q.wakeW)
	return unix.Close(q.fd)
}

func (q *RingQueue) Push(priority Priority, payload interface{}) (uint64, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, ErrClosed
	}
	q.nextSlot++
	slot := q.nextSlot
	q.nextSeq++
	seq := q.nextSeq
	q.slots[slot] = ringSlot{priority: priority, seq: seq, payload: payload}
	q.mu.Unlock()

	if err := q.submitNop(slot); err != nil {
		q.mu.Lock()
		delete(q.slots, slot)
		q.mu.Unlock()
		return 0, err
	}
	q.wakeOwner()
	return seq, nil
}

// submitNop writes one SQE carrying userData and bumps the SQ tail. The
// kernel requires this to run with exclusive access to the SQ ring
// indices; cross-thread pushes serialize on q.mu, matching the single
// mutex the portable backend already uses for the equivalent bookkeeping.
func (q *RingQueue) submitNop(userData uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	tail := atomic.LoadUint32(q.sqTail)
	idx := tail & q.sqMask
	sqe := &q.sqes[idx]
	*sqe = unix.IoUringSqe{}
	sqe.Opcode = unix.IORING_OP_NOP
	sqe.UserData = userData
	q.sqArray[idx] = idx
	atomic.StoreUint32(q.sqTail, tail+1)

	_, err := unix.IoUringEnter(q.fd, 1, 0, 0, nil)
	return err
}

func (q *RingQueue) wakeOwner() {
	// Best-effort: a single byte is enough to break the owner out of a
	// blocking poll on wakeR. Errors are ignored -- worst case the owner
	// notices the new CQE on its next timeout-bounded poll anyway.
	_, _ = unix.Write(q.wakeW, []byte{0})
}

// Pop drains one completed NOP (if any) and returns the slot it
// identifies, discarding the slot from the side table. Only the owning
// goroutine may call Pop.
func (q *RingQueue) Pop() (Item, bool) {
	head := atomic.LoadUint32(q.cqHead)
	tail := atomic.LoadUint32(q.cqTail)
	if head == tail {
		return Item{}, false
	}
	idx := head & q.cqMask
	cqe := q.cqes[idx]
	atomic.StoreUint32(q.cqHead, head+1)

	q.mu.Lock()
	slot, ok := q.slots[cqe.UserData]
	delete(q.slots, cqe.UserData)
	q.mu.Unlock()
	if !ok {
		return Item{}, false
	}
	return Item{Priority: slot.priority, Seq: slot.seq, Payload: slot.payload}, true
}

// Wait returns at once if a completion is pending or the queue is
// closed. Otherwise it blocks reading the wake pipe until a byte arrives
// or a deadline passes; the deadline is the delay of a reservation on
// pollLimiter, capped at 20ms. A byte already in the pipe ends the read
// immediately, so the limiter does not throttle wake-ups, and done is
// not watched while the read blocks.
func (q *RingQueue) Wait(done <-chan struct{}) {
	if !q.Empty() || q.isClosed() {
		return
	}
	wait := q.pollLimiter.Reserve().Delay()
	if ceiling := 20 * time.Millisecond; wait > ceiling {
		wait = ceiling
	}
	_ = q.wakeRFile.SetReadDeadline(time.Now().Add(wait))
	buf := make([]byte, 1)
	_, _ = q.wakeRFile.Read(buf)
	select {
	case <-done:
	default:
	}
}

func (q *RingQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *RingQueue) Empty() bool {
	return atomic.LoadUint32(q.cqHead) == atomic.LoadUint32(q.cqTail)
}

func (q *RingQueue) Size() int {
	return int(atomic.LoadUint32(q.cqTail) - atomic.LoadUint32(q.cqHead))
}

func (q *RingQueue) Quit() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wakeOwner()
}

var _ Queue = (*RingQueue)(nil)
