// Package provider owns the shared I2C buses handed to HAL devices. Each bus
// is driven by a single worker goroutine so transactions from different
// devices never interleave.
package provider

import (
	"sort"
	"sync"
	"time"

	"gaugecode-go/errcode"
	"gaugecode-go/services/hal/internal/core"

	"tinygo.org/x/drivers"
)

// Ensure the provider satisfies the contract at compile time.
var _ core.ResourceRegistry = (*Registry)(nil)

const (
	DefaultTimeout = 50 * time.Millisecond
	queueLen       = 16
)

// -----------------------------------------------------------------------------
// I²C owner (one worker per bus)
// -----------------------------------------------------------------------------

// request posted to the per-bus worker
type i2cReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
}

type i2cOwner struct {
	id   core.ResourceID
	hw   drivers.I2C
	reqs chan i2cReq
	quit chan struct{}
	def  time.Duration
}

func newI2COwner(id core.ResourceID, hw drivers.I2C, def time.Duration) *i2cOwner {
	o := &i2cOwner{
		id:   id,
		hw:   hw,
		reqs: make(chan i2cReq, queueLen),
		quit: make(chan struct{}),
		def:  def,
	}
	go o.loop()
	return o
}

func (o *i2cOwner) loop() {
	for {
		select {
		case req := <-o.reqs:
			err := o.hw.Tx(req.addr, req.w, req.r)
			select {
			case req.done <- err:
			default:
			}
		case <-o.quit:
			return
		}
	}
}

func (o *i2cOwner) stop() { close(o.quit) }

// Tx enqueues one transaction and waits for it. The same deadline bounds
// both the enqueue (errcode.Busy) and the completion (errcode.Timeout).
func (o *i2cOwner) Tx(addr uint16, w, r []byte, timeoutMS int) error {
	d := o.def
	if timeoutMS > 0 {
		d = time.Duration(timeoutMS) * time.Millisecond
	}
	select {
	case <-o.quit:
		return errcode.Unavailable
	default:
	}
	req := i2cReq{addr: addr, w: w, r: r, done: make(chan error, 1)}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case o.reqs <- req:
	case <-o.quit:
		return errcode.Unavailable
	case <-t.C:
		return errcode.Busy
	}
	select {
	case err := <-req.done:
		return err
	case <-o.quit:
		return errcode.Unavailable
	case <-t.C:
		return errcode.Timeout
	}
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry implements core.ResourceRegistry over a fixed set of buses.
// Several devices may share a bus; one device may hold a bus only once.
type Registry struct {
	mu     sync.Mutex
	owners map[core.ResourceID]*i2cOwner
	claims map[core.ResourceID]map[string]struct{}
}

// New starts a worker per bus. timeout is the default per-call deadline
// (0 => DefaultTimeout).
func New(buses map[core.ResourceID]drivers.I2C, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Registry{
		owners: make(map[core.ResourceID]*i2cOwner, len(buses)),
		claims: make(map[core.ResourceID]map[string]struct{}, len(buses)),
	}
	for id, hw := range buses {
		if hw == nil {
			continue
		}
		r.owners[id] = newI2COwner(id, hw, timeout)
	}
	return r
}

func (r *Registry) Buses() []core.ResourceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.ResourceID, 0, len(r.owners))
	for id := range r.owners {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) ClaimI2C(devID string, id core.ResourceID) (core.I2COwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[id]
	if !ok {
		return nil, errcode.UnknownBus
	}
	users := r.claims[id]
	if users == nil {
		users = map[string]struct{}{}
		r.claims[id] = users
	}
	if _, dup := users[devID]; dup {
		return nil, errcode.BusInUse
	}
	users[devID] = struct{}{}
	return o, nil
}

func (r *Registry) ReleaseI2C(devID string, id core.ResourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if users := r.claims[id]; users != nil {
		delete(users, devID)
	}
}

// Users reports the devices currently holding bus id.
func (r *Registry) Users(id core.ResourceID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.claims[id]))
	for dev := range r.claims[id] {
		out = append(out, dev)
	}
	sort.Strings(out)
	return out
}

// Close stops every bus worker. Pending and later calls fail with
// errcode.Unavailable.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.owners {
		o.stop()
		delete(r.owners, id)
	}
}
