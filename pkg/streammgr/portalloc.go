// Package streammgr manages per-stream state (encryption key, extra
// attributes, opaque user-data, hold flag) and port allocation. Port
// allocation is a round-robin free-port search with wraparound,
// grounded in pkg/manager_media/port_manager.go.
package streammgr

import (
	"fmt"
	"sync"

	"github.com/lyncmedia/mediacore/pkg/config"
)

// PortAllocator hands out ports from an inclusive range, round-robin,
// wrapping from Max back to Min.
type PortAllocator struct {
	mu sync.Mutex
	rng config.PortRange
	used map[int]bool
	nextPort int
}

func NewPortAllocator(rng config.PortRange) (*PortAllocator, error) {
	if rng.Min > rng.Max {
		return nil, fmt.Errorf("streammgr: invalid port range [%d, %d]", rng.Min, rng.Max)
	}
	return &PortAllocator{
		rng: rng,
		used: make(map[int]bool),
		nextPort: rng.Min,
	}, nil
}

// Allocate returns the next free port in the range, or an error if
// the range is fully exhausted.
func (p *PortAllocator) Allocate() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.nextPort
	for {
		port := p.nextPort
		p.nextPort++
		if p.nextPort > p.rng.Max {
			p.nextPort = p.rng.Min
		}
		if !p.used[port] {
			p.used[port] = true
			return port, nil
		}
		if p.nextPort == start {
			return 0, fmt.Errorf("streammgr: no free port in range [%d, %d]", p.rng.Min, p.rng.Max)
		}
	}
}

func (p *PortAllocator) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.used, port)
}

func (p *PortAllocator) InUse(port int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used[port]
}

func (p *PortAllocator) UsedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.used)
}

func (p *PortAllocator) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.rng.Max - p.rng.Min + 1
	return total - len(p.used)
}
