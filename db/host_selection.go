package db

import (
	"sync"

	"github.com/gocql/gocql"
	"go.uber.org/atomic"
)

// dcInferringPolicy routes queries round robin until the first host is
// added, then pins to that host's datacenter.
type dcInferringPolicy struct {
	mu       sync.RWMutex
	child    gocql.HostSelectionPolicy
	dcPinned atomic.Bool
}

func NewDefaultHostSelectionPolicy() gocql.HostSelectionPolicy {
	return gocql.TokenAwareHostPolicy(NewDcInferringPolicy(), gocql.ShuffleReplicas())
}

func NewDcInferringPolicy() *dcInferringPolicy {
	return &dcInferringPolicy{child: gocql.RoundRobinHostPolicy()}
}

func (p *dcInferringPolicy) current() gocql.HostSelectionPolicy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.child
}

func (p *dcInferringPolicy) AddHost(host *gocql.HostInfo) {
	if p.dcPinned.CAS(false, true) {
		child := gocql.DCAwareRoundRobinPolicy(host.DataCenter())
		child.AddHost(host)
		p.mu.Lock()
		p.child = child
		p.mu.Unlock()
		return
	}
	p.current().AddHost(host)
}

func (p *dcInferringPolicy) RemoveHost(host *gocql.HostInfo) {
	p.current().RemoveHost(host)
}

func (p *dcInferringPolicy) HostUp(host *gocql.HostInfo) {
	p.current().HostUp(host)
}

func (p *dcInferringPolicy) HostDown(host *gocql.HostInfo) {
	p.current().HostDown(host)
}

func (p *dcInferringPolicy) SetPartitioner(partitioner string) {
	p.current().SetPartitioner(partitioner)
}

func (p *dcInferringPolicy) KeyspaceChanged(e gocql.KeyspaceUpdateEvent) {
	p.current().KeyspaceChanged(e)
}

// Init is not forwarded; the token aware parent never initializes its fallback.
func (p *dcInferringPolicy) Init(*gocql.Session) {}

func (p *dcInferringPolicy) IsLocal(host *gocql.HostInfo) bool {
	return p.current().IsLocal(host)
}

func (p *dcInferringPolicy) Pick(query gocql.ExecutableQuery) gocql.NextHost {
	return p.current().Pick(query)
}
