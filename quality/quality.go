// Package quality implements the Quality Tracker: per-link loss/delay/
// jitter measurements and the administratively-down transition they drive
// through the Link Registry (spec §4.8). Grounded loosely on the teacher's
// table/measurements.go per-entry counters-with-decay shape (RTT/
// satisfaction-ratio tracking keyed by name prefix), adapted to loss
// percentage/delay/jitter keyed by interface id; every mutation is logged
// through core like the teacher's measurement updates.
package quality

import (
	"sync"

	"github.com/nextlink/abf/core"
)

// ServiceClass names a tolerance profile packets can be filtered against
// (supplemental feature grounded on fwabf_links.c's per-link quality
// thresholds keyed by DSCP/service class — see SPEC_FULL.md §4).
type ServiceClass int

const (
	ServiceClassBestEffort ServiceClass = iota
	ServiceClassVoice
	ServiceClassVideo
)

// ServiceClassForDSCP classifies a packet's DSCP field into a tolerance
// profile (fwabf_locals.c's local sub-selection pass, SPEC_FULL.md §4):
// Expedited Forwarding and the CS5/CS6/CS7 class selectors map to Voice,
// the AF4x/CS4 video class selectors map to Video, everything else is
// BestEffort.
func ServiceClassForDSCP(dscp uint8) ServiceClass {
	switch dscp {
	case 0x2E, 0x28, 0x30, 0x38: // EF, CS5, CS6, CS7
		return ServiceClassVoice
	case 0x22, 0x24, 0x26, 0x20: // AF41, AF42, AF43, CS4
		return ServiceClassVideo
	default:
		return ServiceClassBestEffort
	}
}

// Tolerance is the maximum acceptable loss/delay/jitter for a service
// class, beyond which a link carrying that class is treated as degraded.
type Tolerance struct {
	MaxLossPct  uint32
	MaxDelayMs  uint32
	MaxJitterMs uint32
}

var defaultTolerances = map[ServiceClass]Tolerance{
	ServiceClassBestEffort: {MaxLossPct: 20, MaxDelayMs: 500, MaxJitterMs: 200},
	ServiceClassVoice:      {MaxLossPct: 1, MaxDelayMs: 150, MaxJitterMs: 30},
	ServiceClassVideo:      {MaxLossPct: 2, MaxDelayMs: 200, MaxJitterMs: 50},
}

// Measurement is one link's latest quality sample (spec §4.8).
type Measurement struct {
	LossPct  uint32
	DelayMs  uint32
	JitterMs uint32
}

// AdministrativeDowner is the narrow collaborator the tracker drives on a
// quality-down transition: link.Registry.SetLoss.
type AdministrativeDowner interface {
	SetLoss(interfaceID uint32, lossPct uint32)
}

// Tracker holds the latest quality measurement per interface and forwards
// loss updates to the Link Registry.
type Tracker struct {
	mu     sync.RWMutex
	links  AdministrativeDowner
	latest map[uint32]Measurement
}

// New creates a Quality Tracker driving links on every SetQuality call.
func New(links AdministrativeDowner) *Tracker {
	return &Tracker{links: links, latest: make(map[uint32]Measurement)}
}

// SetQuality records m for interfaceID and pushes the loss percentage to
// the Link Registry, which treats loss==100 as administratively down
// (spec §4.8).
func (t *Tracker) SetQuality(interfaceID uint32, m Measurement) {
	t.mu.Lock()
	t.latest[interfaceID] = m
	t.mu.Unlock()

	core.LogInfo("QualityTracker", "interface=", interfaceID, " loss=", m.LossPct,
		" delay=", m.DelayMs, " jitter=", m.JitterMs)
	t.links.SetLoss(interfaceID, m.LossPct)
}

// Get returns the latest measurement for interfaceID, or the zero value and
// false if none has been recorded.
func (t *Tracker) Get(interfaceID uint32) (Measurement, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.latest[interfaceID]
	return m, ok
}

// Tolerates reports whether interfaceID's latest measurement meets class's
// tolerance thresholds. A link with no recorded measurement is assumed
// tolerant (spec §4.8 default: quality gating only engages once a
// measurement has been reported).
func (t *Tracker) Tolerates(interfaceID uint32, class ServiceClass) bool {
	m, ok := t.Get(interfaceID)
	if !ok {
		return true
	}
	tol := defaultTolerances[class]
	return m.LossPct <= tol.MaxLossPct && m.DelayMs <= tol.MaxDelayMs && m.JitterMs <= tol.MaxJitterMs
}
