// Package network detects connectivity and notifies listeners when the device
// goes online or offline.
package network

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

type Checker interface {
	Online(ctx context.Context) bool
}

type Listener interface {
	OnOnline(ctx context.Context)
	OnOffline(ctx context.Context)
}

// InterfaceChecker reports online when a non-loopback interface is up with an
// address and, if a probe address is configured, a TCP dial to it succeeds.
type InterfaceChecker struct {
	probeAddr  string
	timeout    time.Duration
	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
}

func NewInterfaceChecker(probeAddr string, timeout time.Duration) *InterfaceChecker {
	return &InterfaceChecker{
		probeAddr:  probeAddr,
		timeout:    timeout,
		interfaces: psnet.InterfacesWithContext,
	}
}

func (c *InterfaceChecker) Online(ctx context.Context) bool {
	ifaces, err := c.interfaces(ctx)
	if err != nil {
		slog.Warn("Gagal membaca antarmuka jaringan", "error", err)
		return false
	}
	if !hasActiveInterface(ifaces) {
		return false
	}
	if c.probeAddr == "" {
		return true
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.probeAddr)
	if err != nil {
		slog.Debug("Probe jaringan gagal", "addr", c.probeAddr, "error", err)
		return false
	}
	conn.Close()
	return true
}

func hasActiveInterface(ifaces psnet.InterfaceStatList) bool {
	for _, iface := range ifaces {
		var up, loopback bool
		for _, flag := range iface.Flags {
			switch flag {
			case "up":
				up = true
			case "loopback":
				loopback = true
			}
		}
		if up && !loopback && len(iface.Addrs) > 0 {
			return true
		}
	}
	return false
}

// Monitor polls a Checker and fans out online/offline transitions.
type Monitor struct {
	checker  Checker
	interval time.Duration

	mu        sync.Mutex
	online    bool
	known     bool
	listeners []Listener

	startOnce sync.Once
}

func NewMonitor(checker Checker, interval time.Duration) *Monitor {
	return &Monitor{checker: checker, interval: interval}
}

func (m *Monitor) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Start begins polling. Only the first call has an effect. The first
// observation is taken synchronously, so listeners hear about an
// already-online device before Start returns.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.Poll(ctx)
		go m.run(ctx)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

func (m *Monitor) Poll(ctx context.Context) {
	m.Set(ctx, m.checker.Online(ctx))
}

// Set records the current connectivity and notifies listeners on change.
func (m *Monitor) Set(ctx context.Context, online bool) {
	m.mu.Lock()
	prev, known := m.online, m.known
	m.online, m.known = online, true
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if known && prev == online {
		return
	}

	switch {
	case online:
		slog.Info("Perangkat online.")
		for _, l := range listeners {
			l.OnOnline(ctx)
		}
	case known:
		slog.Info("Perangkat offline.")
		for _, l := range listeners {
			l.OnOffline(ctx)
		}
	default:
		slog.Info("Perangkat mulai dalam keadaan offline.")
	}
}
