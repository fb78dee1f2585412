package photosync

import (
	"context"
	"log/slog"
)

// NetworkListener drains the queue whenever connectivity comes back.
type NetworkListener struct {
	processor *Processor
}

func NewNetworkListener(processor *Processor) *NetworkListener {
	return &NetworkListener{processor: processor}
}

func (l *NetworkListener) OnOnline(ctx context.Context) {
	slog.Info("Jaringan tersedia, memproses antrean foto.")
	l.processor.Kick()
}

func (l *NetworkListener) OnOffline(ctx context.Context) {
	slog.Info("Jaringan terputus, foto baru akan menunggu di antrean.")
}
