package peer

import (
	"log/slog"
	"time"
)

// Delivery is the outcome of one inbound connection: either a decrypted
// plaintext or the error that stopped it. Exactly one Delivery is produced
// per accepted connection.
type Delivery struct {
	RemoteAddr string
	Plaintext  []byte
	Err        error
	ReceivedAt time.Time
}

// Handler consumes deliveries. The server invokes it on the connection's
// own goroutine; a slow or panicking handler affects only that connection,
// never the listener or other connections.
type Handler interface {
	Handle(d Delivery)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(d Delivery)

func (f HandlerFunc) Handle(d Delivery) {
	f(d)
}

// LogHandler returns a handler that records deliveries to the logger, the
// production default when no downstream consumer is wired.
func LogHandler(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return HandlerFunc(func(d Delivery) {
		if d.Err != nil {
			logger.Warn("inbound message failed", "remote_addr", d.RemoteAddr, "error", d.Err.Error())
			return
		}
		logger.Info("inbound message", "remote_addr", d.RemoteAddr, "bytes", len(d.Plaintext))
	})
}
