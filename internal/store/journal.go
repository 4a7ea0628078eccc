package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rozmowa/relay-server/internal/core"
)

const appendTimeout = 5 * time.Second

// Journal decouples persistence from delivery: Append hands the record to
// a buffered channel and returns immediately, a single goroutine drains it
// into the store. A full buffer or a failing store costs a log line, never
// a stalled broadcast.
type Journal struct {
	store Store
	log   *zerolog.Logger

	mu     sync.Mutex
	closed bool
	ch     chan core.Message
	done   chan struct{}
}

// NewJournal starts the appender goroutine.
func NewJournal(st Store, logger *zerolog.Logger, buffer int) *Journal {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	j := &Journal{
		store: st,
		log:   logger,
		ch:    make(chan core.Message, buffer),
		done:  make(chan struct{}),
	}
	go j.run()
	return j
}

// Append implements core.Appender. It never blocks.
func (j *Journal) Append(msg core.Message) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.ch <- msg:
	default:
		j.log.Error().Str("room", msg.Room).Msg("journal buffer full, dropping record")
	}
}

// Close stops accepting records, drains the buffer, and waits for the
// appender to finish.
func (j *Journal) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		<-j.done
		return
	}
	j.closed = true
	close(j.ch)
	j.mu.Unlock()
	<-j.done
}

func (j *Journal) run() {
	defer close(j.done)
	for msg := range j.ch {
		rec := &Record{
			Room:      msg.Room,
			Sender:    msg.Sender,
			Body:      msg.Text,
			FileName:  msg.FileName,
			CreatedAt: msg.CreatedAt,
		}
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := j.store.Append(ctx, rec); err != nil {
			j.log.Error().Err(err).Str("room", rec.Room).Str("sender", rec.Sender).Msg("persist message")
		}
		cancel()
	}
}
