package client

import "context"

type request struct {
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan error
}

// mailbox cola de un solo lugar atendida por una goroutine: serializa las mutaciones de un producto.
type mailbox struct {
	queue chan request
	quit  chan struct{}
}

func newMailbox() *mailbox {
	mb := &mailbox{queue: make(chan request, 1), quit: make(chan struct{})}
	go mb.serve()
	return mb
}

func (mb *mailbox) serve() {
	for {
		select {
		case req := <-mb.queue:
			req.done <- req.run(req.ctx)
		case <-mb.quit:
			return
		}
	}
}

// submit encola run y espera su resultado. Si el buzón se cierra antes, devuelve ErrSaleLocked.
func (mb *mailbox) submit(ctx context.Context, run func(ctx context.Context) error) error {
	req := request{ctx: ctx, run: run, done: make(chan error, 1)}
	select {
	case mb.queue <- req:
	case <-mb.quit:
		return ErrSaleLocked
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-mb.quit:
		return ErrSaleLocked
	}
}

func (mb *mailbox) close() {
	close(mb.quit)
}
