package dao

import (
	"context"
	"sync"

	"github.com/mohamadflefel/JCCAdmin/internal/web/posts/model"
)

// emitFunc hands a complete category list to the consumer.
// It returns false once the stream has been cancelled.
type emitFunc func(cats []model.Category) bool

// categoryStream runs a producer in its own goroutine and exposes its
// emissions as a channel.
type categoryStream struct {
	updates chan []model.Category
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// startCategoryStream starts run bound to a child of ctx. run must return
// once its context is done. An error run returns after cancellation is not
// reported.
func startCategoryStream(ctx context.Context, run func(ctx context.Context, emit emitFunc) error) *categoryStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &categoryStream{
		updates: make(chan []model.Category),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)

		err := run(ctx, func(cats []model.Category) bool {
			select {
			case s.updates <- cats:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()

	return s
}

func (s *categoryStream) Updates() <-chan []model.Category {
	return s.updates
}

func (s *categoryStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the producer and waits for it to return.
func (s *categoryStream) Close() error {
	s.cancel()
	<-s.done
	return nil
}
