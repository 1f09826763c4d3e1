package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/dilemma/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func tasks(n int) []Task {
	out := make([]Task, n)
	for i := range out {
		out[i] = model.Task{Seq: i, HomeID: "a", AwayID: "b"}
	}
	return out
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	Convey("Given a queue with capacity two", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))
		ctx := context.Background()

		So(q.Len(ctx), ShouldEqual, 0)
		So(q.Capacity(), ShouldEqual, 2)

		Convey("When two tasks are enqueued", func() {
			So(q.Enqueue(ctx, tasks(1)[0]), ShouldBeTrue)
			So(q.Enqueue(ctx, model.Task{Seq: 1}), ShouldBeTrue)

			Convey("Then a third is rejected", func() {
				So(q.Enqueue(ctx, model.Task{Seq: 2}), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("Then they are delivered in order", func() {
				ch := q.Dequeue(ctx)
				So((<-ch).Seq, ShouldEqual, 0)
				So((<-ch).Seq, ShouldEqual, 1)
				So(q.Close(), ShouldBeNil)
				_, ok := <-ch
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	Convey("Given a closed queue that still holds tasks", t, func() {
		q := NewInMemoryQueue(WithCapacity(10))
		ctx := context.Background()
		So(EnqueueAll(ctx, q, tasks(5)), ShouldBeNil)
		So(q.Close(), ShouldBeNil)
		So(q.Close(), ShouldBeNil)
		So(q.IsClosed(), ShouldBeTrue)

		Convey("Then new tasks are refused", func() {
			So(q.Enqueue(ctx, model.Task{}), ShouldBeFalse)
			So(errors.Is(EnqueueAll(ctx, q, tasks(1)), ErrClosed), ShouldBeTrue)
		})

		Convey("Then queued tasks are drained before the channel closes", func() {
			n := 0
			for range q.Dequeue(ctx) {
				n++
			}
			So(n, ShouldEqual, 5)
		})
	})
}

func TestEnqueueAll(t *testing.T) {
	Convey("Given more tasks than capacity", t, func() {
		q := NewInMemoryQueue(WithCapacity(3))
		err := EnqueueAll(context.Background(), q, tasks(4))
		So(errors.Is(err, ErrFull), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		q := NewInMemoryQueue(WithCapacity(3))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		So(errors.Is(EnqueueAll(ctx, q, tasks(1)), context.Canceled), ShouldBeTrue)
	})

	Convey("Given a cancelled consumer", t, func() {
		q := NewInMemoryQueue(WithCapacity(3))
		So(EnqueueAll(context.Background(), q, tasks(3)), ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		ch := q.Dequeue(ctx)
		cancel()

		Convey("Then the dequeue channel closes", func() {
			for range ch {
			}
			So(true, ShouldBeTrue)
		})
	})
}
