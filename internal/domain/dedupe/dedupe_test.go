package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/dilemma/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a session is dispatched twice", func() {
			first := d.SeenAndRecord(ctx, "session-1")
			second := d.SeenAndRecord(ctx, "session-1")

			Convey("Then only the first dispatch goes through", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a failed dispatch is unrecorded", func() {
			d.SeenAndRecord(ctx, "session-1")
			d.Unrecord(ctx, "session-1")
			d.Unrecord(ctx, "never-seen")

			Convey("Then the session can be dispatched again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "session-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a deduper bounded to three sessions", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			So(d.SeenAndRecord(ctx, fmt.Sprintf("s%d", i)), ShouldBeFalse)
		}

		Convey("Then the oldest session was evicted", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "s4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "s3"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "s1"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
		})

		Convey("Then unrecording from the middle keeps eviction order", func() {
			d.Unrecord(ctx, "s3")
			So(d.SeenAndRecord(ctx, "s5"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "s6"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "s2"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "s6"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		const n = 1000
		for i := 0; i < n; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("s%d", i))
		}
		So(d.Size(), ShouldEqual, int64(n))
		So(d.SeenAndRecord(ctx, "s0"), ShouldBeTrue)
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given many goroutines racing to dispatch the same sessions", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wins atomic.Int64
		var wg sync.WaitGroup

		for g := 0; g < 16; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if !d.SeenAndRecord(context.Background(), fmt.Sprintf("s%d", i)) {
						wins.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each session is won exactly once", func() {
			So(wins.Load(), ShouldEqual, int64(50))
			So(d.Size(), ShouldEqual, int64(50))
		})
	})
}
