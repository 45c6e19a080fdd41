package intake_test

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/okian/idscan/internal/domain/branch"
	"github.com/okian/idscan/internal/domain/intake"
	"github.com/okian/idscan/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var grammar = regexp.MustCompile(`^S(AU|CE|CV|CS|EE|CO|CT|EC|EV|ME)/\d{5}/\d{2}$`)

type recorder struct {
	mu      sync.Mutex
	signals []model.Signal
}

func (r *recorder) OnSignal(_ context.Context, sig model.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
}

func (r *recorder) kinds() []model.SignalKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SignalKind, 0, len(r.signals))
	for _, s := range r.signals {
		out = append(out, s.Kind)
	}
	return out
}

type sliceSink struct {
	records []model.ScanRecord
}

func (s *sliceSink) Submit(_ context.Context, rec model.ScanRecord) {
	s.records = append(s.records, rec)
}

func detect(code string) model.RawDetection {
	return model.RawDetection{Code: code, Format: "code_128"}
}

func studentIDs(recs []model.ScanRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.StudentID)
	}
	return out
}

func newPipeline(opts ...intake.Option) (*intake.Pipeline, *recorder, *sliceSink) {
	rec := &recorder{}
	sink := &sliceSink{}
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("uuid-%d", n)
	}
	opts = append([]intake.Option{
		intake.WithListener(rec),
		intake.WithSink(sink),
		intake.WithIDGenerator(gen),
	}, opts...)
	return intake.New(opts...), rec, sink
}

func TestHandleDetectionAccept(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	Convey("Given a fresh pipeline", t, func() {
		p, rec, sink := newPipeline()

		Convey("When a lowercase valid ID is detected", func() {
			sig := p.HandleDetection(ctx, detect("scs/12345/23"), t0)

			Convey("Then it should be accepted and enriched", func() {
				So(sig.Kind, ShouldEqual, model.SignalAccepted)
				So(sig.Candidate, ShouldEqual, "SCS/12345/23")
				So(sig.Record, ShouldNotBeNil)

				r := *sig.Record
				So(r.StudentID, ShouldEqual, "SCS/12345/23")
				So(r.BranchCode, ShouldEqual, "CS")
				So(r.StudentNumber, ShouldEqual, "12345")
				So(r.Year, ShouldEqual, "2023")
				So(r.ShortYear, ShouldEqual, "23")
				So(r.Format, ShouldEqual, "code_128")
				So(r.Timestamp, ShouldEqual, t0)
				So(r.SequenceID, ShouldEqual, uint64(1))
				So(r.UUID, ShouldEqual, "uuid-1")
			})

			Convey("And listeners and the sink should receive it", func() {
				So(rec.kinds(), ShouldResemble, []model.SignalKind{model.SignalAccepted})
				So(sink.records, ShouldHaveLength, 1)
				So(sink.records[0].StudentID, ShouldEqual, "SCS/12345/23")
			})

			Convey("And it should be in the history", func() {
				So(studentIDs(p.Recent()), ShouldResemble, []string{"SCS/12345/23"})
			})
		})

		Convey("When the detection is padded with whitespace", func() {
			sig := p.HandleDetection(ctx, detect("  sau/00001/99\t"), t0)

			Convey("Then it should be normalized and accepted", func() {
				So(sig.Kind, ShouldEqual, model.SignalAccepted)
				So(sig.Record.StudentID, ShouldEqual, "SAU/00001/99")
				So(sig.Record.Year, ShouldEqual, "2099")
			})
		})

		Convey("When several different IDs are accepted", func() {
			for i, code := range []string{"SCS/00001/23", "SME/00002/22", "SEE/00003/21"} {
				p.HandleDetection(ctx, detect(code), t0.Add(time.Duration(i)*time.Second))
			}

			Convey("Then sequence IDs should increase and history should be newest first", func() {
				recent := p.Recent()
				So(studentIDs(recent), ShouldResemble, []string{"SEE/00003/21", "SME/00002/22", "SCS/00001/23"})
				So(recent[0].SequenceID, ShouldEqual, uint64(3))
				So(recent[2].SequenceID, ShouldEqual, uint64(1))
				for _, r := range recent {
					So(grammar.MatchString(r.StudentID), ShouldBeTrue)
				}
			})
		})
	})
}

func TestHandleDetectionInvalid(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	Convey("Given a fresh pipeline", t, func() {
		p, rec, sink := newPipeline()

		Convey("When detections do not match the grammar", func() {
			cases := map[string]string{
				"SXX/12345/23":     "SXX/12345/23",
				"SCS/1234/23":      "SCS/1234/23",
				" scs12/12345/23 ": "SCS12/12345/23",
				"":                 "",
				"hello":            "HELLO",
			}
			for raw, want := range cases {
				sig := p.HandleDetection(ctx, detect(raw), now)
				So(sig.Kind, ShouldEqual, model.SignalInvalidFormat)
				So(sig.Candidate, ShouldEqual, want)
				So(sig.Record, ShouldBeNil)
			}

			Convey("Then no state should change", func() {
				So(p.Recent(), ShouldBeEmpty)
				So(sink.records, ShouldBeEmpty)
				st := p.Stats()
				So(st.Invalid, ShouldEqual, uint64(len(cases)))
				So(st.Accepted, ShouldEqual, uint64(0))
				So(st.LastSequence, ShouldEqual, uint64(0))
			})

			Convey("And every one should be signalled", func() {
				So(rec.kinds(), ShouldHaveLength, len(cases))
			})
		})

		Convey("When an invalid detection follows an accepted one", func() {
			p.HandleDetection(ctx, detect("SCS/12345/23"), now)
			p.HandleDetection(ctx, detect("SCS/1234/23"), now.Add(time.Millisecond))
			sig := p.HandleDetection(ctx, detect("SCS/12345/23"), now.Add(2*time.Millisecond))

			Convey("Then the debounce state should be untouched", func() {
				So(sig.Kind, ShouldEqual, model.SignalDebounced)
			})
		})
	})
}

func TestHandleDetectionDebounceAndDuplicate(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	Convey("Given a pipeline that accepted SCS/12345/23", t, func() {
		p, rec, sink := newPipeline()
		p.HandleDetection(ctx, detect("SCS/12345/23"), t0)

		Convey("When the same ID repeats within the debounce window", func() {
			sig := p.HandleDetection(ctx, detect("scs/12345/23"), t0.Add(2999*time.Millisecond))

			Convey("Then it should be ignored silently", func() {
				So(sig.Kind, ShouldEqual, model.SignalDebounced)
				So(rec.kinds(), ShouldResemble, []model.SignalKind{model.SignalAccepted})
				So(p.Recent(), ShouldHaveLength, 1)
				So(sink.records, ShouldHaveLength, 1)
				So(p.Stats().Debounced, ShouldEqual, uint64(1))
			})
		})

		Convey("When the same ID repeats exactly at the window boundary", func() {
			sig := p.HandleDetection(ctx, detect("SCS/12345/23"), t0.Add(intake.DebounceWindow))

			Convey("Then it should be reported as a duplicate", func() {
				So(sig.Kind, ShouldEqual, model.SignalDuplicate)
				So(rec.kinds(), ShouldResemble, []model.SignalKind{model.SignalAccepted, model.SignalDuplicate})
			})
		})

		Convey("When the same ID repeats after the window", func() {
			sig := p.HandleDetection(ctx, detect("SCS/12345/23"), t0.Add(5*time.Second))

			Convey("Then it should be a duplicate with one record kept", func() {
				So(sig.Kind, ShouldEqual, model.SignalDuplicate)
				So(sig.Candidate, ShouldEqual, "SCS/12345/23")
				So(p.Recent(), ShouldHaveLength, 1)
				So(p.Stats().Duplicate, ShouldEqual, uint64(1))
			})

			Convey("And the debounce window should not restart", func() {
				sig = p.HandleDetection(ctx, detect("SCS/12345/23"), t0.Add(5*time.Second+time.Millisecond))
				So(sig.Kind, ShouldEqual, model.SignalDuplicate)
			})
		})

		Convey("When the clock goes backwards", func() {
			sig := p.HandleDetection(ctx, detect("SCS/12345/23"), t0.Add(-time.Hour))

			Convey("Then it should count as inside the window", func() {
				So(sig.Kind, ShouldEqual, model.SignalDebounced)
			})
		})

		Convey("When another ID is scanned, then the first again within 3s", func() {
			p.HandleDetection(ctx, detect("SAU/00001/99"), t0.Add(time.Second))
			sig := p.HandleDetection(ctx, detect("SCS/12345/23"), t0.Add(2*time.Second))

			Convey("Then the debounce should not apply and it should be a duplicate", func() {
				So(sig.Kind, ShouldEqual, model.SignalDuplicate)
			})
		})

		Convey("When SAU is scanned and SCS is presented again later", func() {
			p.HandleDetection(ctx, detect("SAU/00001/99"), t0.Add(time.Second))
			sig := p.HandleDetection(ctx, detect("SCS/12345/23"), t0.Add(5*time.Second))

			Convey("Then the history should be [SAU, SCS] with one duplicate", func() {
				So(sig.Kind, ShouldEqual, model.SignalDuplicate)
				So(studentIDs(p.Recent()), ShouldResemble, []string{"SAU/00001/99", "SCS/12345/23"})
				So(rec.kinds(), ShouldResemble, []model.SignalKind{
					model.SignalAccepted, model.SignalAccepted, model.SignalDuplicate,
				})
			})
		})
	})
}

func TestHandleDetectionEviction(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	Convey("Given a pipeline filled with ten distinct scans", t, func() {
		p, _, _ := newPipeline()
		for i := 1; i <= 10; i++ {
			sig := p.HandleDetection(ctx, detect(fmt.Sprintf("SCS/%05d/23", i)), t0.Add(time.Duration(i)*time.Second))
			So(sig.Kind, ShouldEqual, model.SignalAccepted)
		}
		So(p.Recent(), ShouldHaveLength, 10)

		Convey("When an 11th distinct scan is accepted", func() {
			sig := p.HandleDetection(ctx, detect("SCS/00011/23"), t0.Add(11*time.Second))

			Convey("Then the first scan should be evicted", func() {
				So(sig.Kind, ShouldEqual, model.SignalAccepted)
				recent := p.Recent()
				So(recent, ShouldHaveLength, 10)
				So(recent[0].StudentID, ShouldEqual, "SCS/00011/23")
				So(recent[9].StudentID, ShouldEqual, "SCS/00002/23")
				So(p.Stats().Evicted, ShouldEqual, uint64(1))
			})

			Convey("And the evicted ID should be scannable again", func() {
				again := p.HandleDetection(ctx, detect("SCS/00001/23"), t0.Add(12*time.Second))
				So(again.Kind, ShouldEqual, model.SignalAccepted)
				So(again.Record.SequenceID, ShouldEqual, uint64(12))
				So(p.Recent()[9].StudentID, ShouldEqual, "SCS/00003/23")
			})

			Convey("And an ID still in the history should stay a duplicate", func() {
				dup := p.HandleDetection(ctx, detect("SCS/00002/23"), t0.Add(12*time.Second))
				So(dup.Kind, ShouldEqual, model.SignalDuplicate)
			})
		})

		Convey("When many more scans arrive", func() {
			for i := 11; i <= 40; i++ {
				p.HandleDetection(ctx, detect(fmt.Sprintf("SEE/%05d/20", i)), t0.Add(time.Duration(i)*time.Second))
				So(len(p.Recent()), ShouldBeLessThanOrEqualTo, 10)
			}

			Convey("Then the history should hold only the newest ten", func() {
				So(p.Recent()[0].StudentID, ShouldEqual, "SEE/00040/20")
				So(p.Stats().Buffered, ShouldEqual, 10)
			})
		})
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	Convey("Given a pipeline with history", t, func() {
		p, _, _ := newPipeline()
		p.HandleDetection(ctx, detect("SCS/12345/23"), t0)
		p.HandleDetection(ctx, detect("SAU/00001/99"), t0.Add(time.Second))

		Convey("When it is reset", func() {
			p.Reset(ctx)

			Convey("Then history, seen IDs and debounce state should be cleared", func() {
				So(p.Recent(), ShouldBeEmpty)
				st := p.Stats()
				So(st.Accepted, ShouldEqual, uint64(0))
				So(st.LastAccepted, ShouldEqual, "")

				sig := p.HandleDetection(ctx, detect("SAU/00001/99"), t0.Add(time.Second+time.Millisecond))
				So(sig.Kind, ShouldEqual, model.SignalAccepted)
			})

			Convey("And sequence IDs should keep increasing", func() {
				sig := p.HandleDetection(ctx, detect("SCS/12345/23"), t0.Add(2*time.Second))
				So(sig.Record.SequenceID, ShouldEqual, uint64(3))
			})
		})
	})
}

func TestPipelineOptions(t *testing.T) {
	Convey("Given a custom branch table", t, func() {
		table := branch.Default().Merge(branch.Table{"CS": {Name: "Computing"}})
		p := intake.New(intake.WithBranches(table), intake.WithLogger(nil), intake.WithListener(nil))

		Convey("Then lookups should use it", func() {
			So(p.Branch("CS").Name, ShouldEqual, "Computing")
			So(p.Branch("ZZ").Name, ShouldEqual, "ZZ Branch")
			So(p.Branches(), ShouldHaveLength, 10)
		})

		Convey("Then the default UUID generator should be used", func() {
			sig := p.HandleDetection(context.Background(), detect("SCS/12345/23"), time.Now())
			So(sig.Record.UUID, ShouldHaveLength, 36)
		})
	})

	Convey("Given a function listener", t, func() {
		var got []model.SignalKind
		p := intake.New(intake.WithListener(intake.ListenerFunc(func(_ context.Context, sig model.Signal) {
			got = append(got, sig.Kind)
		})))

		Convey("When an invalid detection arrives", func() {
			p.HandleDetection(context.Background(), detect("nope"), time.Now())

			Convey("Then it should be called", func() {
				So(got, ShouldResemble, []model.SignalKind{model.SignalInvalidFormat})
			})
		})
	})
}

type gaugeRecorder struct {
	values []int
}

func (g *gaugeRecorder) set(size int) {
	g.values = append(g.values, size)
}

func (g *gaugeRecorder) last() int {
	return g.values[len(g.values)-1]
}

func TestBufferGauge(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	Convey("Given two pipelines with their own gauges", t, func() {
		first := &gaugeRecorder{}
		p, _, _ := newPipeline(intake.WithBufferGauge(first.set))
		p.HandleDetection(ctx, detect("SCS/12345/23"), t0)
		p.HandleDetection(ctx, detect("SAU/00001/99"), t0.Add(time.Second))

		second := &gaugeRecorder{}
		newPipeline(intake.WithBufferGauge(second.set))

		Convey("Then each gauge should track only its own history", func() {
			So(first.values, ShouldResemble, []int{0, 1, 2})
			So(second.values, ShouldResemble, []int{0})
		})

		Convey("When the first is reset", func() {
			p.Reset(ctx)

			Convey("Then its gauge should drop to zero", func() {
				So(first.last(), ShouldEqual, 0)
				So(second.values, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a pipeline without a gauge", t, func() {
		p, _, _ := newPipeline()

		Convey("Then accepting scans should not panic", func() {
			So(func() { p.HandleDetection(ctx, detect("SCS/12345/23"), t0) }, ShouldNotPanic)
		})
	})
}

func TestConcurrentDetections(t *testing.T) {
	Convey("Given many goroutines scanning the same card", t, func() {
		p, rec, _ := newPipeline()
		now := time.Now()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.HandleDetection(context.Background(), detect("SCS/12345/23"), now)
			}()
		}
		wg.Wait()

		Convey("Then exactly one record should be accepted", func() {
			So(p.Recent(), ShouldHaveLength, 1)
			So(rec.kinds(), ShouldResemble, []model.SignalKind{model.SignalAccepted})
			So(p.Stats().Debounced, ShouldEqual, uint64(49))
		})
	})
}
