package decoder_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/idscan/internal/adapters/decoder"
	"github.com/okian/idscan/internal/domain/intake"
	"github.com/okian/idscan/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseResult(t *testing.T) {
	Convey("Given decoder callback bodies", t, func() {
		Convey("When the body is well formed", func() {
			r, err := decoder.ParseResult([]byte(`{"codeResult":{"code":"scs/12345/23","format":"code_128"}}`))

			Convey("Then the code result should be decoded", func() {
				So(err, ShouldBeNil)
				So(r.CodeResult.Code, ShouldEqual, "scs/12345/23")
				So(r.CodeResult.Format, ShouldEqual, "code_128")
			})
		})

		Convey("When codeResult is missing", func() {
			_, err := decoder.ParseResult([]byte(`{"code":"SCS/12345/23"}`))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, decoder.ErrMalformedResult), ShouldBeTrue)
			})
		})

		Convey("When the body is not JSON", func() {
			_, err := decoder.ParseResult([]byte(`not json`))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, decoder.ErrMalformedResult), ShouldBeTrue)
			})
		})
	})
}

func TestAdapterOnDetected(t *testing.T) {
	ctx := context.Background()

	Convey("Given an adapter with a fixed clock", t, func() {
		now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		p := intake.New()
		a := decoder.New(p, decoder.WithClock(clock), decoder.WithLogger(nil))

		Convey("When a valid detection arrives", func() {
			sig := a.OnDetected(ctx, decoder.Result{CodeResult: &decoder.CodeResult{Code: "SCS/12345/23", Format: "code_39"}})

			Convey("Then the pipeline should accept it at the clock time", func() {
				So(sig.Kind, ShouldEqual, model.SignalAccepted)
				So(sig.Record.Timestamp, ShouldEqual, now)
				So(sig.Record.Format, ShouldEqual, "code_39")
			})

			Convey("And a repeat frame should be debounced", func() {
				now = now.Add(100 * time.Millisecond)
				again := a.OnDetected(ctx, decoder.Result{CodeResult: &decoder.CodeResult{Code: "SCS/12345/23"}})
				So(again.Kind, ShouldEqual, model.SignalDebounced)
			})
		})

		Convey("When the result has no code", func() {
			sig := a.OnDetected(ctx, decoder.Result{})

			Convey("Then it should be reported invalid", func() {
				So(sig.Kind, ShouldEqual, model.SignalInvalidFormat)
				So(sig.Candidate, ShouldEqual, "")
			})
		})
	})
}

func TestDescribeError(t *testing.T) {
	Convey("Given camera failures", t, func() {
		Convey("Then known names should map to fixed text", func() {
			So(decoder.DescribeError("NotAllowedError", "x"), ShouldEqual, "Camera permission denied")
			So(decoder.DescribeError("NotFoundError", ""), ShouldEqual, "No camera found")
			So(decoder.DescribeError("NotReadableError", ""), ShouldEqual, "Camera is in use by another application")
			So(decoder.DescribeError("OverconstrainedError", ""), ShouldEqual, "Camera constraints could not be satisfied")
		})

		Convey("Then unknown names should echo the message", func() {
			So(decoder.DescribeError("AbortError", "device lost"), ShouldEqual, "Error: device lost")
			So(decoder.DescribeError("", "  "), ShouldEqual, "Error: Unknown error")
		})

		Convey("When an error is reported through the adapter", func() {
			a := decoder.New(intake.New())
			text := a.ReportError(context.Background(), "NotFoundError", "")

			Convey("Then the user text should be returned", func() {
				So(text, ShouldEqual, "No camera found")
			})
		})
	})
}

func TestReaders(t *testing.T) {
	Convey("Given the reader list", t, func() {
		r := decoder.Readers()

		Convey("Then it should list the configured symbologies", func() {
			So(r, ShouldResemble, []string{"code_128_reader", "code_39_reader", "i2of5_reader"})
		})

		Convey("When the caller mutates it", func() {
			r[0] = "ean_reader"

			Convey("Then later calls should be unaffected", func() {
				So(decoder.Readers()[0], ShouldEqual, "code_128_reader")
			})
		})
	})
}
