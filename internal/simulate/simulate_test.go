package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/idscan/internal/adapters/http/api"
	service "github.com/okian/idscan/internal/app"
	"github.com/okian/idscan/internal/domain/studentid"
	"github.com/okian/idscan/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerateFrames(t *testing.T) {
	Convey("Given a generation config", t, func() {
		ctx := context.Background()
		cfg := &Config{NumScans: 300, InvalidRatio: 0.2, RepeatRatio: 0.3}
		stats := &Stats{}

		Convey("When generating frames", func() {
			frames, err := generateFrames(ctx, cfg, stats)

			Convey("Then each frame should match its intent", func() {
				So(err, ShouldBeNil)
				So(frames, ShouldHaveLength, 300)
				So(stats.Generated, ShouldEqual, 300)
				So(frames[0].Intent, ShouldEqual, IntentValid)

				valid := map[string]bool{}
				for _, f := range frames {
					code := f.Detection.CodeResult.Code
					switch f.Intent {
					case IntentValid:
						So(studentid.Valid(code), ShouldBeTrue)
						valid[code] = true
					case IntentRepeat:
						So(valid[code], ShouldBeTrue)
					case IntentInvalid:
						So(studentid.Valid(code), ShouldBeFalse)
					}
					So(f.Detection.CodeResult.Format, ShouldBeIn, formats)
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := generateFrames(cctx, cfg, stats)

			Convey("Then generation should stop", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running scan service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithDatabasePath(filepath.Join(t.TempDir(), "scans.db")),
			service.WithLogger(logger.NewNop()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		out := filepath.Join(t.TempDir(), "plan", "frames.json")
		cfg := &Config{
			BaseURL:      srv.URL,
			NumScans:     60,
			Workers:      1,
			InvalidRatio: 0.2,
			RepeatRatio:  0.3,
			Reset:        true,
			Timeout:      5 * time.Second,
			SettleWait:   5 * time.Second,
			OutputFile:   out,
		}

		Convey("When the simulation runs", func() {
			stats, err := Run(ctx, cfg)

			Convey("Then every detection should have an outcome", func() {
				So(err, ShouldBeNil)
				total := 0
				for _, n := range stats.Outcomes {
					total += n
				}
				So(total, ShouldEqual, 60)
				So(stats.Outcomes[StatusFailed], ShouldEqual, 0)
				So(stats.Outcomes[StatusAccepted], ShouldBeGreaterThan, 0)
				So(stats.RunID, ShouldNotBeEmpty)
			})

			Convey("And every accepted scan should be persisted", func() {
				So(stats.Persisted, ShouldEqual, int64(stats.Outcomes[StatusAccepted]))
			})

			Convey("And the plan should be saved", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var frames []Frame
				So(json.Unmarshal(data, &frames), ShouldBeNil)
				So(frames, ShouldHaveLength, 60)
			})
		})

		Convey("When the service is unreachable", func() {
			cfg.BaseURL = "http://127.0.0.1:1"
			_, err := Run(ctx, cfg)

			Convey("Then the health check should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health check")
			})
		})
	})
}
