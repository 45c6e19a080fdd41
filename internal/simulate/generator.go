package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/okian/idscan/internal/domain/studentid"
	"github.com/okian/idscan/pkg/logger"
)

const randomFloatDivisor = 1_000_000

var (
	formats     = []string{"code_128", "code_39", "i2of5"}
	badBranches = []string{"XX", "ZZ", "QA", "AB"}
)

// randInt returns a uniform integer in [0, n).
func randInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// randFloat returns a uniform float in [0, 1).
func randFloat() float64 {
	return float64(randInt(randomFloatDivisor)) / randomFloatDivisor
}

// validCode returns a random well-formed student ID, lower-cased half the time
// the way some decoders report it.
func validCode() string {
	branches := studentid.Branches()
	code := fmt.Sprintf("S%s/%05d/%02d", branches[randInt(len(branches))], randInt(100_000), randInt(100))
	if randInt(2) == 0 {
		return strings.ToLower(code)
	}
	return code
}

// invalidCode returns a random malformed candidate.
func invalidCode() string {
	switch randInt(4) {
	case 0:
		return fmt.Sprintf("S%s/%05d/%02d", badBranches[randInt(len(badBranches))], randInt(100_000), randInt(100))
	case 1:
		return fmt.Sprintf("SCS/%04d/%02d", randInt(10_000), randInt(100))
	case 2:
		return fmt.Sprintf("SCS/%05d/%d", randInt(100_000), randInt(10))
	default:
		return fmt.Sprintf("%012d", randInt(1_000_000_000))
	}
}

// generateFrames builds the detection plan. Repeats reuse an earlier valid
// code; the first frame is always valid.
func generateFrames(ctx context.Context, config *Config, stats *Stats) ([]Frame, error) {
	logger.Get().Info(ctx, "generating detections", logger.Int("numScans", config.NumScans))

	frames := make([]Frame, 0, config.NumScans)
	var valid []string
	for i := 0; i < config.NumScans; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}

		intent := IntentValid
		if i > 0 {
			switch r := randFloat(); {
			case r < config.InvalidRatio:
				intent = IntentInvalid
			case r < config.InvalidRatio+config.RepeatRatio && len(valid) > 0:
				intent = IntentRepeat
			}
		}

		var code string
		switch intent {
		case IntentInvalid:
			code = invalidCode()
		case IntentRepeat:
			code = valid[randInt(len(valid))]
		default:
			code = validCode()
			valid = append(valid, code)
		}
		frames = append(frames, Frame{
			Detection: Detection{CodeResult: CodeResult{Code: code, Format: formats[randInt(len(formats))]}},
			Intent:    intent,
		})
	}

	stats.Generated = len(frames)
	logger.Get().Info(ctx, "generated detections", logger.Int("count", len(frames)), logger.Int("distinct", len(valid)))
	return frames, nil
}
