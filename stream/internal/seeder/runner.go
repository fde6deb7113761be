package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Publisher publishes to JetStream and waits for the ack.
type Publisher interface {
	PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error)
}

// Config controls a seeding run.
type Config struct {
	Count    int
	Interval time.Duration
	Tools    []model.ToolType
}

// Result summarises a seeding run.
type Result struct {
	Published int
	Failed    int
	PerTool   map[model.ToolType]int
}

// Runner publishes generated events.
type Runner struct {
	pub    Publisher
	gen    *Generator
	cfg    Config
	logger *logging.Logger
}

// NewRunner creates a Runner. Without tools it cycles through every integrated tool.
func NewRunner(pub Publisher, gen *Generator, cfg Config, logger *logging.Logger) *Runner {
	if len(cfg.Tools) == 0 {
		cfg.Tools = model.Tools
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{pub: pub, gen: gen, cfg: cfg, logger: logger}
}

// Run publishes cfg.Count events round-robin across tools. Publish failures are
// counted, not fatal; a cancelled context stops the run early.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	res := Result{PerTool: make(map[model.ToolType]int)}

	r.logger.InfoContext(ctx, "starting CDC seeder",
		"count", r.cfg.Count, "interval", r.cfg.Interval.String(), "tools", len(r.cfg.Tools))

	for i := 0; i < r.cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		tool := r.cfg.Tools[i%len(r.cfg.Tools)]
		ev, err := r.gen.Generate(tool)
		if err != nil {
			return res, fmt.Errorf("generate %s event: %w", tool, err)
		}

		if _, err := r.pub.PublishSync(ctx, ev.Subject, ev.Data); err != nil {
			res.Failed++
			r.logger.WarnContext(ctx, "publish failed",
				logging.Subject(ev.Subject), logging.Tool(tool.Name()), logging.Error(err))
		} else {
			res.Published++
			res.PerTool[tool]++
		}

		if r.cfg.Interval > 0 && i < r.cfg.Count-1 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(r.cfg.Interval):
			}
		}
	}

	r.logger.InfoContext(ctx, "seeding complete", "published", res.Published, "failed", res.Failed)
	return res, nil
}
