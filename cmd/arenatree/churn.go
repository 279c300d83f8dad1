package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-arenatree/config"
	"github.com/spacemeshos/go-arenatree/log"
	"github.com/spacemeshos/go-arenatree/metrics"
	"github.com/spacemeshos/go-arenatree/seal"
	"github.com/spacemeshos/go-arenatree/tree"
)

const (
	// number of recent handles the workload picks from.
	handleRing = 1024
	// operations between two context checks.
	ctxCheckEvery = 1024
)

var (
	churnOps = metrics.NewCounter(
		"ops",
		"churn",
		"number of workload operations by kind",
		[]string{"op"},
	)
	insertOps = churnOps.WithLabelValues("insert")
	eraseOps  = churnOps.WithLabelValues("erase")
	cloneOps  = churnOps.WithLabelValues("clone")
	lookupOps = churnOps.WithLabelValues("lookup")
	staleOps  = churnOps.WithLabelValues("stale")

	verifyDuration = metrics.NewHistogram(
		"verify_seconds",
		"churn",
		"time spent checking the tree and its snapshots",
		[]string{},
	).WithLabelValues()
)

type (
	entry     = tree.Pair[uint64, int]
	entryTree = tree.Tree[uint64, entry]
)

// Report summarizes a churn run.
type Report struct {
	Ops           int           `json:"ops"`
	Inserts       int           `json:"inserts"`
	Duplicates    int           `json:"duplicates"`
	Erases        int           `json:"erases"`
	Clones        int           `json:"clones"`
	Lookups       int           `json:"lookups"`
	StaleHandles  int           `json:"stale_handles"`
	Verifications int           `json:"verifications"`
	Interrupted   bool          `json:"interrupted"`
	Duration      time.Duration `json:"duration"`
	Stats         tree.Stats    `json:"stats"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r *Report) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("ops", r.Ops)
	enc.AddInt("inserts", r.Inserts)
	enc.AddInt("duplicates", r.Duplicates)
	enc.AddInt("erases", r.Erases)
	enc.AddInt("clones", r.Clones)
	enc.AddInt("lookups", r.Lookups)
	enc.AddInt("stale_handles", r.StaleHandles)
	enc.AddInt("verifications", r.Verifications)
	enc.AddBool("interrupted", r.Interrupted)
	enc.AddDuration("duration", r.Duration)
	return enc.AddObject("stats", r.Stats)
}

type snapshot struct {
	tree *entryTree
	len  int
	min  entry
}

type churn struct {
	cfg       config.ChurnConfig
	logger    *zap.Logger
	rng       *rand.Rand
	tree      *entryTree
	handles   []tree.Handle[entry]
	next      int
	snapshots []snapshot
	report    Report
}

// runChurn runs the workload described by cfg.Churn on a new tree and
// returns the report along with the raw indices of the handles that are
// still valid at the end.
func runChurn(ctx context.Context, logger, treeLogger *zap.Logger, cfg config.Config) (*Report, []tree.RawIndex, error) {
	c := &churn{
		cfg:    cfg.Churn,
		logger: logger,
		rng:    rand.New(rand.NewPCG(cfg.Churn.Seed, cfg.Churn.Seed^0x9e3779b97f4a7c15)),
		tree:   tree.NewMap[uint64, int](tree.WithConfig(cfg.Tree), tree.WithLogger(treeLogger)),
	}
	defer c.release()
	start := time.Now()
	if err := c.run(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.verify(); err != nil {
		return nil, nil, err
	}
	c.report.Duration = time.Since(start)
	c.report.Stats = c.tree.Stats()

	var raw []tree.RawIndex
	for _, h := range c.handles {
		if c.tree.IsValid(h) && !h.IsEnd() {
			raw = append(raw, h.Raw())
		}
	}
	logger.Info("churn finished", zap.Object("report", &c.report), zap.Int("live_handles", len(raw)))
	return &c.report, raw, nil
}

func (c *churn) run(ctx context.Context) error {
	for i := range c.cfg.Ops {
		if i%ctxCheckEvery == 0 && ctx.Err() != nil {
			c.logger.Warn("churn interrupted", zap.Int("ops", i), zap.Error(ctx.Err()))
			c.report.Interrupted = true
			return nil
		}
		if err := c.step(i); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		c.report.Ops++
		if c.cfg.VerifyEvery > 0 && (i+1)%c.cfg.VerifyEvery == 0 {
			if err := c.verify(); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			c.logger.Debug("tree verified", zap.Int("ops", i+1), zap.Object("stats", c.tree.Stats()))
		}
	}
	return nil
}

func (c *churn) step(i int) error {
	r := c.rng.IntN(100)
	switch {
	case r < c.cfg.InsertRatio:
		k := c.rng.Uint64N(uint64(c.cfg.Keys))
		h, inserted := c.tree.Insert(entry{Key: k, Value: i})
		insertOps.Inc()
		if !inserted {
			c.report.Duplicates++
			return nil
		}
		c.report.Inserts++
		c.remember(h)
	case r < c.cfg.InsertRatio+c.cfg.EraseRatio:
		eraseOps.Inc()
		if len(c.handles) == 0 || c.rng.IntN(4) == 0 {
			c.report.Erases += c.tree.EraseKey(c.rng.Uint64N(uint64(c.cfg.Keys)))
			return nil
		}
		h := c.handles[c.rng.IntN(len(c.handles))]
		_, err := c.tree.Erase(h)
		switch {
		case err == nil:
			c.report.Erases++
		case isStale(err):
			c.stale()
		default:
			return err
		}
	case r < c.cfg.InsertRatio+c.cfg.EraseRatio+c.cfg.CloneRatio:
		cloneOps.Inc()
		c.clone()
	default:
		lookupOps.Inc()
		if len(c.handles) == 0 {
			return nil
		}
		h := c.handles[c.rng.IntN(len(c.handles))]
		v, err := c.tree.Value(h)
		switch {
		case err == nil:
			c.report.Lookups++
			found, ok := c.tree.Get(v.Key)
			if !ok {
				return log.ErrInvariant(fmt.Errorf("key %d reachable through %v is not found", v.Key, h))
			}
			if !c.tree.IsMulti() && found != v {
				return log.ErrInvariant(fmt.Errorf("key %d found as %v, handle %v holds %v", v.Key, found, h, v))
			}
		case isStale(err):
			c.stale()
		default:
			return err
		}
	}
	return nil
}

func isStale(err error) bool {
	return errors.Is(err, seal.ErrGarbaged) ||
		errors.Is(err, seal.ErrUnsealed) ||
		errors.Is(err, tree.ErrForeignHandle)
}

func (c *churn) stale() {
	c.report.StaleHandles++
	staleOps.Inc()
}

func (c *churn) remember(h tree.Handle[entry]) {
	if len(c.handles) < handleRing {
		c.handles = append(c.handles, h)
		return
	}
	c.handles[c.next] = h
	c.next = (c.next + 1) % handleRing
}

func (c *churn) clone() {
	if c.cfg.Snapshots == 0 {
		return
	}
	if len(c.snapshots) == c.cfg.Snapshots {
		c.snapshots[0].tree.Release()
		c.snapshots = c.snapshots[1:]
	}
	s := snapshot{tree: c.tree.Clone(), len: c.tree.Len()}
	s.min, _ = c.tree.Min()
	c.snapshots = append(c.snapshots, s)
	c.report.Clones++
}

// verify checks the tree and that the snapshots didn't see later mutations.
func (c *churn) verify() error {
	c.report.Verifications++
	defer func(start time.Time) { verifyDuration.Observe(time.Since(start).Seconds()) }(time.Now())
	if err := c.tree.Verify(); err != nil {
		return err
	}
	for _, s := range c.snapshots {
		if err := s.tree.Verify(); err != nil {
			return err
		}
		m, _ := s.tree.Min()
		if s.tree.Len() != s.len || m != s.min {
			return log.ErrInvariant(fmt.Errorf("snapshot changed: %d elements starting at %v, expected %d starting at %v",
				s.tree.Len(), m, s.len, s.min))
		}
	}
	return nil
}

func (c *churn) release() {
	for _, s := range c.snapshots {
		s.tree.Release()
	}
	c.snapshots = nil
	c.tree.Release()
}
