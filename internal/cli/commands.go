package cli

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/julianstephens/go-utils/cliutil"
	"github.com/julianstephens/go-utils/jsonutil"

	"github.com/julianstephens/idseq/internal/idseq"
	"github.com/julianstephens/idseq/internal/idseq/alloc"
	"github.com/julianstephens/idseq/internal/idseq/config"
	"github.com/julianstephens/idseq/internal/idseq/store"
	"github.com/julianstephens/idseq/internal/logger"
)

// RunCtx carries shared collaborators into command Run methods via kong
// bindings.
type RunCtx struct {
	Logger logger.Logger
}

func openStore(dir string, cfg config.Config) (store.CounterStore, error) {
	switch cfg.Backend {
	case config.BackendLog:
		return store.OpenLogStore(dir, store.LogStoreOpts{StrictSync: cfg.StrictSync})
	default:
		return store.OpenFileStore(dir, store.FileStoreOpts{StrictSync: cfg.StrictSync})
	}
}

func openAllocator(dir string, lg logger.Logger) (*alloc.Allocator, store.CounterStore, config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, config.Config{}, err
	}

	st, err := openStore(dir, cfg)
	if err != nil {
		return nil, nil, config.Config{}, err
	}

	a, err := alloc.New(st, cfg, alloc.Options{Logger: lg})
	if err != nil {
		_ = st.Close()
		return nil, nil, config.Config{}, err
	}
	return a, st, cfg, nil
}

// InitCmd creates a new allocator directory with a default config file.
type InitCmd struct {
	Dir     string `arg:"" help:"Directory for the allocator state"`
	Backend string `help:"Durable store backend (file or log)" default:"file" enum:"file,log"`
}

func (c *InitCmd) Run(rc *RunCtx) error {
	cfg := config.Default()
	cfg.Backend = c.Backend

	if _, err := config.Init(c.Dir); err != nil {
		cliutil.PrintError(fmt.Sprintf("init failed: %v", err))
		return err
	}
	if err := cfg.Save(c.Dir); err != nil {
		cliutil.PrintError(fmt.Sprintf("init failed: %v", err))
		return err
	}

	rc.Logger.Info("allocator initialized", "dir", c.Dir, "backend", c.Backend)
	fmt.Printf("initialized allocator at %s (backend=%s)\n", c.Dir, c.Backend)
	return nil
}

// NextCmd issues one or more identifiers.
type NextCmd struct {
	Dir     string `arg:"" help:"Allocator directory"`
	Count   int    `help:"Number of identifiers to issue" default:"1"`
	Retries uint64 `help:"Retries for transient store failures" default:"3"`
}

func (c *NextCmd) Run(rc *RunCtx) error {
	a, st, _, err := openAllocator(c.Dir, rc.Logger)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	defer func() {
		_ = a.Close()
		_ = st.Close()
	}()

	for i := 0; i < c.Count; i++ {
		id, err := a.NextWithRetry(context.Background(), c.Retries)
		if err != nil {
			cliutil.PrintError(fmt.Sprintf("allocation failed: %v", err))
			return err
		}
		fmt.Println(id)
	}
	return nil
}

// PeekCmd shows the durable counter without reserving anything.
type PeekCmd struct {
	Dir string `arg:"" help:"Allocator directory"`
}

func (c *PeekCmd) Run(rc *RunCtx) error {
	cfg, err := config.Load(c.Dir)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	st, err := openStore(c.Dir, cfg)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	defer func() { _ = st.Close() }()

	raw, ok, err := st.Get(cfg.CounterKey)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("read failed: %v", err))
		return err
	}
	if !ok {
		fmt.Printf("%d (unset, first use)\n", idseq.FirstID)
		return nil
	}

	v, err := store.DecodeCounter(raw)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("corrupt counter record: %v", err))
		return err
	}
	fmt.Println(v)
	return nil
}

// StatsCmd prints the durable counter state and effective configuration as
// JSON.
type StatsCmd struct {
	Dir string `arg:"" help:"Allocator directory"`
}

type statsReport struct {
	NextID    uint32        `json:"next_id"`
	Remaining uint64        `json:"remaining_id_space"`
	Config    config.Config `json:"config"`
}

func (c *StatsCmd) Run(rc *RunCtx) error {
	cfg, err := config.Load(c.Dir)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	st, err := openStore(c.Dir, cfg)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	defer func() { _ = st.Close() }()

	next := idseq.FirstID
	if raw, ok, err := st.Get(cfg.CounterKey); err != nil {
		cliutil.PrintError(fmt.Sprintf("read failed: %v", err))
		return err
	} else if ok {
		if next, err = store.DecodeCounter(raw); err != nil {
			cliutil.PrintError(fmt.Sprintf("corrupt counter record: %v", err))
			return err
		}
	}

	report := statsReport{
		NextID:    next,
		Remaining: uint64(math.MaxUint32) - uint64(next),
		Config:    cfg,
	}
	data, err := jsonutil.Marshal(report)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// HealthCmd classifies the stored counter state. Exits non-zero when
// critical.
type HealthCmd struct {
	Dir string `arg:"" help:"Allocator directory"`
}

func (c *HealthCmd) Run(rc *RunCtx) error {
	cfg, err := config.Load(c.Dir)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	st, err := openStore(c.Dir, cfg)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	defer func() { _ = st.Close() }()

	next := idseq.FirstID
	if raw, ok, err := st.Get(cfg.CounterKey); err != nil {
		cliutil.PrintError(fmt.Sprintf("read failed: %v", err))
		return err
	} else if ok {
		if next, err = store.DecodeCounter(raw); err != nil {
			cliutil.PrintError(fmt.Sprintf("corrupt counter record: %v", err))
			return err
		}
	}

	if next > math.MaxUint32-idseq.ExhaustionHeadroom {
		fmt.Printf("critical: identifier space nearly exhausted (next=%d)\n", next)
		return fmt.Errorf("identifier space nearly exhausted")
	}
	fmt.Printf("healthy: next=%d\n", next)
	return nil
}

// BenchCmd issues identifiers concurrently and reports throughput.
type BenchCmd struct {
	Dir     string `arg:"" help:"Allocator directory"`
	N       int    `help:"Total identifiers to issue" default:"100000"`
	Workers int    `help:"Concurrent workers" default:"8"`
}

func (c *BenchCmd) Run(rc *RunCtx) error {
	a, st, _, err := openAllocator(c.Dir, rc.Logger)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("open failed: %v", err))
		return err
	}
	defer func() {
		_ = a.Close()
		_ = st.Close()
	}()

	perWorker := c.N / c.Workers
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	start := time.Now()
	for w := 0; w < c.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := a.Next(); err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	if firstErr != nil {
		cliutil.PrintError(fmt.Sprintf("bench failed: %v", firstErr))
		return firstErr
	}

	issued := perWorker * c.Workers
	stats := a.StatsSnapshot()
	fmt.Printf("issued %d ids in %v (%.0f ids/sec)\n",
		issued, elapsed, float64(issued)/elapsed.Seconds())
	fmt.Printf("batches=%d store_writes=%d utilization=%.3f\n",
		stats.BatchAllocations, stats.StoreWrites, stats.Utilization())
	return nil
}
