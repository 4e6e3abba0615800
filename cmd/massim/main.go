package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"go-mas-sim/internal/blackboard"
	"go-mas-sim/internal/config"
	"go-mas-sim/internal/core"
	"go-mas-sim/internal/eventbus"
	"go-mas-sim/internal/indexdb"
	"go-mas-sim/internal/kernel"
	"go-mas-sim/internal/meta"
	"go-mas-sim/internal/models"
	"go-mas-sim/internal/trace"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "path to a scenario .yaml")
		until        = flag.Float64("until", 0, "simulated end time (overrides the scenario)")
		redisAddr    = flag.String("redis", "", "redis address for records and observations (optional)")
		topic        = flag.String("topic", "", "redis topic records are published on")
		traceDir     = flag.String("trace", "", "directory for <run>.jsonl.zst traces (optional)")
		dbPath       = flag.String("db", "", "sqlite index path (optional)")
		runID        = flag.String("run", "", "run identifier (default: random)")
		obsTTL       = flag.Duration("ttl", 0, "expiry of blackboard observations, 0 keeps them")
	)
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "missing -scenario")
		os.Exit(2)
	}
	sc, err := config.Load(*scenarioPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load scenario:", err)
		os.Exit(1)
	}
	if *until > 0 {
		sc.Until = *until
	}
	if *redisAddr != "" {
		sc.Observers.Redis = *redisAddr
	}
	if *topic != "" {
		sc.Observers.Topic = *topic
	}
	if *traceDir != "" {
		sc.Observers.Trace = *traceDir
	}
	if *dbPath != "" {
		sc.Observers.DB = *dbPath
	}
	if *runID == "" {
		*runID = uuid.NewString()
	}

	logger := log.New(os.Stderr, "massim ", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, sc, *runID, *obsTTL, logger); err != nil {
		fmt.Fprintln(os.Stderr, "run:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, sc config.Scenario, runID string, ttl time.Duration, logger *log.Logger) error {
	var observers []kernel.Observer
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Println("close:", err)
			}
		}
	}()

	var board *blackboard.RedisStore
	if sc.Observers.Redis != "" {
		opts := &redis.Options{Addr: sc.Observers.Redis}
		bus := eventbus.NewRedisBus(opts, sc.Observers.Topic, logger)
		closers = append(closers, bus.Close)
		observers = append(observers, bus)

		board = blackboard.NewRedisStore(opts, ttl, logger)
		closers = append(closers, board.Close)
		observers = append(observers, board)
	}
	var tw *trace.Writer
	if sc.Observers.Trace != "" {
		w, err := trace.NewWriter(sc.Observers.Trace, runID)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		tw = w
		closers = append(closers, w.Close)
		observers = append(observers, w)
	}
	var idx *indexdb.SQLiteIndex
	if sc.Observers.DB != "" {
		db, err := indexdb.OpenSQLite(sc.Observers.DB)
		if err != nil {
			return fmt.Errorf("index: %w", err)
		}
		idx = db
		closers = append(closers, db.Close)
		observers = append(observers, db)
	}

	coord := kernel.New(
		kernel.WithLogger(logger),
		kernel.WithRunID(runID),
		kernel.WithObservers(observers...),
	)
	exec := meta.NewExecutive(models.NewFactory(logger), coord, sc.Seed, logger)
	if err := exec.Populate(sc); err != nil {
		return err
	}
	if err := coord.Init(0); err != nil {
		return err
	}
	logger.Printf("run %s: %q with %d agents until t=%g", runID, sc.Name, len(exec.AgentIDs()), sc.Until)
	runErr := coord.Run(ctx, core.Time(sc.Until))
	if board != nil {
		if err := board.Flush(context.Background()); err != nil {
			logger.Println("blackboard flush:", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("run %s ok: steps=%d t=%g agents=%d\n", runID, coord.Steps(), coord.Now(), len(exec.AgentIDs()))
	if tw != nil {
		fmt.Printf("trace: %s\n", tw.Path())
	}
	if idx != nil {
		if n, err := idx.CountRecords(ctx, runID, ""); err == nil {
			fmt.Printf("index: %d records\n", n)
		}
	}
	return nil
}
