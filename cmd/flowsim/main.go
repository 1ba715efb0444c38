// Command flowsim runs a flow document through the simulator against fake
// capabilities and prints the step ledger. Documents load from JSON or YAML;
// bundled scenarios run by name.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JimGeek/Super/pkg/capability"
	"github.com/JimGeek/Super/pkg/capability/fakecap"
	"github.com/JimGeek/Super/pkg/flow/flowbuilder"
	"github.com/JimGeek/Super/pkg/flow/ledger"
	"github.com/JimGeek/Super/pkg/flow/ledger/sqlitestore"
	"github.com/JimGeek/Super/pkg/flow/simulation"
	"github.com/JimGeek/Super/pkg/flow/validator"
	"github.com/JimGeek/Super/pkg/flowdoc"
	"github.com/JimGeek/Super/pkg/model/mflow"
	"github.com/JimGeek/Super/pkg/registry"

	"github.com/goccy/go-json"
)

func main() {
	var (
		flowPath     = flag.String("flow", "", "path to a flow document (.json or .yaml)")
		scenarioName = flag.String("scenario", "", "bundled scenario to run (order_payment, delivery_update)")
		payloadPath  = flag.String("payload", "", "path to a JSON trigger payload")
		dbPath       = flag.String("db", "", "SQLite file to archive the run ledger into")
		speed        = flag.Float64("speed", 1, "playback speed multiplier")
		stepDelay    = flag.Duration("step-delay", 250*time.Millisecond, "pause between nodes at 1x speed")
		instant      = flag.Bool("instant", false, "run without pacing")
		timeout      = flag.Duration("timeout", 30*time.Second, "default per-node timeout")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *flowPath, *scenarioName, *payloadPath, *dbPath, *speed, *stepDelay, *instant, *timeout); err != nil {
		logger.Error("simulation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, flowPath, scenarioName, payloadPath, dbPath string, speed float64, stepDelay time.Duration, instant bool, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flow, payload, err := loadFlow(flowPath, scenarioName, payloadPath)
	if err != nil {
		return err
	}

	reg := registry.Default()
	if flow.Status == mflow.FLOW_STATUS_DRAFT {
		if err := validator.Publish(flow, reg); err != nil {
			return err
		}
	} else if err := validator.Validate(flow, reg); err != nil {
		return err
	}
	for _, issue := range validator.Check(flow, reg) {
		if issue.Severity == validator.SeverityWarning {
			logger.Warn("flow warning", slog.String("code", issue.Code), slog.String("detail", issue.Message))
		}
	}

	caps, _, _, _ := fakecap.NewSet()
	builder := flowbuilder.New(reg, caps, capability.DefaultRetryPolicy(), logger)

	opts := []simulation.Option{
		simulation.WithTimeout(timeout),
		simulation.WithBaseDelay(stepDelay),
	}
	if instant {
		opts = append(opts, simulation.WithClock(simulation.NewInstantClock(time.Now())))
	}
	ctrl := simulation.NewController(flow, builder, logger, opts...)
	if err := ctrl.SetSpeed(speed); err != nil {
		return err
	}

	if err := ctrl.Start(ctx, payload); err != nil {
		return err
	}
	ctrl.Play()

	var result simulation.RunResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var waitErr error
		result, waitErr = ctrl.Wait(gctx)
		return waitErr
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	led := ctrl.Ledger()
	printLedger(flow, result, led)

	if dbPath != "" {
		if err := archive(ctx, dbPath, flow, result, led); err != nil {
			return err
		}
		logger.Info("run archived", slog.String("db", dbPath), slog.String("run_id", result.RunID.String()))
	}

	if result.Err != nil {
		return result.Err
	}
	return nil
}

func loadFlow(flowPath, scenarioName, payloadPath string) (*mflow.Flow, map[string]any, error) {
	var payload map[string]any
	if payloadPath != "" {
		raw, err := os.ReadFile(payloadPath)
		if err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, nil, fmt.Errorf("decode payload: %w", err)
		}
	}

	if flowPath != "" {
		raw, err := os.ReadFile(flowPath)
		if err != nil {
			return nil, nil, err
		}
		var doc *flowdoc.Document
		switch strings.ToLower(filepath.Ext(flowPath)) {
		case ".yaml", ".yml":
			doc, err = flowdoc.DecodeYAML(raw)
		default:
			doc, err = flowdoc.DecodeJSON(raw)
		}
		if err != nil {
			return nil, nil, err
		}
		flow, err := doc.ToModel()
		if err != nil {
			return nil, nil, err
		}
		return flow, payload, nil
	}

	if scenarioName == "" {
		return nil, nil, fmt.Errorf("pass -flow or -scenario (available: %s)", scenarioNames())
	}
	for _, s := range simulation.Scenarios() {
		if s.Name == scenarioName {
			if payload == nil {
				payload = s.Trigger
			}
			return s.Flow, payload, nil
		}
	}
	return nil, nil, fmt.Errorf("unknown scenario %q (available: %s)", scenarioName, scenarioNames())
}

func scenarioNames() string {
	var names []string
	for _, s := range simulation.Scenarios() {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

func printLedger(flow *mflow.Flow, result simulation.RunResult, led *ledger.Ledger) {
	fmt.Printf("flow: %s  run: %s  state: %s\n", flow.Name, result.RunID, result.State)
	if led == nil {
		return
	}
	for _, record := range led.Records() {
		line := fmt.Sprintf("%3d  %-24s %-10s %6s", record.Seq, record.NodeName,
			mflow.StringNodeState(record.Status), record.Duration.Round(time.Millisecond))
		if record.Error != "" {
			line += "  " + record.Error
		}
		fmt.Println(line)
	}
	summary := result.Summary
	fmt.Printf("steps: %d total, %d completed, %d failed, %d skipped (%.0f%% completed)\n",
		summary.Total, summary.Completed, summary.Failed, summary.Skipped, summary.CompletionPercent())
}

func archive(ctx context.Context, dbPath string, flow *mflow.Flow, result simulation.RunResult, led *ledger.Ledger) error {
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runErr := ""
	if result.Err != nil {
		runErr = result.Err.Error()
	}
	run := ledger.RunRecord{
		ID:          result.RunID,
		FlowID:      flow.ID,
		FlowVersion: flow.Version,
		State:       result.State,
		StartedAt:   time.Now(),
		EndedAt:     time.Now(),
		Error:       runErr,
	}
	if records := led.Records(); len(records) > 0 {
		run.StartedAt = records[0].StartedAt
		last := records[len(records)-1]
		if !last.CompletedAt.IsZero() {
			run.EndedAt = last.CompletedAt
		}
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	return store.SaveSteps(ctx, led.Records())
}
