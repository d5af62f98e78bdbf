package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/plusplusoneplusplus/taskgraph/internal/algorithms"
	"github.com/plusplusoneplusplus/taskgraph/internal/config"
	"github.com/plusplusoneplusplus/taskgraph/internal/dashboard"
	"github.com/plusplusoneplusplus/taskgraph/internal/depgraph"
	"github.com/plusplusoneplusplus/taskgraph/internal/execution"
	"github.com/plusplusoneplusplus/taskgraph/internal/executor"
	"github.com/plusplusoneplusplus/taskgraph/internal/graph/manager"
	"github.com/plusplusoneplusplus/taskgraph/internal/graph/neo4j"
	"github.com/plusplusoneplusplus/taskgraph/internal/healthgate"
	"github.com/plusplusoneplusplus/taskgraph/internal/observability"
	"github.com/plusplusoneplusplus/taskgraph/internal/scheduler"
	"github.com/plusplusoneplusplus/taskgraph/internal/server"
	"github.com/plusplusoneplusplus/taskgraph/internal/snapshot"
	temporalmod "github.com/plusplusoneplusplus/taskgraph/internal/temporal"
	"github.com/plusplusoneplusplus/taskgraph/internal/tui"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

func main() {
	var (
		configPath string
		jsonOutput bool
	)

	rootCmd := &cobra.Command{
		Use:     "taskgraph",
		Short:   "Graph-backed task scheduling and dependency analysis",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/taskgraph.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	var maxTasks int
	var dispatch bool
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run one scheduling pass and optionally dispatch ready tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(configPath, maxTasks, dispatch, jsonOutput)
		},
	}
	scheduleCmd.Flags().IntVar(&maxTasks, "max-tasks", 0, "Limit on ready tasks (0 = no limit)")
	scheduleCmd.Flags().BoolVar(&dispatch, "dispatch", false, "Dispatch ready tasks to the executor")

	var healthAddr string
	var dashboardAddr string
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the scheduling and monitoring loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(configPath, healthAddr, dashboardAddr)
		},
	}
	monitorCmd.Flags().StringVar(&healthAddr, "health-addr", ":8080", "Serve health checks and Prometheus metrics on this address")
	monitorCmd.Flags().StringVar(&dashboardAddr, "dashboard-addr", "", "Serve the web dashboard on this address (e.g. :9090)")

	var (
		labels       []string
		relType      string
		weightProp   string
		capacityProp string
		source       string
		sink         string
	)
	analyzeCmd := &cobra.Command{
		Use:   "analyze [topo|scc|bridges|articulation|mst|negative-cycles|maxflow|cycles|critical-path]",
		Short: "Run a graph algorithm over the stored graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := analyzeOptions{
				Labels:       labels,
				RelType:      relType,
				WeightProp:   weightProp,
				CapacityProp: capacityProp,
				Source:       source,
				Sink:         sink,
			}
			return runAnalyze(configPath, args[0], opts, jsonOutput)
		},
	}
	analyzeCmd.Flags().StringSliceVar(&labels, "label", nil, "Node labels to restrict the analysis to")
	analyzeCmd.Flags().StringVar(&relType, "rel-type", "DEPENDS_ON", "Relationship type to follow")
	analyzeCmd.Flags().StringVar(&weightProp, "weight-prop", "weight", "Relationship property holding edge weight")
	analyzeCmd.Flags().StringVar(&capacityProp, "capacity-prop", "capacity", "Relationship property holding edge capacity")
	analyzeCmd.Flags().StringVar(&source, "source", "", "Source node (maxflow, critical-path)")
	analyzeCmd.Flags().StringVar(&sink, "sink", "", "Sink node (maxflow, critical-path)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(configPath, jsonOutput)
		},
	}

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show scheduling health metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(configPath, jsonOutput)
		},
	}

	var exportFormat string
	var exportOut string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dependency graph for visualization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(configPath, exportFormat, exportOut)
		},
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "dot", "Output format: dot, mermaid, or json")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to file instead of stdout")

	var minHealth float64
	var maxFailRate float64
	gateCmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate schedule health gates, failing on violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(configPath, minHealth, maxFailRate, jsonOutput)
		},
	}
	gateCmd.Flags().Float64Var(&minHealth, "min-health", 50, "Minimum acceptable health score (0-100)")
	gateCmd.Flags().Float64Var(&maxFailRate, "max-fail-rate", 0.1, "Maximum acceptable ratio of failed tasks")

	var triageReport string
	triageCmd := &cobra.Command{
		Use:   "triage",
		Short: "Interactively triage failed and blocked tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(configPath, triageReport)
		},
	}
	triageCmd.Flags().StringVar(&triageReport, "report", "", "Write a JSON report of the decisions to this path")

	rootCmd.AddCommand(scheduleCmd, monitorCmd, analyzeCmd, statsCmd, metricsCmd,
		exportCmd, gateCmd, triageCmd, newSnapshotCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSnapshotCmd(configPath *string) *cobra.Command {
	var dir string
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and compare graph state snapshots",
	}
	snapshotCmd.PersistentFlags().StringVar(&dir, "dir", ".taskgraph/snapshots", "Snapshot store directory")

	var tag, description string
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the current task graph state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotCapture(*configPath, dir, tag, description)
		},
	}
	captureCmd.Flags().StringVar(&tag, "tag", "", "Tag the snapshot")
	captureCmd.Flags().StringVar(&description, "description", "", "Snapshot description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(dir)
		},
	}

	diffCmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two snapshots by ID or tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotDiff(dir, args[0], args[1])
		},
	}

	tagCmd := &cobra.Command{
		Use:   "tag <id> <tag>",
		Short: "Tag a stored snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := snapshot.NewStore(dir)
			if err != nil {
				return err
			}
			return store.Tag(args[0], args[1])
		},
	}

	snapshotCmd.AddCommand(captureCmd, listCmd, diffCmd, tagCmd)
	return snapshotCmd
}

// setup loads configuration and connects to the graph database.
func setup(ctx context.Context, configPath string) (*config.Config, *neo4j.Executor, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	config.ApplySecrets(ctx, cfg)

	if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		OutputPath: cfg.Audit.OutputPath,
	}); err != nil {
		return nil, nil, fmt.Errorf("audit: %w", err)
	}

	exec, err := neo4j.NewExecutor(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, cfg.Graph.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("graph: %w", err)
	}
	return cfg, exec, nil
}

// buildExecutor selects the process execution backend from configuration.
func buildExecutor(cfg *config.Config) (executor.ProcessExecutor, func(), error) {
	switch cfg.Executor.Backend {
	case "", "local":
		return executor.NewLocal(), func() {}, nil
	case "temporal":
		c, err := temporalclient.Dial(temporalclient.Options{
			HostPort:  cfg.Temporal.Host,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("temporal client: %w", err)
		}
		return temporalmod.NewExecutor(c, cfg.Temporal.TaskQueue), c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown executor backend %q", cfg.Executor.Backend)
	}
}

func runSchedule(configPath string, maxTasks int, dispatch, jsonOutput bool) error {
	ctx := context.Background()
	cfg, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	start := time.Now()
	sched := scheduler.New(exec)

	if cycles, err := sched.DetectCircularDependencies(ctx); err != nil {
		return err
	} else if len(cycles) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d dependency cycles detected\n", len(cycles))
		for _, c := range cycles {
			fmt.Fprintf(os.Stderr, "  cycle: %v\n", c)
		}
	}

	ready, err := sched.FindReadyTasks(ctx, maxTasks)
	if err != nil {
		return err
	}
	order, err := sched.ExecutionOrder(ctx, true, true, true)
	if err != nil {
		return err
	}

	dispatched := 0
	if dispatch {
		procs, cleanup, err := buildExecutor(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		in := execution.New(exec, neo4j.NewStore(exec), procs, slog.Default())
		for _, task := range ready {
			if task.Command == "" {
				continue
			}
			if _, err := in.Dispatch(ctx, task); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: dispatch %s: %v\n", task.ID, err)
				continue
			}
			dispatched++
		}
	}

	observability.Metrics().RecordSchedulerPass(time.Since(start), len(ready))
	observability.Audit().LogSchedulerPass(ctx, len(order), len(ready), dispatched, time.Since(start))

	if jsonOutput {
		out := map[string]any{
			"ready":      ready,
			"order":      order,
			"dispatched": dispatched,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Ready tasks: %d\n", len(ready))
	for _, t := range ready {
		fmt.Printf("  %-24s priority=%d", t.ID, t.Priority)
		if t.HasDeadline() {
			fmt.Printf(" deadline=%s", t.Deadline.Format(time.RFC3339))
		}
		fmt.Println()
	}
	fmt.Print(formatExecutionOrder(order))
	if dispatch {
		fmt.Printf("\nDispatched: %d\n", dispatched)
	}
	return nil
}

func formatExecutionOrder(order []scheduler.ScheduledTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nExecution order (%d tasks):\n", len(order))
	for i, st := range order {
		fmt.Fprintf(&b, "  %2d. %-24s score=%.2f\n", i+1, st.Task.ID, st.SchedulingScore)
	}
	return b.String()
}

func runMonitor(configPath, healthAddr, dashboardAddr string) error {
	ctx := context.Background()
	cfg, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	procs, cleanup, err := buildExecutor(cfg)
	if err != nil {
		exec.Close(ctx)
		return err
	}

	log := slog.Default()
	sched := scheduler.New(exec)
	in := execution.New(exec, neo4j.NewStore(exec), procs, log)

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "taskgraph",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		exec.Close(ctx)
		return fmt.Errorf("init tracing: %w", err)
	}

	srv := server.NewGracefulServer(nil, nil)
	srv.Health.RegisterCheck("graph", server.GraphHealthChecker(func(ctx context.Context) error {
		_, err := exec.Execute(ctx, "RETURN 1", nil)
		return err
	}))
	srv.Health.RegisterCheck("scheduler", server.SchedulerHealthChecker(func(ctx context.Context) (float64, error) {
		m, err := sched.SchedulingMetrics(ctx)
		if err != nil {
			return 0, err
		}
		return float64(m.HealthScore), nil
	}, 40))
	srv.Health.RegisterCheck("executor", server.ExecutorHealthChecker(func(ctx context.Context) (int, error) {
		running, err := procs.ListRunning(ctx)
		return len(running), err
	}))
	srv.Health.Mount("/metrics", observability.Metrics().Handler())

	srv.AddHook(server.GraphShutdownHook(exec.Close))
	srv.AddHook(server.TracingShutdownHook(tp.Shutdown))
	srv.AddHook(server.AuditLoggerShutdownHook(observability.Audit().Close))
	srv.RegisterHook("executor", 20, func(ctx context.Context) error {
		cleanup()
		return nil
	})

	var emitter *dashboard.Emitter
	runID := uuid.NewString()
	if dashboardAddr != "" {
		dash := dashboard.New(&dashboard.Config{ListenAddr: dashboardAddr})
		emitter = dash.Emitter
		go func() {
			if err := dash.Server.Start(); err != nil {
				log.Error("dashboard server", "error", err)
			}
		}()
		srv.AddHook(server.HTTPServerShutdownHook("dashboard", dash.Server.Stop))
		emitter.RunStarted(runID, "monitor", 0)
	}

	if err := srv.Start(healthAddr); err != nil {
		return err
	}
	log.Info("health server started", "addr", healthAddr)

	interval := cfg.Scheduler.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	log.Info("monitor loop started", "interval", interval, "backend", cfg.Executor.Backend)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-srv.Shutdown.ShutdownCh():
			log.Info("monitor loop stopped")
			srv.Wait()
			return nil
		case <-ticker.C:
		}

		start := time.Now()

		ready, err := sched.FindReadyTasks(ctx, cfg.Scheduler.MaxReadyTasks)
		if err != nil {
			log.Error("find ready tasks", "error", err)
			continue
		}
		dispatched := 0
		for _, task := range ready {
			if task.Command == "" {
				continue
			}
			if _, err := in.Dispatch(ctx, task); err != nil {
				log.Warn("dispatch failed", "task", task.ID, "error", err)
				continue
			}
			dispatched++
			if emitter != nil {
				emitter.TaskStarted(runID, task.ID)
			}
		}

		report, err := in.MonitorTick(ctx)
		if err != nil {
			log.Warn("monitor tick", "error", err)
		}
		if report != nil && (len(report.Completed) > 0 || len(report.Failed) > 0) {
			log.Info("tick", "completed", len(report.Completed), "failed", len(report.Failed), "newly_ready", len(report.NewlyReady))
			if emitter != nil {
				for _, id := range report.Completed {
					emitter.TaskCompleted(runID, id, 1)
				}
				for _, id := range report.Failed {
					emitter.TaskFailed(runID, id, nil, 1)
				}
			}
		}

		if sync, err := in.Synchronize(ctx); err != nil {
			log.Warn("synchronize", "error", err)
		} else if len(sync.Orphaned) > 0 || len(sync.Stale) > 0 {
			log.Warn("reconciliation drift", "orphaned", len(sync.Orphaned), "stale", len(sync.Stale))
		}

		observability.Metrics().RecordSchedulerPass(time.Since(start), len(ready))
		observability.Audit().LogSchedulerPass(ctx, 0, len(ready), dispatched, time.Since(start))
	}
}

type analyzeOptions struct {
	Labels       []string
	RelType      string
	WeightProp   string
	CapacityProp string
	Source       string
	Sink         string
}

func runAnalyze(configPath, algorithm string, opts analyzeOptions, jsonOutput bool) error {
	ctx := context.Background()
	_, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	engine := algorithms.New(exec)
	sched := scheduler.New(exec)

	var result any
	switch algorithm {
	case "topo":
		result, err = engine.TopologicalSort(ctx, opts.RelType, opts.Labels...)
	case "scc":
		result, err = engine.StronglyConnectedComponents(ctx, opts.RelType, opts.Labels...)
	case "bridges":
		result, err = engine.Bridges(ctx, opts.RelType, opts.Labels...)
	case "articulation":
		result, err = engine.ArticulationPoints(ctx, opts.RelType, opts.Labels...)
	case "mst":
		result, err = engine.MinimumSpanningTree(ctx, opts.RelType, opts.WeightProp, opts.Labels...)
	case "negative-cycles":
		result, err = engine.NegativeCycles(ctx, opts.RelType, opts.WeightProp, opts.Labels...)
	case "maxflow":
		if opts.Source == "" || opts.Sink == "" {
			return fmt.Errorf("maxflow requires --source and --sink")
		}
		result, err = engine.MaximumFlow(ctx, opts.RelType, opts.CapacityProp, opts.Source, opts.Sink)
	case "cycles":
		result, err = sched.DetectCircularDependencies(ctx)
	case "critical-path":
		if opts.Source == "" || opts.Sink == "" {
			return fmt.Errorf("critical-path requires --source and --sink")
		}
		result, err = sched.CalculateCriticalPath(ctx, opts.Source, opts.Sink)
	default:
		return fmt.Errorf("unknown algorithm %q", algorithm)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("%s:\n", algorithm)
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
	return nil
}

func runStats(configPath string, jsonOutput bool) error {
	ctx := context.Background()
	_, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	store := neo4j.NewStore(exec)
	m := manager.New(exec, store, store)
	stats, err := m.Stats(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Nodes:         %d\n", stats.NodeCount)
	fmt.Printf("Relationships: %d\n", stats.RelationshipCount)
	fmt.Printf("Density:       %.4f\n", stats.Density)
	fmt.Println("\nNodes by label:")
	for label, count := range stats.LabelCounts {
		fmt.Printf("  %-20s %d\n", label, count)
	}
	fmt.Println("\nRelationships by type:")
	for relType, count := range stats.TypeCounts {
		fmt.Printf("  %-20s %d\n", relType, count)
	}
	return nil
}

func runMetrics(configPath string, jsonOutput bool) error {
	ctx := context.Background()
	_, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	sched := scheduler.New(exec)
	m, err := sched.SchedulingMetrics(ctx)
	if err != nil {
		return err
	}
	observability.Metrics().HealthScoreGauge.Set(float64(m.HealthScore))

	if jsonOutput {
		data, _ := json.MarshalIndent(m, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Health: %d (%s)\n\n", m.HealthScore, m.HealthBand)
	fmt.Printf("Tasks by status:\n")
	for status, count := range m.StatusCounts {
		fmt.Printf("  %-12s %d\n", status, count)
	}
	fmt.Printf("\nOverdue:            %d\n", m.OverdueTasks)
	fmt.Printf("At risk (24h):      %d\n", m.AtRiskTasks)
	fmt.Printf("Resource conflicts: %d\n", m.ResourceConflicts)
	fmt.Printf("Max dependency depth: %d\n", m.MaxDependencyDepth)
	return nil
}

func runExport(configPath, format, output string) error {
	ctx := context.Background()
	_, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	g, err := depgraph.Build(ctx, exec)
	if err != nil {
		return err
	}

	var rendered []byte
	switch format {
	case "dot":
		rendered = []byte(depgraph.ExportDOT(g))
	case "mermaid":
		rendered = []byte(depgraph.ExportMermaid(g))
	case "json":
		rendered, err = depgraph.ExportJSON(g)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if output == "" {
		fmt.Println(string(rendered))
		return nil
	}
	return os.WriteFile(output, rendered, 0644)
}

func runGate(configPath string, minHealth, maxFailRate float64, jsonOutput bool) error {
	ctx := context.Background()
	_, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	sched := scheduler.New(exec)
	m, err := sched.SchedulingMetrics(ctx)
	if err != nil {
		return err
	}
	cycles, err := sched.DetectCircularDependencies(ctx)
	if err != nil {
		return err
	}
	ready, err := sched.FindReadyTasks(ctx, 0)
	if err != nil {
		return err
	}

	total := 0
	for _, count := range m.StatusCounts {
		total += count
	}

	gateCfg := healthgate.DefaultConfig()
	gateCfg.HealthScoreMin = minHealth
	gateCfg.MaxFailRate = maxFailRate

	pipeline := healthgate.BuildPipeline(gateCfg)
	result := pipeline.Run(&healthgate.EvalContext{
		HealthScore:       float64(m.HealthScore),
		TotalTasks:        total,
		ReadyTasks:        len(ready),
		StatusCounts:      m.StatusCounts,
		Cycles:            cycles,
		OverdueTasks:      m.OverdueTasks,
		AtRiskTasks:       m.AtRiskTasks,
		ResourceConflicts: m.ResourceConflicts,
	})

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Println(healthgate.FormatReport(result))
	}

	if result.Status == healthgate.GateFailed {
		return fmt.Errorf("health gates failed: %s", result.Summary)
	}
	return nil
}

func runTriage(configPath, reportPath string) error {
	ctx := context.Background()
	cfg, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	sched := scheduler.New(exec)
	m, err := sched.SchedulingMetrics(ctx)
	if err != nil {
		return err
	}
	tasks, prereqs, err := sched.TaskView(ctx)
	if err != nil {
		return err
	}

	graphName := cfg.Graph.Database
	if graphName == "" {
		graphName = "neo4j"
	}

	session := tui.NewTriageSession(graphName, float64(m.HealthScore), tasks, prereqs)
	if len(session.Items) == 0 {
		fmt.Println("No stuck tasks to triage.")
		return nil
	}

	final, err := tui.RunTriage(session)
	if err != nil {
		return err
	}

	if reportPath != "" {
		if err := tui.SaveTriageReport(final, reportPath); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", reportPath)
	}
	return nil
}

func runSnapshotCapture(configPath, dir, tag, description string) error {
	ctx := context.Background()
	_, exec, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer exec.Close(ctx)

	sched := scheduler.New(exec)
	m, err := sched.SchedulingMetrics(ctx)
	if err != nil {
		return err
	}

	snap, states, err := snapshot.Capture(ctx, exec)
	if err != nil {
		return err
	}
	snap.Tag = tag
	snap.Description = description
	snap.HealthScore = float64(m.HealthScore)

	store, err := snapshot.NewStore(dir)
	if err != nil {
		return err
	}
	if err := store.Save(snap, states); err != nil {
		return err
	}

	fmt.Printf("Snapshot %s captured (%d tasks, %d edges)\n", snap.ID, len(snap.TaskManifest), len(snap.EdgeManifest))
	return nil
}

func runSnapshotList(dir string) error {
	store, err := snapshot.NewStore(dir)
	if err != nil {
		return err
	}
	summaries := store.List()
	if len(summaries) == 0 {
		fmt.Println("No snapshots stored.")
		return nil
	}

	fmt.Printf("%-12s %-16s %-20s %8s %8s %8s\n", "ID", "TAG", "CREATED", "TASKS", "EDGES", "HEALTH")
	for _, s := range summaries {
		fmt.Printf("%-12s %-16s %-20s %8d %8d %8.1f\n",
			s.ID, s.Tag, s.CreatedAt.Format("2006-01-02 15:04:05"), s.TaskCount, s.EdgeCount, s.HealthScore)
	}
	return nil
}

func runSnapshotDiff(dir, oldRef, newRef string) error {
	store, err := snapshot.NewStore(dir)
	if err != nil {
		return err
	}

	oldSnap, err := loadSnapshotRef(store, oldRef)
	if err != nil {
		return err
	}
	newSnap, err := loadSnapshotRef(store, newRef)
	if err != nil {
		return err
	}

	diff, err := snapshot.Diff(oldSnap, newSnap, store)
	if err != nil {
		return err
	}
	fmt.Println(snapshot.FormatDiff(diff))
	return nil
}

// loadSnapshotRef resolves a snapshot by ID first, then by tag.
func loadSnapshotRef(store *snapshot.Store, ref string) (*snapshot.Snapshot, error) {
	snap, err := store.Load(ref)
	if err == nil {
		return snap, nil
	}
	return store.FindByTag(ref)
}
