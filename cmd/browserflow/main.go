package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/deepnoodle-ai/browserflow"
	"github.com/deepnoodle-ai/browserflow/httpapi"
	"github.com/deepnoodle-ai/browserflow/postgres"
	"github.com/fatih/color"
)

// CLI configuration
type Config struct {
	ConfigFile    string
	FlowsDir      string
	JournalDir    string
	AgentCommand  string
	Addr          string
	List          bool
	Delete        string
	Replay        string
	Parameterized bool
	Values        browserflow.ParameterValues
	Record        string
	Task          string
	Serve         bool
	Timeout       time.Duration
	Verbose       bool
	JSON          bool
}

func main() {
	config := parseFlags()

	serviceConfig := browserflow.DefaultConfig()
	if config.ConfigFile != "" {
		loaded, err := browserflow.LoadConfigFile(config.ConfigFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		serviceConfig = loaded
	}
	if config.FlowsDir != "" {
		serviceConfig.FlowsDir = config.FlowsDir
	}
	if config.JournalDir != "" {
		serviceConfig.JournalDir = config.JournalDir
	}
	if config.AgentCommand != "" {
		serviceConfig.AgentCommand = strings.Fields(config.AgentCommand)
	}
	if config.Addr != "" {
		serviceConfig.ListenAddr = config.Addr
	}

	logger := setupLogger(config.Verbose)
	store := createStore(serviceConfig)

	ctx := context.Background()
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	switch {
	case config.List:
		listFlows(ctx, store, config)
	case config.Delete != "":
		deleteFlow(ctx, store, config.Delete)
	case config.Replay != "":
		replayFlow(ctx, store, serviceConfig, logger, config)
	case config.Serve:
		serve(store, serviceConfig, logger)
	case config.Record != "":
		record(ctx, store, serviceConfig, logger, config)
	default:
		color.Red("Error: no operation requested")
		flag.Usage()
		os.Exit(1)
	}
}

func createStore(serviceConfig *browserflow.Config) browserflow.FlowStore {
	if serviceConfig.PostgresDSN != "" {
		store, err := postgres.Open(serviceConfig.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		if err := store.Initialize(context.Background()); err != nil {
			log.Fatalf("Failed to initialize postgres store: %v", err)
		}
		return store
	}
	store, err := browserflow.NewFileFlowStore(serviceConfig.FlowsDir)
	if err != nil {
		log.Fatalf("Failed to create flow store: %v", err)
	}
	return store
}

func createExecutor(serviceConfig *browserflow.Config) browserflow.AgentExecutor {
	if len(serviceConfig.AgentCommand) == 0 {
		log.Fatalf("Agent command is required (use -agent or the config file)")
	}
	executor, err := browserflow.NewProcessExecutor(serviceConfig.AgentCommand...)
	if err != nil {
		log.Fatalf("Failed to create agent executor: %v", err)
	}
	return executor
}

func createJournal(serviceConfig *browserflow.Config) browserflow.RunJournal {
	if serviceConfig.JournalDir == "" {
		return browserflow.NewNullRunJournal()
	}
	return browserflow.NewFileRunJournal(serviceConfig.JournalDir)
}

func listFlows(ctx context.Context, store browserflow.FlowStore, config *Config) {
	summaries, err := store.ListFlows(ctx)
	if err != nil {
		log.Fatalf("Failed to list flows: %v", err)
	}
	if config.JSON {
		json.NewEncoder(os.Stdout).Encode(summaries)
		return
	}
	if len(summaries) == 0 {
		color.Blue("No flows recorded yet")
		return
	}
	color.Cyan("Recorded flows:")
	for _, summary := range summaries {
		steps := fmt.Sprintf("%d steps", summary.StepCount)
		if summary.StepCount == browserflow.StepCountUnknown {
			steps = "unknown steps"
		}
		fmt.Printf("  %s  (%s, %d bytes, %s)\n",
			summary.Name, steps, summary.SizeBytes,
			summary.CreatedAt.Format(time.RFC3339))
	}
}

func deleteFlow(ctx context.Context, store browserflow.FlowStore, name string) {
	if err := store.DeleteFlow(ctx, name); err != nil {
		log.Fatalf("Failed to delete flow: %v", err)
	}
	color.Green("Deleted flow %q", name)
}

func replayFlow(ctx context.Context, store browserflow.FlowStore, serviceConfig *browserflow.Config, logger *slog.Logger, config *Config) {
	driver, err := browserflow.NewReplayDriver(browserflow.ReplayOptions{
		Store:     store,
		Executor:  createExecutor(serviceConfig),
		Logger:    logger,
		Journal:   createJournal(serviceConfig),
		Formatter: &consoleStepFormatter{},
		Prompter:  &consolePrompter{reader: bufio.NewReader(os.Stdin)},
	})
	if err != nil {
		log.Fatalf("Failed to create replay driver: %v", err)
	}

	var outcome *browserflow.ReplayOutcome
	startTime := time.Now()
	if config.Parameterized {
		color.Blue("Starting parameterized replay of %q", config.Replay)
		outcome, err = driver.ReplayFlowWithParameters(ctx, config.Replay, config.Values)
	} else {
		color.Blue("Starting replay of %q", config.Replay)
		outcome, err = driver.ReplayFlow(ctx, config.Replay)
	}
	if err != nil {
		color.Red("Replay failed: %v", err)
		os.Exit(1)
	}

	if config.JSON {
		json.NewEncoder(os.Stdout).Encode(outcome)
		return
	}
	color.Green("Replay completed in %v", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("  Task: %s\n", outcome.Task)
	fmt.Printf("  Steps: %d, Actions: %d\n", outcome.Result.StepCount(), outcome.Result.ActionCount())
}

func record(ctx context.Context, store browserflow.FlowStore, serviceConfig *browserflow.Config, logger *slog.Logger, config *Config) {
	task := strings.TrimSpace(config.Task)
	if task == "" {
		fmt.Print("Enter your task for the browser agent: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatalf("Failed to read task: %v", err)
		}
		task = strings.TrimSpace(line)
	}
	if task == "" {
		color.Red("No task provided")
		os.Exit(1)
	}

	recorder, err := browserflow.NewRecorder(browserflow.RecorderOptions{
		Store:           store,
		Executor:        createExecutor(serviceConfig),
		Logger:          logger,
		Journal:         createJournal(serviceConfig),
		StopGracePeriod: serviceConfig.StopGracePeriod(),
	})
	if err != nil {
		log.Fatalf("Failed to create recorder: %v", err)
	}

	color.Blue("Recording flow %q: %s", config.Record, task)
	if _, err := recorder.StartRecording(ctx, config.Record, task); err != nil {
		color.Red("Recording failed to start: %v", err)
		os.Exit(1)
	}

	// Block until the recording finishes or the user interrupts.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			color.Yellow("Stopping recording...")
			if _, err := recorder.StopRecording(context.Background()); err != nil {
				color.Red("Stop failed: %v", err)
				os.Exit(1)
			}
			color.Yellow("Recording stopped; no flow was saved")
			return
		case <-ticker.C:
			status := recorder.Status()
			if status.Active {
				continue
			}
			if status.Error != "" {
				color.Red("Recording failed: %s", status.Error)
				os.Exit(1)
			}
			color.Green("Flow %q saved", config.Record)
			return
		}
	}
}

func serve(store browserflow.FlowStore, serviceConfig *browserflow.Config, logger *slog.Logger) {
	executor := createExecutor(serviceConfig)
	journal := createJournal(serviceConfig)

	driver, err := browserflow.NewReplayDriver(browserflow.ReplayOptions{
		Store:    store,
		Executor: executor,
		Logger:   logger,
		Journal:  journal,
	})
	if err != nil {
		log.Fatalf("Failed to create replay driver: %v", err)
	}
	recorder, err := browserflow.NewRecorder(browserflow.RecorderOptions{
		Store:           store,
		Executor:        executor,
		Logger:          logger,
		Journal:         journal,
		StopGracePeriod: serviceConfig.StopGracePeriod(),
	})
	if err != nil {
		log.Fatalf("Failed to create recorder: %v", err)
	}

	server, err := httpapi.NewServer(httpapi.Options{
		Store:    store,
		Driver:   driver,
		Recorder: recorder,
		Logger:   logger,
		Addr:     serviceConfig.ListenAddr,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Shut down cleanly on interrupt, stopping any active recording first.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		color.Yellow("Shutting down...")
		if recorder.Status().Active {
			if _, err := recorder.StopRecording(context.Background()); err != nil {
				logger.Warn("failed to stop active recording", "error", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	color.Green("Control surface listening on %s", serviceConfig.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !strings.Contains(err.Error(), "Server closed") {
		log.Fatalf("Server failed: %v", err)
	}
}

func parseFlags() *Config {
	config := &Config{
		Values: make(browserflow.ParameterValues),
	}

	flag.StringVar(&config.ConfigFile, "config", "", "Path to the YAML service configuration file")
	flag.StringVar(&config.FlowsDir, "flows", "", "Directory holding recorded flows")
	flag.StringVar(&config.JournalDir, "journal", "", "Directory holding run journals")
	flag.StringVar(&config.AgentCommand, "agent", "", "Agent command line, e.g. 'python browser_agent.py'")
	flag.StringVar(&config.Addr, "addr", "", "Control surface listen address")

	flag.BoolVar(&config.List, "list", false, "List recorded flows and exit")
	flag.StringVar(&config.Delete, "delete", "", "Delete the named flow and exit")
	flag.StringVar(&config.Replay, "replay", "", "Replay the named flow")
	flag.BoolVar(&config.Parameterized, "params", false, "Replay with parameter substitution (prompts for values)")
	flag.StringVar(&config.Record, "record", "", "Record a new flow under the given name")
	flag.StringVar(&config.Task, "task", "", "Task description for -record (prompted when omitted)")
	flag.BoolVar(&config.Serve, "serve", false, "Run the HTTP control surface")

	var valueFlags stringSlice
	flag.Var(&valueFlags, "set", "Parameter value in format name=value (can be used multiple times)")

	flag.DurationVar(&config.Timeout, "timeout", 0, "Operation timeout (e.g., 30s, 5m)")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging (shorthand)")
	flag.BoolVar(&config.JSON, "json", false, "Output results in JSON format")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Browserflow CLI - Record and replay browser agent flows

Usage: %s [options]

Examples:
  # Record a flow by running a task through the agent
  %s -agent 'python browser_agent.py' -record my_flow -task 'search for cats on google'

  # List recorded flows
  %s -list

  # Replay a flow verbatim
  %s -agent 'python browser_agent.py' -replay my_flow

  # Replay with substituted parameters
  %s -agent 'python browser_agent.py' -replay my_flow -params -set search_term=dogs

  # Run the HTTP control surface
  %s -agent 'python browser_agent.py' -serve -addr :5001

Options:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	for _, value := range valueFlags {
		parts := strings.SplitN(value, "=", 2)
		if len(parts) != 2 {
			fmt.Fprintf(os.Stderr, "Error: invalid value format '%s'. Use name=value\n", value)
			os.Exit(1)
		}
		config.Values[parts[0]] = parts[1]
	}

	return config
}

// Custom flag type for handling multiple values
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func setupLogger(verbose bool) *slog.Logger {
	if verbose {
		return browserflow.NewLogger()
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// consoleStepFormatter prints each recorded action before a literal replay.
type consoleStepFormatter struct{}

func (f *consoleStepFormatter) PrintStepAction(stepNumber int, actionName string, params map[string]any) {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte("{}")
	}
	fmt.Printf("  step %d: %s %s\n", stepNumber, color.CyanString(actionName), string(data))
}

// consolePrompter solicits replacement parameter values interactively.
type consolePrompter struct {
	reader *bufio.Reader
}

func (p *consolePrompter) PromptValue(param browserflow.Parameter) (string, error) {
	fmt.Printf("%s [%s]: ", param.Name, param.DefaultValue)
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
