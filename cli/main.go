package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kardianos/service"

	"github.com/emberlens/ccwatt/cli/internal/output"
	"github.com/emberlens/ccwatt/internal/carbon"
	"github.com/emberlens/ccwatt/internal/config"
	"github.com/emberlens/ccwatt/internal/parser"
	"github.com/emberlens/ccwatt/internal/store"
	"github.com/emberlens/ccwatt/internal/syncer"
	"github.com/emberlens/ccwatt/pkg/logger"
)

const version = "0.3.1"

func main() {
	command := "daily"
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "daily", "total", "status", "ingest", "sync", "config", "remove":
			command = args[0]
			args = args[1:]
		case "--version", "-v":
			fmt.Printf("ccwatt version %s\n", version)
			return
		case "--help", "-h":
			usage()
			return
		}
	}

	switch command {
	case "daily", "total", "status":
		runReport(command, args)
	case "ingest":
		runIngest(args)
	case "sync":
		runSync(args)
	case "config":
		runConfig(args)
	case "remove":
		runRemove(args)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `ccwatt - energy and CO2 accounting for Claude Code usage

Usage: ccwatt [command] [options]

Commands:
  daily     Show per-day energy/CO2 report (default)
  total     Show aggregate totals
  status    One-line summary for status bars
  ingest    Ingest one session transcript (hook entry point)
  sync      Deliver accounting records to the remote service
  config    Configure sync and display settings
  remove    Remove all records for a project

Examples:
  ccwatt
  ccwatt daily --project /home/me/src/api --json
  ccwatt ingest --transcript ~/.claude/projects/-home-me-src-api/abc123.jsonl
  ccwatt sync install --interval 30m
  ccwatt config --sync-enabled=true --account acct_123
`)
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runReport(command string, args []string) {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	var (
		project string
		jsonOut bool
		days    int
		compact bool
	)
	fs.StringVar(&project, "project", "", "Filter by project identifier")
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.IntVar(&days, "days", 30, "Number of days to show")
	fs.BoolVar(&compact, "compact", false, "Force compact table output")
	fs.BoolVar(&compact, "c", false, "Force compact table output")
	fs.Parse(args)

	cfg := mustLoadConfig()

	switch command {
	case "daily":
		buckets, err := store.ReadDailyStats(cfg.StoragePath, project, days)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading usage data: %v\n", err)
			os.Exit(1)
		}
		if jsonOut {
			output.PrintJSON(buckets)
			return
		}
		output.PrintDaily(buckets, output.TableOptions{ForceCompact: compact})

	case "total":
		totals, err := store.ReadTotals(cfg.StoragePath, project)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading usage data: %v\n", err)
			os.Exit(1)
		}
		if jsonOut {
			output.PrintJSON(totals)
			return
		}
		output.PrintTotals(totals)

	case "status":
		// Best effort: a status line must never fail the shell prompt
		totals, err := store.ReadTotals(cfg.StoragePath, project)
		if err != nil {
			totals = &store.Totals{}
		}
		fmt.Println(output.StatusLine(totals))
	}
}

func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var (
		transcript string
		project    string
		noSync     bool
	)
	fs.StringVar(&transcript, "transcript", "", "Path to the session's JSONL log")
	fs.StringVar(&project, "project", "", "Raw project path (skips directory-name decoding)")
	fs.BoolVar(&noSync, "no-sync", false, "Skip the background sync pass")
	fs.Parse(args)

	if transcript == "" {
		fmt.Fprintf(os.Stderr, "Error: --transcript is required\n")
		os.Exit(1)
	}

	cfg := mustLoadConfig()

	session, err := parser.ParseSession(transcript, project)
	if err != nil {
		// Ingestion failures degrade to "no data", never to a crash
		logger.Error().Err(err).Msg("ingest: parse failed")
		return
	}
	if session.Empty() {
		return
	}

	estimate := carbon.EstimateSession(session, carbon.DefaultEstimator())

	s, err := store.Open(cfg.StoragePath)
	if err != nil {
		logger.Error().Err(err).Msg("ingest: cannot open store")
		return
	}

	ensureInstallDefaults(s)

	// A user-chosen project name overrides automatic resolution
	if name, ok, err := s.GetProjectConfig(session.ProjectPath, store.ProjectKeyDisplayName); err == nil && ok {
		session.ProjectID = name
	}

	row := &store.SessionRow{
		SessionID:    session.SessionID,
		ProjectPath:  session.ProjectPath,
		ProjectID:    session.ProjectID,
		Usage:        session.Totals,
		EnergyWh:     estimate.Total.EnergyWh,
		CO2Grams:     estimate.Total.CO2Grams,
		PrimaryModel: session.PrimaryModel,
	}
	if err := s.UpsertSession(row); err != nil {
		logger.Error().Err(err).Str("session", session.SessionID).Msg("ingest: upsert failed")
		s.Close()
		return
	}
	s.Close()

	if noSync {
		return
	}

	// Fire-and-forget background sync with its own error boundary
	orch := syncer.New(cfg, syncer.NewClient(cfg.ResolvedEndpoint()))
	deb := syncer.NewDebouncer(orch, 2*time.Second)
	deb.Schedule(session.SessionID)
	deb.Wait()
}

// ensureInstallDefaults seeds first-run bookkeeping values
func ensureInstallDefaults(s *store.Store) {
	if _, ok, err := s.GetConfig(store.KeyAnonUserID); err == nil && !ok {
		s.SetConfig(store.KeyAnonUserID, uuid.NewString())
		s.SetConfig(store.KeyInstalledAt, time.Now().UTC().Format(time.RFC3339))
	}
}

// syncService implements service.Interface for background syncing
type syncService struct {
	interval time.Duration
	stop     chan struct{}
	logger   service.Logger
}

func (s *syncService) Start(svc service.Service) error {
	s.stop = make(chan struct{})
	go s.run()
	return nil
}

func (s *syncService) Stop(svc service.Service) error {
	close(s.stop)
	return nil
}

func (s *syncService) run() {
	// Sync immediately on start
	s.doSync()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.doSync()
		case <-s.stop:
			return
		}
	}
}

func (s *syncService) doSync() {
	cfg, err := config.Load()
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("Error loading config: %v", err)
		}
		return
	}

	orch := syncer.New(cfg, syncer.NewClient(cfg.ResolvedEndpoint()))
	synced, err := orch.SyncAll(context.Background())
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("Sync needs re-authentication: %v", err)
		}
		return
	}
	if synced > 0 && s.logger != nil {
		s.logger.Infof("Synced %d sessions", synced)
	}
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	var interval time.Duration
	fs.DurationVar(&interval, "interval", time.Hour, "Sync interval for service mode (e.g., 1h, 30m)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ccwatt sync [command] [options]

Commands:
  (none)      Sync once
  install     Install as a background service
  start       Start the background service
  stop        Stop the background service
  uninstall   Remove the background service
  status      Show service status

Options:
`)
		fs.PrintDefaults()
	}

	// Check for service commands before parsing flags
	var svcCommand string
	if len(args) > 0 {
		switch args[0] {
		case "install", "start", "stop", "uninstall", "status", "run":
			svcCommand = args[0]
			args = args[1:]
		}
	}

	fs.Parse(args)

	svcConfig := &service.Config{
		Name:        "ccwatt-sync",
		DisplayName: "ccwatt Sync Service",
		Description: "Delivers Claude Code carbon accounting records to the remote service",
		Arguments:   []string{"sync", "run", fmt.Sprintf("--interval=%s", interval)},
	}

	svc := &syncService{interval: interval}
	s, err := service.New(svc, svcConfig)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	switch svcCommand {
	case "install":
		if err := s.Install(); err != nil {
			log.Fatalf("Failed to install service: %v", err)
		}
		if err := s.Start(); err != nil {
			log.Fatalf("Service installed but failed to start: %v", err)
		}
		fmt.Printf("Service installed and started.\nSync interval: %s\n", interval)

	case "start":
		if err := s.Start(); err != nil {
			log.Fatalf("Failed to start service: %v", err)
		}
		fmt.Println("Service started.")

	case "stop":
		if err := s.Stop(); err != nil {
			log.Fatalf("Failed to stop service: %v", err)
		}
		fmt.Println("Service stopped.")

	case "uninstall":
		s.Stop() // ignore error
		if err := s.Uninstall(); err != nil {
			log.Fatalf("Failed to uninstall service: %v", err)
		}
		fmt.Println("Service uninstalled.")

	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Printf("Service status: not installed or error (%v)\n", err)
			return
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service status: running")
		case service.StatusStopped:
			fmt.Println("Service status: stopped")
		default:
			fmt.Println("Service status: unknown")
		}

	case "run":
		// Running as the installed service
		svcLogger, err := s.Logger(nil)
		if err == nil {
			svc.logger = svcLogger
		}
		if err := s.Run(); err != nil && svcLogger != nil {
			svcLogger.Error(err)
		}

	default:
		// One-time sync
		cfg := mustLoadConfig()
		orch := syncer.New(cfg, syncer.NewClient(cfg.ResolvedEndpoint()))
		synced, err := orch.SyncAll(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sync complete. %d sessions delivered.\n", synced)
	}
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var (
		show        bool
		syncEnabled string
		account     string
		displayName string
		endpoint    string
		project     string
		projectName string
	)
	fs.BoolVar(&show, "show", false, "Show current configuration")
	fs.StringVar(&syncEnabled, "sync-enabled", "", "Enable or disable sync (true/false)")
	fs.StringVar(&account, "account", "", "Account identifier for sync")
	fs.StringVar(&displayName, "display-name", "", "Display name reported to the service")
	fs.StringVar(&endpoint, "endpoint", "", "Accounting service URL (non-default gets its own local store)")
	fs.StringVar(&project, "project", "", "Project path for --project-name")
	fs.StringVar(&projectName, "project-name", "", "Display-name override for --project")
	fs.Parse(args)

	cfg := mustLoadConfig()

	if endpoint != "" {
		cfg.Endpoint = endpoint
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		// StoragePath depends on the endpoint; reload
		cfg = mustLoadConfig()
	}

	s, err := store.Open(cfg.StoragePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	if show {
		fmt.Printf("Endpoint: %s\n", cfg.ResolvedEndpoint())
		fmt.Printf("Store:    %s\n", cfg.StoragePath)
		for _, key := range []string{store.KeySyncEnabled, store.KeyAccountID, store.KeyDisplayName, store.KeyAnonUserID} {
			if v, ok, _ := s.GetConfig(key); ok {
				fmt.Printf("%s: %s\n", key, v)
			}
		}
		return
	}

	if syncEnabled != "" {
		if syncEnabled != "true" && syncEnabled != "false" {
			fmt.Fprintf(os.Stderr, "Error: --sync-enabled must be true or false\n")
			os.Exit(1)
		}
		s.SetConfig(store.KeySyncEnabled, syncEnabled)
	}
	if account != "" {
		s.SetConfig(store.KeyAccountID, account)
		// A new account invalidates the cached organization
		s.DeleteConfig(store.KeyOrgID)
	}
	if displayName != "" {
		s.SetConfig(store.KeyDisplayName, displayName)
	}
	if project != "" && projectName != "" {
		s.SetProjectConfig(project, store.ProjectKeyDisplayName, projectName)
	}

	fmt.Println("Configuration saved.")
}

func runRemove(args []string) {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	var project string
	fs.StringVar(&project, "project", "", "Project identifier to remove")
	fs.Parse(args)

	if project == "" {
		fmt.Fprintf(os.Stderr, "Error: --project is required\n")
		os.Exit(1)
	}

	cfg := mustLoadConfig()
	s, err := store.Open(cfg.StoragePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	n, err := s.DeleteProjectSessions(project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing project: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d sessions for %s\n", n, project)
}
