// BrewPilot — a staged pour-over brewing companion.
//
// Usage:
//
//	brewpilot [-verbose] [-quiet] [-listen addr]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/chu3/brewpilot/internal/brew"
	"github.com/chu3/brewpilot/internal/bridge"
	"github.com/chu3/brewpilot/internal/conversation"
	"github.com/chu3/brewpilot/internal/cue"
	"github.com/chu3/brewpilot/internal/display"
	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
	"github.com/chu3/brewpilot/internal/method"
	"github.com/chu3/brewpilot/internal/notes"
	"github.com/chu3/brewpilot/internal/settings"
)

const appName = "brewpilot"

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".brewpilot-logs/brewpilot.log", "file to write logs to (use \"stderr\" to log to console)")
	noSound := flag.Bool("no-sound", false, "disable audio cues even if an output device is available")
	noHaptics := flag.Bool("no-haptics", false, "disable haptic (terminal bell) cues")
	listen := flag.String("listen", "", "serve session state over websocket on this address (overrides settings)")
	methodsDir := flag.String("methods", "", "directory of user method YAML files (default: <config>/brewpilot/methods)")
	equipment := flag.String("equipment", "", "equipment identifier recorded on brew notes")
	flag.Parse()

	// Configure logger.
	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the REPL stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Redirect Go's default log package (used by third-party libs) to
	// the same output so it doesn't spam the terminal.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	// Load user settings; flags win over the settings file.
	cfg, err := settings.Load(appName)
	if err != nil {
		log.Warn("settings: %v (using defaults)", err)
	}
	if *noSound {
		cfg.Sound = false
	}
	if *noHaptics {
		cfg.Haptics = false
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	// Set up context — cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire dependencies.
	methods := method.NewMemorySource(log)
	loadUserMethods(methods, *methodsDir, log)
	noteStore := notes.NewMemoryStore(log)

	// Audio is best-effort: a headless host still gets a working timer.
	var player *cue.Player
	if p, err := cue.NewPlayer(log); err != nil {
		log.Warn("audio init failed, sound cues disabled: %v", err)
	} else {
		player = p
	}
	var haptics domain.Haptics = cue.NewNoopHaptics()
	if cfg.Haptics {
		haptics = cue.NewTerminalHaptics()
	}
	sink := cue.NewSink(player, haptics, log.WithComponent("cue"))
	sink.SetSound(cfg.Sound)
	sink.SetHaptics(cfg.Haptics)

	// The app observer and the bridge are handed to the engine at
	// construction; their own engine references are bound just below.
	// Events only flow once a session starts, so the late binding is
	// safe.
	observer := &appObserver{lastIndex: -1}
	observers := brew.MultiObserver{observer}

	var eng *brew.Engine
	var br *bridge.Bridge
	if cfg.ListenAddr != "" {
		br = bridge.New(func() brew.Snapshot { return eng.Snapshot() }, log.WithComponent("bridge"))
		observers = append(observers, br)
	}

	eng = brew.New(observers, sink, log.WithComponent("engine"),
		brew.WithCountdownSeconds(cfg.CountdownSeconds),
		brew.WithPourDivisor(cfg.PourDivisor),
	)
	if *equipment != "" {
		eng.SetEquipment(*equipment)
	}
	if br != nil {
		go func() {
			if err := br.Serve(cfg.ListenAddr); err != nil {
				log.Error("bridge: %v", err)
			}
		}()
	}

	ui := display.NewUI(eng.Snapshot)
	notifier := conversation.NewCLINotifier(log, ui.Printf)
	parser := conversation.NewKeywordParser(log)

	// Nudge the user if a brew sits paused with the grounds steeping.
	minder := brew.NewMinder(eng, notifier, log.WithComponent("minder"))
	go minder.Run(ctx)

	// Build the CLI app.
	app := &cliApp{
		engine:   eng,
		methods:  methods,
		notes:    noteStore,
		parser:   parser,
		notifier: notifier,
		sink:     sink,
		cfg:      cfg,
		log:      log,
		ui:       ui,
	}
	observer.app = app

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	// Run app logic in a background goroutine.
	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal — blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
	eng.Reset()
	if br != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		_ = br.Shutdown(shutdownCtx)
		done()
	}
}

// loadUserMethods merges YAML methods from dir (or the default config
// location) into the catalog.
func loadUserMethods(src *method.MemorySource, dir string, log *logger.Logger) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return
		}
		dir = filepath.Join(configDir, appName, "methods")
	}
	loaded, err := method.LoadDir(dir, log)
	if err != nil {
		log.Warn("user methods: %v", err)
		return
	}
	for _, m := range loaded {
		if err := src.Add(m); err != nil {
			log.Warn("user method %s: %v", m.ID, err)
		}
	}
}

// ── Session observer ─────────────────────────────────────────────

// appObserver narrates session events into the REPL and persists the
// note when a brew completes. Callbacks arrive on the engine's tick
// goroutine; everything heavy is handed to UI print helpers which are
// thread-safe.
type appObserver struct {
	app *cliApp

	mu        sync.Mutex
	lastIndex int
}

func (o *appObserver) RunningChanged(running bool) {
	if running {
		o.app.ui.PrintChat("Brewing. Keep the kettle close.")
	}
}

func (o *appObserver) StageChanged(change domain.StageChange) {
	o.mu.Lock()
	entered := change.Index != o.lastIndex
	o.lastIndex = change.Index
	o.mu.Unlock()

	if entered {
		o.app.announceStage(change.Index)
	}
}

func (o *appObserver) ScheduleChanged(stages []domain.ExpandedStage) {
	o.mu.Lock()
	o.lastIndex = -1
	o.mu.Unlock()
}

func (o *appObserver) CountdownChanged(remaining int) {
	if remaining > 0 {
		o.app.ui.PrintStage(fmt.Sprintf("  %d...", remaining))
	}
}

func (o *appObserver) Completed(note domain.BrewNote, skipped bool) {
	a := o.app
	if err := a.notes.Save(context.Background(), &note); err != nil {
		a.log.Error("saving brew note: %v", err)
	}
	a.setLastNote(note.ID)

	if skipped {
		a.ui.PrintStage(fmt.Sprintf("Done (skipped ahead) — %s in %s.", note.MethodName, formatDuration(note.TotalTime)))
	} else {
		a.ui.PrintStage(fmt.Sprintf("Done! %s in %s.", note.MethodName, formatDuration(note.TotalTime)))
	}
	a.ui.PrintChat("Taste it, then 'rate 1-5 <comment>' to log this brew.")
}

func (o *appObserver) SessionReset() {
	o.mu.Lock()
	o.lastIndex = -1
	o.mu.Unlock()
}

// ── CLI app ──────────────────────────────────────────────────────

type cliApp struct {
	engine   *brew.Engine
	methods  *method.MemorySource
	notes    domain.NoteStore
	parser   domain.IntentParser
	notifier domain.Notifier
	sink     *cue.Sink
	cfg      settings.Settings
	log      *logger.Logger
	ui       *display.UI

	mu         sync.Mutex
	methodList []domain.MethodSummary // cached for numeric selection
	lastNoteID string                 // most recent completed brew
}

func (a *cliApp) setLastNote(id string) {
	a.mu.Lock()
	a.lastNoteID = id
	a.mu.Unlock()
}

func (a *cliApp) run(ctx context.Context) {
	a.ui.PrintChat("Hey! Pick a method and let's brew.")
	a.ui.Println("")
	a.showMethods(ctx)

	uiCh := a.ui.InputChan()

	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-uiCh:
			if !ok {
				return
			}
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}

		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		a.handleIntent(ctx, intent)
	}
}

func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) {
	switch intent.Type {
	case domain.IntentHelp:
		a.showHelp()
	case domain.IntentListMethods:
		a.showMethods(ctx)
	case domain.IntentSelectMethod:
		a.selectMethod(ctx, intent.Payload)
	case domain.IntentStart:
		a.start()
	case domain.IntentPause:
		a.pause()
	case domain.IntentResume:
		a.resume()
	case domain.IntentSkip:
		a.skip()
	case domain.IntentReset:
		a.reset()
	case domain.IntentStatus:
		a.status()
	case domain.IntentNotes:
		a.showNotes(ctx)
	case domain.IntentRate:
		a.rate(ctx, intent.Payload)
	case domain.IntentSoundOn:
		a.setSound(true)
	case domain.IntentSoundOff:
		a.setSound(false)
	case domain.IntentQuit:
		a.quit()
	case domain.IntentUnknown:
		a.ui.PrintHint(fmt.Sprintf("Didn't catch that (%q). Type 'help' for commands.", intent.Payload))
	}
}

func (a *cliApp) showMethods(ctx context.Context) {
	list, err := a.methods.List(ctx)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error loading methods: %v", err))
		return
	}
	a.mu.Lock()
	a.methodList = list
	a.mu.Unlock()

	a.ui.PrintStage("Available methods:")
	a.ui.Println("")
	for i, m := range list {
		a.ui.PrintInstruction(fmt.Sprintf("[%d] %s", i+1, m.Name))
		a.ui.PrintHint(m.Description)
		if len(m.Tags) > 0 {
			a.ui.PrintHint("Tags: " + strings.Join(m.Tags, ", "))
		}
		a.ui.Println("")
	}
	a.ui.PrintChat("Pick a method by number, then 'start' when the water's hot.")
}

func (a *cliApp) selectMethod(ctx context.Context, payload string) {
	a.mu.Lock()
	list := a.methodList
	a.mu.Unlock()
	if list == nil {
		var err error
		list, err = a.methods.List(ctx)
		if err != nil {
			a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
			return
		}
	}

	id := ""
	if idx, err := strconv.Atoi(payload); err == nil {
		if idx < 1 || idx > len(list) {
			a.ui.PrintHint(fmt.Sprintf("No method number %d. 'list' shows what's available.", idx))
			return
		}
		id = list[idx-1].ID
	} else {
		// Try exact ID first, then a search.
		if _, err := a.methods.Get(ctx, payload); err == nil {
			id = payload
		} else {
			found, err := a.methods.Search(ctx, payload)
			if err != nil || len(found) == 0 {
				a.ui.PrintHint(fmt.Sprintf("No method matching %q.", payload))
				return
			}
			id = found[0].ID
		}
	}

	m, err := a.methods.Get(ctx, id)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		return
	}

	a.engine.SetMethod(m)
	a.showMethodDetail(m)
	a.ui.PrintChat("Type 'start' when you're ready.")
}

func (a *cliApp) showMethodDetail(m *domain.Method) {
	a.ui.PrintStage(fmt.Sprintf("=== %s ===", m.Name))
	a.ui.PrintInstruction(m.Description)
	a.ui.PrintHint(fmt.Sprintf("%.0fg coffee / %.0fg water (%s), %s grind, %.0f°C",
		m.Params.CoffeeGrams, m.Params.WaterGrams, m.Params.Ratio, m.Params.Grind, m.Params.TempCelsius))

	a.ui.Println("")
	a.ui.PrintStage("Schedule:")
	for _, s := range a.engine.ExpandedStages() {
		line := fmt.Sprintf("  %5s–%-5s %-5s %s",
			formatDuration(s.Start), formatDuration(s.End), s.Kind, s.Label)
		if s.Kind == domain.StagePour {
			line += fmt.Sprintf(" → %s", s.Water)
		}
		a.ui.PrintInstruction(line)
	}
}

func (a *cliApp) start() {
	if a.engine.Method() == nil {
		a.ui.PrintChat("Pick a method first — 'list' shows them.")
		return
	}
	a.engine.Start()
}

func (a *cliApp) pause() {
	snap := a.engine.Snapshot()
	if snap.Phase != domain.PhaseRunning {
		a.ui.PrintHint("Nothing to pause.")
		return
	}
	a.engine.Pause()
	a.ui.PrintChat("Paused. The clock stops, the steeping doesn't.")
}

func (a *cliApp) resume() {
	if a.engine.Snapshot().Phase != domain.PhasePaused {
		a.ui.PrintHint("Not paused.")
		return
	}
	a.engine.Resume()
	a.ui.PrintChat("Back at it.")
}

func (a *cliApp) skip() {
	if err := a.engine.Skip(); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotRunning):
			a.ui.PrintHint("No brew in progress.")
		case errors.Is(err, domain.ErrSkipUnavailable):
			a.ui.PrintHint("Skip only works during the final drawdown.")
		default:
			a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		}
		return
	}
}

func (a *cliApp) reset() {
	a.engine.Reset()
	a.ui.PrintChat("Session reset. Fresh start whenever you are.")
}

func (a *cliApp) status() {
	snap := a.engine.Snapshot()
	switch snap.Phase {
	case domain.PhaseIdle:
		if snap.MethodName != "" {
			a.ui.PrintChat(fmt.Sprintf("%s loaded, not started. Type 'start' to brew.", snap.MethodName))
		} else {
			a.ui.PrintChat("Nothing brewing. 'list' shows the methods.")
		}
		return
	case domain.PhaseCountdown:
		a.ui.PrintChat(fmt.Sprintf("Starting in %d...", snap.Countdown))
		return
	case domain.PhaseCompleted:
		a.ui.PrintChat(fmt.Sprintf("%s finished in %s.", snap.MethodName, formatDuration(snap.Elapsed)))
		return
	}

	a.ui.PrintStage(fmt.Sprintf("Session: %s", shortID(snap.SessionID)))
	a.ui.PrintInstruction(fmt.Sprintf("Method:  %s", snap.MethodName))
	a.ui.PrintInstruction(fmt.Sprintf("Phase:   %s", snap.Phase))
	a.ui.PrintInstruction(fmt.Sprintf("Clock:   %s / %s", formatDuration(snap.Elapsed), formatDuration(snap.Total)))
	a.ui.PrintInstruction(fmt.Sprintf("Stage:   %d/%d %s", snap.StageIndex+1, snap.StageCount, snap.StageLabel))
	a.ui.PrintInstruction(fmt.Sprintf("Water:   %.0fg / %.0fg", snap.WaterNow, snap.WaterTarget))
	if !snap.Waiting && snap.FlowRate > 0 {
		a.ui.PrintHint(fmt.Sprintf("Flow:    %.1fg/s", snap.FlowRate))
	}
	if snap.Phase == domain.PhasePaused {
		a.ui.PrintHint(fmt.Sprintf("Paused for %s", formatDuration(snap.PausedFor)))
	}
}

func (a *cliApp) showNotes(ctx context.Context) {
	list, err := a.notes.List(ctx)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		return
	}
	if len(list) == 0 {
		a.ui.PrintChat("No brews logged yet.")
		return
	}

	a.ui.PrintStage("Brew log:")
	for _, n := range list {
		line := fmt.Sprintf("  %s  %-22s %6s", n.CreatedAt.Format("Jan 02 15:04"), n.MethodName, formatDuration(n.TotalTime))
		if n.Skipped {
			line += "  (skipped)"
		}
		if n.Rated() {
			line += fmt.Sprintf("  %d/5", n.Rating)
		}
		a.ui.PrintInstruction(line)
		if n.Comment != "" {
			a.ui.PrintHint("    " + n.Comment)
		}
	}
}

// rate parses "4" or "4 bright and sweet" and applies it to the most
// recent completed brew.
func (a *cliApp) rate(ctx context.Context, payload string) {
	a.mu.Lock()
	noteID := a.lastNoteID
	a.mu.Unlock()
	if noteID == "" {
		a.ui.PrintHint("No finished brew to rate yet.")
		return
	}

	fields := strings.Fields(payload)
	if len(fields) == 0 {
		a.ui.PrintHint("Usage: rate 1-5 [comment]")
		return
	}
	score, err := strconv.Atoi(fields[0])
	if err != nil {
		a.ui.PrintHint("Usage: rate 1-5 [comment]")
		return
	}
	comment := strings.Join(fields[1:], " ")

	if err := a.notes.Rate(ctx, noteID, score, domain.TasteRatings{}, comment); err != nil {
		if errors.Is(err, domain.ErrInvalidRating) {
			a.ui.PrintHint("Ratings go from 1 to 5.")
			return
		}
		a.ui.PrintUrgent(fmt.Sprintf("Error: %v", err))
		return
	}
	a.ui.PrintChat(fmt.Sprintf("Logged: %d/5. Noted for next time.", score))
}

func (a *cliApp) setSound(on bool) {
	a.sink.SetSound(on)
	a.cfg.Sound = on
	if err := settings.Save(appName, a.cfg); err != nil {
		a.log.Warn("saving settings: %v", err)
	}
	if on {
		a.ui.PrintChat("Sound cues on.")
	} else {
		a.ui.PrintChat("Sound cues off.")
	}
}

// announceStage prints the instruction for the stage the clock just
// entered. Called from the observer on stage transitions.
func (a *cliApp) announceStage(index int) {
	stages := a.engine.ExpandedStages()
	if index < 0 || index >= len(stages) {
		return
	}
	s := stages[index]

	if s.Kind == domain.StagePour {
		a.ui.PrintStage(fmt.Sprintf("Stage %d/%d: %s — pour to %s by %s",
			index+1, len(stages), s.Label, s.Water, formatDuration(s.End)))
	} else {
		a.ui.PrintStage(fmt.Sprintf("Stage %d/%d: %s — until %s",
			index+1, len(stages), s.Label, formatDuration(s.End)))
	}
	if s.Detail != "" {
		a.ui.PrintInstruction(s.Detail)
	}
	if s.ValveStatus != "" {
		a.ui.PrintHint("valve: " + s.ValveStatus)
	}
}

func (a *cliApp) quit() {
	snap := a.engine.Snapshot()
	if snap.Phase == domain.PhaseRunning || snap.Phase == domain.PhasePaused {
		a.engine.Reset()
		a.ui.PrintChat("Brew abandoned.")
	}
	a.ui.PrintChat("Happy brewing. Bye!")
	a.ui.Quit()
}

func (a *cliApp) showHelp() {
	a.ui.PrintStage("Commands:")
	a.ui.PrintInstruction("  list / methods   Show available brewing methods")
	a.ui.PrintInstruction("  1, 2, 3...       Select a method by number")
	a.ui.PrintInstruction("  pick <name>      Select a method by name or id")
	a.ui.PrintInstruction("  start / brew     Start the brew (after a short countdown)")
	a.ui.PrintInstruction("  pause / hold     Pause the clock")
	a.ui.PrintInstruction("  resume / back    Resume a paused brew")
	a.ui.PrintInstruction("  skip             End early during the final drawdown")
	a.ui.PrintInstruction("  reset            Abandon the session and return to idle")
	a.ui.PrintInstruction("  status / where   Show clock, stage, and water progress")
	a.ui.PrintInstruction("  notes / history  Show the brew log")
	a.ui.PrintInstruction("  rate 1-5 ...     Rate the last finished brew")
	a.ui.PrintInstruction("  sound on/off     Toggle audio cues")
	a.ui.PrintInstruction("  help             Show this message")
	a.ui.PrintInstruction("  quit / exit      Exit")
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
