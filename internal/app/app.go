package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sandglass/internal/config"
	"sandglass/internal/ipc"
	"sandglass/internal/sound"
	"sandglass/internal/storage"
	"sandglass/internal/theme"
	"sandglass/internal/timer"
	"sandglass/internal/timeutil"

	sqlitestore "sandglass/internal/storage/sqlite"
)

type App struct {
	cfg     *config.Config
	store   storage.Store
	manager *Manager
	themes  *theme.Registry
	sounds  *sound.Registry

	// --- Socket Handling ---
	socketPath string
	listener   *net.UnixListener

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:        cfg,
		socketPath: cfg.SocketPath,
		ctx:        ctx,
		cancel:     cancel,
	}

	// Initialize Storage
	a.store = sqlitestore.NewSQLiteStore(cfg.DatabasePath, cfg.HistoryCap)
	if err := a.store.Init(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Theme and sound registries start from the builtins; config may
	// point at extras on disk.
	a.themes = theme.NewRegistry()
	if cfg.ThemeFile != "" {
		if n, err := a.themes.LoadFile(cfg.ThemeFile); err != nil {
			log.Printf("Warning: Failed to load themes from %s: %v", cfg.ThemeFile, err)
		} else {
			log.Printf("Loaded %d themes from %s", n, cfg.ThemeFile)
		}
	}
	a.sounds = sound.NewRegistry()
	if cfg.SoundDir != "" {
		if n, err := a.sounds.LoadDir(cfg.SoundDir); err != nil {
			log.Printf("Warning: Failed to load sounds from %s: %v", cfg.SoundDir, err)
		} else {
			log.Printf("Loaded %d sounds from %s", n, cfg.SoundDir)
		}
	}

	a.manager = NewManager(a.store, sound.LogPlayer{}, a.themes, a.sounds, cfg.TimerOptions(), cfg.TickInterval())

	return a, nil
}

// setupSocket checks for existing socket and creates the listener
func (a *App) setupSocket() error {
	// Check if socket file exists and try connecting
	if _, err := os.Stat(a.socketPath); err == nil {
		// Socket file exists, try to connect
		conn, err := net.DialTimeout("unix", a.socketPath, 1*time.Second)
		if err == nil {
			// Connection successful - another instance is likely running
			conn.Close()
			return fmt.Errorf("socket %s already active, another instance might be running", a.socketPath)
		}
		// Connection failed - socket file is stale, remove it
		log.Printf("Stale socket file found at %s, removing.", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket file %s: %w", a.socketPath, err)
		}
	} else if !os.IsNotExist(err) {
		// Other error stating the file (permission denied?)
		return fmt.Errorf("error checking socket file %s: %w", a.socketPath, err)
	}

	// Resolve the address
	addr, err := net.ResolveUnixAddr("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("failed to resolve unix addr %s: %w", a.socketPath, err)
	}

	// Listen on the socket
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", a.socketPath, err)
	}

	a.listener = listener
	log.Printf("Listening for commands on %s", a.socketPath)
	return nil
}

// listenForCommands accepts connections and handles them
func (a *App) listenForCommands() {
	defer a.wg.Done()
	defer log.Println("Socket command listener stopped.")

	if a.listener == nil {
		log.Println("Error: Socket listener not initialized.")
		return
	}

	for {
		conn, err := a.listener.AcceptUnix()
		if err != nil {
			// Check if the error is due to the listener being closed
			select {
			case <-a.ctx.Done():
				log.Println("Listener closing due to context cancellation.")
				return // Expected error on shutdown
			default:
				log.Printf("Failed to accept connection: %v", err)
				// Avoid tight loop on persistent error
				if ne, ok := err.(net.Error); ok && !ne.Temporary() {
					log.Printf("Non-temporary accept error, stopping listener.")
					return
				}
				time.Sleep(100 * time.Millisecond) // Small delay before retrying
			}
			continue
		}
		// Handle each connection in a new goroutine
		a.wg.Add(1)
		go a.handleConnection(conn)
	}
}

// handleConnection reads command, processes it, and sends response
func (a *App) handleConnection(conn *net.UnixConn) {
	defer conn.Close()
	defer a.wg.Done()

	// Set a deadline for reading the command
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var cmd ipc.Command
	if err := decoder.Decode(&cmd); err != nil {
		if err != io.EOF {
			log.Printf("Failed to decode command: %v", err)
		}
		// Send error response even if decoding failed partially
		_ = encoder.Encode(ipc.Response{Success: false, Message: "Failed to decode command: " + err.Error()})
		return
	}

	// Reset read deadline
	conn.SetReadDeadline(time.Time{})
	// Set write deadline for response
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	log.Printf("Received command: %s", cmd.Name)

	// Process command
	response := a.processCommand(cmd)

	// Send response
	if err := encoder.Encode(response); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// processCommand routes the command to the correct handler
func (a *App) processCommand(cmd ipc.Command) ipc.Response {
	switch cmd.Name {
	case ipc.CmdPing:
		return ipc.Response{Success: true, Message: "pong"}

	case ipc.CmdStartTimer:
		var args ipc.StartTimerArgs
		if err := mapToStruct(cmd.Args, &args); err != nil {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
		}
		if args.Input == "" {
			return ipc.Response{Success: false, Message: "Input cannot be empty"}
		}
		info, err := a.manager.StartTimer(a.ctx, args)
		if err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		return ipc.Response{
			Success: true,
			Message: fmt.Sprintf("Timer %s started: %s", info.ID[:8], info.Target),
			Data:    info,
		}

	case ipc.CmdPauseTimer:
		return a.timerAction(cmd, a.manager.Pause)

	case ipc.CmdResumeTimer:
		return a.timerAction(cmd, a.manager.Resume)

	case ipc.CmdStopTimer:
		return a.timerAction(cmd, a.manager.Stop)

	case ipc.CmdRestartTimer:
		return a.timerAction(cmd, a.manager.Restart)

	case ipc.CmdGetTimer:
		var args ipc.TimerIDArgs
		if err := mapToStruct(cmd.Args, &args); err != nil {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
		}
		info, err := a.manager.Get(args.ID)
		if err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		return ipc.Response{Success: true, Data: info}

	case ipc.CmdListTimers:
		infos := a.manager.List()
		return ipc.Response{
			Success: true,
			Message: fmt.Sprintf("%d active timers", len(infos)),
			Data:    ipc.TimerListData{Timers: infos},
		}

	case ipc.CmdRemoveTimer:
		var args ipc.TimerIDArgs
		if err := mapToStruct(cmd.Args, &args); err != nil {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
		}
		id, err := a.manager.Remove(a.ctx, args.ID)
		if err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Timer %s removed", id[:8])}

	case ipc.CmdRecentInputs:
		var args ipc.RecentInputsArgs
		if err := mapToStruct(cmd.Args, &args); err != nil {
			return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
		}
		inputs, err := a.manager.RecentInputs(a.ctx, args.Limit)
		if err != nil {
			return ipc.Response{Success: false, Message: err.Error()}
		}
		return ipc.Response{Success: true, Data: ipc.RecentInputsData{Inputs: inputs}}

	default:
		return ipc.Response{Success: false, Message: fmt.Sprintf("Unknown command: %s", cmd.Name)}
	}
}

// timerAction handles the commands that address one timer and return
// its refreshed description.
func (a *App) timerAction(cmd ipc.Command, action func(string) (ipc.TimerInfo, error)) ipc.Response {
	var args ipc.TimerIDArgs
	if err := mapToStruct(cmd.Args, &args); err != nil {
		return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
	}
	info, err := action(args.ID)
	if err != nil {
		return ipc.Response{Success: false, Message: err.Error()}
	}
	return ipc.Response{
		Success: true,
		Message: fmt.Sprintf("Timer %s is now %s", info.ID[:8], info.State),
		Data:    info,
	}
}

// Helper function to convert map[string]interface{} (from json unmarshal) to struct
func mapToStruct(input interface{}, output interface{}) error {
	if input == nil {
		return nil // No args provided, might be okay for some commands
	}
	// Convert map to JSON bytes
	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal args map: %w", err)
	}
	// Unmarshal JSON bytes into the target struct
	if err := json.Unmarshal(jsonBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal args into struct: %w", err)
	}
	return nil
}

func (a *App) Run() error {
	defer a.cleanup() // Ensure cleanup runs

	log.Println("Starting Sandglass daemon...")
	log.Printf("Config: %+v", a.cfg)

	// Bring saved timers back before accepting commands so list and
	// get see them from the first request.
	if n, err := a.manager.RestoreAll(a.ctx); err != nil {
		log.Printf("Warning: Failed to restore timers: %v", err)
	} else if n > 0 {
		log.Printf("Restored %d timers", n)
	}

	// --- Setup Socket ---
	if err := a.setupSocket(); err != nil {
		return fmt.Errorf("failed to set up socket: %w", err)
	}

	// Start signal handling
	a.handleSignals()

	// Start event processor
	a.wg.Add(1)
	go a.processEvents()

	// Re-apply defaults when the config file changes on disk
	config.Watch(func(cfg *config.Config) {
		a.manager.SetDefaults(cfg.TimerOptions(), cfg.TickInterval())
	})

	// --- Start Socket Listener ---
	a.wg.Add(1)
	go a.listenForCommands()

	log.Println("Sandglass daemon running. Send commands via sandglass-cli or socket.")
	<-a.ctx.Done() // Block here until context is cancelled

	log.Println("Shutdown signal received, waiting for components...")

	// Close the listener *before* waiting for goroutines to allow accept() to return
	if a.listener != nil {
		log.Println("Closing command socket listener...")
		if err := a.listener.Close(); err != nil {
			log.Printf("Error closing socket listener: %v", err)
		}
	}

	waitChan := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitChan)
	}()

	select {
	case <-waitChan:
		log.Println("All daemon goroutines finished.")
	case <-time.After(5 * time.Second):
		log.Println("Warning: Timeout waiting for daemon goroutines to stop.")
	}

	log.Println("Sandglass daemon finished.")
	return nil
}

// processEvents logs timer state changes as they happen
func (a *App) processEvents() {
	defer a.wg.Done()
	defer log.Println("Timer event processor stopped.")

	for {
		select {
		case <-a.ctx.Done():
			return
		case te := <-a.manager.Events():
			ev := te.Event
			switch ev.Kind {
			case timer.EventExpired:
				log.Printf("Timer %s: expired, over by %s", shortID(te.ID), timeutil.FormatDuration(ev.TimeExpired))
			default:
				log.Printf("Timer %s: %s, %s left", shortID(te.ID), ev.Kind, timeutil.FormatDuration(ev.TimeLeft))
			}
		}
	}
}

// handleSignals triggers a graceful shutdown on SIGINT or SIGTERM
func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v. Initiating shutdown...", sig)
		a.cancel() // Trigger context cancellation for graceful shutdown
	}()
}

// cleanup needs to ensure socket removal
func (a *App) cleanup() {
	log.Println("Running cleanup...")

	// Save a final snapshot of every timer before shutting down
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer saveCancel()
	a.manager.CloseAll(saveCtx)

	// Close storage
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}

	// --- Remove Socket File ---
	// Note: Listener is closed in Run() before wg.Wait()
	if _, err := os.Stat(a.socketPath); err == nil {
		log.Printf("Removing socket file: %s", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			log.Printf("Warning: Failed to remove socket file %s: %v", a.socketPath, err)
		}
	}

	log.Println("Cleanup finished.")
}
