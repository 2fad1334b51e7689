package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"sandglass/internal/ipc"

	sqlitestore "sandglass/internal/storage/sqlite"

	"github.com/spf13/cobra"
)

var (
	socketPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "sandglass-cli",
	Short: "CLI tool to interact with the Sandglass daemon",
	Long:  `A command-line interface to manage countdown timers (start, pause, list) on the running Sandglass daemon via its Unix socket.`,
}

// --- Client Helper Functions ---

// dialDaemon sends one command over the socket and returns the
// decoded response.
func dialDaemon(cmd ipc.Command) (ipc.Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return ipc.Response{}, err
	}
	defer conn.Close()

	// Set deadlines
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) // For response

	// Send command
	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return ipc.Response{}, fmt.Errorf("error sending command: %w", err)
	}

	// Receive response
	var resp ipc.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return ipc.Response{}, fmt.Errorf("error receiving response: %w", err)
	}
	return resp, nil
}

func sendCommand(cmd ipc.Command) {
	resp, err := dialDaemon(cmd)
	if err != nil {
		log.Fatalf("Error connecting to daemon socket (%s): %v\nIs the Sandglass daemon running?", socketPath, err)
	}

	// Print response
	if resp.Success {
		fmt.Println("Success:", resp.Message)
		if resp.Data != nil {
			// Pretty print JSON data if available
			prettyData, err := json.MarshalIndent(resp.Data, "", "  ")
			if err == nil {
				fmt.Println("Data:")
				fmt.Println(string(prettyData))
			} else {
				fmt.Println("Data (raw):", resp.Data)
			}
		}
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Message)
		os.Exit(1) // Exit with error code if command failed server-side
	}
}

// --- Command Definitions ---

// Ping Command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the Sandglass daemon is running",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdPing})
	},
}

// Start Command
var startCmd = &cobra.Command{
	Use:   "start <time input>",
	Short: "Start a timer from a time input like '10m', '5 minutes', 'tomorrow 9am' or '5pm'",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sa := ipc.StartTimerArgs{Input: strings.Join(args, " ")}
		sa.Title, _ = cmd.Flags().GetString("title")

		// Only ship overrides for flags the user actually set, so the
		// daemon's configured defaults cover the rest.
		if cmd.Flags().Changed("theme") {
			v, _ := cmd.Flags().GetString("theme")
			sa.Theme = &v
		}
		if cmd.Flags().Changed("sound") {
			v, _ := cmd.Flags().GetString("sound")
			sa.Sound = &v
		}
		if cmd.Flags().Changed("loop-sound") {
			v, _ := cmd.Flags().GetBool("loop-sound")
			sa.LoopSound = &v
		}
		if cmd.Flags().Changed("loop") {
			v, _ := cmd.Flags().GetBool("loop")
			sa.LoopTimer = &v
		}
		if cmd.Flags().Changed("popup") {
			v, _ := cmd.Flags().GetBool("popup")
			sa.PopUpWhenExpired = &v
		}
		if cmd.Flags().Changed("close-when-expired") {
			v, _ := cmd.Flags().GetBool("close-when-expired")
			sa.CloseWhenExpired = &v
		}

		sendCommand(ipc.Command{Name: ipc.CmdStartTimer, Args: sa})
	},
}

// timerActionCmd builds the commands that address a single timer. The
// id may be a unique prefix, or omitted entirely when only one timer
// is live.
func timerActionCmd(use, short, cmdName string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var id string
			if len(args) > 0 {
				id = args[0]
			}
			sendCommand(ipc.Command{Name: cmdName, Args: ipc.TimerIDArgs{ID: id}})
		},
	}
}

var (
	pauseCmd   = timerActionCmd("pause", "Pause a running timer", ipc.CmdPauseTimer)
	resumeCmd  = timerActionCmd("resume", "Resume a paused timer", ipc.CmdResumeTimer)
	stopCmd    = timerActionCmd("stop", "Stop a timer and silence its alarm", ipc.CmdStopTimer)
	restartCmd = timerActionCmd("restart", "Restart a duration timer from the top", ipc.CmdRestartTimer)
	getCmd     = timerActionCmd("get", "Show one timer in detail", ipc.CmdGetTimer)
	removeCmd  = timerActionCmd("remove", "Discard a timer and its saved state", ipc.CmdRemoveTimer)
)

// List Command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all timers",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdListTimers})
	},
}

// History Command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently used time inputs",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		// Prefer the daemon; it owns the database while running.
		if resp, err := dialDaemon(ipc.Command{Name: ipc.CmdRecentInputs, Args: ipc.RecentInputsArgs{Limit: limit}}); err == nil {
			if !resp.Success {
				log.Fatalf("Error: %s", resp.Message)
			}
			var data ipc.RecentInputsData
			raw, _ := json.Marshal(resp.Data)
			if err := json.Unmarshal(raw, &data); err != nil {
				log.Fatalf("Error decoding response data: %v", err)
			}
			printInputs(data.Inputs)
			return
		}

		// Daemon not running, read the database directly
		if _, err := os.Stat(dbPath); err != nil {
			log.Fatalf("Error: Database file not found at %s. Ensure the sandglass daemon has run or specify the path with --db.", dbPath)
		}
		store := sqlitestore.NewSQLiteStore(dbPath, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		inputs, err := store.RecentInputs(ctx, limit)
		if err != nil {
			log.Fatalf("Failed to read input history: %v", err)
		}
		printInputs(inputs)
	},
}

func printInputs(inputs []string) {
	if len(inputs) == 0 {
		fmt.Println("No input history.")
		return
	}
	for _, in := range inputs {
		fmt.Println(in)
	}
}

func main() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", ipc.SocketPath, "Path to the Sandglass daemon socket")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "sandglass.db", "Path to the Sandglass database file (used when the daemon is down)")

	// --- Start Flags ---
	startCmd.Flags().StringP("title", "t", "", "Title shown with the timer")
	startCmd.Flags().String("theme", "", "Theme key for the timer (e.g., 'blue', 'red-dark')")
	startCmd.Flags().String("sound", "", "Sound key played on expiry, empty for silence")
	startCmd.Flags().Bool("loop-sound", false, "Repeat the sound until the timer is stopped")
	startCmd.Flags().Bool("loop", false, "Start the timer over each time it expires")
	startCmd.Flags().Bool("popup", false, "Announce the expiry")
	startCmd.Flags().Bool("close-when-expired", false, "Discard the timer once it expires")

	// --- History Flags ---
	historyCmd.Flags().IntP("limit", "n", 10, "Maximum number of inputs to show")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)

	// --- Execute ---
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
