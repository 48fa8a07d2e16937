// Command termengine runs the terminal emulation engine: spawn sessions,
// list them, send them input, or serve them over HTTP/WebSocket.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vt100go/termengine/pkg/config"
	"github.com/vt100go/termengine/pkg/emulator"
	"github.com/vt100go/termengine/pkg/logging"
	"github.com/vt100go/termengine/pkg/recording"
	"github.com/vt100go/termengine/pkg/termserver"
	"github.com/vt100go/termengine/pkg/termsession"
)

var version = "dev"

var (
	controlPath string
	configFile  string

	listSessions  bool
	cleanupExited bool
	sessionName   string
	killSessionID string

	serve     bool
	port      string
	localhost bool
	network   bool
	password  string

	cols  int
	rows  int
	shell string

	replayFile string
)

var rootCmd = &cobra.Command{
	Use:   "termengine",
	Short: "A headless VT-style terminal emulator engine",
	Long: `termengine drives pseudo-terminal sessions through a from-scratch
ANSI/VT escape-sequence emulator and exposes them over HTTP/WebSocket,
or directly spawns and attaches to a command given on the command line.`,
	RunE: run,
	Args: cobra.ArbitraryArgs,
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultControlPath := filepath.Join(homeDir, ".termengine", "control")
	defaultConfigPath := filepath.Join(homeDir, ".termengine", "config.yaml")

	rootCmd.Flags().StringVar(&controlPath, "control-path", defaultControlPath, "Session control directory")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", defaultConfigPath, "Configuration file path")

	rootCmd.Flags().BoolVar(&listSessions, "list-sessions", false, "List all sessions")
	rootCmd.Flags().BoolVar(&cleanupExited, "cleanup-exited", false, "Remove exited sessions from disk")
	rootCmd.Flags().StringVar(&sessionName, "session", "", "Name or ID of an existing session to target")
	rootCmd.Flags().StringVar(&killSessionID, "kill", "", "Kill the session with this name or ID")

	rootCmd.Flags().BoolVar(&serve, "serve", false, "Start the HTTP/WebSocket server")
	rootCmd.Flags().StringVarP(&port, "port", "p", "4021", "Server port")
	rootCmd.Flags().BoolVar(&localhost, "localhost", false, "Bind to 127.0.0.1 only")
	rootCmd.Flags().BoolVar(&network, "network", false, "Bind to all interfaces")
	rootCmd.Flags().StringVar(&password, "password", "", "Basic auth password for the HTTP API")

	rootCmd.Flags().IntVar(&cols, "cols", 0, "Terminal grid width for a newly created session")
	rootCmd.Flags().IntVar(&rows, "rows", 0, "Terminal grid height for a newly created session")
	rootCmd.Flags().StringVar(&shell, "shell", "", "Shell to spawn when no command is given")

	rootCmd.Flags().StringVar(&replayFile, "replay", "", "Play back a recording file instead of spawning a session")

	rootCmd.Flags().Bool("record", false, "Enable session recording")
	rootCmd.Flags().String("recording-path", "recordings", "Directory to persist recordings under")
	rootCmd.Flags().Bool("debug", false, "Enable debug logging (TERMENGINE_DEBUG)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("termengine v%s\n", version)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			config.LoadConfig(configFile).Print()
		},
	})
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig(configFile)
	cfg.MergeFlags(cmd.Flags())

	if replayFile != "" {
		return runReplay(replayFile)
	}

	if cfg.ControlPath != "" {
		controlPath = cfg.ControlPath
	}
	if cfg.Advanced.DebugMode {
		os.Setenv("TERMENGINE_DEBUG", "1")
	}

	manager := termsession.NewManager(controlPath)

	if cfg.Advanced.CleanupStartup {
		if err := manager.UpdateAllSessionStatuses(); err != nil {
			logging.Warnf("startup status refresh failed: %v", err)
		}
	}

	if listSessions {
		infos, err := manager.ListSessions()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		fmt.Printf("ID\t\tNAME\t\tSTATUS\t\tCOMMAND\n")
		for _, info := range infos {
			fmt.Printf("%s\t%s\t\t%s\t\t%s\n", info.ID[:8], info.Name, info.Status, info.Cmdline)
		}
		return nil
	}

	if cleanupExited {
		infos, err := manager.ListSessions()
		if err != nil {
			return err
		}
		for _, info := range infos {
			if info.Status == termsession.StatusExited {
				if err := manager.RemoveSession(info.ID); err != nil {
					logging.Warnf("failed to remove %s: %v", info.ID, err)
				}
			}
		}
		return nil
	}

	if killSessionID != "" {
		sess, err := manager.FindSession(killSessionID)
		if err != nil {
			return err
		}
		return manager.RemoveSession(sess.ID)
	}

	if serve {
		return startServer(cfg, manager)
	}

	if len(args) == 0 {
		shellPath := shell
		if shellPath == "" {
			shellPath = cfg.Terminal.DefaultShell
		}
		if shellPath != "" {
			args = []string{shellPath}
		}
	}

	recordingDir := ""
	if cfg.Recording.Enabled {
		recordingDir = cfg.Recording.Dir
	}

	sess, err := manager.CreateSession(termsession.Config{
		Name:         sessionName,
		Argv:         args,
		Width:        cfg.Terminal.Width,
		Height:       cfg.Terminal.Height,
		RecordingDir: recordingDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	fmt.Printf("created session %s (%s)\n", sess.ID, sess.ID[:8])
	return termsession.Attach(sess)
}

// runReplay loads a recording written by a --record session and drives
// it back through a from-snapshot Emulator step by step, repainting the
// screen to stdout as the recorded actions replay.
func runReplay(path string) error {
	rec, err := recording.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load recording: %w", err)
	}

	ctrl := recording.NewReplayControl(*rec)
	emu, err := emulator.FromSnapshot(ctrl.InitialState(), ctrl.IoHandle())
	if err != nil {
		return fmt.Errorf("failed to reconstruct emulator from recording: %w", err)
	}

	var lastVisible string
	for ctrl.CurrentPos() < ctrl.Len() {
		action := ctrl.Next()
		if action.Resize {
			if err := emu.SetWinSize(action.Width, action.Height); err != nil {
				logging.Warnf("replay: resize failed: %v", err)
			}
		}
		if err := emu.Read(); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		visible := string(emu.Data().Visible)
		if visible != lastVisible {
			lastVisible = visible
			fmt.Print("\x1b[2J\x1b[H" + visible)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func startServer(cfg *config.Config, manager *termsession.Manager) error {
	bind := "127.0.0.1"
	switch {
	case localhost:
		bind = "127.0.0.1"
	case network:
		bind = "0.0.0.0"
	case cfg.Server.AccessMode == "network":
		bind = "0.0.0.0"
	}

	srv := termserver.New(manager, password, cfg)

	addr := fmt.Sprintf("%s:%s", bind, cfg.Server.Port)
	fmt.Printf("termengine listening on %s\n", addr)
	fmt.Printf("control directory: %s\n", controlPath)
	if password != "" {
		fmt.Printf("basic auth enabled (username: admin)\n")
	}

	return http.ListenAndServe(addr, srv.Handler())
}
