// hidctl - command line client for a HID server
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/veltalldev/hid-server/internal/remote"
	"github.com/veltalldev/hid-server/internal/session"
)

var (
	serverURL string
	apiToken  string
	holdMs    int
	width     int
	height    int
	setScript string
	setStep   float64
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "hidctl",
		Short: "Control a HID macro server from the command line",
		Long: `hidctl talks to a running HID server over its HTTP API.

The server address comes from --server, the HID_SERVER_URL environment
variable, or defaults to http://127.0.0.1:8444. The API token comes from
--token or HID_SERVER_TOKEN.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server base URL (default: $HID_SERVER_URL or http://127.0.0.1:8444)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API token (default: $HID_SERVER_TOKEN)")

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			if err := c.Health(); err != nil {
				return fmt.Errorf("%s is not responding: %w", c.BaseURL(), err)
			}
			fmt.Printf("%s is healthy\n", c.BaseURL())
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current macro state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().Status()
			if err != nil {
				return err
			}
			fmt.Printf("State:   %s\n", st.Status)
			if st.CurrentScript != "" {
				fmt.Printf("Script:  %s\n", st.CurrentScript)
			}
			if st.StartedAt != "" {
				fmt.Printf("Started: %s\n", st.StartedAt)
			}
			return nil
		},
	}

	startCmd := &cobra.Command{
		Use:   "start <script>",
		Short: "Start a macro script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().StartMacro(args[0])
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the running macro",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().PauseMacro()
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused macro",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().ResumeMacro()
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running macro",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().StopMacro()
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	scriptsCmd := &cobra.Command{
		Use:   "scripts",
		Short: "List, upload or delete macro scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listScripts()
		},
	}

	scriptsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List scripts on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listScripts()
		},
	}

	scriptsUploadCmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := client().UploadScript(args[0], content)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	scriptsDeleteCmd := &cobra.Command{
		Use:   "delete <script>",
		Short: "Delete a script from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().DeleteScript(args[0])
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	scriptsCmd.AddCommand(scriptsListCmd, scriptsUploadCmd, scriptsDeleteCmd)

	keyCmd := &cobra.Command{
		Use:   "key <name>",
		Short: "Tap a single key (e.g. enter, f5, a)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().SendKey(args[0], holdMs)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	keyCmd.Flags().IntVar(&holdMs, "hold", 0, "Hold duration in milliseconds")

	comboCmd := &cobra.Command{
		Use:   "combo <combo>",
		Short: "Tap a key combination (e.g. ctrl+alt+delete)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().SendCombo(args[0], holdMs)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	comboCmd.Flags().IntVar(&holdMs, "hold", 0, "Hold duration in milliseconds")

	moveCmd := &cobra.Command{
		Use:   "move <x> <y>",
		Short: "Move the mouse to absolute screen coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parseXY(args[0], args[1])
			if err != nil {
				return err
			}
			res, err := client().MoveMouse(x, y)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	clickCmd := &cobra.Command{
		Use:   "click <x> <y>",
		Short: "Click at absolute screen coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parseXY(args[0], args[1])
			if err != nil {
				return err
			}
			res, err := client().Click(x, y)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}

	centerCmd := &cobra.Command{
		Use:   "center",
		Short: "Move the mouse to the center of the screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().MoveMouse(width/2, height/2)
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}
	centerCmd.Flags().IntVar(&width, "width", 1920, "Screen width in pixels")
	centerCmd.Flags().IntVar(&height, "height", 1080, "Screen height in pixels")

	cornersCmd := &cobra.Command{
		Use:   "corners",
		Short: "Visit the four screen corners, then the center",
		Long:  "Moves the mouse to each corner in turn with a short pause. Useful for checking that absolute positioning lands where it should.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			stops := [][2]int{
				{0, 0},
				{width - 1, 0},
				{width - 1, height - 1},
				{0, height - 1},
				{width / 2, height / 2},
			}
			for _, p := range stops {
				res, err := c.MoveMouse(p[0], p[1])
				if err != nil {
					return err
				}
				fmt.Println(res.Message)
				time.Sleep(700 * time.Millisecond)
			}
			return nil
		},
	}
	cornersCmd.Flags().IntVar(&width, "width", 1920, "Screen width in pixels")
	cornersCmd.Flags().IntVar(&height, "height", 1080, "Screen height in pixels")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Interactively nudge the mouse to find coordinates",
		Long: `Drives the mouse with typed commands, tracking the position locally.

  w/a/s/d  move up/left/down/right by the current step
  1-5      set step size, or by name: tiny small medium big huge
  c        click at the current position
  p        print the current position
  q        quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibrate(width, height)
		},
	}
	calibrateCmd.Flags().IntVar(&width, "width", 1920, "Screen width in pixels")
	calibrateCmd.Flags().IntVar(&height, "height", 1080, "Screen height in pixels")

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the local network for HID servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hosts, err := client().Discover()
			if err != nil {
				return err
			}
			if len(hosts) == 0 {
				fmt.Println("No servers found")
				return nil
			}
			for _, h := range hosts {
				scheme := "http"
				if h.TLS {
					scheme = "https"
				}
				line := fmt.Sprintf("%s://%s:%d", scheme, h.IP, h.Port)
				if h.Status != "" {
					line += fmt.Sprintf("  [%s]", h.Status)
				}
				if h.CurrentScript != "" {
					line += fmt.Sprintf("  %s", h.CurrentScript)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Show or update the shared session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().Session()
			if err != nil {
				return err
			}
			printSession(st)
			return nil
		},
	}

	sessionShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().Session()
			if err != nil {
				return err
			}
			printSession(st)
			return nil
		},
	}

	sessionSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Update session fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd session.Update
			if cmd.Flags().Changed("script") {
				upd.SelectedScript = &setScript
			}
			if cmd.Flags().Changed("step") {
				upd.StepSize = &setStep
			}
			if upd.SelectedScript == nil && upd.StepSize == nil {
				return fmt.Errorf("nothing to set: use --script and/or --step")
			}
			st, err := client().UpdateSession(upd)
			if err != nil {
				return err
			}
			printSession(st)
			return nil
		},
	}
	sessionSetCmd.Flags().StringVar(&setScript, "script", "", "Selected script name")
	sessionSetCmd.Flags().Float64Var(&setStep, "step", 0, "Step size (0.1 to 3.0)")

	sessionClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset the session state to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().ClearSession()
			if err != nil {
				return err
			}
			printSession(st)
			return nil
		},
	}

	sessionCmd.AddCommand(sessionShowCmd, sessionSetCmd, sessionClearCmd)

	debugCmd := &cobra.Command{
		Use:   "debug",
		Short: "Dump the server's debug report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := client().Debug()
			if err != nil {
				return err
			}
			printMap(info, "")
			return nil
		},
	}

	rootCmd.AddCommand(
		pingCmd, statusCmd, startCmd, pauseCmd, resumeCmd, stopCmd,
		scriptsCmd, keyCmd, comboCmd, moveCmd, clickCmd,
		centerCmd, cornersCmd, calibrateCmd, discoverCmd,
		sessionCmd, debugCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func client() *remote.Client {
	url := serverURL
	if url == "" {
		url = os.Getenv("HID_SERVER_URL")
	}
	if url == "" {
		url = "http://127.0.0.1:8444"
	}
	token := apiToken
	if token == "" {
		token = os.Getenv("HID_SERVER_TOKEN")
	}
	return remote.NewClient(url, token)
}

func listScripts() error {
	entries, err := client().Scripts()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No scripts on server")
		return nil
	}
	for _, e := range entries {
		marker := " "
		if e.HasImage {
			marker = "*"
		}
		fmt.Printf("%s %-40s %6d bytes  %s\n", marker, e.Name, e.Size, e.ModifiedAt)
	}
	return nil
}

func parseXY(xs, ys string) (int, int, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate: %s", xs)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate: %s", ys)
	}
	return x, y, nil
}

func printSession(st session.State) {
	if st.SelectedScript != "" {
		fmt.Printf("Selected script: %s\n", st.SelectedScript)
	} else {
		fmt.Println("Selected script: (none)")
	}
	fmt.Printf("Step size:       %.1f\n", st.StepSize)
	fmt.Printf("Last updated:    %s\n", st.LastUpdated.Format(time.RFC3339))
}

func printMap(m map[string]interface{}, indent string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if sub, ok := m[k].(map[string]interface{}); ok {
			fmt.Printf("%s%s:\n", indent, k)
			printMap(sub, indent+"  ")
			continue
		}
		fmt.Printf("%s%s: %v\n", indent, k, m[k])
	}
}

// Step sizes in screen pixels for the calibrate loop. Digits and names
// both select a step.
var calibrateSteps = map[string]int{
	"1": 1, "tiny": 1,
	"2": 3, "small": 3,
	"3": 7, "medium": 7,
	"4": 15, "big": 15,
	"5": 30, "huge": 30,
}

func runCalibrate(w, h int) error {
	c := client()
	x, y := w/2, h/2
	step := calibrateSteps["3"]

	if _, err := c.MoveMouse(x, y); err != nil {
		return err
	}
	fmt.Printf("Position (%d, %d), step %d. Commands: w/a/s/d move, 1-5 or tiny..huge step, c click, p print, q quit.\n", x, y, step)

	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if input == "" {
			continue
		}

		if s, ok := calibrateSteps[input]; ok {
			step = s
			fmt.Printf("Step %d\n", step)
			continue
		}

		switch input {
		case "w":
			y = clamp(y-step, h)
		case "s":
			y = clamp(y+step, h)
		case "a":
			x = clamp(x-step, w)
		case "d":
			x = clamp(x+step, w)
		case "c":
			res, err := c.Click(x, y)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Println(res.Message)
			continue
		case "p":
			fmt.Printf("Position (%d, %d)\n", x, y)
			continue
		case "q":
			return nil
		default:
			fmt.Println("Unknown command")
			continue
		}

		if _, err := c.MoveMouse(x, y); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("Position (%d, %d)\n", x, y)
	}
}
