package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wisp-notify/wisp/internal/audio"
	"github.com/wisp-notify/wisp/internal/config"
	"github.com/wisp-notify/wisp/internal/lifecycle"
	"github.com/wisp-notify/wisp/internal/model"
	"github.com/wisp-notify/wisp/internal/surface"
)

var showOpts struct {
	position string
	timeout  string
	width    int
	name     string
	class    string
	noStack  bool
	sound    string
}

var showCmd = &cobra.Command{
	Use:   "show <message...>",
	Short: "Display a popup notification",
	Long: `Display a popup notification and block until it goes away.

The popup places itself below any popups already anchored to the same
screen position, stays up for the timeout, then removes itself. It also
goes away when clicked, when the process receives SIGTERM or SIGINT, or
when a "wisp clear" removes its record.

Examples:
  # Show a popup with the default style
  wisp show "Battery low"

  # Tag the popup so it can be cleared later
  wisp show --name timer --class reminder "Tea is ready"

  # Bottom-right popup that stays for a minute
  wisp show --position bottom-right --timeout 1m "Build finished"

  # Stay up until clicked or cleared
  wisp show --timeout 0 "Meeting in 5 minutes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	addShowFlags(showCmd)
	// The bare "wisp <message>" form shares the same flags.
	addShowFlags(rootCmd)
}

func addShowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&showOpts.position, "position", "p", "",
		"Screen position (top, bottom, left, right, top-left, top-right, bottom-left, bottom-right, center)")
	cmd.Flags().StringVarP(&showOpts.timeout, "timeout", "t", "",
		"How long the popup stays up (e.g., 5s, 1m; 0 = until dismissed)")
	cmd.Flags().IntVarP(&showOpts.width, "width", "w", 0,
		"Popup width in pixels")
	cmd.Flags().StringVar(&showOpts.name, "name", "",
		"Name tag for clearing this popup later")
	cmd.Flags().StringVar(&showOpts.class, "class", "",
		"Class tag shared by a group of popups")
	cmd.Flags().BoolVar(&showOpts.noStack, "no-stack", false,
		"Do not stack below other popups or claim a slot")
	cmd.Flags().StringVar(&showOpts.sound, "sound", "",
		"Sound file to play when the popup appears (wav, ogg, mp3)")
}

func runShow(cmd *cobra.Command, args []string) error {
	display := cfg.Display
	if showOpts.position != "" {
		display.Position = showOpts.position
	}
	if showOpts.width > 0 {
		display.Width = showOpts.width
	}
	if cmd.Flags().Changed("timeout") {
		var d config.Duration
		if err := d.UnmarshalText([]byte(showOpts.timeout)); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		display.Timeout = d
	}
	if showOpts.noStack {
		display.Stack = false
	}

	edge := model.Edge(display.Position)
	if !edge.Valid() {
		return fmt.Errorf("invalid position %q", display.Position)
	}

	message := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	player := audio.NewPlayer(logger)
	defer player.Close()

	client, err := surface.NewClient(logger)
	if err != nil {
		return err
	}

	create := func() (lifecycle.Surface, error) {
		popup, err := client.Create(surface.Options{
			Edge:    edge,
			Message: message,
			Display: &display,
		})
		if err != nil {
			return nil, err
		}
		playChime(player)
		return popup, nil
	}

	req := lifecycle.Request{
		Message:       message,
		Name:          showOpts.name,
		Class:         showOpts.class,
		Edge:          edge,
		Timeout:       display.Timeout.Duration(),
		Stack:         display.Stack,
		Gap:           display.Gap,
		DefaultOffset: display.DefaultOffset,
	}

	return lifecycle.New(stateStore, logger).Run(ctx, req, create)
}

// playChime starts the configured sound, if any. Playback failures never
// block the popup.
func playChime(player *audio.Player) {
	file := showOpts.sound
	volume := cfg.Audio.Volume
	if file == "" {
		if !cfg.Audio.Enabled {
			return
		}
		file = cfg.Audio.File
	}
	if file == "" {
		return
	}
	if err := player.Play(file, volume); err != nil {
		logger.Warn("failed to play sound", "file", file, "error", err)
	}
}
