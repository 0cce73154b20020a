// Package setup holds the terminal configuration wizard and the welcome banner.
package setup

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/obchart/config"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is where the wizard writes the configuration.
const DefaultConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers collected by the wizard.
type Answers struct {
	Addr             string
	Data             string
	ReplayInterval   string
	RecorderEnabled  bool
	RecorderSymbol   string
	RecorderInterval string
	RecorderMaxRows  string
	RecorderOutput   string
}

// DefaultAnswers pre-fills the wizard.
func DefaultAnswers() Answers {
	return Answers{
		Addr:             config.DefaultAddr,
		ReplayInterval:   config.DefaultReplayInterval.String(),
		RecorderSymbol:   config.DefaultRecorderSymbol,
		RecorderInterval: config.DefaultRecorderPoll.String(),
		RecorderMaxRows:  strconv.Itoa(config.DefaultRecorderMaxRows),
	}
}

// Welcome prints the banner shown on the first run of the CLI.
func Welcome(w io.Writer) {
	fmt.Fprintln(w, headerStyle.Render("OBCHART"))
	fmt.Fprintln(w, lipgloss.NewStyle().Foreground(subtle).Render(
		"Order book snapshots in your browser.\nRun with --setup to create a config file, or --data rows.json to load snapshots.\n"))
}

// RunTUI launches the terminal configuration wizard and returns the path of the written config.
func RunTUI(path string) (string, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	a := DefaultAnswers()
	var confirm bool

	// step 1: welcome
	clearScreen()
	fmt.Println(headerStyle.Render("OBCHART CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's set up your order book dashboard.\n"))

	fmt.Println(stepStyle.Render("STEP 1: DASHBOARD"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&a.Addr).
				Validate(notEmpty("address")),
			huh.NewInput().
				Title("Snapshot data").
				Description("JSON file path or http(s) URL, empty to start without data").
				Value(&a.Data),
			huh.NewInput().
				Title("Replay interval").
				Description("e.g. 5s, 500ms").
				Value(&a.ReplayInterval).
				Validate(validateDuration),
		),
	).Run()
	if err != nil {
		return "", err
	}

	// recorder
	clearScreen()
	fmt.Println(headerStyle.Render("OBCHART CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: LIVE RECORDER"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Record live Binance depth snapshots?").
				Value(&a.RecorderEnabled),
		),
	).Run()
	if err != nil {
		return "", err
	}

	if a.RecorderEnabled {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Symbol").
					Description("Binance spot symbol, e.g. BTCUSDT").
					Value(&a.RecorderSymbol).
					Validate(notEmpty("symbol")),
				huh.NewInput().
					Title("Poll interval").
					Value(&a.RecorderInterval).
					Validate(validateDuration),
				huh.NewInput().
					Title("Snapshots to keep").
					Value(&a.RecorderMaxRows).
					Validate(validatePositive),
				huh.NewInput().
					Title("Dump file").
					Description("rows are written here on shutdown, empty to skip").
					Value(&a.RecorderOutput),
			),
		).Run()
		if err != nil {
			return "", err
		}
	}

	// confirmation
	clearScreen()
	fmt.Println(headerStyle.Render("OBCHART CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(Summary(a)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", errors.New("setup cancelled by user")
	}

	if err := WriteConfig(path, a); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting dashboard...", path)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return path, nil
}

// Summary renders the answers for the confirmation step.
func Summary(a Answers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Address: %s\nData: %s\nReplay: %s\n", a.Addr, orNone(a.Data), a.ReplayInterval)
	if a.RecorderEnabled {
		fmt.Fprintf(&b, "Recorder: %s every %s, keep %s\n", a.RecorderSymbol, a.RecorderInterval, a.RecorderMaxRows)
	} else {
		b.WriteString("Recorder: off\n")
	}
	return b.String()
}

// WriteConfig writes the answers as a YAML config readable by config.Get.
func WriteConfig(path string, a Answers) error {
	tmp, err := toConfig(a)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func toConfig(a Answers) (config.ConfigTmp, error) {
	var c config.ConfigTmp
	c.Addr = strings.TrimSpace(a.Addr)
	c.Data = strings.TrimSpace(a.Data)
	c.ReplayInterval = strings.TrimSpace(a.ReplayInterval)
	c.Log.Level = config.DefaultLogLevel

	if !a.RecorderEnabled {
		return c, nil
	}
	maxRows, err := strconv.Atoi(strings.TrimSpace(a.RecorderMaxRows))
	if err != nil {
		return config.ConfigTmp{}, errors.Wrapf(err, "invalid snapshots to keep %q", a.RecorderMaxRows)
	}
	c.Recorder.Enabled = true
	c.Recorder.Symbol = strings.ToUpper(strings.TrimSpace(a.RecorderSymbol))
	c.Recorder.Interval = strings.TrimSpace(a.RecorderInterval)
	c.Recorder.MaxRows = maxRows
	c.Recorder.Output = strings.TrimSpace(a.RecorderOutput)
	return c, nil
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func notEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", what)
		}
		return nil
	}
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a duration like 5s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
