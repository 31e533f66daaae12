// Package command turns free-text operator commands, typically voice
// transcriptions, into tracker actions and executes them.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/id"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/utils"
)

// Action is what a command asks the tracker to do
type Action string

const (
	ActionRotate        Action = "rotate"
	ActionTilt          Action = "tilt"
	ActionPreset        Action = "preset"
	ActionSetAngle      Action = "set_angle"
	ActionAutoOn        Action = "auto_on"
	ActionAutoOff       Action = "auto_off"
	ActionWeather       Action = "weather"
	ActionResetLocation Action = "reset_location"
	ActionHelp          Action = "help"
)

// DefaultStep is the angle change for spoken rotate and tilt commands
const DefaultStep = 15

var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrUnknownCommand = errors.New("unrecognized command")
)

// Command is a parsed command
type Command struct {
	ID        id.CommandID    `json:"id"`
	Text      string          `json:"text"`
	Action    Action          `json:"action"`
	Servo     servo.Servo     `json:"servo,omitempty"`
	Delta     int             `json:"delta,omitempty"`
	Angle     int             `json:"angle"`
	Preset    servo.Preset    `json:"preset,omitempty"`
	Direction servo.Direction `json:"direction,omitempty"`
	Place     string          `json:"place,omitempty"`
}

var (
	resetPattern     = regexp.MustCompile(`\b(?:reset|clear)\s+location\b|\blocation\s+reset\b`)
	counterPattern   = regexp.MustCompile(`\b(?:counter|anti)\b`)
	clockwisePattern = regexp.MustCompile(`\bclockwise\b`)
	panelPreset      = regexp.MustCompile(`\bpanel\s+(?:angle\s+|to\s+)?(zero|max)\b`)
	basePreset       = regexp.MustCompile(`\bbase\s+(?:position\s+|to\s+)?(zero|max)\b`)
	autoOnPattern    = regexp.MustCompile(`\bauto\s*mode\s+on\b|\bstart\s+tracking\b`)
	autoOffPattern   = regexp.MustCompile(`\bauto\s*mode\s+off\b|\bstop\s+tracking\b`)
	upPattern        = regexp.MustCompile(`\bup\b`)
	downPattern      = regexp.MustCompile(`\bdown\b`)
	weatherPattern   = regexp.MustCompile(`\bweather\b(?:\s+(?:for|in|at))?\s+(.+?)(?:\s+(?:please|now|today))?$`)
	helpPattern      = regexp.MustCompile(`\bhelp\b|\bwhat can i say\b`)
	numberPattern    = regexp.MustCompile(`\d{1,3}`)
	wordPattern      = regexp.MustCompile(`\b(base|panel|angle|set)\b`)
)

// Parser parses free-text commands
type Parser struct {
	step int
}

// NewParser creates a parser moving step degrees per rotate or tilt
func NewParser(step int) *Parser {
	if step <= 0 {
		step = DefaultStep
	}
	return &Parser{step: step}
}

// Step returns the rotate and tilt step
func (p *Parser) Step() int {
	return p.step
}

// Parse recognises text. Matching is case-insensitive and the first rule
// that matches wins, so "counter-clockwise" never reads as "clockwise" and a
// bare number is only considered when nothing else matched.
func (p *Parser) Parse(text string) (Command, error) {
	if err := utils.ValidateCommand(text); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	cmd := Command{ID: id.NewCommandID(), Text: strings.TrimSpace(text)}
	s := strings.Join(strings.Fields(strings.ToLower(cmd.Text)), " ")

	switch {
	case resetPattern.MatchString(s):
		cmd.Action = ActionResetLocation

	case counterPattern.MatchString(s),
		strings.Contains(s, "anticlockwise"), strings.Contains(s, "counterclockwise"):
		cmd.Action = ActionRotate
		cmd.Servo = servo.Base
		cmd.Direction = servo.CounterClockwise
		cmd.Delta = p.step

	case clockwisePattern.MatchString(s):
		cmd.Action = ActionRotate
		cmd.Servo = servo.Base
		cmd.Direction = servo.Clockwise
		cmd.Delta = -p.step

	case panelPreset.MatchString(s):
		cmd.Action = ActionPreset
		cmd.Servo = servo.Panel
		cmd.Preset = servo.Preset(panelPreset.FindStringSubmatch(s)[1])
		cmd.Angle = cmd.Preset.Angle()

	case basePreset.MatchString(s):
		cmd.Action = ActionPreset
		cmd.Servo = servo.Base
		cmd.Preset = servo.Preset(basePreset.FindStringSubmatch(s)[1])
		cmd.Angle = cmd.Preset.Angle()

	case autoOnPattern.MatchString(s):
		cmd.Action = ActionAutoOn

	case autoOffPattern.MatchString(s):
		cmd.Action = ActionAutoOff

	case upPattern.MatchString(s):
		cmd.Action = ActionTilt
		cmd.Servo = servo.Panel
		cmd.Delta = p.step

	case downPattern.MatchString(s):
		cmd.Action = ActionTilt
		cmd.Servo = servo.Panel
		cmd.Delta = -p.step

	case strings.Contains(s, "weather"):
		cmd.Action = ActionWeather
		cmd.Place = extractPlace(s)

	case helpPattern.MatchString(s):
		cmd.Action = ActionHelp

	default:
		if !parseAngle(s, &cmd) {
			return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Text)
		}
	}

	return cmd, nil
}

// extractPlace pulls the place out of a weather command. A trailing filler
// word on its own ("weather now") is not a place.
func extractPlace(s string) string {
	m := weatherPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	place := strings.TrimSpace(m[1])
	switch place {
	case "please", "now", "today", "for", "in", "at":
		return ""
	}
	return place
}

// parseAngle handles "set base to 120", "panel 45" and "angle 30". Without a
// servo named the panel is meant.
func parseAngle(s string, cmd *Command) bool {
	num := numberPattern.FindString(s)
	if num == "" {
		return false
	}
	word := wordPattern.FindString(s)
	if word == "" {
		return false
	}

	angle, err := strconv.Atoi(num)
	if err != nil {
		return false
	}

	cmd.Action = ActionSetAngle
	cmd.Angle = solar.Clamp(angle)
	cmd.Servo = servo.Panel
	if strings.Contains(s, "base") {
		cmd.Servo = servo.Base
	} else if strings.Contains(s, "panel") {
		cmd.Servo = servo.Panel
	}
	return true
}

// Help lists the spoken commands the parser understands
func Help() string {
	return `Voice Commands:

Base Rotation:
• 'Clockwise'
• 'Counter-clockwise' or 'Anti-clockwise'

Panel Tilt:
• 'Up' or 'Panel up'
• 'Down' or 'Panel down'

Panel Position:
• 'Panel zero' or 'Panel angle zero'
• 'Panel max' or 'Panel angle max'

Base Position:
• 'Base zero' or 'Base position zero'
• 'Base max' or 'Base position max'

Set Angle:
• 'Set base to 120' or 'Panel 45'

Auto Mode:
• 'Auto mode on' or 'Start tracking'
• 'Auto mode off' or 'Stop tracking'

Weather:
• 'Weather for [location]'

Location:
• 'Reset location' or 'Clear location'`
}
