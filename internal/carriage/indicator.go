package carriage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Pattern is how the status LEDs present one state.
type Pattern struct {
	LED     int
	Flashes int
	Period  time.Duration
	Steady  bool
}

func (p Pattern) String() string {
	if p.Steady {
		return fmt.Sprintf("led=%d steady", p.LED)
	}
	return fmt.Sprintf("led=%d flashes=%d period=%s", p.LED, p.Flashes, p.Period)
}

const blinkPeriod = time.Second

var patterns = map[State]Pattern{
	StateStarted:         {LED: 0, Flashes: 5, Period: blinkPeriod},
	StateConnected:       {LED: 1, Flashes: 3, Period: blinkPeriod},
	StateFullSpeed:       {LED: 2, Steady: true},
	StateMaintainingPace: {LED: 3, Flashes: 4, Period: blinkPeriod},
	StateStopped:         {LED: 0, Steady: true},
	StateSlowForward:     {LED: 2, Flashes: 6, Period: blinkPeriod},
	StateSlowBackward:    {LED: 2, Flashes: 6, Period: blinkPeriod},
}

// PatternFor returns the indicator pattern for s.
func PatternFor(s State) Pattern {
	return patterns[s]
}

// IndicatorDriver presents carriage state on the status LEDs and drives the
// alignment sensor's IR emitter.
type IndicatorDriver interface {
	ShowPattern(state State, p Pattern)
	Flash()
	StopFlashing()
	SetIRLED(on bool)
}

// LogIndicator is the headless driver: every call becomes a log line.
type LogIndicator struct {
	logger zerolog.Logger
}

func NewLogIndicator(logger zerolog.Logger) *LogIndicator {
	return &LogIndicator{logger: logger.With().Str("component", "indicator").Logger()}
}

func (l *LogIndicator) ShowPattern(state State, p Pattern) {
	l.logger.Debug().
		Str("state", state.String()).
		Int("led", p.LED).
		Int("flashes", p.Flashes).
		Dur("period", p.Period).
		Bool("steady", p.Steady).
		Msg("carriage.LogIndicator.ShowPattern")
}

func (l *LogIndicator) Flash() {
	l.logger.Info().Msg("carriage.LogIndicator.Flash status led")
}

func (l *LogIndicator) StopFlashing() {
	l.logger.Debug().Msg("carriage.LogIndicator.StopFlashing")
}

func (l *LogIndicator) SetIRLED(on bool) {
	l.logger.Info().Bool("on", on).Msg("carriage.LogIndicator.SetIRLED")
}

type NopIndicator struct{}

func (NopIndicator) ShowPattern(State, Pattern) {}
func (NopIndicator) Flash()                     {}
func (NopIndicator) StopFlashing()              {}
func (NopIndicator) SetIRLED(bool)              {}
