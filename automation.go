package polysynth

import (
	"strconv"
	"strings"

	"github.com/cbegin/polysynth-go/internal/automation"
	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/plugins"
	"github.com/cbegin/polysynth-go/internal/units"
)

// Automation playback modes.
const (
	AutomationOnce     = units.PlayOnce
	AutomationLoop     = units.PlayLoop
	AutomationPingPong = units.PlayPingPong
)

// capture returns an automation capture for a facade getter/setter pair.
func capture(get func() float64, set func(float64)) func() func() {
	return func() func() {
		v := get()
		return func() { set(v) }
	}
}

func target(scale, offset float64, c func() func(), ins ...*graph.Input) automation.Target {
	return automation.Target{Scale: scale, Offset: offset, Inputs: ins, Capture: c}
}

// registerAutomations pre-builds one setup per control id. Curve values are
// in the units of the matching facade setter; each scaler maps them the
// same way the setter does.
func (e *Engine) registerAutomations() error {
	p := e.patch
	type entry struct {
		id      string
		targets []automation.Target
	}
	entries := []entry{
		{"delay_mix", []automation.Target{
			target(plugins.DelayWetScale, 0, capture(e.DelayMix, e.SetDelayMix), p.Delay.WetGains()...),
			target(-1, 1, nil, p.Distortion.DryGains()...),
		}},
		{"distortion_mix", []automation.Target{
			target(1, 0, capture(e.DistortionMix, e.SetDistortionMix), p.Distortion.DistGains()...),
			target(-1, 1, nil, p.Distortion.CleanGains()...),
		}},
		{"distortion_drive", []automation.Target{
			target(plugins.MaxDrive, 1, capture(e.Drive, e.SetDrive), p.Distortion.DriveInput()),
		}},
		{"delay_feedback", []automation.Target{
			target(1, 0, capture(e.DelayFeedback, e.SetDelayFeedback), p.Delay.FeedbackInput()),
		}},
		{"master_volume", []automation.Target{
			target(1, 0, capture(e.MasterVolume, e.SetMasterVolume), p.MasterVolumeInput()),
		}},
		{"resonator_damping", []automation.Target{
			target(1, 0, capture(e.ResonatorDamping, e.SetResonatorDamping), p.Resonator.DampingInput()),
		}},
		{"resonator_brightness", []automation.Target{
			target(1, 0, capture(e.ResonatorBrightness, e.SetResonatorBrightness), p.Resonator.BrightnessInput()),
		}},
		{"vibrato_depth", []automation.Target{
			target(plugins.VibratoRange, 0, capture(e.VibratoDepth, e.SetVibratoDepth), p.Vibrato.DepthInput()),
		}},
	}
	for line := 1; line <= 2; line++ {
		entries = append(entries, entry{"delay_time_" + strconv.Itoa(line), []automation.Target{
			target(1, 0, capture(
				func() float64 { return e.DelayTime(line) },
				func(v float64) { e.SetDelayTime(line, v) },
			), p.Delay.TimeInput(line)),
		}})
	}
	for which, name := range []string{"hyper_lfo_a", "hyper_lfo_b"} {
		entries = append(entries, entry{name, []automation.Target{
			target(1, 0, capture(
				func() float64 { return e.LFOFrequency(which) },
				func(v float64) { e.SetLFOFrequency(which, v) },
			), p.LFO.FrequencyInput(which)),
		}})
	}
	for i := 0; i < Voices; i++ {
		v := e.voices.Voice(i)
		n := strconv.Itoa(i)
		entries = append(entries,
			entry{"voice_gate_" + n, []automation.Target{
				target(1, 0, capture(
					func() float64 { return boolFloat(e.VoiceGate(i)) },
					func(x float64) { e.SetVoiceGate(i, x >= 0.5) },
				), v.GateInput()),
			}},
			entry{"voice_fm_depth_" + n, []automation.Target{
				target(1, 0, capture(
					func() float64 { return e.VoiceFMDepth(i) },
					func(x float64) { e.SetVoiceFMDepth(i, x) },
				), v.FMDepthInput()),
			}},
		)
	}
	for q := 0; q < Quads; q++ {
		entries = append(entries, entry{"quad_volume_" + strconv.Itoa(q), []automation.Target{
			target(1, 0, capture(
				func() float64 { return e.QuadVolume(q) },
				func(x float64) { e.SetQuadVolume(q, x) },
			), e.voices.QuadVolumeInputs(q)...),
		}})
	}
	for _, en := range entries {
		if err := e.auto.Register(en.id, en.targets...); err != nil {
			return err
		}
	}
	return nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// SetParameterAutomation plays a breakpoint curve into the targets of
// controlID, displacing manual control until it is cleared. times are in
// seconds; mode is AutomationOnce, AutomationLoop or AutomationPingPong.
// Unknown ids report false.
func (e *Engine) SetParameterAutomation(controlID string, times, values []float32, count int, duration float32, mode int) bool {
	if n, ok := strings.CutPrefix(controlID, "voice_gate_"); ok {
		if i, err := strconv.Atoi(n); err == nil {
			e.voices.SetIdle(i, false)
		}
	}
	ok := e.auto.Set(controlID, times, values, count, duration, mode)
	if ok {
		e.log.Debug("automation started", "id", controlID, "points", count, "duration", duration)
	}
	return ok
}

// ClearParameterAutomation stops the automation of controlID and restores the
// manual value it displaced. Clearing an inactive id is a no-op.
func (e *Engine) ClearParameterAutomation(controlID string) { e.auto.Clear(controlID) }

func (e *Engine) IsAutomationActive(controlID string) bool { return e.auto.IsActive(controlID) }

// ActiveAutomations lists the active control ids, sorted.
func (e *Engine) ActiveAutomations() []string { return e.auto.Active() }

// AutomationIDs lists every automatable control id, sorted.
func (e *Engine) AutomationIDs() []string { return e.auto.IDs() }
