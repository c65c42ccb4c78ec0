package capture

import (
	"reflect"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		trigger Trigger
		next    State
		effects []Effect
	}{
		{"start from idle", StateIdle, Trigger{Input: InputStart}, StateListening, []Effect{EffectBeginSession}},
		{"start while listening", StateListening, Trigger{Input: InputStart}, StateListening, nil},
		{"stop while listening", StateListening, Trigger{Input: InputStop}, StateIdle, []Effect{EffectEndSession}},
		{"stop while idle", StateIdle, Trigger{Input: InputStop}, StateIdle, nil},
		{"result while listening", StateListening, Trigger{Input: InputResult}, StateIdle, []Effect{EffectAppendInput}},
		{"late result after stop", StateIdle, Trigger{Input: InputResult}, StateIdle, []Effect{EffectAppendInput}},
		{"error while listening", StateListening, Trigger{Input: InputError}, StateIdle, []Effect{EffectNotify}},
		{"error after stop", StateIdle, Trigger{Input: InputError}, StateIdle, nil},
		{"end while listening", StateListening, Trigger{Input: InputEnd}, StateIdle, nil},
		{"end while idle", StateIdle, Trigger{Input: InputEnd}, StateIdle, nil},
		{"language while idle", StateIdle, Trigger{Input: InputLanguage}, StateIdle, []Effect{EffectRebindLanguage}},
		{"language while listening", StateListening, Trigger{Input: InputLanguage}, StateListening, []Effect{EffectHoldLanguage}},
		{"teardown while listening", StateListening, Trigger{Input: InputTeardown}, StateIdle, []Effect{EffectEndSession}},
		{"teardown while idle", StateIdle, Trigger{Input: InputTeardown}, StateIdle, nil},
		{"stale result while listening", StateListening, Trigger{Input: InputResult, Stale: true}, StateListening, nil},
		{"stale error while idle", StateIdle, Trigger{Input: InputError, Stale: true}, StateIdle, nil},
		{"stale end while listening", StateListening, Trigger{Input: InputEnd, Stale: true}, StateListening, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effects := Transition(tt.state, tt.trigger)
			if next != tt.next {
				t.Fatalf("next state = %s, want %s", next, tt.next)
			}
			if !reflect.DeepEqual(effects, tt.effects) {
				t.Fatalf("effects = %v, want %v", effects, tt.effects)
			}
		})
	}
}

func TestMessageForCodes(t *testing.T) {
	codes := map[ErrorCode]string{
		ErrorNoSpeech:     "No speech detected. Please try again.",
		ErrorAudioCapture: "Microphone not available. Check permissions.",
		ErrorNotAllowed:   "Permission to use microphone was denied.",
		ErrorNetwork:      "An error occurred during speech recognition.",
		"something-else":  "An error occurred during speech recognition.",
	}
	for code, want := range codes {
		if got := MessageFor(code); got != want {
			t.Fatalf("MessageFor(%s) = %q, want %q", code, got, want)
		}
	}
}

func TestClassifyDeviceError(t *testing.T) {
	if got := classifyDeviceError("default: Permission denied"); got != ErrorNotAllowed {
		t.Fatalf("got %s", got)
	}
	if got := classifyDeviceError("default: No such device"); got != ErrorAudioCapture {
		t.Fatalf("got %s", got)
	}
}
