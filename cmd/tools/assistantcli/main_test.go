package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTranslateOfflineUsesDictionary(t *testing.T) {
	out, err := execute(t, "translate", "--offline", "--from", "en", "--to", "bn", "breast cancer")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if strings.TrimSpace(out) != "স্তন ক্যান্সার" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTranslateRejectsUnknownLanguage(t *testing.T) {
	if _, err := execute(t, "translate", "--offline", "--to", "fr", "hello"); err == nil {
		t.Fatal("expected error for unsupported target language")
	}
}

func TestParseLanguageFlag(t *testing.T) {
	tag, err := parseLanguageFlag("lang", "bn-IN")
	if err != nil || tag != language.Bengali {
		t.Fatalf("got %q, %v", tag, err)
	}
	if tag, err := parseLanguageFlag("lang", ""); err != nil || tag != "" {
		t.Fatalf("empty flag: got %q, %v", tag, err)
	}
}

func TestAudioFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"clip.MP3":     "mp3",
		"/tmp/rec.pcm": "pcm",
		"noext":        "wav",
	}
	for path, want := range cases {
		if got := audioFormatFromPath(path); got != want {
			t.Fatalf("%s: expected %s, got %s", path, want, got)
		}
	}
}
