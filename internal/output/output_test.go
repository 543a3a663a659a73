package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func plain(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
}

func TestWriterSuccessJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := &Writer{JSONMode: true, Stdout: &stdout, Stderr: &stderr}

	w.Success(map[string]int{"updated": 3}, "3 updated")

	var env successEnvelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !env.OK {
		t.Error("ok = false, want true")
	}
	if env.Message != "3 updated" {
		t.Errorf("message = %q", env.Message)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T, want map", env.Data)
	}
	if data["updated"] != float64(3) {
		t.Errorf("data.updated = %v, want 3", data["updated"])
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestWriteJSONSuccessOmitsEmptyMessage(t *testing.T) {
	var buf bytes.Buffer
	writeJSONSuccess(&buf, "data", "")

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, exists := raw["message"]; exists {
		t.Error("message should be omitted when empty")
	}
}

func TestWriteJSONDoesNotEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	writeJSONSuccess(&buf, "https://git.example.com/a/b/-/merge_requests/1?x=1&y=2", "")
	if !bytes.Contains(buf.Bytes(), []byte("&y=2")) {
		t.Errorf("ampersand escaped: %s", buf.String())
	}
}

func TestWriterErrorJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := &Writer{JSONMode: true, Stdout: &stdout, Stderr: &stderr}

	code := w.Error(errors.New("no such finding"), ErrNotFound)
	if code != ExitNotFound {
		t.Errorf("exit code = %d, want %d", code, ExitNotFound)
	}

	var env errorEnvelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.OK || env.Error != "no such finding" || env.Code != ErrNotFound {
		t.Errorf("envelope = %+v", env)
	}
}

func TestWriterErrorHuman(t *testing.T) {
	plain(t)
	var stdout, stderr bytes.Buffer
	w := &Writer{Stdout: &stdout, Stderr: &stderr}

	code := w.Error(errors.New("fail"), ErrStorage)
	if code != ExitStorage {
		t.Errorf("exit code = %d, want %d", code, ExitStorage)
	}
	if stderr.String() != "Error: fail\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
}

func TestWriterSuccessHumanMultiline(t *testing.T) {
	var stdout bytes.Buffer
	w := &Writer{Stdout: &stdout}

	w.Success(nil, "a\nb")
	if stdout.String() != "a\nb\n" {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	w.Success(nil, "")
	if stdout.Len() != 0 {
		t.Errorf("empty message wrote %q", stdout.String())
	}
}

func TestWriterInfo(t *testing.T) {
	plain(t)
	tests := []struct {
		name string
		w    Writer
		want string
	}{
		{"default", Writer{}, "hello world\n"},
		{"quiet", Writer{QuietMode: true}, ""},
		{"json", Writer{JSONMode: true}, ""},
	}
	for _, tt := range tests {
		var stderr bytes.Buffer
		tt.w.Stderr = &stderr
		tt.w.Info("hello %s", "world")
		if stderr.String() != tt.want {
			t.Errorf("%s: stderr = %q, want %q", tt.name, stderr.String(), tt.want)
		}
	}
}

func TestWriterWarnIgnoresQuiet(t *testing.T) {
	plain(t)
	var stderr bytes.Buffer
	w := &Writer{QuietMode: true, Stderr: &stderr}

	w.Warn("%d records matched nothing", 2)
	if stderr.String() != "Warning: 2 records matched nothing\n" {
		t.Errorf("stderr = %q", stderr.String())
	}

	stderr.Reset()
	w.JSONMode = true
	w.Warn("hidden")
	if stderr.Len() != 0 {
		t.Errorf("warn in JSON mode wrote %q", stderr.String())
	}
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrGeneral, ExitGeneral},
		{ErrNotFound, ExitNotFound},
		{ErrValidation, ExitValidation},
		{ErrConflict, ExitConflict},
		{ErrStorage, ExitStorage},
		{ErrUnavailable, ExitUnavailable},
		{ErrorCode("unknown"), ExitGeneral},
	}
	for _, tt := range tests {
		if got := ExitCodeForError(tt.code); got != tt.want {
			t.Errorf("ExitCodeForError(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
