package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/thisisjab/gelfpush/entity"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "transform.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("cannot write script: %v", err)
	}
	return path
}

func TestTransformRewritesMessage(t *testing.T) {
	script := writeScript(t, `
function transform_message(host, short_message, timestamp, fields)
    fields["Environment"] = "production"
    fields["ClientIP"] = nil
    return string.upper(host), short_message .. "!", timestamp + 1, fields
end
`)

	tr, err := NewLuaTransform(LuaTransformConfig{Name: "test", ScriptPath: script})
	if err != nil {
		t.Fatalf("NewLuaTransform: %v", err)
	}

	id := uuid.New()
	msg, err := tr.Transform(entity.GelfMessage{
		ID:           id,
		Host:         "logpush",
		ShortMessage: "hello",
		Timestamp:    1570464000,
		Fields: map[string]any{
			"ClientIP":          "1.2.3.4",
			"EdgeResponseBytes": int64(911),
		},
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if msg.ID != id {
		t.Fatalf("ID = %v, want %v", msg.ID, id)
	}
	if msg.Host != "LOGPUSH" {
		t.Fatalf("Host = %q, want LOGPUSH", msg.Host)
	}
	if msg.ShortMessage != "hello!" {
		t.Fatalf("ShortMessage = %q, want hello!", msg.ShortMessage)
	}
	if msg.Timestamp != 1570464001 {
		t.Fatalf("Timestamp = %v, want 1570464001", msg.Timestamp)
	}
	if got := msg.Fields["Environment"]; got != "production" {
		t.Fatalf("Environment = %v, want production", got)
	}
	if _, ok := msg.Fields["ClientIP"]; ok {
		t.Fatalf("ClientIP survived removal")
	}
	if got := msg.Fields["EdgeResponseBytes"]; got != float64(911) {
		t.Fatalf("EdgeResponseBytes = %v (%T), want 911", got, got)
	}
}

func TestTransformIdentityScript(t *testing.T) {
	script := writeScript(t, `
function transform_message(host, short_message, timestamp, fields)
    return host, short_message, timestamp, fields
end
`)

	tr, err := NewLuaTransform(LuaTransformConfig{Name: "test", ScriptPath: script})
	if err != nil {
		t.Fatalf("NewLuaTransform: %v", err)
	}

	in := entity.GelfMessage{
		Host:         "logpush",
		ShortMessage: "unchanged",
		Timestamp:    1570464000,
		Fields:       map[string]any{"CacheTiered": true},
	}

	out, err := tr.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if out.Host != in.Host || out.ShortMessage != in.ShortMessage || out.Timestamp != in.Timestamp {
		t.Fatalf("identity transform changed the message: %+v", out)
	}
	if got := out.Fields["CacheTiered"]; got != true {
		t.Fatalf("CacheTiered = %v, want true", got)
	}
}

func TestTransformScriptError(t *testing.T) {
	script := writeScript(t, `
function transform_message(host, short_message, timestamp, fields)
    error("boom")
end
`)

	tr, err := NewLuaTransform(LuaTransformConfig{Name: "test", ScriptPath: script})
	if err != nil {
		t.Fatalf("NewLuaTransform: %v", err)
	}

	if _, err := tr.Transform(entity.GelfMessage{Fields: map[string]any{}}); err == nil {
		t.Fatalf("expected a script error")
	}
}

func TestTransformJSONHelperAvailable(t *testing.T) {
	script := writeScript(t, `
local json = require("json")

function transform_message(host, short_message, timestamp, fields)
    fields["AsJson"] = json.encode({value = 1})
    return host, short_message, timestamp, fields
end
`)

	tr, err := NewLuaTransform(LuaTransformConfig{Name: "test", ScriptPath: script})
	if err != nil {
		t.Fatalf("NewLuaTransform: %v", err)
	}

	msg, err := tr.Transform(entity.GelfMessage{Fields: map[string]any{}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if got := msg.Fields["AsJson"]; got != `{"value":1}` {
		t.Fatalf("AsJson = %v, want {\"value\":1}", got)
	}
}
