package record

import (
	"testing"
)

func mustParse(t *testing.T, data string) *Record {
	t.Helper()

	rec, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse(%q): %v", data, err)
	}
	return rec
}

func TestParsePreservesFieldOrder(t *testing.T) {
	rec := mustParse(t, `{"zulu": 1, "alpha": 2, "mike": 3, "bravo": 4}`)

	expected := []string{"zulu", "alpha", "mike", "bravo"}
	fields := rec.Fields()
	if len(fields) != len(expected) {
		t.Fatalf("got %d fields, want %d", len(fields), len(expected))
	}
	for i, name := range expected {
		if fields[i].Name != name {
			t.Fatalf("field %d = %q, want %q", i, fields[i].Name, name)
		}
	}
}

func TestParseKinds(t *testing.T) {
	rec := mustParse(t, `{
		"n": null,
		"b": true,
		"i": 42,
		"big": 1570465372184306580,
		"f": 0.5,
		"exp": 1e3,
		"s": "text",
		"a": [1, 2],
		"o": {"inner": 1}
	}`)

	tests := map[string]Kind{
		"n":   KindNull,
		"b":   KindBool,
		"i":   KindInt,
		"big": KindInt,
		"f":   KindFloat,
		"exp": KindFloat,
		"s":   KindString,
		"a":   KindArray,
		"o":   KindObject,
	}

	for name, kind := range tests {
		v, ok := rec.Get(name)
		if !ok {
			t.Fatalf("Get(%q): not found", name)
		}
		if v.Kind() != kind {
			t.Fatalf("Get(%q) kind = %v, want %v", name, v.Kind(), kind)
		}
	}
}

func TestParseIntegerValues(t *testing.T) {
	rec := mustParse(t, `{"small": 42, "negative": -7, "nanos": 1570465372184306580}`)

	tests := map[string]int64{
		"small":    42,
		"negative": -7,
		"nanos":    1570465372184306580,
	}

	for name, expected := range tests {
		v, _ := rec.Get(name)
		if v.Int() != expected {
			t.Fatalf("Get(%q) = %d, want %d", name, v.Int(), expected)
		}
	}
}

func TestParseRejectsNonObjects(t *testing.T) {
	tests := []string{
		``,
		`42`,
		`"text"`,
		`[{"a": 1}]`,
		`null`,
		`{"a": 1} {"b": 2}`,
		`{"a": 1},`,
		`{"a": `,
		`{broken}`,
	}

	for _, input := range tests {
		if _, err := Parse([]byte(input)); err == nil {
			t.Fatalf("Parse(%q): expected an error", input)
		}
	}
}

func TestGetIsTopLevelOnly(t *testing.T) {
	rec := mustParse(t, `{"outer": {"inner": 1}}`)

	if _, ok := rec.Get("inner"); ok {
		t.Fatalf("Get found a nested field")
	}
	if _, ok := rec.Get("outer"); !ok {
		t.Fatalf("Get missed a top-level field")
	}
}

func TestFindSearchesWholeTree(t *testing.T) {
	rec := mustParse(t, `{
		"a": 1,
		"nested": {"deep": {"target": 7}},
		"list": [{"inList": 9}]
	}`)

	tests := map[string]int64{
		"a":      1,
		"target": 7,
		"inList": 9,
	}

	for name, expected := range tests {
		v, ok := rec.Find(name)
		if !ok {
			t.Fatalf("Find(%q): not found", name)
		}
		if v.Int() != expected {
			t.Fatalf("Find(%q) = %d, want %d", name, v.Int(), expected)
		}
	}

	if _, ok := rec.Find("missing"); ok {
		t.Fatalf("Find found a field that does not exist")
	}
}

func TestFindPrefersTopLevel(t *testing.T) {
	rec := mustParse(t, `{"nested": {"target": 1}, "target": 2}`)

	v, ok := rec.Find("target")
	if !ok || v.Int() != 2 {
		t.Fatalf("Find = %v, want the top-level value 2", v.Int())
	}
}

func TestDisplay(t *testing.T) {
	rec := mustParse(t, `{
		"s": "domain.com:8080",
		"i": 911,
		"f": 0.5,
		"b": false,
		"n": null,
		"a": ["x", 1],
		"o": {"k": "v"}
	}`)

	tests := map[string]string{
		"s": "domain.com:8080",
		"i": "911",
		"f": "0.5",
		"b": "false",
		"n": "null",
		"a": "[x, 1]",
		"o": "{k: v}",
	}

	for name, expected := range tests {
		v, _ := rec.Get(name)
		if got := v.Display(); got != expected {
			t.Fatalf("Display(%q) = %q, want %q", name, got, expected)
		}
	}
}
