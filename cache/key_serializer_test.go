package cache

import (
	"strings"
	"testing"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

type searchParams struct {
	Query string
	Limit int
}

type label string

func (l label) String() string { return "label(" + string(l) + ")" }

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{
			name:   "no args",
			method: "Categories",
			args:   []any{},
			want:   "Categories",
		},
		{
			name:   "single int",
			method: "GetByID",
			args:   []any{42},
			want:   joinWithSeparator("GetByID", "42"),
		},
		{
			name:   "multiple basic types",
			method: "List",
			args:   []any{1, "all", true, 3.5},
			want:   joinWithSeparator("List", "1", "all", "true", "3.5"),
		},
		{
			name:   "category with spaces and quotes",
			method: "ByCategory",
			args:   []any{"men's clothing"},
			want:   joinWithSeparator("ByCategory", "men's clothing"),
		},
		{
			name:   "stringer",
			method: "Tagged",
			args:   []any{label("x")},
			want:   joinWithSeparator("Tagged", "label(x)"),
		},
		{
			name:   "struct falls back to json",
			method: "Search",
			args:   []any{searchParams{Query: "red", Limit: 2}},
			want:   joinWithSeparator("Search", `json:{"Query":"red","Limit":2}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_NilValues(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	var nilPtr *int
	var nilSlice []string
	var nilMap map[string]int

	tests := []struct {
		name string
		arg  any
		want string
	}{
		{"nil", nil, "nil"},
		{"nil pointer", nilPtr, "nil"},
		{"nil slice", nilSlice, "slice:nil"},
		{"nil map", nilMap, "map:nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey("M", tt.arg)
			if want := joinWithSeparator("M", tt.want); got != want {
				t.Errorf("SerializeKey() = %v, want %v", got, want)
			}
		})
	}
}

func TestDefaultKeySerializer_PointersDereference(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	id := 5

	if got, want := serializer.SerializeKey("GetByID", &id), serializer.SerializeKey("GetByID", 5); got != want {
		t.Errorf("pointer and value keys differ: %q vs %q", got, want)
	}
}

func TestDefaultKeySerializer_Collections(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	got := serializer.SerializeKey("M", []int{1, 2}, [2]string{"a", "b"})
	want := joinWithSeparator("M", "slice[2]:{1,2}", "array[2]:{a,b}")
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_MapIsDeterministic(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	m := map[string]int{"z": 1, "a": 2, "m": 3}

	first := serializer.SerializeKey("M", m)
	for i := 0; i < 20; i++ {
		if got := serializer.SerializeKey("M", m); got != first {
			t.Fatalf("map serialization not deterministic: %q vs %q", got, first)
		}
	}
	if want := joinWithSeparator("M", "map[3]:{a=2,m=3,z=1}"); first != want {
		t.Errorf("SerializeKey() = %v, want %v", first, want)
	}
}

func TestDefaultKeySerializer_LongKeysAreHashed(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	long := strings.Repeat("x", MaxKeyLength+1)

	got := serializer.SerializeKey("ByCategory", long)
	if !strings.HasPrefix(got, "ByCategory"+KeySeparator+"xxh:") {
		t.Fatalf("expected hashed key with method prefix, got %q", got)
	}
	if len(got) > len("ByCategory")+len(KeySeparator)+4+16 {
		t.Errorf("hashed key too long: %d", len(got))
	}
	if got != serializer.SerializeKey("ByCategory", long) {
		t.Error("hashed keys must be stable")
	}
	if got == serializer.SerializeKey("ByCategory", long+"y") {
		t.Error("different inputs should hash differently")
	}
}
