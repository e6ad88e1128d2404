package util

import (
	"testing"
)

func TestToMapAny(t *testing.T) {
	m := map[string]any{"k": "v"}
	if got := ToMapAny(m); got["k"] != "v" {
		t.Error("map passthrough failed")
	}

	type payload struct {
		Name string `json:"name"`
	}
	got := ToMapAny(payload{Name: "fs"})
	if got["name"] != "fs" {
		t.Errorf("struct conversion = %v", got)
	}

	if got := ToMapAny(make(chan int)); len(got) != 0 {
		t.Error("unmarshalable value should yield empty map")
	}
}

func TestClampInt(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{5, 1, 10, 5},
		{0, 1, 10, 1},
		{11, 1, 10, 10},
	}
	for _, tc := range cases {
		if got := ClampInt(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("ClampInt(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TL_TEST_INT", "42")
	if got := EnvInt("TL_TEST_INT", 1, 0); got != 42 {
		t.Errorf("EnvInt = %d, want 42", got)
	}
	t.Setenv("TL_TEST_INT", "bogus")
	if got := EnvInt("TL_TEST_INT", 7, 0); got != 7 {
		t.Errorf("EnvInt invalid = %d, want default 7", got)
	}
	t.Setenv("TL_TEST_INT", "-5")
	if got := EnvInt("TL_TEST_INT", 7, 0); got != 0 {
		t.Errorf("EnvInt below min = %d, want 0", got)
	}
}

func TestEnvBool(t *testing.T) {
	cases := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"1", false, true},
		{"on", false, true},
		{"no", true, false},
		{"garbage", true, true},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Setenv("TL_TEST_BOOL", tc.raw)
		if got := EnvBool("TL_TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("EnvBool(%q, %v) = %v, want %v", tc.raw, tc.def, got, tc.want)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	type cfg struct {
		Name    string  `env:"TL_TEST_NAME" default:"feed"`
		Port    int     `env:"TL_TEST_PORT" default:"8080" min:"1"`
		Ratio   float64 `env:"TL_TEST_RATIO" default:"0.5" min:"0"`
		Enabled bool    `env:"TL_TEST_ENABLED" default:"true"`
		Skipped string
	}

	t.Setenv("TL_TEST_PORT", "9090")
	var c cfg
	LoadFromEnv(&c)

	if c.Name != "feed" {
		t.Errorf("Name = %q, want default", c.Name)
	}
	if c.Port != 9090 {
		t.Errorf("Port = %d, want 9090", c.Port)
	}
	if c.Ratio != 0.5 {
		t.Errorf("Ratio = %v", c.Ratio)
	}
	if !c.Enabled {
		t.Error("Enabled = false, want default true")
	}

	// 非法入参不 panic
	LoadFromEnv(nil)
	LoadFromEnv(42)
}
