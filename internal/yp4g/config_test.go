package yp4g

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"pecadir/internal/domain"
)

const fullConfigDoc = `<?xml version="1.0" encoding="UTF-8"?>
<yp4g>
  <yp name="Sample YP"/>
  <host ip="203.0.113.7" port_open="1" speed="4500" over="0"/>
  <uptest checkable="1" remain="3"/>
  <uptest_srv addr="uptest.example.com" port="443" object="/uptest.cgi"
    post_size="250" limit="4500" interval="15" enabled="1"/>
</yp4g>`

func TestParseConfig_FullDocument(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(fullConfigDoc))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.Name != "Sample YP" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Host.IP != "203.0.113.7" || !cfg.Host.IsPortOpen || cfg.Host.IsOver {
		t.Errorf("Host = %+v", cfg.Host)
	}
	if cfg.Host.SpeedKbps != 4500 {
		t.Errorf("SpeedKbps = %d", cfg.Host.SpeedKbps)
	}
	if !cfg.UpTest.IsCheckable || cfg.UpTest.Remain != 3 {
		t.Errorf("UpTest = %+v", cfg.UpTest)
	}
	want := UpTestServer{
		Addr:        "uptest.example.com",
		Port:        443,
		Object:      "/uptest.cgi",
		PostSizeKB:  250,
		LimitKbps:   4500,
		IntervalSec: 15,
		Enabled:     true,
	}
	if cfg.Server != want {
		t.Errorf("Server = %+v, want %+v", cfg.Server, want)
	}
}

func TestParseConfig_RootOnlyYieldsDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader("<yp4g/>"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("root-only config = %+v, want defaults %+v", cfg, DefaultConfig())
	}
	if cfg.Name != "(none)" {
		t.Errorf("default Name = %q", cfg.Name)
	}
}

func TestParseConfig_PartialDocument(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`<yp4g><host speed="800"/></yp4g>`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Host.SpeedKbps != 800 {
		t.Errorf("SpeedKbps = %d", cfg.Host.SpeedKbps)
	}
	if cfg.Host.IsPortOpen || cfg.Server.Enabled {
		t.Error("absent flags must default to false")
	}
}

func TestParseConfig_AttributeOrderIndependent(t *testing.T) {
	a, err := ParseConfig(strings.NewReader(`<yp4g><host ip="1.2.3.4" speed="100"/></yp4g>`))
	if err != nil {
		t.Fatalf("parse a failed: %v", err)
	}
	b, err := ParseConfig(strings.NewReader(`<yp4g><host speed="100" ip="1.2.3.4"/></yp4g>`))
	if err != nil {
		t.Fatalf("parse b failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("attribute order changed the result: %+v vs %+v", a, b)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"wrong root", `<yellowpage><host ip="1.2.3.4"/></yellowpage>`},
		{"malformed xml", `<yp4g><host ip="1.2.3.4"`},
		{"mismatched tags", `<yp4g><host></yp4g></host>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrConfigProtocol) {
				t.Errorf("error %v is not ErrConfigProtocol", err)
			}
		})
	}
}

func TestParseConfig_NonNumericAttributesDefaultToZero(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`<yp4g><host speed="fast" port_open="yes"/></yp4g>`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Host.SpeedKbps != 0 || cfg.Host.IsPortOpen {
		t.Errorf("non-numeric attributes should default: %+v", cfg.Host)
	}
}
