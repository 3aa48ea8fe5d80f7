package yp4g

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pecadir/internal/domain"
)

// rootElement is the only accepted document root of yp4g.xml.
const rootElement = "yp4g"

// Config is the typed view of a yp4g.xml document. Absent attributes take
// their zero defaults so partial or reordered documents degrade gracefully.
type Config struct {
	Name   string
	Host   Host
	UpTest UpTest
	Server UpTestServer
}

// Host describes how the yellow page sees the local peer.
type Host struct {
	IP         string
	SpeedKbps  int
	IsPortOpen bool
	IsOver     bool
}

// UpTest carries the yellow page's speed-test allowance.
type UpTest struct {
	IsCheckable bool
	Remain      int
}

// UpTestServer locates the endpoint accepting speed-test uploads.
type UpTestServer struct {
	Addr        string
	Port        int
	Object      string
	PostSizeKB  int
	LimitKbps   int
	IntervalSec int
	Enabled     bool
}

// ParseConfig stream-parses a yp4g.xml document. It fails only when the
// root element is not <yp4g> or the token stream is not well-formed XML.
func ParseConfig(r io.Reader) (*Config, error) {
	attrs, err := flattenAttributes(r)
	if err != nil {
		return nil, err
	}
	return configFromAttributes(attrs), nil
}

// flattenAttributes walks start/end tags maintaining a path stack and
// records every attribute under "<joined-path>@<name>". The resulting map
// is independent of attribute and sibling order.
func flattenAttributes(r io.Reader) (map[string]string, error) {
	decoder := xml.NewDecoder(r)
	attrs := make(map[string]string)
	var path []string

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigProtocol, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if len(path) == 0 && t.Name.Local != rootElement {
				return nil, fmt.Errorf("%w: root element is not <%s>", domain.ErrConfigProtocol, rootElement)
			}
			path = append(path, "/"+t.Name.Local)
			prefix := strings.Join(path, "") + "@"
			for _, a := range t.Attr {
				attrs[prefix+a.Name.Local] = a.Value
			}
		case xml.EndElement:
			path = path[:len(path)-1]
		}
	}

	return attrs, nil
}

func configFromAttributes(m map[string]string) *Config {
	str := func(key string) string { return m[key] }
	num := func(key string) int {
		n, err := strconv.Atoi(m[key])
		if err != nil {
			return 0
		}
		return n
	}
	flag := func(key string) bool { return num(key) == 1 }

	name := str("/yp4g/yp@name")
	if name == "" {
		name = "(none)"
	}

	return &Config{
		Name: name,
		Host: Host{
			IP:         str("/yp4g/host@ip"),
			SpeedKbps:  num("/yp4g/host@speed"),
			IsPortOpen: flag("/yp4g/host@port_open"),
			IsOver:     flag("/yp4g/host@over"),
		},
		UpTest: UpTest{
			IsCheckable: flag("/yp4g/uptest@checkable"),
			Remain:      num("/yp4g/uptest@remain"),
		},
		Server: UpTestServer{
			Addr:        str("/yp4g/uptest_srv@addr"),
			Port:        num("/yp4g/uptest_srv@port"),
			Object:      str("/yp4g/uptest_srv@object"),
			PostSizeKB:  num("/yp4g/uptest_srv@post_size"),
			LimitKbps:   num("/yp4g/uptest_srv@limit"),
			IntervalSec: num("/yp4g/uptest_srv@interval"),
			Enabled:     flag("/yp4g/uptest_srv@enabled"),
		},
	}
}

// DefaultConfig is the all-defaults object a root-only document decodes to.
func DefaultConfig() *Config {
	return configFromAttributes(nil)
}
