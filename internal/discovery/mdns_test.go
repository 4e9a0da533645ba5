// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager setup and answer parsing
package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Test Endpoint", Port: 3000})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.Path != "/" {
		t.Errorf("expected default path /, got %q", mgr.config.Path)
	}
	mgr.Stop()
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *ServerInfo
	}{
		{
			name: "ipv4 with path",
			entry: &mdns.ServiceEntry{
				Name:       "echo._livevoice._tcp.local.",
				AddrV4:     net.ParseIP("192.168.1.20"),
				Port:       3000,
				InfoFields: []string{"path=/voice"},
			},
			want: &ServerInfo{Name: "echo._livevoice._tcp.local", Host: "192.168.1.20", Port: 3000, Path: "/voice"},
		},
		{
			name:  "no address",
			entry: &mdns.ServiceEntry{Name: "x", Port: 3000},
		},
		{
			name:  "no port",
			entry: &mdns.ServiceEntry{Name: "x", AddrV4: net.ParseIP("10.0.0.1")},
		},
		{
			name:  "nil",
			entry: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseEntry(tt.entry)
			if tt.want == nil {
				if ok {
					t.Errorf("expected entry rejected, got %+v", got)
				}
				return
			}
			if !ok || *got != *tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServerInfoAddr(t *testing.T) {
	info := ServerInfo{Host: "10.0.0.5", Port: 3000}
	if info.Addr() != "10.0.0.5:3000" {
		t.Errorf("unexpected addr %s", info.Addr())
	}
}

func TestGetLocalIPs(t *testing.T) {
	ips, err := getLocalIPs()
	if err != nil {
		t.Fatalf("getLocalIPs failed: %v", err)
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.To4() == nil {
			t.Errorf("unexpected address %v", ip)
		}
	}
}
