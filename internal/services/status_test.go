package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(name string, args ...string) (Result, error)

func (f runnerFunc) Run(name string, args ...string) (Result, error) {
	return f(name, args...)
}

func failingRunner() Runner {
	return runnerFunc(func(name string, args ...string) (Result, error) {
		return Result{}, errors.New("exec: \"" + name + "\": executable file not found in $PATH")
	})
}

// writeSysfs lays out a fake /sys/class/net tree for one interface.
func writeSysfs(t *testing.T, root, iface string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, iface, "statistics"), 0755))
	for rel, content := range files {
		path := filepath.Join(root, iface, rel)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestFormatMegabytes(t *testing.T) {
	assert.Equal(t, "0 MB", formatMegabytes(0))
	assert.Equal(t, "1 MB", formatMegabytes(1048576))
	assert.Equal(t, "2 MB", formatMegabytes(2097152))
	assert.Equal(t, "0.5 MB", formatMegabytes(524288))
	assert.Equal(t, "1024 MB", formatMegabytes(1<<30))
}

func TestFirstIPv4(t *testing.T) {
	out := "7: tailscale0: <POINTOPOINT,MULTICAST,NOARP,UP,LOWER_UP> mtu 1280\n" +
		"    link/none \n" +
		"    inet 100.80.52.1/32 scope global tailscale0\n" +
		"       valid_lft forever preferred_lft forever\n" +
		"    inet 100.80.52.2/32 scope global tailscale0\n"

	assert.Equal(t, "100.80.52.1", firstIPv4(out))
	assert.Equal(t, "", firstIPv4("no addresses here"))
	// "inet6" lines must not satisfy the IPv4 scan
	assert.Equal(t, "", firstIPv4("    inet6 fd7a::1/128 scope global"))
}

func TestFirstIPv6(t *testing.T) {
	t.Run("skips link-local", func(t *testing.T) {
		out := "    inet6 fe80::1/64 scope link\n" +
			"    inet6 fd7a:115c:a1e0::9f01:1560/128 scope global\n"
		assert.Equal(t, "fd7a:115c:a1e0::9f01:1560", firstIPv6(out))
	})

	t.Run("only link-local", func(t *testing.T) {
		assert.Equal(t, "", firstIPv6("    inet6 fe80::1/64 scope link\n"))
	})
}

func TestCollectInterfaceInfo(t *testing.T) {
	ipOutput := "7: tailscale0: <POINTOPOINT,MULTICAST,NOARP,UP,LOWER_UP> mtu 1280\n" +
		"    inet 100.80.52.1/32 scope global tailscale0\n" +
		"    inet6 fe80::abcd/64 scope link\n" +
		"    inet6 fd7a:115c:a1e0::9f01:1560/128 scope global\n"

	okRunner := runnerFunc(func(name string, args ...string) (Result, error) {
		return Result{Code: 0, Stdout: ipOutput}, nil
	})
	exitOneRunner := runnerFunc(func(name string, args ...string) (Result, error) {
		return Result{Code: 1, Stderr: `Device "tailscale0" does not exist.`}, nil
	})

	t.Run("no interface when every probe fails", func(t *testing.T) {
		svc := NewStatusService("tailscale0", t.TempDir(), "ip", "tailscale", exitOneRunner)
		assert.Nil(t, svc.CollectInterfaceInfo())
	})

	t.Run("no interface when command cannot start either", func(t *testing.T) {
		svc := NewStatusService("tailscale0", t.TempDir(), "ip", "tailscale", failingRunner())
		assert.Nil(t, svc.CollectInterfaceInfo())
	})

	t.Run("all sources readable", func(t *testing.T) {
		root := t.TempDir()
		writeSysfs(t, root, "tailscale0", map[string]string{
			"statistics/rx_bytes": "2097152\n",
			"statistics/tx_bytes": "1048576\n",
			"mtu":                 "1280\n",
		})

		svc := NewStatusService("tailscale0", root, "ip", "tailscale", okRunner)
		info := svc.CollectInterfaceInfo()
		require.NotNil(t, info)

		assert.Equal(t, "tailscale0", info.Name)
		assert.Equal(t, "2 MB", info.RxBytes)
		assert.Equal(t, "1 MB", info.TxBytes)
		assert.Equal(t, "1280", info.MTU)
		assert.Equal(t, "100.80.52.1", info.IPv4)
		assert.Equal(t, "fd7a:115c:a1e0::9f01:1560", info.IPv6)
	})

	t.Run("rx counter alone keeps the interface present", func(t *testing.T) {
		root := t.TempDir()
		writeSysfs(t, root, "tailscale0", map[string]string{
			"statistics/rx_bytes": "0",
		})

		svc := NewStatusService("tailscale0", root, "ip", "tailscale", exitOneRunner)
		info := svc.CollectInterfaceInfo()
		require.NotNil(t, info)

		// A failed read is "-", a successful read of zero is "0 MB".
		assert.Equal(t, "0 MB", info.RxBytes)
		assert.Equal(t, "-", info.TxBytes)
		assert.Equal(t, "-", info.MTU)
		assert.Equal(t, "-", info.IPv4)
		assert.Equal(t, "-", info.IPv6)
	})

	t.Run("successful address listing alone keeps the interface present", func(t *testing.T) {
		svc := NewStatusService("tailscale0", t.TempDir(), "ip", "tailscale", okRunner)
		info := svc.CollectInterfaceInfo()
		require.NotNil(t, info)

		assert.Equal(t, "-", info.RxBytes)
		assert.Equal(t, "-", info.TxBytes)
		assert.Equal(t, "-", info.MTU)
		assert.Equal(t, "100.80.52.1", info.IPv4)
	})

	t.Run("garbage counter formats as zero", func(t *testing.T) {
		root := t.TempDir()
		writeSysfs(t, root, "tailscale0", map[string]string{
			"statistics/rx_bytes": "not-a-number",
			"mtu":                 "1280",
		})

		svc := NewStatusService("tailscale0", root, "ip", "tailscale", exitOneRunner)
		info := svc.CollectInterfaceInfo()
		require.NotNil(t, info)

		assert.Equal(t, "0 MB", info.RxBytes)
		assert.Equal(t, "1280", info.MTU)
	})

	t.Run("address listing without matches leaves dashes", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: "7: tailscale0: <POINTOPOINT> mtu 1280\n    link/none\n"}, nil
		})

		svc := NewStatusService("tailscale0", t.TempDir(), "ip", "tailscale", runner)
		info := svc.CollectInterfaceInfo()
		require.NotNil(t, info)

		assert.Equal(t, "-", info.IPv4)
		assert.Equal(t, "-", info.IPv6)
	})
}

func TestCollectPeerStatus(t *testing.T) {
	newSvc := func(r Runner) *StatusService {
		return NewStatusService("tailscale0", t.TempDir(), "ip", "tailscale", r)
	}

	t.Run("exec failure surfaces the error text", func(t *testing.T) {
		status := newSvc(failingRunner()).CollectPeerStatus()
		assert.Contains(t, status.Error, "executable file not found")
		assert.Empty(t, status.Peers)
	})

	t.Run("permission denied is classified", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 1, Stderr: "Failed to connect to local Tailscale daemon: Permission denied"}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		assert.Equal(t, "permission denied querying tailscale status", status.Error)
	})

	t.Run("stopped daemon is classified", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 1, Stderr: "Tailscale is stopped."}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		assert.Equal(t, "tailscale service is not running", status.Error)
	})

	t.Run("daemon not running is classified", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 1, Stdout: "tailscaled is not running\n"}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		assert.Equal(t, "tailscale service is not running", status.Error)
	})

	t.Run("other failures keep the raw text", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 1, Stderr: "something unexpected"}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		assert.Equal(t, "tailscale status failed: something unexpected", status.Error)
	})

	t.Run("empty output is not a parse error", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: "   \n"}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		assert.Equal(t, "tailscale status returned no output", status.Error)
	})

	t.Run("malformed json is a parse error", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: "{not json"}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		assert.Contains(t, status.Error, "cannot parse tailscale status")
	})

	t.Run("missing Peer field yields an empty list", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: `{"BackendState":"Running"}`}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		assert.Empty(t, status.Error)
		assert.Empty(t, status.Peers)
	})

	t.Run("peer summary derivation", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: `{"Peer":{"a":{
				"DNSName":"node1.tailnetxyz.ts.net.",
				"Online":true,
				"TailscaleIPs":["100.1.2.3"],
				"RxBytes":2097152
			}}}`}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		require.Empty(t, status.Error)
		require.Len(t, status.Peers, 1)

		peer := status.Peers[0]
		assert.Equal(t, "node1", peer.Hostname)
		assert.True(t, peer.Online)
		assert.Equal(t, "100.1.2.3", peer.IP)
		assert.Equal(t, "2 MB", peer.RxBytes)
		assert.Equal(t, "-", peer.TxBytes)
		assert.Equal(t, "-", peer.Relay)
		assert.False(t, peer.Direct)
	})

	t.Run("direct connection and relay", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: `{"Peer":{"a":{
				"HostName":"laptop",
				"Relay":"fra",
				"CurAddr":"93.184.216.34:41641",
				"TxBytes":1048576
			}}}`}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		require.Len(t, status.Peers, 1)

		peer := status.Peers[0]
		assert.Equal(t, "laptop", peer.Hostname)
		assert.Equal(t, "fra", peer.Relay)
		assert.True(t, peer.Direct)
		assert.False(t, peer.Online)
		assert.Equal(t, "-", peer.IP)
		assert.Equal(t, "1 MB", peer.TxBytes)
	})

	t.Run("missing fields default to dashes", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: `{"Peer":{"a":{}}}`}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		require.Len(t, status.Peers, 1)

		peer := status.Peers[0]
		assert.Equal(t, "-", peer.IP)
		assert.Equal(t, "-", peer.Hostname)
		assert.Equal(t, "-", peer.Relay)
		assert.Equal(t, "-", peer.RxBytes)
		assert.Equal(t, "-", peer.TxBytes)
	})

	t.Run("peers come out in key order", func(t *testing.T) {
		runner := runnerFunc(func(name string, args ...string) (Result, error) {
			return Result{Code: 0, Stdout: `{"Peer":{
				"key-b":{"HostName":"beta"},
				"key-a":{"HostName":"alpha"}
			}}`}, nil
		})

		status := newSvc(runner).CollectPeerStatus()
		require.Len(t, status.Peers, 2)
		assert.Equal(t, "alpha", status.Peers[0].Hostname)
		assert.Equal(t, "beta", status.Peers[1].Hostname)
	})
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "tailscale0", map[string]string{
		"statistics/rx_bytes": "1048576",
		"statistics/tx_bytes": "2097152",
		"mtu":                 "1280",
	})

	runner := runnerFunc(func(name string, args ...string) (Result, error) {
		if name == "tailscale" {
			return Result{Code: 0, Stdout: `{"Peer":{"a":{"HostName":"alpha","Online":true}}}`}, nil
		}
		return Result{Code: 0, Stdout: "    inet 100.80.52.1/32 scope global tailscale0\n"}, nil
	})

	svc := NewStatusService("tailscale0", root, "ip", "tailscale", runner)
	report := svc.Load()

	require.NotNil(t, report.Interface)
	assert.Equal(t, "1 MB", report.Interface.RxBytes)
	assert.Equal(t, "2 MB", report.Interface.TxBytes)
	assert.Equal(t, "100.80.52.1", report.Interface.IPv4)

	require.Empty(t, report.Peers.Error)
	require.Len(t, report.Peers.Peers, 1)
	assert.Equal(t, "alpha", report.Peers.Peers[0].Hostname)
	assert.True(t, report.Peers.Peers[0].Online)
}

func TestLoadAlwaysFullyFormed(t *testing.T) {
	svc := NewStatusService("tailscale0", t.TempDir(), "ip", "tailscale", failingRunner())
	report := svc.Load()

	assert.Nil(t, report.Interface)
	assert.NotEmpty(t, report.Peers.Error)
	assert.Empty(t, report.Peers.Peers)
}
