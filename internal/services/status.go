package services

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"tailrouter/internal/models"
)

// StatusService collects live status for one mesh-VPN interface: byte
// counters and MTU from sysfs, addresses from `ip addr show`, and the peer
// table from `tailscale status --json`.
type StatusService struct {
	iface        string
	sysfsNetDir  string
	ipBin        string
	tailscaleBin string
	runner       Runner
}

func NewStatusService(iface, sysfsNetDir, ipBin, tailscaleBin string, runner Runner) *StatusService {
	return &StatusService{
		iface:        iface,
		sysfsNetDir:  sysfsNetDir,
		ipBin:        ipBin,
		tailscaleBin: tailscaleBin,
		runner:       runner,
	}
}

// Load runs one refresh cycle. The two collectors share no state and run
// concurrently. The report is always fully formed: a missing interface is
// a nil Interface, a failed peer query is a PeerStatus error message.
func (s *StatusService) Load() models.StatusReport {
	var report models.StatusReport

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.Interface = s.CollectInterfaceInfo()
	}()
	go func() {
		defer wg.Done()
		report.Peers = s.CollectPeerStatus()
	}()
	wg.Wait()

	return report
}

// CollectInterfaceInfo reads the interface's byte counters and MTU from
// sysfs and its addresses from the ip tool. It returns nil only when every
// probe that can prove the interface exists failed: both the rx counter
// and the MTU were unreadable, and the address listing did not exit zero.
// Otherwise each field independently falls back to "-" when its own
// source failed.
func (s *StatusService) CollectInterfaceInfo() *models.InterfaceInfo {
	rxRaw, rxErr := s.readSysfs("statistics/rx_bytes")
	txRaw, txErr := s.readSysfs("statistics/tx_bytes")
	mtuRaw, mtuErr := s.readSysfs("mtu")

	res, cmdErr := s.runner.Run(s.ipBin, "addr", "show", s.iface)
	addrOK := cmdErr == nil && res.Code == 0

	if rxErr != nil && mtuErr != nil && !addrOK {
		return nil
	}

	info := &models.InterfaceInfo{
		Name:    s.iface,
		RxBytes: "-",
		TxBytes: "-",
		MTU:     "-",
		IPv4:    "-",
		IPv6:    "-",
	}

	if rxErr == nil {
		info.RxBytes = formatMegabytes(parseCounter(rxRaw))
	}
	if txErr == nil {
		info.TxBytes = formatMegabytes(parseCounter(txRaw))
	}
	if mtuErr == nil {
		info.MTU = strings.TrimSpace(mtuRaw)
	}
	if addrOK {
		if v4 := firstIPv4(res.Stdout); v4 != "" {
			info.IPv4 = v4
		}
		if v6 := firstIPv6(res.Stdout); v6 != "" {
			info.IPv6 = v6
		}
	}

	return info
}

func (s *StatusService) readSysfs(rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.sysfsNetDir, s.iface, rel))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// tailscaleStatus is the slice of `tailscale status --json` output this
// view cares about.
type tailscaleStatus struct {
	Peer map[string]tailscalePeer `json:"Peer"`
}

type tailscalePeer struct {
	DNSName      string   `json:"DNSName"`
	HostName     string   `json:"HostName"`
	TailscaleIPs []string `json:"TailscaleIPs"`
	Online       bool     `json:"Online"`
	Relay        string   `json:"Relay"`
	CurAddr      string   `json:"CurAddr"`
	RxBytes      int64    `json:"RxBytes"`
	TxBytes      int64    `json:"TxBytes"`
}

// CollectPeerStatus queries the tailscale daemon for the peer table.
// Every failure mode degrades to a displayable error message; nothing is
// raised past this boundary.
func (s *StatusService) CollectPeerStatus() models.PeerStatus {
	res, err := s.runner.Run(s.tailscaleBin, "status", "--json")
	if err != nil {
		return models.PeerStatus{Error: err.Error()}
	}
	if res.Code != 0 {
		return models.PeerStatus{Error: classifyStatusFailure(res)}
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return models.PeerStatus{Error: "tailscale status returned no output"}
	}

	var st tailscaleStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return models.PeerStatus{Error: "cannot parse tailscale status: " + err.Error()}
	}

	// Map iteration order is randomized per run; sort the keys so the
	// table does not reshuffle on every poll tick.
	keys := make([]string, 0, len(st.Peer))
	for k := range st.Peer {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	peers := make([]models.PeerSummary, 0, len(keys))
	for _, k := range keys {
		peers = append(peers, summarizePeer(st.Peer[k]))
	}

	return models.PeerStatus{Peers: peers}
}

func classifyStatusFailure(res Result) string {
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.Stdout)
	}

	switch {
	case strings.Contains(msg, "Permission"):
		return "permission denied querying tailscale status"
	case strings.Contains(msg, "not running") || strings.Contains(msg, "stopped"):
		return "tailscale service is not running"
	default:
		return "tailscale status failed: " + msg
	}
}

func summarizePeer(p tailscalePeer) models.PeerSummary {
	sum := models.PeerSummary{
		IP:       "-",
		Hostname: "-",
		Relay:    "-",
		RxBytes:  "-",
		TxBytes:  "-",
		Online:   p.Online,
		Direct:   p.CurAddr != "",
	}

	if len(p.TailscaleIPs) > 0 {
		sum.IP = p.TailscaleIPs[0]
	}

	if name := shortName(p.DNSName); name != "" {
		sum.Hostname = name
	} else if p.HostName != "" {
		sum.Hostname = p.HostName
	}

	if p.Relay != "" {
		sum.Relay = p.Relay
	}

	if p.RxBytes > 0 {
		sum.RxBytes = formatMegabytes(uint64(p.RxBytes))
	}
	if p.TxBytes > 0 {
		sum.TxBytes = formatMegabytes(uint64(p.TxBytes))
	}

	return sum
}

// shortName returns the text before the first dot of a full DNS name.
func shortName(dnsName string) string {
	if i := strings.Index(dnsName, "."); i >= 0 {
		return dnsName[:i]
	}
	return dnsName
}

// formatMegabytes renders a byte count as binary megabytes with the
// shortest decimal representation, e.g. 2097152 -> "2 MB".
func formatMegabytes(bytes uint64) string {
	return strconv.FormatFloat(float64(bytes)/1048576, 'f', -1, 64) + " MB"
}

// parseCounter reads a sysfs counter value; garbage counts as zero. A
// failed read is handled by the caller before formatting, so "-" and
// "0 MB" stay distinct.
func parseCounter(raw string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

var (
	inetPattern  = regexp.MustCompile(`^\s*inet ((?:\d{1,3}\.){3}\d{1,3})`)
	inet6Pattern = regexp.MustCompile(`^\s*inet6 ([0-9a-fA-F:]+)`)
)

// firstIPv4 scans `ip addr show` output for the first inet address.
func firstIPv4(output string) string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if m := inetPattern.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1]
		}
	}
	return ""
}

// firstIPv6 scans for the first inet6 address, skipping link-local ones.
func firstIPv6(output string) string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		m := inet6Pattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(m[1]), "fe80") {
			continue
		}
		return m[1]
	}
	return ""
}
