package models

// InterfaceInfo describes the monitored VPN interface. A nil value means
// the interface does not exist on this machine. Fields that could not be
// read from their source hold "-".
type InterfaceInfo struct {
	Name    string `json:"name"`
	RxBytes string `json:"rx_bytes"`
	TxBytes string `json:"tx_bytes"`
	MTU     string `json:"mtu"`
	IPv4    string `json:"ipv4"`
	IPv6    string `json:"ipv6"`
}

// PeerSummary is one row of the peer table.
type PeerSummary struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	Online   bool   `json:"online"`
	Relay    string `json:"relay"`
	Direct   bool   `json:"direct"`
	RxBytes  string `json:"rx_bytes"`
	TxBytes  string `json:"tx_bytes"`
}

// PeerStatus carries either a displayable error message or the peer list,
// never both.
type PeerStatus struct {
	Error string        `json:"error,omitempty"`
	Peers []PeerSummary `json:"peers"`
}

// StatusReport is the combined result of one refresh cycle. It is always
// fully formed: a failed collection shows up as a nil Interface or a
// PeerStatus error, not as a missing report.
type StatusReport struct {
	Interface *InterfaceInfo `json:"interface"`
	Peers     PeerStatus     `json:"peers"`
}
