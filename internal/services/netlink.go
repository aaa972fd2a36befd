package services

import (
	"fmt"
	"net"

	"tailrouter/internal/models"

	"github.com/vishvananda/netlink"
)

// NetlinkService enumerates network interfaces for the read-only
// interfaces page. This GUI never mutates link state.
type NetlinkService struct{}

func NewNetlinkService() *NetlinkService {
	return &NetlinkService{}
}

func (s *NetlinkService) ListInterfaces() ([]models.NetworkInterface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	var interfaces []models.NetworkInterface
	for _, link := range links {
		interfaces = append(interfaces, linkToModel(link))
	}

	return interfaces, nil
}

func (s *NetlinkService) GetInterface(name string) (*models.NetworkInterface, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface not found: %w", err)
	}

	iface := linkToModel(link)
	return &iface, nil
}

func (s *NetlinkService) GetStats(name string) (*models.InterfaceStats, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface not found: %w", err)
	}

	attrs := link.Attrs()
	if attrs.Statistics == nil {
		return &models.InterfaceStats{}, nil
	}

	stats := attrs.Statistics
	return &models.InterfaceStats{
		RxBytes:   stats.RxBytes,
		TxBytes:   stats.TxBytes,
		RxPackets: stats.RxPackets,
		TxPackets: stats.TxPackets,
		RxErrors:  stats.RxErrors,
		TxErrors:  stats.TxErrors,
		RxDropped: stats.RxDropped,
		TxDropped: stats.TxDropped,
	}, nil
}

func linkToModel(link netlink.Link) models.NetworkInterface {
	attrs := link.Attrs()

	iface := models.NetworkInterface{
		Index: attrs.Index,
		Name:  attrs.Name,
		MTU:   attrs.MTU,
		Type:  link.Type(),
	}

	if attrs.HardwareAddr != nil {
		iface.MAC = attrs.HardwareAddr.String()
	}

	switch {
	case attrs.OperState == netlink.OperUp:
		iface.State = "UP"
	case attrs.OperState == netlink.OperDown:
		iface.State = "DOWN"
	case attrs.Flags&net.FlagUp != 0:
		iface.State = "UP"
	default:
		iface.State = "DOWN"
	}

	if attrs.Flags&net.FlagUp != 0 {
		iface.Flags = append(iface.Flags, "UP")
	}
	if attrs.Flags&net.FlagBroadcast != 0 {
		iface.Flags = append(iface.Flags, "BROADCAST")
	}
	if attrs.Flags&net.FlagLoopback != 0 {
		iface.Flags = append(iface.Flags, "LOOPBACK")
	}
	if attrs.Flags&net.FlagPointToPoint != 0 {
		iface.Flags = append(iface.Flags, "POINTTOPOINT")
	}
	if attrs.Flags&net.FlagMulticast != 0 {
		iface.Flags = append(iface.Flags, "MULTICAST")
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
	if err == nil {
		for _, addr := range addrs {
			if addr.IP.To4() != nil {
				iface.IPv4Addrs = append(iface.IPv4Addrs, addr.IPNet.String())
			} else {
				iface.IPv6Addrs = append(iface.IPv6Addrs, addr.IPNet.String())
			}
		}
	}

	return iface
}
