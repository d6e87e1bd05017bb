// Package netutil picks local interfaces for console-facing sockets.
package netutil

import (
	"fmt"
	"net"
)

// LocalIPInSubnet returns the first local IPv4 address whose interface
// network contains target, or "" when no interface is on that subnet.
func LocalIPInSubnet(target string) (string, error) {
	ip := net.ParseIP(target)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 address %q", target)
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("list interface addresses: %w", err)
	}
	return matchSubnet(ip, addrs), nil
}

func matchSubnet(ip net.IP, addrs []net.Addr) string {
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.To4() == nil {
			continue
		}
		if ipNet.Contains(ip) {
			return ipNet.IP.String()
		}
	}
	return ""
}

// BindHost returns the interface address on target's subnet, falling back to
// all interfaces.
func BindHost(target string) string {
	host, err := LocalIPInSubnet(target)
	if err != nil || host == "" {
		return "0.0.0.0"
	}
	return host
}
