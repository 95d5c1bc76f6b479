package validation

import (
	"net"
	"syscall"

	"github.com/nijaru/yt-blog/errors"
)

var reservedNets = mustParseCIDRs(
	"0.0.0.0/8",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"198.18.0.0/15",
	"240.0.0.0/4",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateIP reports whether ip is not publicly routable.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	for _, n := range reservedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// DenyPrivateDial is a net.Dialer Control hook. It runs after DNS
// resolution, so hostnames that resolve to internal addresses are refused
// as well as literal IPs.
func DenyPrivateDial(network, address string, _ syscall.RawConn) error {
	const op = "validation.DenyPrivateDial"

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid dial address")
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return errors.InvalidInput(op, nil, "Invalid dial address")
	}
	if IsPrivateIP(ip) {
		return errors.InvalidInput(op, nil, "URL must point to a public host")
	}
	return nil
}
