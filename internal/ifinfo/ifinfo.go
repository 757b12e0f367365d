// Package ifinfo resolves a network interface's own addresses - the
// "own MAC / own IPv4 / own IPv6 / MTU" defaults the compiler falls back
// to when a script leaves smac, sip or similar fields unset.
//
// Grounding: original_source's cInterface::getMAC/getIPv4/getIPv6/getMTU
// (src/os/linux/interface.cpp, src/os/posix/interface.cpp) resolve these
// properties with raw ioctl(SIOCGIFHWADDR/SIOCGIFADDR/SIOCGIFMTU) calls
// and getifaddrs(3) for the IPv6 walk. Go's net package already wraps the
// equivalent netlink/ioctl queries behind net.InterfaceByName, so no
// platform-specific syscalls are needed here - unlike internal/sink/rawsock,
// which must reach unix.Socket directly because net has no AF_PACKET send path.
package ifinfo

import (
	"fmt"
	"net"

	"github.com/pumptool/tcppump/internal/addr"
)

// Info holds the resolved identity of a network interface.
type Info struct {
	Name string
	MAC  addr.MAC
	IPv4 addr.IPv4 // zero value if the interface has no IPv4 address
	IPv6 addr.IPv6 // zero value if the interface has no IPv6 address
	MTU  int
}

// Lookup resolves MAC, bound IPv4/IPv6 addresses and MTU for ifName.
//
// An interface lacking an IPv4 or IPv6 address is not an error: the
// corresponding Info field is left zero, matching the original's
// "isNull" sentinel behavior - a script that never references sip/sip6
// on that interface still compiles.
func Lookup(ifName string) (Info, error) {
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return Info{}, fmt.Errorf("ifinfo: unknown interface %q: %w", ifName, err)
	}

	info := Info{
		Name: iface.Name,
		MTU:  iface.MTU,
	}

	if len(iface.HardwareAddr) >= 6 {
		copy(info.MAC[:], iface.HardwareAddr[:6])
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return Info{}, fmt.Errorf("ifinfo: reading addresses of %q: %w", ifName, err)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			if info.IPv4.IsNull() {
				copy(info.IPv4[:], v4)
			}
			continue
		}
		if v6 := ipNet.IP.To16(); v6 != nil && info.IPv6.IsNull() {
			if !ipNet.IP.IsLinkLocalUnicast() {
				copy(info.IPv6[:], v6)
			}
		}
	}

	return info, nil
}
