//go:build linux

package rawsock

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// conn wraps an AF_PACKET SOCK_RAW file descriptor bound to one
// interface. Ethertype is ETH_P_ALL so any frame the compiler produces
// (including custom or non-IP ethertypes) can be written as-is.
type conn struct {
	fd int
}

func openConn(ifName string) (*conn, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, htons(unix.ETH_P_ALL))
	if err != nil {
		return nil, fmt.Errorf("socket AF_PACKET: %w", err)
	}

	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("lookup interface %s: %w", ifName, err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind to %s (ifindex %d): %w", ifName, iface.Index, err)
	}

	return &conn{fd: fd}, nil
}

func (c *conn) write(frame []byte) error {
	return unix.Send(c.fd, frame, 0)
}

func (c *conn) close() error {
	return unix.Close(c.fd)
}

// htons converts a uint32 protocol number to network byte order as a
// uint16, matching the argument unix.Socket expects for AF_PACKET.
func htons(proto int) int {
	return int(uint16(proto)>>8 | uint16(proto)<<8)
}
