package ifinfo

import "github.com/pumptool/tcppump/internal/addr"

// Overrides carries explicit CLI-flag values that take precedence over
// whatever Lookup discovers from the NIC driver. A zero-value field means
// "not overridden, use the NIC's own value".
type Overrides struct {
	MAC  *addr.MAC
	IPv4 *addr.IPv4
	IPv6 *addr.IPv6
	MTU  int // 0 means "not overridden"
}

// Resolve merges Overrides onto the NIC-discovered Info, giving flags
// priority - the "own MAC / own IPv4 / own IPv6 / MTU / interface name
// block populated from CLI flags or the NIC driver" behavior.
func Resolve(ifName string, o Overrides) (Info, error) {
	info, err := Lookup(ifName)
	if err != nil {
		return Info{}, err
	}
	if o.MAC != nil {
		info.MAC = *o.MAC
	}
	if o.IPv4 != nil {
		info.IPv4 = *o.IPv4
	}
	if o.IPv6 != nil {
		info.IPv6 = *o.IPv6
	}
	if o.MTU > 0 {
		info.MTU = o.MTU
	}
	return info, nil
}
