package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/causeless8t/SocketBase/neterr"
	"github.com/causeless8t/SocketBase/util"
)

// ResolveEndpoint resolves host to a dialable "ip:port" string using
// the IPv4 selection policy of [PickIPv4].
func ResolveEndpoint(ctx context.Context, host string, port int) (string, error) {
	ip, err := ResolveIPv4(ctx, host)
	if err != nil {
		return "", err
	}
	return util.FormatAddr(ip, port), nil
}

// ResolveIPv4 resolves host to a single IPv4 address.  IP literals
// short-circuit the resolver; IPv6 literals are rejected because the
// wire protocol is only deployed on IPv4 networks.
func ResolveIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return "", fmt.Errorf("resolving %q: %w", host, neterr.ErrNoIPv4)
		}
		return host, nil
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", host, err)
	}
	picked := PickIPv4(addrs, host)
	if picked == "" {
		return "", fmt.Errorf("resolving %q: %w", host, neterr.ErrNoIPv4)
	}
	return picked, nil
}

// PickIPv4 chooses one address from resolver results: the first IPv4
// candidate wins, unless a later IPv4 candidate equals the queried
// name exactly, in which case that candidate wins.  Non-IPv4 results
// are skipped entirely.  Returns "" when no IPv4 candidate exists.
func PickIPv4(addrs []string, host string) string {
	picked := ""
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil || ip.To4() == nil {
			continue
		}
		if a == host {
			return a
		}
		if picked == "" {
			picked = a
		}
	}
	return picked
}
