package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
)

// A Found server announced itself on the local network.
type Found struct {
	Instance  string
	Addr      string // control host:port
	Transport string
	Width     int
	Height    int
}

func parseEntry(e *mdns.ServiceEntry) (Found, bool) {
	if e == nil || e.Port == 0 {
		return Found{}, false
	}

	var ip net.IP
	switch {
	case e.AddrV4 != nil:
		ip = e.AddrV4
	case e.AddrV6 != nil:
		ip = e.AddrV6
	default:
		return Found{}, false
	}

	f := Found{
		Instance:  strings.TrimSuffix(e.Name, "."+proto.ServiceType+".local."),
		Addr:      net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)),
		Transport: "rudp",
	}

	for _, field := range e.InfoFields {
		k, v, _ := strings.Cut(field, "=")
		switch k {
		case "transport":
			f.Transport = v
		case "size":
			fmt.Sscanf(v, "%dx%d", &f.Width, &f.Height)
		}
	}

	return f, true
}

// Discover browses for canvas servers until timeout or ctx ends.
func Discover(ctx context.Context, timeout time.Duration) ([]Found, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	errc := make(chan error, 1)

	go func() {
		errc <- mdns.Query(&mdns.QueryParam{
			Service:     proto.ServiceType,
			Timeout:     timeout,
			Entries:     entries,
			DisableIPv6: true,
		})
	}()

	var found []Found
	seen := make(map[string]bool)
	add := func(e *mdns.ServiceEntry) {
		if f, ok := parseEntry(e); ok && !seen[f.Addr] {
			seen[f.Addr] = true
			found = append(found, f)
		}
	}

	for {
		select {
		case e := <-entries:
			add(e)
		case err := <-errc:
			for {
				select {
				case e := <-entries:
					add(e)
				default:
					return found, err
				}
			}
		case <-ctx.Done():
			// Keep the query from blocking on a full channel.
			go func() {
				for {
					select {
					case <-entries:
					case <-errc:
						return
					}
				}
			}()
			return found, ctx.Err()
		}
	}
}
