// Package network provides LAN discovery and the controller-side client.
package network

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// ServiceName is what a server reports in its /health response.
const ServiceName = "lrc"

const probeTimeout = 500 * time.Millisecond

// DiscoveredHost is a server found on the network.
type DiscoveredHost struct {
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	Service string `json:"service"`
}

// Addr returns host:port for dialing.
func (h DiscoveredHost) Addr() string {
	return net.JoinHostPort(h.IP, fmt.Sprint(h.Port))
}

// GetLocalIP returns the address of the interface that routes outbound traffic.
// No packet is sent.
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// ScanLAN probes every address of the local /24 for a running server.
// Results are sorted by IP.
func ScanLAN(ctx context.Context, port int) ([]DiscoveredHost, error) {
	localIP, err := GetLocalIP()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IP: %w", err)
	}

	parts := strings.Split(localIP, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid IP address format: %s", localIP)
	}
	subnet := strings.Join(parts[:3], ".")

	candidates := make([]string, 0, 253)
	for i := 1; i <= 254; i++ {
		ip := fmt.Sprintf("%s.%d", subnet, i)
		if ip != localIP {
			candidates = append(candidates, ip)
		}
	}

	client := &http.Client{Timeout: probeTimeout}
	return scan(ctx, client, candidates, port), nil
}

func scan(ctx context.Context, client *http.Client, ips []string, port int) []DiscoveredHost {
	var (
		hosts []DiscoveredHost
		mu    sync.Mutex
		wg    sync.WaitGroup
	)

	for _, ip := range ips {
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()

			if host, ok := ProbeHost(ctx, client, ip, port); ok {
				mu.Lock()
				hosts = append(hosts, host)
				mu.Unlock()
			}
		}(ip)
	}
	wg.Wait()

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].IP < hosts[j].IP })
	return hosts
}

// ProbeHost checks whether ip:port answers /health as a remote-control server.
func ProbeHost(ctx context.Context, client *http.Client, ip string, port int) (DiscoveredHost, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	healthURL := fmt.Sprintf("http://%s/health", net.JoinHostPort(ip, fmt.Sprint(port)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return DiscoveredHost{}, false
	}

	resp, err := client.Do(req)
	if err != nil {
		return DiscoveredHost{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DiscoveredHost{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return DiscoveredHost{}, false
	}
	if gjson.GetBytes(body, "service").String() != ServiceName {
		return DiscoveredHost{}, false
	}

	return DiscoveredHost{IP: ip, Port: port, Service: ServiceName}, true
}

// GetLocalIPs returns all available local IPv4 addresses
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue // interface down
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue // loopback interface
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue // not an ipv4 address
			}
			ips = append(ips, ip.String())
		}
	}
	return ips, nil
}
