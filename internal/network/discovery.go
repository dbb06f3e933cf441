// Package network provides LAN discovery and address utilities.
package network

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DiscoveredHost represents a HID server found on the network
type DiscoveredHost struct {
	IP            string `json:"ip"`
	Port          int    `json:"port"`
	TLS           bool   `json:"tls"`
	Status        string `json:"status,omitempty"`
	CurrentScript string `json:"current_script,omitempty"`
}

// GetLocalIP returns the primary local IP address
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// scanWorkers bounds concurrent probes so a scan does not open 254
// sockets at once on constrained gadget hardware.
const scanWorkers = 32

// ScanLAN probes every address of the local /24 for HID servers
// listening on the given port.
func ScanLAN(port int) ([]DiscoveredHost, error) {
	localIP, err := GetLocalIP()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IP: %w", err)
	}

	parts := strings.Split(localIP, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid IP address format: %s", localIP)
	}
	subnet := strings.Join(parts[:3], ".")

	candidates := make(chan string)
	results := make(chan DiscoveredHost)

	var wg sync.WaitGroup
	for w := 0; w < scanWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ip := range candidates {
				if host, ok := probeHost(ip, port); ok {
					results <- host
				}
			}
		}()
	}

	go func() {
		for i := 1; i <= 254; i++ {
			ip := fmt.Sprintf("%s.%d", subnet, i)
			if ip == localIP {
				continue
			}
			candidates <- ip
		}
		close(candidates)
		wg.Wait()
		close(results)
	}()

	var hosts []DiscoveredHost
	for host := range results {
		hosts = append(hosts, host)
	}
	return hosts, nil
}

// probeHost checks if a host answers the HID server health check. Servers
// running with self-signed TLS are probed over https as a fallback.
func probeHost(ip string, port int) (DiscoveredHost, bool) {
	for _, scheme := range []string{"http", "https"} {
		if host, ok := probeScheme(scheme, ip, port); ok {
			return host, true
		}
	}
	return DiscoveredHost{}, false
}

func probeScheme(scheme, ip string, port int) (DiscoveredHost, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	client := &http.Client{
		Timeout: 500 * time.Millisecond,
		Transport: &http.Transport{
			// Discovered servers use self-signed certificates
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	// First check health endpoint
	healthURL := fmt.Sprintf("%s://%s:%d/health", scheme, ip, port)
	req, err := http.NewRequestWithContext(ctx, "GET", healthURL, nil)
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

	host := DiscoveredHost{IP: ip, Port: port, TLS: scheme == "https"}

	// Try to enrich with engine status. This fails on servers with a
	// token configured, which still counts as discovered.
	statusURL := fmt.Sprintf("%s://%s:%d/api/v1/status", scheme, ip, port)
	req, err = http.NewRequestWithContext(ctx, "GET", statusURL, nil)
	if err != nil {
		return host, true
	}

	resp, err = client.Do(req)
	if err != nil {
		return host, true
	}
	defer resp.Body.Close()

	var status struct {
		Status        string `json:"status"`
		CurrentScript string `json:"current_script"`
	}

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&status); err == nil {
			host.Status = status.Status
			host.CurrentScript = status.CurrentScript
		}
	}

	return host, true
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
