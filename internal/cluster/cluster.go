// Package cluster resolves the regression cluster hosts, either from
// a static IP list file or from EC2 instance tags.
package cluster

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/aws/graphstorm-tester/gsconfig"
)

// DefaultSSHPort is used when an IP list entry does not carry a port.
const DefaultSSHPort = 22

// Host is one machine in the regression cluster.
// The host with rank 0 runs the leader trainer; its output carries
// the evaluation scores.
type Host struct {
	// Addr is the SSH endpoint in "host:port" form.
	Addr string
	// Rank is the distributed worker rank, assigned by list order.
	Rank int
}

// LoadIPList parses an IP list file, one address per line, in the
// format the distributed launch tooling shares across machines.
// Lines starting with "#" and blank lines are skipped, inline "#"
// comments are stripped, and a missing port defaults to 22.
// Rank follows line order; the first address becomes rank 0.
func LoadIPList(p string) ([]Host, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hosts := make([]Host, 0)
	ln := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ln++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		addr := line
		if !strings.Contains(addr, ":") {
			addr = fmt.Sprintf("%s:%d", addr, DefaultSSHPort)
		}
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q at %s:%d (%v)", line, p, ln, err)
		}
		if host == "" {
			return nil, fmt.Errorf("empty host at %s:%d", p, ln)
		}
		if _, err = strconv.ParseUint(port, 10, 16); err != nil {
			return nil, fmt.Errorf("invalid port %q at %s:%d (%v)", port, p, ln, err)
		}

		hosts = append(hosts, Host{Addr: addr, Rank: len(hosts)})
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no addresses found in %q", p)
	}
	return hosts, nil
}

// FromInstances converts EC2 instances to hosts, ranked by slice
// order, dialing the private IP on the default SSH port.
func FromInstances(instances []gsconfig.Instance) ([]Host, error) {
	hosts := make([]Host, 0, len(instances))
	for _, iv := range instances {
		if iv.PrivateIP == "" {
			return nil, fmt.Errorf("instance %q has no private IP", iv.InstanceID)
		}
		hosts = append(hosts, Host{
			Addr: fmt.Sprintf("%s:%d", iv.PrivateIP, DefaultSSHPort),
			Rank: len(hosts),
		})
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no instances to convert")
	}
	return hosts, nil
}
