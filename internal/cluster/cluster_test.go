package cluster

import (
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/aws/graphstorm-tester/gsconfig"
)

func TestLoadIPList(t *testing.T) {
	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-ip-list")
	if err != nil {
		t.Fatal(err)
	}
	p := f.Name()
	f.Close()
	defer os.RemoveAll(p)

	ipList := `# regression cluster
172.31.14.1
172.31.14.2:2222

172.31.14.3   # leaseholder of /regression-tests-data
`
	if err = os.WriteFile(p, []byte(ipList), 0600); err != nil {
		t.Fatal(err)
	}

	hosts, err := LoadIPList(p)
	if err != nil {
		t.Fatal(err)
	}
	expected := []Host{
		{Addr: "172.31.14.1:22", Rank: 0},
		{Addr: "172.31.14.2:2222", Rank: 1},
		{Addr: "172.31.14.3:22", Rank: 2},
	}
	if !reflect.DeepEqual(hosts, expected) {
		t.Fatalf("unexpected hosts %+v", hosts)
	}
}

func TestLoadIPListInvalid(t *testing.T) {
	f, err := os.CreateTemp(os.TempDir(), "graphstorm-tester-ip-list")
	if err != nil {
		t.Fatal(err)
	}
	p := f.Name()
	f.Close()
	defer os.RemoveAll(p)

	if err = os.WriteFile(p, []byte("# nothing but comments\n\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err = LoadIPList(p); err == nil {
		t.Fatal("expected error for empty IP list")
	}

	if err = os.WriteFile(p, []byte("172.31.14.1:not-a-port\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err = LoadIPList(p); err == nil {
		t.Fatal("expected error for invalid port")
	}

	if _, err = LoadIPList("no-such-ip-list-file"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFromInstances(t *testing.T) {
	ts := time.Now()
	hosts, err := FromInstances([]gsconfig.Instance{
		{InstanceID: "i-0a1", PrivateIP: "172.31.14.1", LaunchTime: ts},
		{InstanceID: "i-0a2", PrivateIP: "172.31.14.2", LaunchTime: ts},
	})
	if err != nil {
		t.Fatal(err)
	}
	expected := []Host{
		{Addr: "172.31.14.1:22", Rank: 0},
		{Addr: "172.31.14.2:22", Rank: 1},
	}
	if !reflect.DeepEqual(hosts, expected) {
		t.Fatalf("unexpected hosts %+v", hosts)
	}

	if _, err = FromInstances([]gsconfig.Instance{{InstanceID: "i-0a3"}}); err == nil {
		t.Fatal("expected error for instance without private IP")
	}
}
