package ssh

import (
	"os"
	"testing"
	"time"

	"github.com/aws/graphstorm-tester/pkg/zaputil"
)

// requires a reachable host; run with
// GRAPHSTORM_TESTER_SSH_ADDR=<host>:22 GRAPHSTORM_TESTER_SSH_KEY_PATH=<pem>
func TestSSH(t *testing.T) {
	t.Skip()

	lg, err := zaputil.New(true, []string{"stderr"})
	if err != nil {
		t.Fatal(err)
	}

	sh, err := New(Config{
		Logger:   lg,
		KeyPath:  os.Getenv("GRAPHSTORM_TESTER_SSH_KEY_PATH"),
		Addr:     os.Getenv("GRAPHSTORM_TESTER_SSH_ADDR"),
		UserName: "ec2-user",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err = sh.Connect(); err != nil {
		t.Fatal(err)
	}
	defer sh.Close()

	out, err := sh.Run("printenv", WithVerbose(true), WithTimeout(15*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("'printenv' output:\n%s", out)

	out, err = sh.Run(
		"docker ps",
		WithVerbose(true),
		WithTimeout(15*time.Second),
		WithRetry(3, 3*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("'docker ps' output:\n%s", out)
}
