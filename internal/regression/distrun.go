package regression

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/graphstorm-tester/gsconfig"
	"github.com/aws/graphstorm-tester/internal/cluster"
	"github.com/aws/graphstorm-tester/internal/ssh"
	"github.com/aws/graphstorm-tester/pkg/fileutil"
	"github.com/aws/graphstorm-tester/pkg/timeutil"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DistRun runs the command on every regression cluster host, wrapped
// to execute inside the GraphStorm container. An empty command falls
// back to "Regression.RunCommand".
func (ts *Tester) DistRun(command string) (err error) {
	if !ts.cfg.Regression.Enable {
		return errors.New("Regression.Enable is false; nothing to run")
	}
	if err = ts.resolveHosts(); err != nil {
		return err
	}
	if _, err = ts.fanOut(ts.cfg.DistRunCommand(command)); err != nil {
		return err
	}
	ts.cfg.Up = true
	return ts.cfg.Sync()
}

func (ts *Tester) distRun() (err error) {
	if err = ts.resolveHosts(); err != nil {
		return err
	}
	if n := int32(len(ts.hosts)); n != ts.cfg.Regression.PartitionCount {
		return fmt.Errorf("%d cluster hosts for %d graph partitions", n, ts.cfg.Regression.PartitionCount)
	}

	createStart := time.Now()
	outputs, err := ts.fanOut(ts.cfg.DistRunCommand(""))
	ts.cfg.Regression.TimeFrameDistRun = timeutil.NewTimeFrame(createStart, time.Now())
	if err != nil {
		return err
	}

	ts.outputs = outputs
	ts.cfg.Up = true
	return ts.cfg.Sync()
}

// resolveHosts loads the cluster hosts from "IPListPath" when the file
// exists, otherwise discovers them by the EC2 cluster tag. Rank 0 is
// the leader whose output carries the evaluation scores.
func (ts *Tester) resolveHosts() (err error) {
	if len(ts.hosts) > 0 {
		return nil
	}

	if fileutil.Exist(ts.cfg.Regression.IPListPath) {
		ts.hosts, err = cluster.LoadIPList(ts.cfg.Regression.IPListPath)
		if err != nil {
			return err
		}
		instances := make([]gsconfig.Instance, 0, len(ts.hosts))
		for _, host := range ts.hosts {
			ip, _, perr := net.SplitHostPort(host.Addr)
			if perr != nil {
				ip = host.Addr
			}
			instances = append(instances, gsconfig.Instance{PrivateIP: ip})
		}
		ts.cfg.Regression.Hosts = instances
		ts.lg.Info("loaded cluster hosts from IP list",
			zap.String("ip-list-path", ts.cfg.Regression.IPListPath),
			zap.Int("hosts", len(ts.hosts)),
		)
		return ts.cfg.Sync()
	}

	if ts.cfg.Regression.ClusterTagKey == "" || ts.cfg.Regression.ClusterTagValue == "" {
		return fmt.Errorf("IP list %q does not exist and no cluster tag is set to discover hosts", ts.cfg.Regression.IPListPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	instances, err := cluster.Discover(ctx, ts.lg, ts.ec2APIV2, ts.cfg.Regression.ClusterTagKey, ts.cfg.Regression.ClusterTagValue)
	cancel()
	if err != nil {
		return err
	}
	ts.hosts, err = cluster.FromInstances(instances)
	if err != nil {
		return err
	}
	ts.cfg.Regression.Hosts = instances
	ts.lg.Info("discovered cluster hosts",
		zap.String("tag-key", ts.cfg.Regression.ClusterTagKey),
		zap.String("tag-value", ts.cfg.Regression.ClusterTagValue),
		zap.Int("hosts", len(ts.hosts)),
	)
	return ts.cfg.Sync()
}

type hostResult struct {
	rank    int
	addr    string
	out     []byte
	outPath string
	errs    []string
}

// fanOut runs the command on every resolved host concurrently and
// returns the combined outputs keyed by rank. Host outputs are saved
// under "LogsDir" when "FetchLogs" is set. Per-host errors are
// collected; any of them fails the whole fan-out.
func (ts *Tester) fanOut(command string) (outputs map[int][]byte, err error) {
	if len(ts.hosts) == 0 {
		return nil, errors.New("no cluster hosts resolved")
	}

	logsDir := ts.cfg.Regression.LogsDir
	if ts.cfg.Regression.FetchLogs {
		if err = os.MkdirAll(logsDir, 0755); err != nil {
			return nil, err
		}
	}

	ts.lg.Info("running command on cluster hosts",
		zap.Int("hosts", len(ts.hosts)),
		zap.Float32("qps", ts.cfg.Regression.QPS),
		zap.Int32("burst", ts.cfg.Regression.Burst),
		zap.String("command", command),
	)
	rateLimiter := rate.NewLimiter(rate.Limit(ts.cfg.Regression.QPS), int(ts.cfg.Regression.Burst))

	rch, waits := make(chan hostResult, 10), 0
	for _, host := range ts.hosts {
		waits++
		ts.lg.Info("launching host command routine",
			zap.Int("rank", host.Rank),
			zap.String("addr", host.Addr),
		)
		go func(host cluster.Host) {
			select {
			case <-ts.stopCreationCh:
				ts.lg.Warn("exiting host command routine", zap.Int("rank", host.Rank), zap.String("addr", host.Addr))
				rch <- hostResult{rank: host.Rank, addr: host.Addr, errs: []string{"stopped"}}
				return
			default:
			}

			if !rateLimiter.Allow() {
				ts.lg.Debug("waiting for rate limiter", zap.Int("rank", host.Rank), zap.String("addr", host.Addr))
				werr := rateLimiter.Wait(context.Background())
				ts.lg.Debug("waited for rate limiter", zap.Error(werr))
			}

			sh, serr := ssh.New(ssh.Config{
				Logger:   ts.lg,
				KeyPath:  ts.cfg.Regression.SSHKeyPath,
				Addr:     host.Addr,
				UserName: ts.cfg.Regression.SSHUser,
			})
			if serr != nil {
				rch <- hostResult{rank: host.Rank, addr: host.Addr, errs: []string{serr.Error()}}
				return
			}
			if serr = sh.Connect(); serr != nil {
				rch <- hostResult{rank: host.Rank, addr: host.Addr, errs: []string{fmt.Sprintf("failed to connect to %s (%v)", host.Addr, serr)}}
				return
			}
			defer sh.Close()

			out, serr := sh.Run(
				command,
				ssh.WithVerbose(ts.cfg.LogLevel == "debug"),
				ssh.WithTimeout(ts.cfg.Regression.CommandTimeout),
			)
			result := hostResult{rank: host.Rank, addr: host.Addr, out: out}
			if serr != nil {
				result.errs = append(result.errs, fmt.Sprintf("failed to run command on %s (%v)", host.Addr, serr))
			}
			if ts.cfg.Regression.FetchLogs {
				fpath := filepath.Join(logsDir, outputFileName(host.Rank, host.Addr))
				if werr := os.WriteFile(fpath, out, 0644); werr != nil {
					result.errs = append(result.errs, fmt.Sprintf("failed to save output of %s (%v)", host.Addr, werr))
				} else {
					result.outPath = fpath
				}
			}
			rch <- result
		}(host)
	}

	outputs = make(map[int][]byte, waits)
	outPaths := make(map[int]string, waits)
	total, errs := 0, make([]string, 0)
	for i := 0; i < waits; i++ {
		var result hostResult
		select {
		case result = <-rch:
		case <-ts.stopCreationCh:
			ts.lg.Warn("stopped waiting for host command results")
			return nil, errors.New("distributed run stopped")
		}
		outputs[result.rank] = result.out
		if result.outPath != "" {
			outPaths[result.rank] = result.outPath
		}
		total += len(result.out)
		errs = append(errs, result.errs...)
	}
	ts.outPaths = outPaths

	ts.lg.Info("ran command on all cluster hosts",
		zap.Int("hosts", waits),
		zap.String("total-output-size", humanize.Bytes(uint64(total))),
	)
	if len(errs) > 0 {
		return outputs, errors.New(strings.Join(errs, ", "))
	}
	return outputs, nil
}

func outputFileName(rank int, addr string) string {
	return fmt.Sprintf("%d-%s.out.log", rank, strings.ReplaceAll(addr, ":", "-"))
}
