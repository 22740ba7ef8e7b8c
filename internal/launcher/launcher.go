// Package launcher launches GraphStorm SageMaker training and
// inference jobs through the GraphStorm launch scripts.
package launcher

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ecr"
	"github.com/aws/aws-sdk-go/service/ecr/ecriface"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemaker/sagemakeriface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/graphstorm-tester/gsconfig"
	pkg_aws "github.com/aws/graphstorm-tester/pkg/aws"
	"github.com/aws/graphstorm-tester/pkg/logutil"
	"github.com/aws/graphstorm-tester/version"
	"go.uber.org/zap"
)

// Launcher drives the GraphStorm SageMaker launch scripts.
// The scripts own the SageMaker job lifecycle; the launcher resolves
// the container image, stages the configuration YAML, forwards the
// launch arguments, and optionally waits for the job output.
type Launcher struct {
	color func(string) string

	stopCreationCh     chan struct{}
	stopCreationChOnce *sync.Once

	osSig chan os.Signal

	lg        *zap.Logger
	logWriter io.Writer
	logFile   *os.File

	cfg *gsconfig.Config

	awsSession *session.Session

	s3API        s3iface.S3API
	ecrAPI       ecriface.ECRAPI
	sagemakerAPI sagemakeriface.SageMakerAPI
}

// New creates a new SageMaker job launcher.
func New(cfg *gsconfig.Config) (*Launcher, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	lg, logWriter, logFile, err := logutil.NewWithStderrWriter(cfg.LogLevel, cfg.LogOutputs)
	if err != nil {
		return nil, err
	}
	lg.Info("set up log writer and file", zap.Strings("outputs", cfg.LogOutputs), zap.Bool("is-color", cfg.LogColor))
	cfg.Sync()

	fmt.Fprint(logWriter, cfg.Colorize("\n\n[yellow]*********************************\n"))
	fmt.Fprintln(logWriter, "😎 🙏 🚶 ✔️ 👍")
	fmt.Fprintf(logWriter, cfg.Colorize("[light_green]New %q [default](%q)\n"), cfg.ConfigPath, version.Version())

	ts := &Launcher{
		color:              cfg.Colorize,
		stopCreationCh:     make(chan struct{}),
		stopCreationChOnce: new(sync.Once),
		osSig:              make(chan os.Signal),
		lg:                 lg,
		logWriter:          logWriter,
		logFile:            logFile,
		cfg:                cfg,
	}
	signal.Notify(ts.osSig, syscall.SIGTERM, syscall.SIGINT)

	defer ts.cfg.Sync()

	awsCfg := &pkg_aws.Config{
		Logger:        ts.lg,
		DebugAPICalls: ts.cfg.LogLevel == "debug",
		Partition:     ts.cfg.Partition,
		Region:        ts.cfg.Region,
	}
	var stsOutput *sts.GetCallerIdentityOutput
	ts.awsSession, stsOutput, ts.cfg.AWSCredentialPath, err = pkg_aws.New(awsCfg)
	if err != nil {
		return nil, err
	}
	ts.cfg.AWSAccountID = aws.StringValue(stsOutput.Account)
	ts.cfg.AWSUserID = aws.StringValue(stsOutput.UserId)
	ts.cfg.AWSIAMRoleARN = aws.StringValue(stsOutput.Arn)
	if ts.cfg.ECR.RepoAccountID == "" {
		ts.cfg.ECR.RepoAccountID = ts.cfg.AWSAccountID
		ts.lg.Info("defaulted ECR repository account", zap.String("repo-account-id", ts.cfg.ECR.RepoAccountID))
	}
	ts.cfg.Sync()

	ts.s3API = s3.New(ts.awsSession)
	ts.ecrAPI = ecr.New(ts.awsSession, aws.NewConfig().WithRegion(ts.cfg.ECR.RepoRegion))
	ts.sagemakerAPI = sagemaker.New(ts.awsSession)

	return ts, nil
}

// the SageMaker Python SDK logs the job name on creation,
// e.g. "INFO:sagemaker:Creating training-job with name: gs-2023-..."
var jobNameRegex = regexp.MustCompile(`Creating (?:training|processing)-job with name: ([0-9A-Za-z][0-9A-Za-z-]*)`)

func parseJobName(output []byte) string {
	matched := jobNameRegex.FindSubmatch(output)
	if len(matched) != 2 {
		return ""
	}
	return string(matched[1])
}

func catchInterrupt(lg *zap.Logger, stopc chan struct{}, stopcCloseOnce *sync.Once, osSigCh chan os.Signal, run func() error) (err error) {
	errc := make(chan error)
	go func() {
		errc <- run()
	}()

	select {
	case _, ok := <-stopc:
		rerr := <-errc
		lg.Info("interrupted; stopc received, errc received", zap.Error(rerr))
		err = fmt.Errorf("stopc returned, stopc open %v, run function returned %v", ok, rerr)

	case osSig := <-osSigCh:
		stopcCloseOnce.Do(func() { close(stopc) })
		rerr := <-errc
		lg.Info("OS signal received, errc received", zap.String("signal", osSig.String()), zap.Error(rerr))
		err = fmt.Errorf("received os signal %v, closed stopc, run function returned %v", osSig, rerr)

	case err = <-errc:
		if err != nil {
			err = fmt.Errorf("run function returned %v", err)
		}
	}
	return err
}
