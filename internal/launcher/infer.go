package launcher

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	aws_s3 "github.com/aws/graphstorm-tester/pkg/aws/s3"
	aws_sagemaker "github.com/aws/graphstorm-tester/pkg/aws/sagemaker"
	"github.com/aws/graphstorm-tester/pkg/timeutil"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Infer launches a GraphStorm SageMaker inference job.
func (ts *Launcher) Infer() (err error) {
	if !ts.cfg.Infer.Enable {
		return errors.New("Infer.Enable is false; nothing to launch")
	}

	fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
	fmt.Fprintf(ts.logWriter, ts.color("[light_green]INFER START [default](%q)\n"), ts.cfg.ConfigPath)

	now := time.Now()

	defer func() {
		fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
		fmt.Fprintf(ts.logWriter, ts.color("[light_green]INFER DEFER START [default](%q)\n"), ts.cfg.ConfigPath)
		ts.logFile.Sync()

		if serr := ts.uploadToS3(); serr != nil {
			ts.lg.Warn("failed to upload artifacts to S3", zap.Error(serr))
		}

		if err == nil {
			ts.lg.Info("Infer succeeded",
				zap.String("job-name", ts.cfg.Infer.JobName),
				zap.String("started", humanize.RelTime(now, time.Now(), "ago", "from now")),
			)
			fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
			fmt.Fprint(ts.logWriter, ts.color("\n\n💯 😁 👍 :) [light_green]INFER SUCCESS\n\n\n"))
		} else {
			ts.lg.Warn("Infer failed",
				zap.String("started", humanize.RelTime(now, time.Now(), "ago", "from now")),
				zap.Error(err),
			)
			fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
			fmt.Fprint(ts.logWriter, ts.color("🔥 💀 👽 😱 😡 (-_-) [light_magenta]INFER FAIL\n"))
		}
		ts.logFile.Sync()
	}()

	ts.lg.Info("Infer started", zap.String("name", ts.cfg.Name))
	defer ts.cfg.Sync()

	fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
	fmt.Fprintf(ts.logWriter, ts.color("[light_green]checkImage [default](%q)\n"), ts.cfg.ConfigPath)
	if err := catchInterrupt(
		ts.lg,
		ts.stopCreationCh,
		ts.stopCreationChOnce,
		ts.osSig,
		ts.checkImage,
	); err != nil {
		return err
	}

	fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
	fmt.Fprintf(ts.logWriter, ts.color("[light_green]stageInferYaml [default](%q)\n"), ts.cfg.ConfigPath)
	if err := catchInterrupt(
		ts.lg,
		ts.stopCreationCh,
		ts.stopCreationChOnce,
		ts.osSig,
		ts.stageInferYaml,
	); err != nil {
		return err
	}

	fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
	fmt.Fprintf(ts.logWriter, ts.color("[light_green]launchInfer [default](%q)\n"), ts.cfg.ConfigPath)
	if err := catchInterrupt(
		ts.lg,
		ts.stopCreationCh,
		ts.stopCreationChOnce,
		ts.osSig,
		ts.launchInfer,
	); err != nil {
		return err
	}

	if ts.cfg.Infer.WaitForCompletion {
		fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
		fmt.Fprintf(ts.logWriter, ts.color("[light_green]waitInfer [default](%q)\n"), ts.cfg.ConfigPath)
		if err := catchInterrupt(
			ts.lg,
			ts.stopCreationCh,
			ts.stopCreationChOnce,
			ts.osSig,
			ts.waitInfer,
		); err != nil {
			return err
		}
	}

	return ts.cfg.Sync()
}

func (ts *Launcher) stageInferYaml() error {
	return ts.stageYaml(ts.cfg.Infer.InferYamlS3, ts.cfg.Infer.LocalYamlPath)
}

func (ts *Launcher) launchInfer() (err error) {
	createStart := time.Now()
	out, err := ts.runLaunchScript(ts.cfg.InferScriptPath(), ts.cfg.InferArgs(), ts.cfg.Infer.WaitTimeout)
	ts.cfg.Infer.TimeFrameLaunch = timeutil.NewTimeFrame(createStart, time.Now())

	fmt.Fprintf(ts.logWriter, "\n\n\"%s\" output:\n\n%s\n\n", ts.cfg.InferCommand(), string(out))
	if err != nil {
		return err
	}

	if name := parseJobName(out); name != "" {
		ts.cfg.Infer.JobName = name
		ts.lg.Info("captured inference job name", zap.String("job-name", name))
	} else {
		ts.lg.Warn("inference job name not found in launch output")
	}
	return ts.cfg.Sync()
}

// waitInfer waits until the inference job completes and the inferred
// embeddings land in S3. The embedding writer saves "emb_info.json"
// next to the embedding tensors once all of them are flushed.
func (ts *Launcher) waitInfer() (err error) {
	if ts.cfg.Infer.JobName != "" {
		status, werr := aws_sagemaker.WaitForTrainingJob(
			ts.lg,
			ts.sagemakerAPI,
			ts.stopCreationCh,
			ts.cfg.Infer.JobName,
			ts.cfg.Infer.PollInterval,
			ts.cfg.Infer.WaitTimeout,
		)
		if werr != nil {
			return werr
		}
		ts.lg.Info("inference job finished", zap.String("job-name", ts.cfg.Infer.JobName), zap.String("status", status))
	}

	bucket, key, err := aws_s3.ParseURI(ts.cfg.Infer.EmbS3Output)
	if err != nil {
		return err
	}
	embKey := path.Join(key, "emb_info.json")

	ctx, cancel := context.WithTimeout(context.Background(), ts.cfg.Infer.WaitTimeout)
	ch := aws_s3.PollUntilExist(
		ctx,
		ts.stopCreationCh,
		ts.lg,
		ts.logWriter,
		ts.s3API,
		bucket,
		embKey,
		10*time.Second,
		ts.cfg.Infer.PollInterval,
	)
	for v := range ch {
		err = v.Error
	}
	cancel()
	if err != nil {
		return err
	}

	ts.lg.Info("found inferred embeddings", zap.String("s3-bucket", bucket), zap.String("s3-key", embKey))
	return ts.cfg.Sync()
}
