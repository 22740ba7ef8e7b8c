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

// Train launches a GraphStorm SageMaker training job.
func (ts *Launcher) Train() (err error) {
	if !ts.cfg.Train.Enable {
		return errors.New("Train.Enable is false; nothing to launch")
	}

	fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
	fmt.Fprintf(ts.logWriter, ts.color("[light_green]TRAIN START [default](%q)\n"), ts.cfg.ConfigPath)

	now := time.Now()

	defer func() {
		fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
		fmt.Fprintf(ts.logWriter, ts.color("[light_green]TRAIN DEFER START [default](%q)\n"), ts.cfg.ConfigPath)
		ts.logFile.Sync()

		if serr := ts.uploadToS3(); serr != nil {
			ts.lg.Warn("failed to upload artifacts to S3", zap.Error(serr))
		}

		if err == nil {
			ts.lg.Info("Train succeeded",
				zap.String("job-name", ts.cfg.Train.JobName),
				zap.String("started", humanize.RelTime(now, time.Now(), "ago", "from now")),
			)
			fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
			fmt.Fprint(ts.logWriter, ts.color("\n\n💯 😁 👍 :) [light_green]TRAIN SUCCESS\n\n\n"))
		} else {
			ts.lg.Warn("Train failed",
				zap.String("started", humanize.RelTime(now, time.Now(), "ago", "from now")),
				zap.Error(err),
			)
			fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
			fmt.Fprint(ts.logWriter, ts.color("🔥 💀 👽 😱 😡 (-_-) [light_magenta]TRAIN FAIL\n"))
		}
		ts.logFile.Sync()
	}()

	ts.lg.Info("Train started", zap.String("name", ts.cfg.Name))
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
	fmt.Fprintf(ts.logWriter, ts.color("[light_green]stageTrainYaml [default](%q)\n"), ts.cfg.ConfigPath)
	if err := catchInterrupt(
		ts.lg,
		ts.stopCreationCh,
		ts.stopCreationChOnce,
		ts.osSig,
		ts.stageTrainYaml,
	); err != nil {
		return err
	}

	fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
	fmt.Fprintf(ts.logWriter, ts.color("[light_green]launchTrain [default](%q)\n"), ts.cfg.ConfigPath)
	if err := catchInterrupt(
		ts.lg,
		ts.stopCreationCh,
		ts.stopCreationChOnce,
		ts.osSig,
		ts.launchTrain,
	); err != nil {
		return err
	}

	if ts.cfg.Train.WaitForCompletion {
		fmt.Fprint(ts.logWriter, ts.color("\n\n[yellow]*********************************\n"))
		fmt.Fprintf(ts.logWriter, ts.color("[light_green]waitTrain [default](%q)\n"), ts.cfg.ConfigPath)
		if err := catchInterrupt(
			ts.lg,
			ts.stopCreationCh,
			ts.stopCreationChOnce,
			ts.osSig,
			ts.waitTrain,
		); err != nil {
			return err
		}
	}

	return ts.cfg.Sync()
}

func (ts *Launcher) stageTrainYaml() error {
	return ts.stageYaml(ts.cfg.Train.TrainYamlS3, ts.cfg.Train.LocalYamlPath)
}

func (ts *Launcher) launchTrain() (err error) {
	createStart := time.Now()
	out, err := ts.runLaunchScript(ts.cfg.TrainScriptPath(), ts.cfg.TrainArgs(), ts.cfg.Train.WaitTimeout)
	ts.cfg.Train.TimeFrameLaunch = timeutil.NewTimeFrame(createStart, time.Now())

	fmt.Fprintf(ts.logWriter, "\n\n\"%s\" output:\n\n%s\n\n", ts.cfg.TrainCommand(), string(out))
	if err != nil {
		return err
	}

	if name := parseJobName(out); name != "" {
		ts.cfg.Train.JobName = name
		ts.lg.Info("captured training job name", zap.String("job-name", name))
	} else {
		ts.lg.Warn("training job name not found in launch output")
	}
	return ts.cfg.Sync()
}

// waitTrain waits until the training job completes and the model
// artifact lands in S3. SageMaker writes the artifact to
// "<ModelArtifactS3>/<job name>/output/model.tar.gz".
func (ts *Launcher) waitTrain() (err error) {
	if ts.cfg.Train.JobName == "" {
		return errors.New("cannot wait for completion; training job name was not captured from the launch output")
	}

	status, err := aws_sagemaker.WaitForTrainingJob(
		ts.lg,
		ts.sagemakerAPI,
		ts.stopCreationCh,
		ts.cfg.Train.JobName,
		ts.cfg.Train.PollInterval,
		ts.cfg.Train.WaitTimeout,
	)
	if err != nil {
		return err
	}
	ts.lg.Info("training job finished", zap.String("job-name", ts.cfg.Train.JobName), zap.String("status", status))

	bucket, key, err := aws_s3.ParseURI(ts.cfg.Train.ModelArtifactS3)
	if err != nil {
		return err
	}
	artifactKey := path.Join(key, ts.cfg.Train.JobName, "output", "model.tar.gz")

	ctx, cancel := context.WithTimeout(context.Background(), ts.cfg.Train.WaitTimeout)
	ch := aws_s3.PollUntilExist(
		ctx,
		ts.stopCreationCh,
		ts.lg,
		ts.logWriter,
		ts.s3API,
		bucket,
		artifactKey,
		10*time.Second,
		ts.cfg.Train.PollInterval,
	)
	for v := range ch {
		err = v.Error
	}
	cancel()
	if err != nil {
		return err
	}

	ts.lg.Info("found model artifact", zap.String("s3-bucket", bucket), zap.String("s3-key", artifactKey))
	return ts.cfg.Sync()
}
