// Package sagemaker implements SageMaker training job utilities.
package sagemaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemaker/sagemakeriface"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// WaitForTrainingJob polls the training job status until the job
// reaches "Completed", "Failed" or "Stopped". The launch scripts own
// the job lifecycle; this only observes. It returns the last observed
// status, with a non-nil error when the job did not complete.
func WaitForTrainingJob(
	lg *zap.Logger,
	svc sagemakeriface.SageMakerAPI,
	stopc chan struct{},
	jobName string,
	pollInterval time.Duration,
	timeout time.Duration,
) (status string, err error) {
	if jobName == "" {
		return "", errors.New("training job name is empty")
	}
	if pollInterval == 0 {
		pollInterval = 30 * time.Second
	}

	now := time.Now()
	deadline := now.Add(timeout)
	lg.Info("waiting for training job",
		zap.String("job-name", jobName),
		zap.Duration("poll-interval", pollInterval),
		zap.Duration("timeout", timeout),
	)

	// very first poll should be no-wait
	// in case the job has already completed
	interval := time.Duration(0)
	for {
		select {
		case <-stopc:
			return status, errors.New("wait stopped")
		case <-time.After(interval):
			if interval == time.Duration(0) {
				interval = pollInterval
			}
		}
		if timeout > 0 && time.Now().After(deadline) {
			return status, fmt.Errorf("training job %q did not finish in %v (last status %q)", jobName, timeout, status)
		}

		out, derr := svc.DescribeTrainingJob(&sagemaker.DescribeTrainingJobInput{
			TrainingJobName: aws.String(jobName),
		})
		if derr != nil {
			// the launch script registers the job asynchronously,
			// so the first describes may race the job creation
			if aerr, ok := derr.(awserr.Error); ok && aerr.Code() == "ValidationException" {
				lg.Info("training job not found yet; retrying", zap.String("job-name", jobName), zap.Error(derr))
				continue
			}
			lg.Warn("failed to describe training job", zap.String("job-name", jobName), zap.Error(derr))
			return status, derr
		}

		status = aws.StringValue(out.TrainingJobStatus)
		lg.Info("polled training job",
			zap.String("job-name", jobName),
			zap.String("status", status),
			zap.String("secondary-status", aws.StringValue(out.SecondaryStatus)),
			zap.String("started", humanize.RelTime(now, time.Now(), "ago", "from now")),
		)

		switch status {
		case sagemaker.TrainingJobStatusCompleted:
			return status, nil
		case sagemaker.TrainingJobStatusFailed:
			return status, fmt.Errorf("training job %q failed: %s", jobName, aws.StringValue(out.FailureReason))
		case sagemaker.TrainingJobStatusStopped:
			return status, fmt.Errorf("training job %q stopped", jobName)
		}
	}
}
