// Package cw implements CloudWatch metrics publishing.
package cw

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"go.uber.org/zap"
)

// PutData publishes the metrics data points to CloudWatch.
// PutMetricData accepts at most 20 data points per call, so the datums
// are published in batches of "batchN" (default and maximum 20).
// ref. https://docs.aws.amazon.com/AmazonCloudWatch/latest/APIReference/API_PutMetricData.html
func PutData(lg *zap.Logger, cwAPI cloudwatchiface.CloudWatchAPI, namespace string, batchN int, datums ...*cloudwatch.MetricDatum) (err error) {
	if namespace == "" {
		return fmt.Errorf("CloudWatch namespace is empty")
	}
	if len(datums) == 0 {
		return nil
	}
	if batchN <= 0 || batchN > 20 {
		batchN = 20
	}

	lg.Info("publishing to CloudWatch",
		zap.String("namespace", namespace),
		zap.Int("datums", len(datums)),
		zap.Int("batch-size", batchN),
	)
	for len(datums) > 0 {
		batch := datums
		if len(batch) > batchN {
			batch = batch[:batchN]
		}

		for i := 0; i < 5; i++ {
			_, err = cwAPI.PutMetricData(&cloudwatch.PutMetricDataInput{
				Namespace:  aws.String(namespace),
				MetricData: batch,
			})
			if err == nil {
				lg.Info("published batch", zap.Int("batch", len(batch)), zap.Int("remaining", len(datums)-len(batch)))
				break
			}
			lg.Warn("failed to publish batch",
				zap.Int("batch", len(batch)),
				zap.Bool("error-retriable", request.IsErrorRetryable(err)),
				zap.Bool("error-throttle", request.IsErrorThrottle(err)),
				zap.Error(err),
			)
			if !request.IsErrorRetryable(err) && !request.IsErrorThrottle(err) {
				return err
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		if err != nil {
			return err
		}

		datums = datums[len(batch):]
	}

	lg.Info("published to CloudWatch", zap.String("namespace", namespace))
	return nil
}
