package cw

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	pkg_aws "github.com/aws/graphstorm-tester/pkg/aws"
	"go.uber.org/zap"
)

func TestPutData(t *testing.T) {
	t.Skip()

	lg := zap.NewExample()
	ss, _, _, err := pkg_aws.New(&pkg_aws.Config{
		Logger:    lg,
		Partition: "aws",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Skip(err)
	}

	cwAPI := cloudwatch.New(ss)
	err = PutData(lg, cwAPI, "graphstorm-tester", 20,
		&cloudwatch.MetricDatum{
			Timestamp:  aws.Time(time.Now()),
			MetricName: aws.String("best-test-score"),
			Unit:       aws.String(cloudwatch.StandardUnitNone),
			Value:      aws.Float64(0.72),
			Dimensions: []*cloudwatch.Dimension{
				{Name: aws.String("Metric"), Value: aws.String("accuracy")},
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
}
