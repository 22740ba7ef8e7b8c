package sagemaker

import (
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/service/sagemaker"
	pkg_aws "github.com/aws/graphstorm-tester/pkg/aws"
	"go.uber.org/zap"
)

func TestWaitForTrainingJob(t *testing.T) {
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

	svc := sagemaker.New(ss)
	stopc := make(chan struct{})
	status, err := WaitForTrainingJob(lg, svc, stopc, "graphstorm-mag-lp", 30*time.Second, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Println(status)
}

func TestWaitForTrainingJobEmptyName(t *testing.T) {
	if _, err := WaitForTrainingJob(zap.NewExample(), nil, nil, "", 0, 0); err == nil {
		t.Fatal("expected error for empty job name")
	}
}
