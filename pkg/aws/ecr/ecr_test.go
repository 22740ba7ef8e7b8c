package ecr

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ecr"
	pkg_aws "github.com/aws/graphstorm-tester/pkg/aws"
	"go.uber.org/zap"
)

func TestCheck(t *testing.T) {
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

	ecrAPI := ecr.New(ss, aws.NewConfig().WithRegion("us-east-1"))
	img, err := Check(lg, ecrAPI, "123456789012", "graphstorm", "sm")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Println(img)
}
