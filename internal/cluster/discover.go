package cluster

import (
	"context"
	"fmt"
	"sort"

	aws_v2 "github.com/aws/aws-sdk-go-v2/aws"
	aws_ec2_v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	aws_ec2_v2_types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/graphstorm-tester/gsconfig"
	"go.uber.org/zap"
)

// Discover lists the running EC2 instances tagged with
// "tag:<tagKey>=<tagValue>" and returns them sorted by launch time,
// then instance ID, so rank assignment is stable across runs.
func Discover(
	ctx context.Context,
	lg *zap.Logger,
	cli *aws_ec2_v2.Client,
	tagKey string,
	tagValue string) ([]gsconfig.Instance, error) {

	if tagKey == "" || tagValue == "" {
		return nil, fmt.Errorf("empty cluster tag %q=%q", tagKey, tagValue)
	}

	lg.Info("discovering cluster instances",
		zap.String("tag-key", tagKey),
		zap.String("tag-value", tagValue),
	)
	instances := make([]gsconfig.Instance, 0)
	paginator := aws_ec2_v2.NewDescribeInstancesPaginator(cli, &aws_ec2_v2.DescribeInstancesInput{
		Filters: []aws_ec2_v2_types.Filter{
			{
				Name:   aws_v2.String("tag:" + tagKey),
				Values: []string{tagValue},
			},
			{
				Name:   aws_v2.String("instance-state-name"),
				Values: []string{"running"},
			},
		},
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			lg.Warn("failed to describe instances", zap.Error(err))
			return nil, err
		}
		for _, rv := range out.Reservations {
			for _, iv := range rv.Instances {
				instances = append(instances, gsconfig.ConvertInstance(iv))
			}
		}
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("no running instance found with tag %q=%q", tagKey, tagValue)
	}

	sort.Slice(instances, func(i, j int) bool {
		if instances[i].LaunchTime.Equal(instances[j].LaunchTime) {
			return instances[i].InstanceID < instances[j].InstanceID
		}
		return instances[i].LaunchTime.Before(instances[j].LaunchTime)
	})

	lg.Info("discovered cluster instances", zap.Int("instances", len(instances)))
	return instances, nil
}
