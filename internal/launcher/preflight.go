package launcher

import (
	"fmt"

	aws_ecr "github.com/aws/graphstorm-tester/pkg/aws/ecr"
	aws_s3 "github.com/aws/graphstorm-tester/pkg/aws/s3"
	"go.uber.org/zap"
)

// checkImage resolves the GraphStorm container image the launch
// scripts will hand to SageMaker. Failing here is much cheaper than
// failing inside the job.
func (ts *Launcher) checkImage() (err error) {
	img, err := aws_ecr.Check(
		ts.lg,
		ts.ecrAPI,
		ts.cfg.ECR.RepoAccountID,
		ts.cfg.ECR.RepoName,
		ts.cfg.ECR.RepoImageTag,
	)
	if err != nil {
		return err
	}
	ts.cfg.ECR.RepoURI = img
	ts.lg.Info("resolved GraphStorm image", zap.String("image", img))
	return ts.cfg.Sync()
}

// stageYaml uploads the local YAML to its S3 location when set, then
// verifies the object the launch script will read actually exists.
func (ts *Launcher) stageYaml(yamlS3 string, localPath string) (err error) {
	bucket, yamlKey, err := aws_s3.ParseURI(yamlS3)
	if err != nil {
		return err
	}
	if yamlKey == "" {
		return fmt.Errorf("S3 YAML %q does not name an object", yamlS3)
	}

	if localPath != "" {
		if err = aws_s3.Upload(ts.lg, ts.s3API, bucket, yamlKey, localPath); err != nil {
			return err
		}
	}

	if _, err = aws_s3.Exist(ts.lg, ts.s3API, bucket, yamlKey); err != nil {
		return fmt.Errorf("config YAML %q not found (%v)", yamlS3, err)
	}
	return nil
}
