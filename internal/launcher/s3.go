package launcher

import (
	"path"
	"path/filepath"

	aws_s3 "github.com/aws/graphstorm-tester/pkg/aws/s3"
	"github.com/aws/graphstorm-tester/pkg/fileutil"
)

func (ts *Launcher) uploadToS3() (err error) {
	if ts.cfg.S3 == nil || ts.cfg.S3.BucketName == "" {
		ts.lg.Info("skipping s3 uploads; s3 bucket name is empty")
		return nil
	}
	if ts.cfg.S3.BucketCreate {
		if err = aws_s3.CreateBucket(
			ts.lg,
			ts.s3API,
			ts.cfg.S3.BucketName,
			ts.cfg.Region,
			ts.cfg.S3.Dir,
			ts.cfg.S3.BucketLifecycleExpirationDays,
		); err != nil {
			return err
		}
	}

	if err = aws_s3.Upload(
		ts.lg,
		ts.s3API,
		ts.cfg.S3.BucketName,
		path.Join(ts.cfg.S3.Dir, "graphstorm-tester.config.yaml"),
		ts.cfg.ConfigPath,
	); err != nil {
		return err
	}

	if fileutil.Exist(ts.cfg.LaunchCommandsOutputPath) {
		if err = aws_s3.Upload(
			ts.lg,
			ts.s3API,
			ts.cfg.S3.BucketName,
			path.Join(ts.cfg.S3.Dir, "graphstorm-tester.launch-commands.sh"),
			ts.cfg.LaunchCommandsOutputPath,
		); err != nil {
			return err
		}
	}

	logFilePath := ""
	for _, fpath := range ts.cfg.LogOutputs {
		if filepath.Ext(fpath) == ".log" {
			logFilePath = fpath
			break
		}
	}
	if fileutil.Exist(logFilePath) {
		if err = aws_s3.Upload(
			ts.lg,
			ts.s3API,
			ts.cfg.S3.BucketName,
			path.Join(ts.cfg.S3.Dir, "graphstorm-tester.log"),
			logFilePath,
		); err != nil {
			return err
		}
	}

	return nil
}
