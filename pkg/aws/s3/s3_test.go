package s3

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/service/s3"
	pkg_aws "github.com/aws/graphstorm-tester/pkg/aws"
	"github.com/aws/graphstorm-tester/pkg/randutil"
	"go.uber.org/zap"
)

func TestParseURI(t *testing.T) {
	bucket, s3Key, err := ParseURI("s3://graphstorm-regression/mag/lp")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "graphstorm-regression" {
		t.Fatalf("unexpected bucket %q", bucket)
	}
	if s3Key != "mag/lp" {
		t.Fatalf("unexpected key %q", s3Key)
	}

	bucket, s3Key, err = ParseURI("s3://graphstorm-regression")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "graphstorm-regression" {
		t.Fatalf("unexpected bucket %q", bucket)
	}
	if s3Key != "" {
		t.Fatalf("unexpected key %q", s3Key)
	}

	bucket, s3Key, err = ParseURI("s3://graphstorm-regression/mag/lp/")
	if err != nil {
		t.Fatal(err)
	}
	if s3Key != "mag/lp" {
		t.Fatalf("unexpected key %q", s3Key)
	}

	if _, _, err = ParseURI("https://graphstorm-regression/mag"); err == nil {
		t.Fatal("expected error for non-s3 scheme")
	}
	if _, _, err = ParseURI("s3:///mag"); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

func TestS3(t *testing.T) {
	lg := zap.NewExample()
	ss, _, _, err := pkg_aws.New(&pkg_aws.Config{
		Logger:    lg,
		Partition: "aws",
		Region:    "us-west-2",
	})
	if err != nil {
		t.Skip(err)
	}
	s3API := s3.New(ss)

	bucket := randutil.String(15)
	dir := filepath.Join("hello", "world")
	if err = CreateBucket(lg, s3API, bucket, "us-west-2", "", 0); err != nil {
		t.Fatal(err)
	}
	defer func() {
		t.Logf("EmptyBucket: %v", EmptyBucket(lg, s3API, bucket))
		t.Logf("DeleteBucket: %v", DeleteBucket(lg, s3API, bucket))
	}()

	s3Key := filepath.Join(dir, randutil.String(10))
	if err = UploadBody(
		lg,
		s3API,
		bucket,
		s3Key,
		bytes.NewReader(randutil.Bytes(10)),
	); err != nil {
		t.Fatal(err)
	}
	if _, err = Exist(lg, s3API, bucket, s3Key); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	ch := PollUntilExist(
		ctx,
		make(chan struct{}),
		lg,
		os.Stderr,
		s3API,
		bucket,
		s3Key,
		5*time.Second,
		10*time.Second,
	)
	for v := range ch {
		err = v.Error
	}
	cancel()
	if err != nil {
		t.Fatal(err)
	}

	localPath, err := DownloadToTempFile(lg, s3API, bucket, s3Key, WithOverwrite(true))
	if err != nil {
		t.Fatal(err)
	}
	os.RemoveAll(localPath)
}
