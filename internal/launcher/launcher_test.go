package launcher

import "testing"

func TestParseJobName(t *testing.T) {
	out := []byte(`Requirements already satisfied
INFO:sagemaker.image_uris:image uri 123456789012.dkr.ecr.us-east-1.amazonaws.com/graphstorm:sm
INFO:sagemaker:Creating training-job with name: gs-mag-lp-2023-04-11-02-12-52-317
INFO:sagemaker:job submitted`)
	name := parseJobName(out)
	if name != "gs-mag-lp-2023-04-11-02-12-52-317" {
		t.Fatalf("unexpected job name %q", name)
	}

	out = []byte("INFO:sagemaker:Creating processing-job with name: gs-mag-gconstruct-2023-04-11-02-12-52-317\n")
	name = parseJobName(out)
	if name != "gs-mag-gconstruct-2023-04-11-02-12-52-317" {
		t.Fatalf("unexpected job name %q", name)
	}

	if name = parseJobName([]byte("launch failed before job creation")); name != "" {
		t.Fatalf("expected empty job name, got %q", name)
	}
}
