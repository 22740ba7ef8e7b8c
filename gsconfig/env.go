package gsconfig

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	// EnvironmentVariablePrefixS3 is the environment variable prefix used for "gsconfig.S3".
	EnvironmentVariablePrefixS3 = GRAPHSTORM_TESTER_PREFIX + "S3_"
	// EnvironmentVariablePrefixECR is the environment variable prefix used for "gsconfig.ECR".
	EnvironmentVariablePrefixECR = GRAPHSTORM_TESTER_PREFIX + "ECR_"
	// EnvironmentVariablePrefixRole is the environment variable prefix used for "gsconfig.Role".
	EnvironmentVariablePrefixRole = GRAPHSTORM_TESTER_PREFIX + "ROLE_"
	// EnvironmentVariablePrefixPython is the environment variable prefix used for "gsconfig.Python".
	EnvironmentVariablePrefixPython = GRAPHSTORM_TESTER_PREFIX + "PYTHON_"
	// EnvironmentVariablePrefixTrain is the environment variable prefix used for "gsconfig.Train".
	EnvironmentVariablePrefixTrain = GRAPHSTORM_TESTER_PREFIX + "TRAIN_"
	// EnvironmentVariablePrefixInfer is the environment variable prefix used for "gsconfig.Infer".
	EnvironmentVariablePrefixInfer = GRAPHSTORM_TESTER_PREFIX + "INFER_"
	// EnvironmentVariablePrefixRegression is the environment variable prefix used for "gsconfig.Regression".
	EnvironmentVariablePrefixRegression = GRAPHSTORM_TESTER_PREFIX + "REGRESSION_"
)

// UpdateFromEnvs updates fields from environmental variables.
// Empty values are ignored and do not overwrite fields with empty values.
// WARNING: The environmental variable value always overwrites current field
// values if there's a conflict.
func (cfg *Config) UpdateFromEnvs() (err error) {
	cfg.mu.Lock()
	defer func() {
		cfg.unsafeSync()
		cfg.mu.Unlock()
	}()

	var vv interface{}
	vv, err = parseEnvs(GRAPHSTORM_TESTER_PREFIX, cfg)
	if err != nil {
		return err
	}
	if av, ok := vv.(*Config); ok {
		cfg = av
	} else {
		return fmt.Errorf("expected *Config, got %T", vv)
	}

	if cfg.S3 == nil {
		cfg.S3 = getDefaultS3()
	}
	vv, err = parseEnvs(EnvironmentVariablePrefixS3, cfg.S3)
	if err != nil {
		return err
	}
	if av, ok := vv.(*S3); ok {
		cfg.S3 = av
	} else {
		return fmt.Errorf("expected *S3, got %T", vv)
	}

	if cfg.ECR == nil {
		cfg.ECR = getDefaultECR()
	}
	vv, err = parseEnvs(EnvironmentVariablePrefixECR, cfg.ECR)
	if err != nil {
		return err
	}
	if av, ok := vv.(*ECR); ok {
		cfg.ECR = av
	} else {
		return fmt.Errorf("expected *ECR, got %T", vv)
	}

	if cfg.Role == nil {
		cfg.Role = &Role{}
	}
	vv, err = parseEnvs(EnvironmentVariablePrefixRole, cfg.Role)
	if err != nil {
		return err
	}
	if av, ok := vv.(*Role); ok {
		cfg.Role = av
	} else {
		return fmt.Errorf("expected *Role, got %T", vv)
	}

	if cfg.Python == nil {
		cfg.Python = getDefaultPython()
	}
	vv, err = parseEnvs(EnvironmentVariablePrefixPython, cfg.Python)
	if err != nil {
		return err
	}
	if av, ok := vv.(*Python); ok {
		cfg.Python = av
	} else {
		return fmt.Errorf("expected *Python, got %T", vv)
	}

	if cfg.Train == nil {
		cfg.Train = getDefaultTrain()
	}
	vv, err = parseEnvs(EnvironmentVariablePrefixTrain, cfg.Train)
	if err != nil {
		return err
	}
	if av, ok := vv.(*Train); ok {
		cfg.Train = av
	} else {
		return fmt.Errorf("expected *Train, got %T", vv)
	}

	if cfg.Infer == nil {
		cfg.Infer = getDefaultInfer()
	}
	vv, err = parseEnvs(EnvironmentVariablePrefixInfer, cfg.Infer)
	if err != nil {
		return err
	}
	if av, ok := vv.(*Infer); ok {
		cfg.Infer = av
	} else {
		return fmt.Errorf("expected *Infer, got %T", vv)
	}

	if cfg.Regression == nil {
		cfg.Regression = getDefaultRegression()
	}
	vv, err = parseEnvs(EnvironmentVariablePrefixRegression, cfg.Regression)
	if err != nil {
		return err
	}
	if av, ok := vv.(*Regression); ok {
		cfg.Regression = av
	} else {
		return fmt.Errorf("expected *Regression, got %T", vv)
	}

	return nil
}

func parseEnvs(pfx string, addOn interface{}) (interface{}, error) {
	tp, vv := reflect.TypeOf(addOn).Elem(), reflect.ValueOf(addOn).Elem()
	for i := 0; i < tp.NumField(); i++ {
		jv := tp.Field(i).Tag.Get("json")
		if jv == "" {
			continue
		}
		jv = strings.Replace(jv, ",omitempty", "", -1)
		jv = strings.ToUpper(strings.Replace(jv, "-", "_", -1))
		env := pfx + jv
		sv := os.Getenv(env)
		if sv == "" {
			continue
		}
		if tp.Field(i).Tag.Get("read-only") == "true" { // error when read-only field is set for update
			return nil, fmt.Errorf("'%s=%s' is 'read-only' field; should not be set", env, sv)
		}
		fieldName := tp.Field(i).Name

		switch vv.Field(i).Type().Kind() {
		case reflect.String:
			vv.Field(i).SetString(sv)

		case reflect.Bool:
			bb, err := strconv.ParseBool(sv)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
			}
			vv.Field(i).SetBool(bb)

		case reflect.Int, reflect.Int32, reflect.Int64:
			if vv.Field(i).Type().Name() == "Duration" {
				iv, err := time.ParseDuration(sv)
				if err != nil {
					return nil, fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
				}
				vv.Field(i).SetInt(int64(iv))
			} else {
				iv, err := strconv.ParseInt(sv, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
				}
				vv.Field(i).SetInt(iv)
			}

		case reflect.Uint, reflect.Uint32, reflect.Uint64:
			iv, err := strconv.ParseUint(sv, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
			}
			vv.Field(i).SetUint(iv)

		case reflect.Float32, reflect.Float64:
			fv, err := strconv.ParseFloat(sv, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %q (field name %q, environmental variable key %q, error %v)", sv, fieldName, env, err)
			}
			vv.Field(i).SetFloat(fv)

		case reflect.Slice: // only supports "[]string" for now
			ss := strings.Split(sv, ",")
			if len(ss) < 1 {
				continue
			}
			slice := reflect.MakeSlice(reflect.TypeOf([]string{}), len(ss), len(ss))
			for j := range ss {
				slice.Index(j).SetString(ss[j])
			}
			vv.Field(i).Set(slice)
		}
	}
	return addOn, nil
}
