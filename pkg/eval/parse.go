package eval

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Score is one evaluation round parsed from training output.
type Score struct {
	Round int
	Val   float64
	Test  float64
}

const floatPattern = `(-?[0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)`

// ParseScores extracts per-round validation and test scores for the
// metric from training output. The framework prints one line per
// round, e.g. "val accuracy: 0.617, test accuracy: 0.612".
// "best val" summary lines are skipped.
func ParseScores(output []byte, metric string) ([]Score, error) {
	re, err := regexp.Compile(fmt.Sprintf(
		`(?i)val\s+%s\s*:\s*%s.*?test\s+%s\s*:\s*%s`,
		regexp.QuoteMeta(metric), floatPattern,
		regexp.QuoteMeta(metric), floatPattern,
	))
	if err != nil {
		return nil, err
	}

	var scores []Score
	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	round := 0
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(strings.ToLower(line), "best val") {
			continue
		}
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, verr := strconv.ParseFloat(m[1], 64)
		t, terr := strconv.ParseFloat(m[2], 64)
		if verr != nil || terr != nil {
			continue
		}
		scores = append(scores, Score{Round: round, Val: v, Test: t})
		round++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, errors.Errorf("no %q scores found in output", metric)
	}
	return scores, nil
}
