// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShortFrame is returned for frames that cannot be split into two bands.
var ErrShortFrame = errors.New("analysis: spectrum frame shorter than 2 samples")

// SplitPolicy selects where a frame is cut into bass and treble halves.
type SplitPolicy int

const (
	// SplitLegacy cuts at mid-1 on both sides: lower = [0, mid-1),
	// upper = [mid-1, len-1). The last sample belongs to neither half.
	SplitLegacy SplitPolicy = iota
	// SplitClean cuts at mid: lower = [0, mid), upper = [mid, len).
	SplitClean
)

func (p SplitPolicy) String() string {
	switch p {
	case SplitLegacy:
		return "legacy"
	case SplitClean:
		return "clean"
	default:
		return fmt.Sprintf("SplitPolicy(%d)", int(p))
	}
}

// ParseSplitPolicy maps a config name to a SplitPolicy.
func ParseSplitPolicy(name string) (SplitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "legacy", "":
		return SplitLegacy, nil
	case "clean":
		return SplitClean, nil
	default:
		return SplitLegacy, fmt.Errorf("unknown split policy %q (want legacy or clean)", name)
	}
}

// Features are the two scalar band intensities derived from one frame.
type Features struct {
	Bass   float64 `json:"bass"`   // max(lower) / len(lower)
	Treble float64 `json:"treble"` // avg(upper) / len(upper)
}

// Split partitions frame into its lower and upper halves according to
// policy. The returned slices alias frame.
func Split(frame Frame, policy SplitPolicy) (lower, upper Frame) {
	mid := len(frame) / 2
	if policy == SplitClean {
		return frame[:mid], frame[mid:]
	}
	cut := max(mid-1, 0)
	end := max(len(frame)-1, cut)
	return frame[:cut], frame[cut:end]
}

// Extractor reduces frames to Features using a fixed split policy.
type Extractor struct {
	policy SplitPolicy
}

// NewExtractor returns an Extractor using policy.
func NewExtractor(policy SplitPolicy) *Extractor {
	return &Extractor{policy: policy}
}

// Policy returns the split policy in use.
func (e *Extractor) Policy() SplitPolicy {
	return e.policy
}

// Extract computes bass and treble intensities. An empty half contributes 0.
func (e *Extractor) Extract(frame Frame) (Features, error) {
	if len(frame) < 2 {
		return Features{}, ErrShortFrame
	}
	lower, upper := Split(frame, e.policy)

	var feat Features
	if len(lower) > 0 {
		feat.Bass = float64(maxOf(lower)) / float64(len(lower))
	}
	if len(upper) > 0 {
		feat.Treble = average(upper) / float64(len(upper))
	}
	return feat, nil
}

// maxOf returns the largest sample, or 0 for an empty frame.
func maxOf(frame Frame) uint8 {
	var m uint8
	for _, v := range frame {
		if v > m {
			m = v
		}
	}
	return m
}

func average(frame Frame) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum int
	for _, v := range frame {
		sum += int(v)
	}
	return float64(sum) / float64(len(frame))
}
