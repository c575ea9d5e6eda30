// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package traffic asks the Google Routes API how long a drive takes right now
// and turns that duration into a traffic level.
package traffic

import (
	"fmt"
	"strings"
)

// Level is the traffic severity of a route.
type Level int

// Known traffic levels. LevelError is not a traffic condition, it signals that
// no duration could be obtained.
const (
	LevelNormal   Level = 0
	LevelModerate Level = 1
	LevelHeavy    Level = 2
	LevelError    Level = -1
)

var levelNames = map[Level]string{
	LevelNormal:   "NORMAL",
	LevelModerate: "MODERATE",
	LevelHeavy:    "HEAVY",
	LevelError:    "ERROR",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}

	return fmt.Sprintf("Level(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if _, ok := levelNames[l]; !ok {
		return nil, fmt.Errorf("unknown traffic level %d", int(l))
	}

	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}

	*l = level

	return nil
}

// ParseLevel is the inverse of Level.String. Matching is case insensitive.
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}

	return LevelError, fmt.Errorf("unknown traffic level %q", s)
}

// Thresholds separate the traffic levels. Both are exclusive upper bounds:
// LowerSec for NORMAL and UpperSec for MODERATE. Nothing forces
// LowerSec <= UpperSec; see Inverted.
type Thresholds struct {
	LowerSec int `json:"lower_sec" mapstructure:"lower_sec"`
	UpperSec int `json:"upper_sec" mapstructure:"upper_sec"`
}

// Inverted reports whether the MODERATE band is empty.
func (t Thresholds) Inverted() bool {
	return t.LowerSec > t.UpperSec
}

// Classify maps a travel duration to a traffic level.
func Classify(durationSec int, t Thresholds) Level {
	switch {
	case durationSec < t.LowerSec:
		return LevelNormal
	case durationSec < t.UpperSec:
		return LevelModerate
	default:
		return LevelHeavy
	}
}
