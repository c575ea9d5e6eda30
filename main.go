// Copyright 2025 The TrafficMap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/trafficmap/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
