/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/pkg/profile"

	"github.com/notargets/netgenplugin/logger"
)

// startProfile starts a cpu or mem profile written to the working directory
func startProfile(kind string) (stop func()) {
	var mode func(*profile.Profile)
	switch kind {
	case "":
		return func() {}
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	default:
		logger.Warn("unknown profile kind, not profiling", "profile", kind)
		return func() {}
	}
	return profile.Start(mode, profile.ProfilePath("."), profile.Quiet).Stop
}
