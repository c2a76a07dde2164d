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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notargets/netgenplugin/InputParameters"
	"github.com/notargets/netgenplugin/logger"
)

// SelfTestCmd writes the built-in test record and reads it back
var SelfTestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Round trip a fully populated parameter record through the file format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.MkdirTemp("", "netgenplugin")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		path := filepath.Join(dir, "selftest.hyp")
		if err = InputParameters.RoundTrip(path, InputParameters.SelfTestParams()); err != nil {
			return err
		}
		logger.Debug("self test record", "file", path)
		fmt.Fprintln(cmd.OutOrStdout(), "parameter round trip OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(SelfTestCmd)
}
