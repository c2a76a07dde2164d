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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notargets/netgenplugin/InputParameters"
)

// errDiffer marks a params diff that found differing fields
var errDiffer = errors.New("parameter files differ")

// ParamsCmd groups the parameter file utilities
var ParamsCmd = &cobra.Command{
	Use:   "params",
	Short: "Inspect, compare and convert NETGEN parameter files",
}

var paramsPrintCmd = &cobra.Command{
	Use:   "print FILE",
	Short: "Print every field of a parameter file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readParams(args[0])
		if err != nil {
			return err
		}
		p.Fprint(cmd.OutOrStdout())
		return nil
	},
}

var paramsDiffCmd = &cobra.Command{
	Use:   "diff FILE_A FILE_B",
	Short: "Show the fields that differ between two parameter files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := readParams(args[0])
		if err != nil {
			return err
		}
		b, err := readParams(args[1])
		if err != nil {
			return err
		}
		if report := InputParameters.DiffReport(a, b); report != "" {
			fmt.Fprint(cmd.OutOrStdout(), report)
			return errDiffer
		}
		return nil
	},
}

var paramsConvertCmd = &cobra.Command{
	Use:   "convert IN OUT",
	Short: "Convert between the YAML and line record forms, picked by extension",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readParams(args[0])
		if err != nil {
			return err
		}
		if !isYAML(args[1]) {
			return InputParameters.Export(args[1], p)
		}
		data, err := p.ToYAML()
		if err != nil {
			return err
		}
		return os.WriteFile(args[1], data, 0644)
	},
}

func readParams(path string) (*InputParameters.NetgenParams, error) {
	if name := paramsFormatTag(); name != "" {
		tag, ok := InputParameters.ParseFormatTag(name)
		if !ok {
			return nil, fmt.Errorf("unknown parameter format %q", name)
		}
		return InputParameters.ImportTagged(path, tag)
	}
	return InputParameters.ImportAuto(path)
}

func paramsFormatTag() string {
	tag, _ := ParamsCmd.PersistentFlags().GetString("format-tag")
	return tag
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func init() {
	rootCmd.AddCommand(ParamsCmd)
	ParamsCmd.AddCommand(paramsPrintCmd, paramsDiffCmd, paramsConvertCmd)
	ParamsCmd.PersistentFlags().String("format-tag", "", "read the files as this format instead of guessing from the name")
}
