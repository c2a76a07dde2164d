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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notargets/netgenplugin/InputParameters"
	"github.com/notargets/netgenplugin/driver"
	"github.com/notargets/netgenplugin/logger"
	"github.com/notargets/netgenplugin/types"
)

const usageText = `Syntax:
run_mesher MESHER INPUT_MESH_FILE SHAPE_FILE HYPO_FILE
           ELEM_ORIENT_FILE
           NEW_ELEMENT_FILE OUTPUT_MESH_FILE

 Set argument to NONE to ignore them

Args:
  MESHER: mesher to use from (NETGEN3D, NETGEN2D)
  INPUT_MESH_FILE: Gmsh file containing lower-dimension-elements already meshed
  SHAPE_FILE: shape descriptor (.yaml, .json) or STEP file containing the shape to mesh
  HYPO_FILE: Ascii file containing the list of parameters
  (optional) ELEM_ORIENT_FILE: binary file containing the list of element from INPUT_MESH_FILE associated to the shape and their orientation
  (optional) NEW_ELEMENT_FILE: (out) contains elements and nodes added by the meshing
  (optional) OUTPUT_MESH_FILE: (out) Gmsh file containing the mesh after the run of the mesher
`

var cfgFile string

// usageError is a command line with the wrong number of arguments
type usageError struct {
	nbArgs int
}

func (e *usageError) Error() string {
	return fmt.Sprintf("Error in number of arguments %d given expected 7", e.nbArgs)
}

// rootCmd runs one batch meshing
var rootCmd = &cobra.Command{
	Use:   "run_mesher MESHER INPUT_MESH_FILE SHAPE_FILE HYPO_FILE ELEM_ORIENT_FILE NEW_ELEMENT_FILE OUTPUT_MESH_FILE",
	Short: "Batch mesher filling a boundary mesh with triangles or tetrahedra",
	Long:  usageText,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Configure(viper.GetString("log-level"), viper.GetString("log-file"))
	},
	Args:          cobra.ArbitraryArgs,
	RunE:          runMesher,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status of the run
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var ue *usageError
		if !errors.As(err, &ue) {
			logger.Error(err.Error())
		}
	}
	os.Exit(ExitCode(err))
}

/*
ExitCode maps the result of a command to the process status. A wrong argument
count exits with 1, or 0 when --usage-exit-zero asks for the legacy status.
*/
func ExitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue) && viper.GetBool("usage-exit-zero"):
		return 0
	}
	return 1
}

func runMesher(cmd *cobra.Command, args []string) (err error) {
	if len(args) != 7 {
		out := cmd.OutOrStdout()
		err = &usageError{nbArgs: len(args)}
		fmt.Fprintln(out, err.Error())
		fmt.Fprint(out, usageText)
		return
	}
	mesher, ok := types.NewMesherType(args[0])
	if !ok {
		return fmt.Errorf("Unknown mesher: %s", args[0])
	}
	var opts driver.Options
	if opts, err = runOptions(); err != nil {
		return
	}
	stopProfile := startProfile(viper.GetString("profile"))
	defer stopProfile()
	if viper.GetBool("perf") {
		// perf_event_open is often refused to unprivileged users, the run goes on without counters
		if stopPerf, perr := startPerf(); perr != nil {
			logger.Warn("no hardware counters", "error", perr)
		} else {
			defer stopPerf(cmd.ErrOrStderr())
		}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	_, err = driver.RunFiles(ctx, driver.Files{
		Mesher:      mesher,
		InputMesh:   args[1],
		Shape:       args[2],
		Params:      args[3],
		Orientation: args[4],
		NewElements: args[5],
		OutputMesh:  args[6],
	}, opts)
	return
}

func runOptions() (opts driver.Options, err error) {
	opts.Threads = viper.GetInt("threads")
	if name := viper.GetString("format-tag"); name != "" {
		tag, ok := InputParameters.ParseFormatTag(name)
		if !ok {
			return opts, fmt.Errorf("unknown parameter format %q", name)
		}
		opts.FormatTag = &tag
	}
	return
}

func init() {
	cobra.OnInitialize(initConfig)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.netgenplugin.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-file", "", "write the log to this file instead of stderr")
	rootCmd.Flags().Int("threads", 0, "kernel threads, overrides nbThreads of the parameter file")
	rootCmd.Flags().String("profile", "", "write a cpu or mem profile of the run")
	rootCmd.Flags().Bool("perf", false, "report hardware counters of the run (Linux)")
	rootCmd.Flags().String("format-tag", "", "parameter file format: hypothesis, simple2D, simple3D, maxarea, lengthfromedges")
	rootCmd.Flags().Bool("usage-exit-zero", false, "exit with status 0 on a wrong argument count")
	bind := func(f *pflag.Flag) {
		if f.Name != "config" {
			_ = viper.BindPFlag(f.Name, f)
		}
	}
	pf.VisitAll(bind)
	rootCmd.Flags().VisitAll(bind)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			logger.Error("config file", "error", err)
			os.Exit(1)
		}
		viper.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			logger.Error("home directory", "error", err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".netgenplugin")
	}
	viper.SetEnvPrefix("NETGENPLUGIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("Using config file", "file", viper.ConfigFileUsed())
	}
}
