// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command stackkern runs the image stack kernels on synthetic stacks.
//
// Usage:
//
//	stackkern info
//	stackkern rotate --shape 8,1024,1024 --sense ccw --check
//	stackkern mean --shape 64,512,512 --nan-fraction 0.05
//	stackkern verify
//
// Kernel failures exit with the kernel status code: 1 when working memory
// could not be reserved, 2 for a cleanup anomaly, 3 for rejected arguments.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajroetker/go-imagestack/hwy/contrib/image"
	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

const version = "v0.1.0"

// app holds the flags shared by every subcommand.
type app struct {
	workers int
	budget  int64
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "stackkern",
		Short:         "Rotate and reduce stacks of 2-D images",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	flags := root.PersistentFlags()
	flags.IntVarP(&a.workers, "workers", "w", 0, "worker pool size (0: "+workerpool.NumWorkersEnv+" or GOMAXPROCS, 1: sequential)")
	flags.Int64Var(&a.budget, "budget", 0, "working memory limit in bytes (0: unlimited)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log timings and configuration")

	root.AddCommand(
		a.newInfoCmd(),
		a.newRotateCmd(),
		a.newMeanCmd(),
		a.newVerifyCmd(),
	)
	return root
}

// pool returns the worker pool selected by --workers, nil for sequential.
// The caller closes non-nil pools.
func (a *app) pool() *workerpool.Pool {
	if a.workers == 1 {
		return nil
	}
	return workerpool.New(a.workers)
}

// kernelOptions returns the options implied by the shared flags. Every call
// builds a fresh Budget.
func (a *app) kernelOptions() []image.Option {
	if a.budget <= 0 {
		return nil
	}
	return []image.Option{image.WithAllocator(image.NewBudget(a.budget))}
}

// exitCode maps an error to the process exit status: the kernel status for
// errors from the image package, 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, image.ErrAllocation), errors.Is(err, image.ErrCleanup),
		errors.Is(err, image.ErrShape), errors.Is(err, image.ErrBufferSize), errors.Is(err, image.ErrSense):
		return int(image.StatusOf(err))
	default:
		return 1
	}
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stackkern:", err)
		os.Exit(exitCode(err))
	}
}
