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

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ajroetker/go-imagestack/hwy"
	"github.com/ajroetker/go-imagestack/hwy/contrib/workerpool"
)

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show CPU dispatch level and worker pool defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "stackkern %s\n", version)
			fmt.Fprintf(w, "SIMD level:      %s (%d bytes, %d float32 lanes, %d float64 lanes)\n",
				hwy.CurrentName(), hwy.CurrentWidth(), hwy.MaxLanes[float32](), hwy.MaxLanes[float64]())
			fmt.Fprintf(w, "GOMAXPROCS:      %d\n", runtime.GOMAXPROCS(0))
			fmt.Fprintf(w, "default workers: %d\n", workerpool.DefaultWorkers())
			return nil
		},
	}
}
