package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/rowgit"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rowgit version and build details",
	Run: func(cmd *cobra.Command, args []string) {
		v := strings.TrimSpace(rowgit.Version)
		if versionShort {
			fmt.Println(v)
			return
		}
		fmt.Printf("rowgit %s (%s %s/%s)\n", v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/go-git/go-git/v6" {
					fmt.Printf("go-git %s\n", dep.Version)
				}
			}
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}
