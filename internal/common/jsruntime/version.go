package jsruntime

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/blang/semver"
)

const (
	engineModule = "github.com/dop251/goja"
	// engine version pinned in go.mod, used when build info is unavailable (e.g. some test binaries)
	engineFallbackVersion = "v0.0.0-20250309171923-bcd7cc6bf64c"
	engineBranch          = "master"
)

type engineVersion struct {
	describe string
	commit   string
	numeric  uint32
}

var engineInfo = sync.OnceValue(func() engineVersion {
	v := engineFallbackVersion
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			if dep.Path != engineModule {
				continue
			}
			v = dep.Version
			if dep.Replace != nil && dep.Replace.Version != "" {
				v = dep.Replace.Version
			}
			break
		}
	}
	return parseEngineVersion(v)
})

// parseEngineVersion understands both release tags and Go pseudo-versions
// (vX.Y.Z-yyyymmddhhmmss-abcdefabcdef).
func parseEngineVersion(v string) engineVersion {
	ev := engineVersion{describe: v, commit: "unknown"}
	if sv, err := semver.ParseTolerant(v); err == nil {
		ev.numeric = uint32(sv.Major*10000 + sv.Minor*100 + sv.Patch)
	}
	if i := strings.LastIndexByte(v, '-'); i >= 0 && len(v)-i-1 == 12 {
		ev.commit = v[i+1:]
	}
	return ev
}

// Version returns the engine version as major*10000 + minor*100 + patch.
func Version() uint32 {
	return engineInfo().numeric
}

func GitCommit() string {
	return engineInfo().commit
}

func GitDescribe() string {
	return engineInfo().describe
}

func GitBranch() string {
	return engineBranch
}

// VersionInfo is a one line summary: "describe (branch/commit)".
func VersionInfo() string {
	commit := GitCommit()
	if len(commit) > 9 {
		commit = commit[:9]
	}
	return fmt.Sprintf("%s (%s/%s)", GitDescribe(), GitBranch(), commit)
}
