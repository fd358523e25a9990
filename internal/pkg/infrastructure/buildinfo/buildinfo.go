package buildinfo

import "runtime/debug"

// SourceVersion returns the VCS revision this binary was built from, with a
// trailing + when the working tree was dirty.
func SourceVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	infoMap := map[string]string{}
	for _, s := range buildInfo.Settings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	if sha == "" {
		return "unknown"
	}

	return sha
}
