// Package version holds the build version, set with
// -ldflags "-X github.com/donghaozhang/video-agent-skill-sub001/pkg/version.Version=v1.2.3".
package version

var Version = "dev"
