// Package buildinfo exposes version information injected at link time:
//
//	go build -ldflags "-X github.com/yndnr/skillgate-go/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/yndnr/skillgate-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// When Commit is not injected, the VCS revision recorded by the Go
// toolchain is used if present.
package buildinfo
